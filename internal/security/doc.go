// Package security summarises the security posture of an engine
// configuration for startup logs and health checks.
package security
