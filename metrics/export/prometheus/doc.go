// Package prometheus exposes authcore engine metrics as a
// client_golang [prometheus.Collector].
//
// Counters are authcore_*_total; latencies are the authcore_*_latency_seconds
// histograms. The collector reads one snapshot per scrape and never mutates
// the engine. Callers register it in their own registry.
package prometheus
