package authcore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadConfigFromEnv starts from DefaultConfig and overrides it from AUTH_*
// environment variables. A .env file in the working directory is loaded first
// when present; variables already set in the process win.
func LoadConfigFromEnv() (Config, error) {
	return LoadConfigFromEnvFiles(".env")
}

// LoadConfigFromEnvFiles is LoadConfigFromEnv with explicit dotenv files.
// Missing files are skipped.
func LoadConfigFromEnvFiles(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := DefaultConfig()
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg.JWT.AccessSecret = []byte(envString("AUTH_ACCESS_SECRET", ""))
	cfg.JWT.RefreshSecret = []byte(envString("AUTH_REFRESH_SECRET", ""))
	cfg.JWT.SigningMethod = envString("AUTH_SIGNING_METHOD", cfg.JWT.SigningMethod)
	cfg.JWT.Issuer = envString("AUTH_ISSUER", cfg.JWT.Issuer)
	cfg.JWT.Audience = envString("AUTH_AUDIENCE", cfg.JWT.Audience)
	collect(envDuration("AUTH_ACCESS_TTL", &cfg.JWT.AccessTTL))
	collect(envDuration("AUTH_REFRESH_TTL", &cfg.JWT.RefreshTTL))

	collect(envInt("AUTH_MAX_FAILED_ATTEMPTS", &cfg.Lockout.MaxFailedAttempts))
	collect(envDuration("AUTH_LOCKOUT_DURATION", &cfg.Lockout.Duration))

	collect(envDuration("AUTH_SESSION_MAX_IDLE", &cfg.Session.MaxIdle))
	collect(envInt("AUTH_SESSION_MAX_PER_ACCOUNT", &cfg.Session.MaxPerAccount))

	collect(envInt("AUTH_RATE_LOGIN_MAX", &cfg.RateLimit.Login.MaxRequests))
	collect(envDuration("AUTH_RATE_LOGIN_WINDOW", &cfg.RateLimit.Login.Window))
	collect(envInt("AUTH_RATE_API_MAX", &cfg.RateLimit.API.MaxRequests))
	collect(envDuration("AUTH_RATE_API_WINDOW", &cfg.RateLimit.API.Window))
	collect(envInt("AUTH_RATE_REGISTER_MAX", &cfg.RateLimit.Register.MaxRequests))
	collect(envDuration("AUTH_RATE_REGISTER_WINDOW", &cfg.RateLimit.Register.Window))
	collect(envBool("AUTH_RATE_FAIL_CLOSED", &cfg.RateLimit.FailClosed))

	cfg.APIKey.Prefix = envString("AUTH_APIKEY_PREFIX", cfg.APIKey.Prefix)
	cfg.TOTP.Issuer = envString("AUTH_TOTP_ISSUER", cfg.TOTP.Issuer)
	cfg.Account.DefaultRole = envString("AUTH_DEFAULT_ROLE", cfg.Account.DefaultRole)

	collect(envInt("AUTH_PASSWORD_WORKERS", &cfg.Password.Workers))
	collect(envBool("AUTH_AUDIT_ENABLED", &cfg.Audit.Enabled))
	collect(envBool("AUTH_METRICS_ENABLED", &cfg.Metrics.Enabled))
	cfg.Store.KeyPrefix = envString("AUTH_STORE_PREFIX", cfg.Store.KeyPrefix)

	// AUTH_ROLE_<NAME>=perm1,perm2 replaces a role template; new names add roles.
	for _, kv := range os.Environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "AUTH_ROLE_") {
			continue
		}
		role := strings.ToLower(strings.TrimPrefix(name, "AUTH_ROLE_"))
		if role == "" {
			continue
		}
		cfg.Roles[role] = envList(name)
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

// envList splits a comma-separated variable, dropping empty items.
func envList(key string) []string {
	raw := envString(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func envInt(key string, dst *int) error {
	raw := envString(key, "")
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	raw := envString(key, "")
	if raw == "" {
		return nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}

func envBool(key string, dst *bool) error {
	raw := envString(key, "")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = v
	return nil
}
