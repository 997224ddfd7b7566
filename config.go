package authcore

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/permission"
)

// Config is the complete engine configuration. Build validates a deep copy, so
// later changes to the caller's value have no effect.
type Config struct {
	JWT       JWTConfig
	Session   SessionConfig
	Password  PasswordConfig
	Lockout   LockoutConfig
	RateLimit RateLimitConfig
	Account   AccountConfig
	APIKey    APIKeyConfig
	TOTP      TOTPConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Store     StoreConfig

	// Roles maps each role to its permission template.
	Roles map[string][]string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig holds token signing material. With "hs256" the secrets are shared
// keys of at least 32 bytes; with "ed25519" they are private keys and the
// public keys are derived when omitted.
type JWTConfig struct {
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	SigningMethod    string // "hs256" (default) or "ed25519"
	AccessSecret     []byte
	RefreshSecret    []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte
	Issuer           string
	Audience         string
	Leeway           time.Duration
}

/*
====================================
SESSION CONFIG
====================================
*/

type SessionConfig struct {
	MaxIdle time.Duration
	// MaxPerAccount evicts the oldest session beyond this many. 0 = unlimited.
	MaxPerAccount int
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds Argon2id cost, strength rules and the hashing pool size.
type PasswordConfig struct {
	Memory      uint32 // in KiB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MinLength     int
	MaxBytes      int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool

	UpgradeOnLogin bool
	// Workers bounds concurrent hash computations. 0 = GOMAXPROCS.
	Workers int
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

type LockoutConfig struct {
	MaxFailedAttempts int
	Duration          time.Duration
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateRule is one fixed-window threshold.
type RateRule struct {
	MaxRequests int
	Window      time.Duration
}

// RateLimitConfig holds one rule per named limiter.
type RateLimitConfig struct {
	Login    RateRule
	Register RateRule
	Refresh  RateRule
	API      RateRule
	APIKey   RateRule
	TOTP     RateRule
	// FailClosed rejects API requests when the limiter store is down. Login and
	// register always fail closed.
	FailClosed bool
}

/*
====================================
ACCOUNT CONFIG
====================================
*/

type AccountConfig struct {
	DefaultRole              string
	UsernameMinLength        int
	UsernameMaxLength        int
	EnableIPThrottle         bool
	EnableIdentifierThrottle bool
}

/*
====================================
API KEY CONFIG
====================================
*/

type APIKeyConfig struct {
	Prefix        string
	MaxPerAccount int
}

/*
====================================
TOTP CONFIG
====================================
*/

type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    time.Duration
	Algorithm string // SHA1, SHA256 or SHA512
	Skew      int
	// SetupTTL bounds how long a pending enrollment waits for confirmation.
	SetupTTL time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig controls the key-value backend built by the Builder.
type StoreConfig struct {
	// KeyPrefix namespaces every Redis key.
	KeyPrefix string
	// SweepInterval is the memory janitor period.
	SweepInterval time.Duration
}

// DefaultConfig returns production defaults. JWT secrets are left empty and
// must be supplied.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: string(jwt.MethodHS256),
			Issuer:        "authcore",
			Audience:      "authcore",
			Leeway:        0,
		},
		Session: SessionConfig{
			MaxIdle: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			MaxBytes:       256,
			RequireUpper:   true,
			RequireLower:   true,
			RequireDigit:   true,
			RequireSymbol:  true,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxFailedAttempts: 5,
			Duration:          15 * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Login:    RateRule{MaxRequests: 10, Window: time.Minute},
			Register: RateRule{MaxRequests: 5, Window: time.Hour},
			Refresh:  RateRule{MaxRequests: 30, Window: time.Minute},
			API:      RateRule{MaxRequests: 100, Window: time.Minute},
			APIKey:   RateRule{MaxRequests: 10, Window: time.Hour},
			TOTP:     RateRule{MaxRequests: 5, Window: time.Minute},
		},
		Account: AccountConfig{
			DefaultRole:              "viewer",
			UsernameMinLength:        3,
			UsernameMaxLength:        64,
			EnableIPThrottle:         true,
			EnableIdentifierThrottle: true,
		},
		APIKey: APIKeyConfig{
			Prefix:        "ak",
			MaxPerAccount: 10,
		},
		TOTP: TOTPConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30 * time.Second,
			Algorithm: "SHA1",
			Skew:      1,
			SetupTTL:  10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Store: StoreConfig{
			KeyPrefix:     "authcore:",
			SweepInterval: time.Minute,
		},
		Roles: permission.DefaultRoles(),
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = slices.Clone(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = slices.Clone(cfg.JWT.RefreshSecret)
	out.JWT.AccessPublicKey = slices.Clone(cfg.JWT.AccessPublicKey)
	out.JWT.RefreshPublicKey = slices.Clone(cfg.JWT.RefreshPublicKey)
	if cfg.Roles != nil {
		out.Roles = make(map[string][]string, len(cfg.Roles))
		for role, perms := range cfg.Roles {
			out.Roles[role] = slices.Clone(perms)
		}
	}
	return out
}

// Validate checks every section and reports the first problem.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch jwt.SigningMethod(strings.ToLower(c.JWT.SigningMethod)) {
	case jwt.MethodHS256:
		if len(c.JWT.AccessSecret) < jwt.MinHMACKeyBytes || len(c.JWT.RefreshSecret) < jwt.MinHMACKeyBytes {
			return fmt.Errorf("JWT secrets must be at least %d bytes", jwt.MinHMACKeyBytes)
		}
		if string(c.JWT.AccessSecret) == string(c.JWT.RefreshSecret) {
			return errors.New("JWT access and refresh secrets must differ")
		}
	case jwt.MethodEd25519:
		if len(c.JWT.AccessSecret) == 0 && len(c.JWT.AccessPublicKey) == 0 {
			return errors.New("ed25519 requires an access key")
		}
		if len(c.JWT.RefreshSecret) == 0 && len(c.JWT.RefreshPublicKey) == 0 {
			return errors.New("ed25519 requires a refresh key")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.MaxIdle <= 0 {
		return errors.New("Session MaxIdle must be > 0")
	}
	if c.Session.MaxPerAccount < 0 {
		return errors.New("Session MaxPerAccount must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KiB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxBytes < c.Password.MinLength {
		return errors.New("Password MaxBytes must be >= MinLength")
	}
	if c.Password.Workers < 0 {
		return errors.New("Password Workers must be >= 0")
	}

	// Lockout
	if c.Lockout.MaxFailedAttempts <= 0 {
		return errors.New("Lockout MaxFailedAttempts must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Rate limits
	for name, rule := range c.RateLimit.rules() {
		if rule.MaxRequests <= 0 || rule.Window <= 0 {
			return fmt.Errorf("RateLimit %s requires MaxRequests > 0 and Window > 0", name)
		}
	}

	// Account
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole must be set")
	}
	if c.Account.UsernameMinLength < 1 || c.Account.UsernameMaxLength < c.Account.UsernameMinLength {
		return errors.New("Account username length bounds are invalid")
	}

	// API keys
	if c.APIKey.Prefix == "" || strings.ContainsAny(c.APIKey.Prefix, "_ \t") {
		return errors.New("APIKey Prefix must be non-empty without '_' or spaces")
	}
	if c.APIKey.MaxPerAccount <= 0 {
		return errors.New("APIKey MaxPerAccount must be > 0")
	}

	// TOTP
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("TOTP Digits must be between 6 and 8")
	}
	if c.TOTP.Period < time.Second {
		return errors.New("TOTP Period must be >= 1s")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 3 {
		return errors.New("TOTP Skew must be between 0 and 3")
	}
	switch strings.ToUpper(c.TOTP.Algorithm) {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("TOTP Algorithm must be SHA1, SHA256 or SHA512")
	}
	if c.TOTP.SetupTTL <= 0 {
		return errors.New("TOTP SetupTTL must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	// Store
	if c.Store.SweepInterval <= 0 {
		return errors.New("Store SweepInterval must be > 0")
	}

	// Roles
	if len(c.Roles) == 0 {
		return errors.New("Roles must not be empty")
	}
	if _, ok := c.Roles[c.Account.DefaultRole]; !ok {
		return fmt.Errorf("Account DefaultRole %q is not a configured role", c.Account.DefaultRole)
	}

	return nil
}

// rules names each limiter. The names double as kvstore namespaces.
func (r RateLimitConfig) rules() map[string]RateRule {
	return map[string]RateRule{
		LimiterLogin:    r.Login,
		LimiterRegister: r.Register,
		LimiterRefresh:  r.Refresh,
		LimiterAPI:      r.API,
		LimiterAPIKey:   r.APIKey,
		LimiterTOTP:     r.TOTP,
	}
}

// Names of the engine's rate limiters, for use with CheckRateLimit.
const (
	LimiterLogin    = "login"
	LimiterRegister = "register"
	LimiterRefresh  = "refresh"
	LimiterAPI      = "api"
	LimiterAPIKey   = "apikey"
	LimiterTOTP     = "totp"
)
