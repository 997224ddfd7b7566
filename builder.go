package authcore

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/account"
	internalaudit "github.com/MrEthical07/authcore/internal/audit"
	"github.com/MrEthical07/authcore/internal/ids"
	"github.com/MrEthical07/authcore/internal/limiters"
	"github.com/MrEthical07/authcore/internal/logging"
	"github.com/MrEthical07/authcore/internal/rate"
	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kvstore"
	"github.com/MrEthical07/authcore/password"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/session"
	"github.com/redis/go-redis/v9"
)

// Builder wires an [Engine]. Every dependency has an in-process default, so
// New().WithConfig(cfg).Build() yields a working single-node engine.
type Builder struct {
	config   Config
	redis    redis.UniversalClient
	store    kvstore.Store
	accounts account.Repository
	sink     AuditSink
	logger   *slog.Logger
	clock    func() time.Time

	built bool
}

func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis backs sessions, rate limits and replay state with Redis. Ignored
// when WithStore is also used.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithStore supplies the key-value backend directly. The caller keeps
// ownership and closes it.
func (b *Builder) WithStore(store kvstore.Store) *Builder {
	b.store = store
	return b
}

// WithAccountRepository replaces the default in-memory account repository.
func (b *Builder) WithAccountRepository(repo account.Repository) *Builder {
	b.accounts = repo
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides time.Now for every time-dependent component. Tests use
// it to step through lockout, token and session expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

func (b *Builder) WithRoles(roles map[string][]string) *Builder {
	b.config.Roles = cloneConfig(Config{Roles: roles}).Roles
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and constructs every service. A Builder
// can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = logging.Discard()
	}

	// -------- ROLES --------
	roleManager, err := permission.NewRoleManagerFromTable(cfg.Roles)
	if err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}

	// -------- KV STORE --------
	store := b.store
	ownsStore := false
	if store == nil {
		if b.redis != nil {
			store = kvstore.NewRedis(b.redis, kvstore.RedisConfig{Prefix: cfg.Store.KeyPrefix})
		} else {
			store = kvstore.NewMemory(kvstore.WithMemoryClock(clock))
			ownsStore = true
		}
	}

	// -------- ACCOUNTS --------
	accounts := b.accounts
	if accounts == nil {
		accounts = account.NewMemoryRepository()
	}

	// -------- PASSWORDS --------
	hasher, err := password.NewArgon2(password.Config{
		Memory:           cfg.Password.Memory,
		Time:             cfg.Password.Time,
		Parallelism:      cfg.Password.Parallelism,
		SaltLength:       cfg.Password.SaltLength,
		KeyLength:        cfg.Password.KeyLength,
		MaxPasswordBytes: cfg.Password.MaxBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("password: %w", err)
	}
	policy := password.NewPolicy(password.PolicyConfig{
		MinLength:     cfg.Password.MinLength,
		MaxBytes:      cfg.Password.MaxBytes,
		RequireUpper:  cfg.Password.RequireUpper,
		RequireLower:  cfg.Password.RequireLower,
		RequireDigit:  cfg.Password.RequireDigit,
		RequireSymbol: cfg.Password.RequireSymbol,
	})
	vault := password.NewVault(hasher, policy, password.NewPool(cfg.Password.Workers))

	// -------- TOKENS --------
	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:        cfg.JWT.AccessTTL,
		RefreshTTL:       cfg.JWT.RefreshTTL,
		SigningMethod:    jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		AccessKey:        cfg.JWT.AccessSecret,
		RefreshKey:       cfg.JWT.RefreshSecret,
		AccessPublicKey:  cfg.JWT.AccessPublicKey,
		RefreshPublicKey: cfg.JWT.RefreshPublicKey,
		Issuer:           cfg.JWT.Issuer,
		Audience:         cfg.JWT.Audience,
		Leeway:           cfg.JWT.Leeway,
		Clock:            clock,
	})
	if err != nil {
		vault.Close()
		return nil, fmt.Errorf("jwt: %w", err)
	}

	// -------- RATE LIMITS --------
	policies := make([]rate.Policy, 0, 6)
	for name, rule := range cfg.RateLimit.rules() {
		policies = append(policies, rate.Policy{Name: name, MaxRequests: rule.MaxRequests, Window: rule.Window})
	}
	registry, err := rate.NewRegistry(store, policies...)
	if err != nil {
		vault.Close()
		return nil, fmt.Errorf("rate limits: %w", err)
	}
	registerLimiter, _ := registry.Get(LimiterRegister)

	e := &Engine{
		config:      cfg,
		logger:      logger,
		now:         clock,
		store:       store,
		ownsStore:   ownsStore,
		accounts:    accounts,
		roleManager: roleManager,
		vault:       vault,
		tokens:      tokens,
		sessions: session.NewStore(store, session.Config{
			MaxIdle:       cfg.Session.MaxIdle,
			MaxPerAccount: cfg.Session.MaxPerAccount,
			Clock:         clock,
		}),
		limiters: registry,
		accountLimiter: limiters.NewAccountCreationLimiter(registerLimiter, limiters.AccountConfig{
			EnableIdentifierThrottle: cfg.Account.EnableIdentifierThrottle,
			EnableIPThrottle:         cfg.Account.EnableIPThrottle,
		}),
		lockout: limiters.NewLockoutGuard(limiters.LockoutConfig{
			MaxFailedAttempts: cfg.Lockout.MaxFailedAttempts,
			Duration:          cfg.Lockout.Duration,
		}),
		totp:    newTOTPManager(cfg.TOTP, store),
		metrics: NewMetrics(cfg.Metrics),
		ids:     ids.NewGenerator(clock),
		audit: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink),
	}

	b.built = true
	return e, nil
}
