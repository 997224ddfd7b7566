package jwt

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod selects the token algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"

	// MinHMACKeyBytes is the shortest accepted HS256 secret.
	MinHMACKeyBytes = 32

	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	// ErrInvalidToken is returned for every access token verification failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidRefreshToken is returned for every refresh token verification
	// failure.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// Config holds signing keys and validation rules.
//
// With HS256 the Access/RefreshKey fields are shared secrets. With Ed25519 they
// are private keys (raw or PEM) and may be omitted on verify-only nodes; the
// public keys are then required.
type Config struct {
	// AccessTTL and RefreshTTL of zero select the defaults, 15 minutes and 7
	// days, never an already-expired token. Expiry is simulated through Clock.
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod

	AccessKey        []byte
	RefreshKey       []byte
	AccessPublicKey  []byte
	RefreshPublicKey []byte

	Issuer   string
	Audience string
	Leeway   time.Duration
	KeyID    string

	Clock func() time.Time
}

// Subject is what a token pair is minted for.
type Subject struct {
	AccountID   string
	Email       string
	Role        string
	Permissions []string
	SessionID   string
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Email string   `json:"email,omitempty"`
	Role  string   `json:"role"`
	Perms []string `json:"perms,omitempty"`
	SID   string   `json:"sid,omitempty"`
	Type  string   `json:"typ"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	SID  string `json:"sid,omitempty"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Pair is a freshly minted access + refresh token.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	AccessJTI        string
	RefreshJTI       string
}

type keyPair struct {
	sign   any
	verify any
}

// Manager mints and verifies tokens.
type Manager struct {
	config  Config
	method  jwt.SigningMethod
	access  keyPair
	refresh keyPair
	now     func() time.Time
}

// NewManager validates cfg. Zero TTLs fall back to 15 minutes and 7 days.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL == 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	m := &Manager{config: cfg, now: cfg.Clock}
	if m.now == nil {
		m.now = time.Now
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.AccessKey) < MinHMACKeyBytes || len(cfg.RefreshKey) < MinHMACKeyBytes {
			return nil, fmt.Errorf("hs256 secrets must be at least %d bytes", MinHMACKeyBytes)
		}
		if bytes.Equal(cfg.AccessKey, cfg.RefreshKey) {
			return nil, errors.New("access and refresh secrets must differ")
		}
		m.method = jwt.SigningMethodHS256
		m.access = keyPair{sign: cfg.AccessKey, verify: cfg.AccessKey}
		m.refresh = keyPair{sign: cfg.RefreshKey, verify: cfg.RefreshKey}
	case MethodEd25519:
		m.method = jwt.SigningMethodEdDSA
		var err error
		if m.access, err = edKeyPair("access", cfg.AccessKey, cfg.AccessPublicKey); err != nil {
			return nil, err
		}
		if m.refresh, err = edKeyPair("refresh", cfg.RefreshKey, cfg.RefreshPublicKey); err != nil {
			return nil, err
		}
		if m.access.verify.(ed25519.PublicKey).Equal(m.refresh.verify) {
			return nil, errors.New("access and refresh keys must differ")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return m, nil
}

func edKeyPair(kind string, private, public []byte) (keyPair, error) {
	var kp keyPair
	if len(private) > 0 {
		priv, err := parseEdPrivateKey(private)
		if err != nil {
			return kp, fmt.Errorf("%s key: %w", kind, err)
		}
		kp.sign = priv
		kp.verify = priv.Public().(ed25519.PublicKey)
	}
	if len(public) > 0 {
		pub, err := parseEdPublicKey(public)
		if err != nil {
			return kp, fmt.Errorf("%s key: %w", kind, err)
		}
		kp.verify = pub
	}
	if kp.verify == nil {
		return kp, fmt.Errorf("ed25519 %s requires a private or public key", kind)
	}
	return kp, nil
}

// AccessTTL returns the effective access token lifetime.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}

// RefreshTTL returns the effective refresh token lifetime.
func (j *Manager) RefreshTTL() time.Duration {
	return j.config.RefreshTTL
}

// Issue mints an access and a refresh token for sub.
func (j *Manager) Issue(sub Subject) (Pair, error) {
	access, accessClaims, err := j.IssueAccess(sub)
	if err != nil {
		return Pair{}, err
	}

	now := j.now()
	refreshClaims := RefreshClaims{
		SID:              sub.SessionID,
		Type:             TypeRefresh,
		RegisteredClaims: j.registered(sub.AccountID, now, j.config.RefreshTTL),
	}
	refresh, err := j.sign(refreshClaims, j.refresh.sign)
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		AccessJTI:        accessClaims.ID,
		RefreshJTI:       refreshClaims.ID,
	}, nil
}

// IssueAccess mints only an access token.
func (j *Manager) IssueAccess(sub Subject) (string, *AccessClaims, error) {
	if sub.AccountID == "" {
		return "", nil, errors.New("token subject must not be empty")
	}
	claims := &AccessClaims{
		Email:            sub.Email,
		Role:             sub.Role,
		Perms:            append([]string(nil), sub.Permissions...),
		SID:              sub.SessionID,
		Type:             TypeAccess,
		RegisteredClaims: j.registered(sub.AccountID, j.now(), j.config.AccessTTL),
	}
	token, err := j.sign(claims, j.access.sign)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

func (j *Manager) registered(subject string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    j.config.Issuer,
	}
	if j.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{j.config.Audience}
	}
	return rc
}

func (j *Manager) sign(claims jwt.Claims, key any) (string, error) {
	if key == nil {
		return "", errors.New("manager has no signing key")
	}
	token := jwt.NewWithClaims(j.method, claims)
	if j.config.KeyID != "" {
		token.Header["kid"] = j.config.KeyID
	}
	return token.SignedString(key)
}

// ParseAccess verifies an access token. Any failure is ErrInvalidToken.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := j.parse(tokenStr, claims, j.access.verify); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Type != TypeAccess {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidToken)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token. Any failure is ErrInvalidRefreshToken.
func (j *Manager) ParseRefresh(tokenStr string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := j.parse(tokenStr, claims, j.refresh.verify); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	if claims.Type != TypeRefresh {
		return nil, fmt.Errorf("%w: wrong token type", ErrInvalidRefreshToken)
	}
	return claims, nil
}

type registeredClaimer interface {
	jwt.Claims
	registered() *jwt.RegisteredClaims
}

func (c *AccessClaims) registered() *jwt.RegisteredClaims  { return &c.RegisteredClaims }
func (c *RefreshClaims) registered() *jwt.RegisteredClaims { return &c.RegisteredClaims }

func (j *Manager) parse(tokenStr string, claims registeredClaimer, verifyKey any) error {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.method.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != j.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if j.config.KeyID != "" {
			if kid, _ := t.Header["kid"].(string); kid != j.config.KeyID {
				return nil, errors.New("unknown kid")
			}
		}
		return verifyKey, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrTokenInvalidClaims
	}

	rc := claims.registered()
	if rc.Subject == "" {
		return errors.New("missing subject")
	}
	now := j.now()
	// The library accepts exp == now; a token is dead once its TTL has elapsed.
	if !rc.ExpiresAt.Time.Add(j.config.Leeway).After(now) {
		return jwt.ErrTokenExpired
	}
	return nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
