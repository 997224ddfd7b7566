package authcore

import (
	"time"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/session"
)

// TokenPair is what a successful register, login or refresh hands back.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
	TokenType        string    `json:"tokenType"`
}

// DeviceInfo describes the client opening a session. Empty fields are filled
// from the request context (WithClientIP, WithUserAgent).
type DeviceInfo = session.DeviceInfo

// RegisterRequest is the input of [Engine.Register].
type RegisterRequest struct {
	Email    string
	Username string
	Password string
	Device   DeviceInfo
}

// RegisterResult is returned by [Engine.Register].
type RegisterResult struct {
	Account   AccountView
	Tokens    TokenPair
	SessionID string
}

// LoginRequest is the input of [Engine.Login]. TOTPCode is only consulted
// for accounts with MFA enabled.
type LoginRequest struct {
	Email    string
	Password string
	TOTPCode string
	Device   DeviceInfo
}

// LoginResult is returned by [Engine.Login].
type LoginResult struct {
	Account   AccountView
	Tokens    TokenPair
	SessionID string
}

// AccountView is the client-safe projection of an account. It never carries
// the password hash, MFA secret or API key hashes.
type AccountView struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Role           string    `json:"role"`
	Permissions    []string  `json:"permissions"`
	MFAEnabled     bool      `json:"mfaEnabled"`
	FailedAttempts int       `json:"failedAttempts"`
	LastLoginAt    time.Time `json:"lastLoginAt,omitzero"`
	CreatedAt      time.Time `json:"createdAt"`
}

// AuthResult is the verified identity behind an access token or API key.
type AuthResult struct {
	AccountID   string
	Email       string
	Role        string
	Permissions []string
	// SessionID is empty for API key authentication and session-less tokens.
	SessionID string
	// APIKeyID is set only when the caller authenticated with an API key.
	APIKeyID  string
	ExpiresAt time.Time
}

// APIKeyInfo describes a stored key. The secret is never included.
type APIKeyInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created"`
	LastUsedAt time.Time `json:"lastUsed,omitzero"`
}

// GeneratedAPIKey holds a freshly minted key. Key is shown once and never
// stored.
type GeneratedAPIKey struct {
	Key   string `json:"apiKey"`
	KeyID string `json:"keyId"`
}

// TOTPSetup is the provisioning material of a pending enrollment.
type TOTPSetup struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// SessionInfo is the client-safe view of a session.
type SessionInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	LastAccess time.Time `json:"lastAccess"`
	UserAgent  string    `json:"userAgent,omitempty"`
	IP         string    `json:"ip,omitempty"`
	Label      string    `json:"label,omitempty"`
}

func newAccountView(a *account.Account, perms []string) AccountView {
	return AccountView{
		ID:             a.ID,
		Email:          a.Email,
		Username:       a.Username,
		Role:           a.Role,
		Permissions:    perms,
		MFAEnabled:     a.MFAEnabled,
		FailedAttempts: a.FailedAttempts,
		LastLoginAt:    a.LastLoginAt,
		CreatedAt:      a.CreatedAt,
	}
}

func newSessionInfo(s *session.Session) SessionInfo {
	return SessionInfo{
		ID:         s.ID,
		CreatedAt:  s.CreatedAt,
		LastAccess: s.LastAccess,
		UserAgent:  s.Device.UserAgent,
		IP:         s.Device.IP,
		Label:      s.Device.Label,
	}
}
