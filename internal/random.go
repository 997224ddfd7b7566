package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
)

// SessionID is a 128-bit random session identifier.
type SessionID [16]byte

const apiKeySecretSize = 32

// APIKeyIDLen is the number of trailing key characters used as the key id.
const APIKeyIDLen = 8

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewAPIKey returns "<prefix>_<64 hex>" and its id (the last 8 characters).
func NewAPIKey(prefix string) (key, keyID string, err error) {
	var secret [apiKeySecretSize]byte
	if _, err := rand.Read(secret[:]); err != nil {
		return "", "", err
	}
	key = prefix + "_" + hex.EncodeToString(secret[:])
	return key, key[len(key)-APIKeyIDLen:], nil
}

// HashAPIKey returns the hex SHA-256 digest stored in place of the key.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// LooksLikeAPIKey reports whether key has the "<prefix>_<64 hex>" shape.
func LooksLikeAPIKey(prefix, key string) bool {
	rest, ok := strings.CutPrefix(key, prefix+"_")
	if !ok || len(rest) != 2*apiKeySecretSize {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil
}
