package authcore

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/authcore/kvstore"
)

const totpSecretBytes = 20

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// totpManager implements RFC 6238 codes and remembers the last accepted time
// step per account so a code cannot be used twice.
type totpManager struct {
	config TOTPConfig
	store  kvstore.Store
}

func newTOTPManager(cfg TOTPConfig, store kvstore.Store) *totpManager {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	if cfg.Period <= 0 {
		cfg.Period = 30 * time.Second
	}
	return &totpManager{config: cfg, store: store}
}

func (m *totpManager) GenerateSecret() ([]byte, string, error) {
	if m == nil {
		return nil, "", ErrEngineNotReady
	}
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, totpEncoding.EncodeToString(raw), nil
}

func (m *totpManager) ProvisionURI(secretBase32, accountName string) string {
	issuer := m.config.Issuer
	label := url.PathEscape(issuer + ":" + accountName)

	v := url.Values{}
	v.Set("secret", secretBase32)
	v.Set("issuer", issuer)
	v.Set("period", strconv.Itoa(int(m.config.Period/time.Second)))
	v.Set("digits", strconv.Itoa(m.config.Digits))
	v.Set("algorithm", strings.ToUpper(m.config.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

func (m *totpManager) counterAt(now time.Time) int64 {
	return now.Unix() / int64(m.config.Period/time.Second)
}

// CodeAt returns the code for the time step containing now.
func (m *totpManager) CodeAt(secret []byte, now time.Time) (string, error) {
	return hotpCode(secret, m.counterAt(now), m.config.Digits, m.config.Algorithm)
}

// VerifyCode checks code against the steps within ±Skew of now and returns the
// matching counter. It does not consult replay state.
func (m *totpManager) VerifyCode(secret []byte, code string, now time.Time) (bool, int64, error) {
	if m == nil {
		return false, 0, ErrEngineNotReady
	}

	trimmed := strings.TrimSpace(code)
	if len(trimmed) != m.config.Digits || !isNumericString(trimmed) {
		return false, 0, nil
	}
	if len(secret) == 0 {
		return false, 0, errors.New("empty totp secret")
	}

	baseCounter := m.counterAt(now)
	matched := int64(-1)
	for step := -m.config.Skew; step <= m.config.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(secret, counter, m.config.Digits, m.config.Algorithm)
		if err != nil {
			return false, 0, err
		}
		// Every step is computed so timing does not reveal which one matched.
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 && matched < 0 {
			matched = counter
		}
	}
	if matched < 0 {
		return false, 0, nil
	}
	return true, matched, nil
}

// consume records counter as used for accountID. It reports false when the
// same or a later step was already accepted.
func (m *totpManager) consume(ctx context.Context, accountID string, counter int64) (bool, error) {
	accepted := false
	ttl := m.config.Period * time.Duration(2*m.config.Skew+2)
	err := m.store.Update(ctx, "totp:last:"+accountID, func(current []byte, exists bool) ([]byte, time.Duration, error) {
		if exists {
			last, err := strconv.ParseInt(string(current), 10, 64)
			if err == nil && counter <= last {
				return current, ttl, nil
			}
		}
		accepted = true
		return strconv.AppendInt(nil, counter, 10), ttl, nil
	})
	if err != nil {
		return false, err
	}
	return accepted, nil
}

func pendingTOTPKey(accountID string) string {
	return "totp:pending:" + accountID
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumericString(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
