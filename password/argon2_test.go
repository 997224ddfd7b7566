package password

import (
	"errors"
	"strings"
	"testing"
)

// fastConfig keeps tests that hash many times quick.
func fastConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func mustArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2: %v", err)
	}
	return h
}

func mustHash(t *testing.T, h *Argon2, pw string) string {
	t.Helper()
	encoded, err := h.Hash(pw)
	if err != nil {
		t.Fatalf("hash %q: %v", pw, err)
	}
	return encoded
}

func TestArgon2RoundTrip(t *testing.T) {
	h := mustArgon2(t, fastConfig())

	for _, pw := range []string{"Str0ng!Pass", "pässwört-ünïcode-1A!", " leading space", strings.Repeat("x", 200)} {
		encoded := mustHash(t, h, pw)
		ok, err := h.Verify(pw, encoded)
		if err != nil || !ok {
			t.Fatalf("verify(%q, hash(%q)) ok=%v err=%v", pw, pw, ok, err)
		}
	}
}

func TestArgon2DistinctPasswordsDoNotVerify(t *testing.T) {
	h := mustArgon2(t, fastConfig())
	encoded := mustHash(t, h, "Str0ng!Pass")

	for _, other := range []string{"Str0ng!pass", "Str0ng!Pass ", "Str0ng!Pas", ""} {
		ok, err := h.Verify(other, encoded)
		if err != nil {
			t.Fatalf("verify %q: %v", other, err)
		}
		if ok {
			t.Fatalf("%q verified against hash of another password", other)
		}
	}
}

func TestArgon2EncodesParametersAndFreshSalt(t *testing.T) {
	cfg := fastConfig()
	cfg.Time = 2
	h := mustArgon2(t, cfg)

	a := mustHash(t, h, "same-password-1A!")
	b := mustHash(t, h, "same-password-1A!")
	if a == b {
		t.Fatal("two hashes of one password share a salt")
	}

	parts := strings.Split(a, "$")
	if len(parts) != 6 {
		t.Fatalf("PHC string has %d segments: %s", len(parts), a)
	}
	if parts[1] != "argon2id" || parts[2] != "v=19" || parts[3] != "m=8192,t=2,p=1" {
		t.Fatalf("unexpected PHC header: %s", a)
	}
}

// Verify uses the parameters stored in the hash, not the hasher's own.
func TestArgon2VerifiesHashesFromOtherParameters(t *testing.T) {
	old := mustArgon2(t, fastConfig())
	encoded := mustHash(t, old, "rotate-me-1A!")

	cfg := fastConfig()
	cfg.Time = 2
	cfg.KeyLength = 24
	current := mustArgon2(t, cfg)

	ok, err := current.Verify("rotate-me-1A!", encoded)
	if err != nil || !ok {
		t.Fatalf("old hash rejected by new hasher: ok=%v err=%v", ok, err)
	}
}

func TestArgon2NeedsUpgrade(t *testing.T) {
	base := fastConfig()
	encoded := mustHash(t, mustArgon2(t, base), "upgrade-1A!")

	cases := []struct {
		name   string
		mutate func(*Config)
		want   bool
	}{
		{"same parameters", func(*Config) {}, false},
		{"more memory", func(c *Config) { c.Memory = 16 * 1024 }, true},
		{"more passes", func(c *Config) { c.Time = 3 }, true},
		{"more lanes", func(c *Config) { c.Parallelism = 2 }, true},
		{"longer key", func(c *Config) { c.KeyLength = 64 }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			got, err := mustArgon2(t, cfg).NeedsUpgrade(encoded)
			if err != nil {
				t.Fatalf("NeedsUpgrade: %v", err)
			}
			if got != tc.want {
				t.Fatalf("NeedsUpgrade=%v want %v", got, tc.want)
			}
		})
	}
}

func TestArgon2RejectsMalformedHashes(t *testing.T) {
	h := mustArgon2(t, fastConfig())
	good := mustHash(t, h, "malformed-1A!")

	for _, bad := range []string{
		"",
		"not-a-phc-hash",
		strings.Replace(good, "argon2id", "argon2i", 1),
		strings.Replace(good, "$v=19$", "$v=18$", 1),
		strings.Replace(good, "m=8192", "m=abc", 1),
		good[:strings.LastIndex(good, "$")],
	} {
		ok, err := h.Verify("malformed-1A!", bad)
		if ok || !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("hash %q: ok=%v err=%v, want ErrMalformedHash", bad, ok, err)
		}
		if _, err := h.NeedsUpgrade(bad); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("NeedsUpgrade(%q) err=%v", bad, err)
		}
	}
}

func TestArgon2InputLimits(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxPasswordBytes = 32
	h := mustArgon2(t, cfg)

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("empty password: %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 33)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("hash over limit: %v", err)
	}
	encoded := mustHash(t, h, strings.Repeat("b", 32))
	if _, err := h.Verify(strings.Repeat("b", 33), encoded); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("verify over limit: %v", err)
	}

	if got := mustArgon2(t, fastConfig()).Config().MaxPasswordBytes; got != DefaultMaxPasswordBytes {
		t.Fatalf("default max bytes=%d want %d", got, DefaultMaxPasswordBytes)
	}
}

func TestNewArgon2RejectsWeakParameters(t *testing.T) {
	cases := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max bytes":   func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range cases {
		cfg := fastConfig()
		mutate(&cfg)
		if _, err := NewArgon2(cfg); err == nil {
			t.Fatalf("%s: weak config accepted", name)
		}
	}
}
