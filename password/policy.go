package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// Violation codes, in the order Validate reports them.
const (
	ViolationMinLength     = "min_length"
	ViolationMaxLength     = "max_length"
	ViolationMissingUpper  = "missing_upper"
	ViolationMissingLower  = "missing_lower"
	ViolationMissingDigit  = "missing_digit"
	ViolationMissingSymbol = "missing_symbol"
)

// Violation is one failed strength rule.
type Violation struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StrengthResult lists every rule a password broke.
type StrengthResult struct {
	Valid      bool
	Violations []Violation
}

// PolicyConfig selects the strength rules. MinLength counts characters,
// MaxBytes counts bytes.
type PolicyConfig struct {
	MinLength     int
	MaxBytes      int
	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
}

// DefaultPolicyConfig requires 8+ characters with all four character classes.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinLength:     8,
		MaxBytes:      DefaultMaxPasswordBytes,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
	}
}

// Policy checks password strength.
type Policy struct {
	config PolicyConfig
}

// NewPolicy returns a policy. Non-positive lengths fall back to the defaults.
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = 8
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxPasswordBytes
	}
	return &Policy{config: cfg}
}

// Validate returns every violated rule, not just the first.
func (p *Policy) Validate(password string) StrengthResult {
	var (
		hasUpper, hasLower, hasDigit, hasSymbol bool
		violations                              []Violation
	)
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSymbol = true
		}
	}

	if utf8.RuneCountInString(password) < p.config.MinLength {
		violations = append(violations, Violation{
			Code:    ViolationMinLength,
			Message: fmt.Sprintf("must be at least %d characters", p.config.MinLength),
		})
	}
	if len(password) > p.config.MaxBytes {
		violations = append(violations, Violation{
			Code:    ViolationMaxLength,
			Message: fmt.Sprintf("must be at most %d bytes", p.config.MaxBytes),
		})
	}
	if p.config.RequireUpper && !hasUpper {
		violations = append(violations, Violation{Code: ViolationMissingUpper, Message: "must contain an uppercase letter"})
	}
	if p.config.RequireLower && !hasLower {
		violations = append(violations, Violation{Code: ViolationMissingLower, Message: "must contain a lowercase letter"})
	}
	if p.config.RequireDigit && !hasDigit {
		violations = append(violations, Violation{Code: ViolationMissingDigit, Message: "must contain a digit"})
	}
	if p.config.RequireSymbol && !hasSymbol {
		violations = append(violations, Violation{Code: ViolationMissingSymbol, Message: "must contain a symbol"})
	}

	return StrengthResult{Valid: len(violations) == 0, Violations: violations}
}
