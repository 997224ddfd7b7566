package password

import (
	"strings"
	"testing"
)

func violationCodes(r StrengthResult) []string {
	out := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		out = append(out, v.Code)
	}
	return out
}

func TestPolicyReportsEveryViolation(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	cases := []struct {
		password string
		want     []string
	}{
		{"Str0ng!pass", nil},
		{"abc", []string{ViolationMinLength, ViolationMissingUpper, ViolationMissingDigit, ViolationMissingSymbol}},
		{"", []string{ViolationMinLength, ViolationMissingUpper, ViolationMissingLower, ViolationMissingDigit, ViolationMissingSymbol}},
		{"ALLUPPER1!", []string{ViolationMissingLower}},
		{"NoDigits!!", []string{ViolationMissingDigit}},
		{"NoSymbol12", []string{ViolationMissingSymbol}},
		{"Ünïcödé1$", nil},
	}
	for _, tc := range cases {
		got := p.Validate(tc.password)
		codes := violationCodes(got)
		if strings.Join(codes, ",") != strings.Join(tc.want, ",") {
			t.Errorf("Validate(%q) = %v, want %v", tc.password, codes, tc.want)
		}
		if got.Valid != (len(tc.want) == 0) {
			t.Errorf("Validate(%q).Valid = %v", tc.password, got.Valid)
		}
	}
}

func TestPolicyMaxBytes(t *testing.T) {
	p := NewPolicy(PolicyConfig{MinLength: 8, MaxBytes: 16})
	got := p.Validate(strings.Repeat("a", 17))
	if got.Valid || violationCodes(got)[0] != ViolationMaxLength {
		t.Fatalf("expected max_length violation, got %v", violationCodes(got))
	}
}

func TestPolicyMessagesAreSet(t *testing.T) {
	got := NewPolicy(DefaultPolicyConfig()).Validate("x")
	for _, v := range got.Violations {
		if v.Message == "" {
			t.Fatalf("violation %s has no message", v.Code)
		}
	}
}
