package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/haukened/rr-screen/internal/screen/pattern"
)

// Rule is one user-maintained screening rule.
//
// Notes:
// - ID is generated at creation and never changes; updates keep the ID.
// - Pattern has been validated against the digit/'*'/'?' alphabet.
// - Disabled rules are kept in place but never match.
type Rule struct {
	ID      string `json:"id"`
	Pattern string `json:"pattern"`
	Action  Action `json:"action"`
	Enabled bool   `json:"enabled"`
}

// NewRule constructs an enabled rule with a fresh ID. The pattern is trimmed
// and validated; an invalid pattern yields a *pattern.InvalidPatternError.
func NewRule(p string, action Action) (Rule, error) {
	r := Rule{
		ID:      uuid.NewString(),
		Pattern: strings.TrimSpace(p),
		Action:  action,
		Enabled: true,
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Validate checks the rule for required fields and supported values.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule id must not be empty")
	}
	if !r.Action.IsValid() {
		return fmt.Errorf("unsupported action: %d", r.Action)
	}
	if err := pattern.Validate(r.Pattern); err != nil {
		return err
	}
	return nil
}

// IsAllow is true for ALLOW rules.
func (r Rule) IsAllow() bool { return r.Action == ActionAllow }

// WithEnabled returns a copy of r with Enabled set.
func (r Rule) WithEnabled(enabled bool) Rule {
	r.Enabled = enabled
	return r
}
