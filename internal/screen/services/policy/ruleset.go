package policy

import (
	"fmt"

	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/pattern"
)

// DefaultBloomFPRate is used when a RuleSet is built without a valid rate.
const DefaultBloomFPRate = 0.01

// CompiledRule pairs a rule with its compiled pattern.
type CompiledRule struct {
	Rule    domain.Rule
	Pattern pattern.Pattern
}

// CompileRule validates r and compiles its pattern.
func CompileRule(r domain.Rule) (CompiledRule, error) {
	if err := r.Validate(); err != nil {
		return CompiledRule{}, err
	}
	p, err := pattern.Compile(r.Pattern)
	if err != nil {
		return CompiledRule{}, err
	}
	return CompiledRule{Rule: r, Pattern: p}, nil
}

// Matches reports whether the normalized number matches the rule. A
// disabled rule never matches.
func (cr CompiledRule) Matches(number string) bool {
	return cr.Rule.Enabled && cr.Pattern.Matches(number)
}

// RuleSet is an immutable, compiled view of an ordered rule list. Enabled
// rules are split into the ALLOW and suppression partitions, each keeping
// the stored order. A RuleSet is safe for concurrent reads.
type RuleSet struct {
	version  uint64
	rules    []domain.Rule
	allow    []CompiledRule
	suppress []CompiledRule
	literals BloomFilter // enabled wildcard-free patterns; nil when there are none
}

// BuildOptions tunes RuleSet construction.
type BuildOptions struct {
	Version     uint64
	Bloom       BloomFactory // optional; without it literal rules are always scanned
	BloomFPRate float64
}

// NewRuleSet compiles rules in order. Every rule must validate; the first
// invalid rule aborts the build.
func NewRuleSet(rules []domain.Rule, opts BuildOptions) (*RuleSet, error) {
	rs := &RuleSet{
		version: opts.Version,
		rules:   append([]domain.Rule(nil), rules...),
	}
	var literal []string
	for i, r := range rules {
		cr, err := CompileRule(r)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, r.ID, err)
		}
		if !r.Enabled {
			continue
		}
		if r.IsAllow() {
			rs.allow = append(rs.allow, cr)
		} else {
			rs.suppress = append(rs.suppress, cr)
		}
		if cr.Pattern.IsLiteral() {
			literal = append(literal, r.Pattern)
		}
	}
	if opts.Bloom != nil && len(literal) > 0 {
		fp := opts.BloomFPRate
		if !(fp > 0 && fp < 1) {
			fp = DefaultBloomFPRate
		}
		bf := opts.Bloom.New(uint64(len(literal)), fp)
		for _, l := range literal {
			bf.Add([]byte(l))
		}
		rs.literals = bf
	}
	return rs, nil
}

// EmptyRuleSet returns a rule set with no rules; everything resolves to default-allow.
func EmptyRuleSet(version uint64) *RuleSet {
	return &RuleSet{version: version}
}

// Version identifies the rule list this set was built from.
func (rs *RuleSet) Version() uint64 { return rs.version }

// Len returns the number of rules, enabled or not.
func (rs *RuleSet) Len() int { return len(rs.rules) }

// Rules returns a copy of the rules in stored order.
func (rs *RuleSet) Rules() []domain.Rule {
	return append([]domain.Rule(nil), rs.rules...)
}

// AllowRules returns the enabled ALLOW rules in stored order.
func (rs *RuleSet) AllowRules() []CompiledRule { return rs.allow }

// SuppressRules returns the enabled suppression rules in stored order.
func (rs *RuleSet) SuppressRules() []CompiledRule { return rs.suppress }

// mightMatchLiteral returns false only when no candidate can equal an
// enabled literal pattern. Without a filter it returns true.
func (rs *RuleSet) mightMatchLiteral(candidates []string) bool {
	if rs.literals == nil {
		return true
	}
	for _, c := range candidates {
		if rs.literals.MightContain([]byte(c)) {
			return true
		}
	}
	return false
}
