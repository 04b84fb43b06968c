// Package policy decides what to do with an incoming call.
//
// Resolution order:
//  1. normalize the caller id; an empty result is default-allow
//  2. the first enabled ALLOW rule that matches wins
//  3. otherwise the first enabled suppression rule that matches wins
//  4. otherwise default-allow
//
// ALLOW rules win regardless of where they sit in the list. Within a
// partition the earliest stored rule wins.
package policy

import (
	"github.com/haukened/rr-screen/internal/screen/common/digits"
	"github.com/haukened/rr-screen/internal/screen/domain"
)

// Options configures a Resolver.
type Options struct {
	// CountryCodeStrip, when > 0, also tries each pattern against the number
	// with 1..CountryCodeStrip leading digits removed, after the full number.
	CountryCodeStrip int
}

// Resolver applies a RuleSet to caller ids. It holds no mutable state.
type Resolver struct {
	strip int
}

// NewResolver constructs a Resolver.
func NewResolver(opts Options) *Resolver {
	strip := opts.CountryCodeStrip
	if strip < 0 {
		strip = 0
	}
	if strip > digits.MaxCountryCodeStrip {
		strip = digits.MaxCountryCodeStrip
	}
	return &Resolver{strip: strip}
}

// Resolve returns the decision for rawNumber. It never fails: a nil rule
// set, an empty number or no match all produce default-allow.
func (r *Resolver) Resolve(rs *RuleSet, rawNumber string) domain.Decision {
	return r.ResolveNormalized(rs, digits.Normalize(rawNumber))
}

// ResolveNormalized is Resolve for a number that is already digits only.
func (r *Resolver) ResolveNormalized(rs *RuleSet, number string) domain.Decision {
	if rs == nil || number == "" {
		return domain.DefaultAllow()
	}
	candidates := digits.Candidates(number, r.strip)
	scanLiterals := rs.mightMatchLiteral(candidates)

	if cr, ok := firstMatch(rs.allow, candidates, scanLiterals); ok {
		return domain.DecisionFor(cr.Rule)
	}
	if cr, ok := firstMatch(rs.suppress, candidates, scanLiterals); ok {
		return domain.DecisionFor(cr.Rule)
	}
	return domain.DefaultAllow()
}

// firstMatch scans rules in order and returns the first whose pattern
// matches any candidate. Literal rules are skipped when the Bloom filter
// has ruled them out.
func firstMatch(rules []CompiledRule, candidates []string, scanLiterals bool) (CompiledRule, bool) {
	for _, cr := range rules {
		if !scanLiterals && cr.Pattern.IsLiteral() {
			continue
		}
		for _, c := range candidates {
			if cr.Matches(c) {
				return cr, true
			}
		}
	}
	return CompiledRule{}, false
}
