// Package screener is the entry point for one incoming call: it resolves the
// caller against the current rule snapshot, records the decision in the
// audit log and hands the decision back to the call source.
package screener

import (
	"fmt"

	"github.com/haukened/rr-screen/internal/screen/common/clock"
	"github.com/haukened/rr-screen/internal/screen/common/digits"
	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/policy"
)

// Screener wires the rule source, resolver, decision cache and audit sink.
type Screener struct {
	rules    RuleSource
	audit    AuditSink
	cache    DecisionCache
	resolver *policy.Resolver
	clock    clock.Clock
	logger   log.Logger
}

// Options configures a Screener. Rules is required; everything else has a default.
type Options struct {
	Rules    RuleSource
	Audit    AuditSink     // nil disables auditing
	Cache    DecisionCache // nil disables caching
	Resolver *policy.Resolver
	Clock    clock.Clock
	Logger   log.Logger
}

// New constructs a Screener.
func New(opts Options) *Screener {
	s := &Screener{
		rules:    opts.Rules,
		audit:    opts.Audit,
		cache:    opts.Cache,
		resolver: opts.Resolver,
		clock:    opts.Clock,
		logger:   log.OrGlobal(opts.Logger),
	}
	if s.resolver == nil {
		s.resolver = policy.NewResolver(policy.Options{})
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	return s
}

// Screen decides what to do with a call from rawNumber and appends an audit
// entry. rawNumber may be empty when the caller id is withheld.
func (s *Screener) Screen(rawNumber string) domain.Decision {
	d := s.Evaluate(rawNumber)
	if s.audit != nil {
		s.audit.Append(domain.NewAuditEntry(rawNumber, s.clock.Now(), d))
	}

	fields := map[string]any{
		"number": rawNumber,
		"action": d.Action.String(),
	}
	switch {
	case d.Suppressed():
		fields["pattern"] = d.Pattern
		s.logger.Info(fields, "Call suppressed")
	case d.MatchedAllowRule:
		fields["pattern"] = d.Pattern
		s.logger.Debug(fields, "Call allowed by rule")
	default:
		s.logger.Debug(fields, "Call allowed, no matching rule")
	}
	return d
}

// Evaluate resolves rawNumber without recording anything. Any internal
// fault yields default-allow.
func (s *Screener) Evaluate(rawNumber string) (d domain.Decision) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(map[string]any{
				"number": rawNumber,
				"panic":  fmt.Sprint(r),
			}, "Screening failed, allowing call")
			d = domain.DefaultAllow()
		}
	}()

	number := digits.Normalize(rawNumber)
	if number == "" || s.rules == nil {
		return domain.DefaultAllow()
	}
	rs := s.rules.Snapshot()
	if rs == nil {
		return domain.DefaultAllow()
	}
	if s.cache != nil {
		if cached, ok := s.cache.Get(rs.Version(), number); ok {
			return cached
		}
	}
	d = s.resolver.ResolveNormalized(rs, number)
	if s.cache != nil {
		s.cache.Put(rs.Version(), number, d)
	}
	return d
}
