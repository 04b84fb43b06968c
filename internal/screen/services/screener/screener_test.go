package screener

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-screen/internal/screen/common/clock"
	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/policy"
)

// --- fakes ---

type staticRules struct{ rs *policy.RuleSet }

func (s staticRules) Snapshot() *policy.RuleSet { return s.rs }

type panickingRules struct{}

func (panickingRules) Snapshot() *policy.RuleSet { panic("snapshot exploded") }

type mockAudit struct{ mock.Mock }

func (m *mockAudit) Append(e domain.AuditEntry) { m.Called(e) }

type mapCache struct {
	m    map[string]domain.Decision
	gets int
	puts int
}

func newMapCache() *mapCache { return &mapCache{m: map[string]domain.Decision{}} }

func (c *mapCache) k(v uint64, n string) string { return string(rune('0'+v)) + n }
func (c *mapCache) Get(v uint64, n string) (domain.Decision, bool) {
	c.gets++
	d, ok := c.m[c.k(v, n)]
	return d, ok
}
func (c *mapCache) Put(v uint64, n string, d domain.Decision) { c.puts++; c.m[c.k(v, n)] = d }
func (c *mapCache) Len() int                                  { return len(c.m) }
func (c *mapCache) Purge()                                    { c.m = map[string]domain.Decision{} }
func (c *mapCache) Stats() CacheStats                         { return CacheStats{Size: len(c.m)} }

func ruleSet(t *testing.T, rules ...domain.Rule) *policy.RuleSet {
	t.Helper()
	rs, err := policy.NewRuleSet(rules, policy.BuildOptions{Version: 1})
	require.NoError(t, err)
	return rs
}

var fixed = time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)

func TestScreen_SuppressedCallIsAudited(t *testing.T) {
	block := domain.Rule{ID: "b", Pattern: "1800*", Action: domain.ActionBlock, Enabled: true}
	audit := &mockAudit{}
	audit.On("Append", mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.RawNumber == "+1 800 555 0100" &&
			e.Suppressed &&
			e.MatchedPattern == "1800*" &&
			e.MatchedAction != nil && *e.MatchedAction == domain.ActionBlock &&
			!e.MatchedAllowRule &&
			e.Timestamp.Equal(fixed)
	})).Once()

	s := New(Options{
		Rules:  staticRules{ruleSet(t, block)},
		Audit:  audit,
		Clock:  &clock.MockClock{CurrentTime: fixed},
		Logger: log.NewNoopLogger(),
	})
	d := s.Screen("+1 800 555 0100")

	assert.Equal(t, domain.ActionBlock, d.Action)
	assert.Equal(t, "b", d.RuleID)
	audit.AssertExpectations(t)
}

func TestScreen_AllowRuleAndDefaultAllowAreDistinguished(t *testing.T) {
	allow := domain.Rule{ID: "a", Pattern: "555*", Action: domain.ActionAllow, Enabled: true}
	audit := &mockAudit{}
	audit.On("Append", mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.RawNumber == "5550100" && !e.Suppressed && e.MatchedAllowRule && e.HasMatch()
	})).Once()
	audit.On("Append", mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.RawNumber == "4440100" && !e.Suppressed && !e.MatchedAllowRule && !e.HasMatch()
	})).Once()

	s := New(Options{Rules: staticRules{ruleSet(t, allow)}, Audit: audit, Logger: log.NewNoopLogger()})
	assert.True(t, s.Screen("5550100").MatchedAllowRule)
	assert.False(t, s.Screen("4440100").Matched())
	audit.AssertExpectations(t)
}

func TestScreen_WithheldNumberIsAuditedAsDefaultAllow(t *testing.T) {
	audit := &mockAudit{}
	audit.On("Append", mock.MatchedBy(func(e domain.AuditEntry) bool {
		return e.RawNumber == "" && !e.Suppressed && !e.HasMatch()
	})).Once()

	all := domain.Rule{ID: "all", Pattern: "*", Action: domain.ActionBlock, Enabled: true}
	s := New(Options{Rules: staticRules{ruleSet(t, all)}, Audit: audit, Logger: log.NewNoopLogger()})
	assert.Equal(t, domain.DefaultAllow(), s.Screen(""))
	audit.AssertExpectations(t)
}

func TestEvaluate_DoesNotAudit(t *testing.T) {
	audit := &mockAudit{}
	s := New(Options{Rules: staticRules{ruleSet(t)}, Audit: audit, Logger: log.NewNoopLogger()})
	_ = s.Evaluate("5550100")
	audit.AssertNotCalled(t, "Append", mock.Anything)
}

func TestEvaluate_PanicDefaultsToAllow(t *testing.T) {
	s := New(Options{Rules: panickingRules{}, Logger: log.NewNoopLogger()})
	assert.Equal(t, domain.DefaultAllow(), s.Evaluate("5550100"))
}

func TestEvaluate_NilSourcesDefaultToAllow(t *testing.T) {
	assert.Equal(t, domain.DefaultAllow(), New(Options{Logger: log.NewNoopLogger()}).Evaluate("5550100"))
	assert.Equal(t, domain.DefaultAllow(), New(Options{Rules: staticRules{}, Logger: log.NewNoopLogger()}).Evaluate("5550100"))
}

func TestEvaluate_UsesCacheByVersionAndNumber(t *testing.T) {
	block := domain.Rule{ID: "b", Pattern: "555*", Action: domain.ActionSilence, Enabled: true}
	cache := newMapCache()
	s := New(Options{Rules: staticRules{ruleSet(t, block)}, Cache: cache, Logger: log.NewNoopLogger()})

	first := s.Evaluate("555-0100")
	second := s.Evaluate("(555) 0100")

	assert.Equal(t, first, second)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.puts, "second lookup is served from cache")
}

func TestEvaluate_CountryCodeResolver(t *testing.T) {
	block := domain.Rule{ID: "b", Pattern: "34561234", Action: domain.ActionBlock, Enabled: true}
	s := New(Options{
		Rules:    staticRules{ruleSet(t, block)},
		Resolver: policy.NewResolver(policy.Options{CountryCodeStrip: 2}),
		Logger:   log.NewNoopLogger(),
	})
	assert.Equal(t, "b", s.Evaluate("+8634561234").RuleID)
}
