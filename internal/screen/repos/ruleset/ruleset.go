// Package ruleset owns the user's ordered rule list. It serializes edits,
// persists them, and publishes a compiled policy.RuleSet after every
// successful change so resolutions always see a complete snapshot.
package ruleset

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/policy"
)

var (
	ErrRuleNotFound  = errors.New("rule not found")
	ErrDuplicateRule = errors.New("rule id already exists")
)

// Options configures a Store.
type Options struct {
	Persister   Persister // optional; nil keeps rules in memory only
	Bloom       policy.BloomFactory
	BloomFPRate float64
	Logger      log.Logger
}

// Store is the mutable rule list. All mutations are serialized by one
// mutex; readers take the published snapshot without locking.
type Store struct {
	mu        sync.Mutex
	rules     []domain.Rule
	version   uint64
	snap      atomic.Pointer[policy.RuleSet]
	persister Persister
	bloom     policy.BloomFactory
	fpRate    float64
	logger    log.Logger
}

// New constructs a Store and loads the persisted rules. Load failures never
// fail construction: the store starts empty and the failure is logged.
func New(opts Options) *Store {
	s := &Store{
		persister: opts.Persister,
		bloom:     opts.Bloom,
		fpRate:    opts.BloomFPRate,
		logger:    log.OrGlobal(opts.Logger),
	}
	s.mu.Lock()
	s.reloadLocked()
	s.mu.Unlock()
	return s
}

func (s *Store) reloadLocked() {
	var loaded []domain.Rule
	if s.persister != nil {
		rules, err := s.persister.LoadRules()
		if err != nil {
			s.logger.Warn(map[string]any{"error": err}, "Failed to load rules, starting with an empty rule set")
		} else {
			loaded = s.keepValid(rules)
		}
	}
	if err := s.commitLocked(loaded); err != nil {
		// keepValid already dropped anything that could fail to compile.
		s.logger.Error(map[string]any{"error": err}, "Failed to compile rules, starting with an empty rule set")
		_ = s.commitLocked(nil)
	}
	s.logger.Info(map[string]any{
		"rules":   len(s.rules),
		"version": s.version,
	}, "Rule set loaded")
}

// keepValid drops persisted rules that fail validation or repeat an id.
func (s *Store) keepValid(rules []domain.Rule) []domain.Rule {
	out := make([]domain.Rule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			s.logger.Warn(map[string]any{"index": i, "id": r.ID, "error": err}, "Dropping invalid persisted rule")
			continue
		}
		if _, dup := seen[r.ID]; dup {
			s.logger.Warn(map[string]any{"index": i, "id": r.ID}, "Dropping persisted rule with duplicate id")
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

// buildLocked compiles rules as the next version without publishing them.
func (s *Store) buildLocked(rules []domain.Rule) (*policy.RuleSet, error) {
	return policy.NewRuleSet(rules, policy.BuildOptions{
		Version:     s.version + 1,
		Bloom:       s.bloom,
		BloomFPRate: s.fpRate,
	})
}

func (s *Store) publishLocked(rules []domain.Rule, rs *policy.RuleSet) {
	s.version = rs.Version()
	s.rules = rules
	s.snap.Store(rs)
}

// commitLocked compiles rules and publishes them as the new snapshot.
func (s *Store) commitLocked(rules []domain.Rule) error {
	rs, err := s.buildLocked(rules)
	if err != nil {
		return err
	}
	s.publishLocked(rules, rs)
	return nil
}

// mutate applies fn to a copy of the rules, compiles, persists and only
// then publishes. Any failure leaves the store unchanged.
func (s *Store) mutate(op string, fn func(rules []domain.Rule) ([]domain.Rule, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(append([]domain.Rule(nil), s.rules...))
	if err != nil {
		return err
	}
	rs, err := s.buildLocked(next)
	if err != nil {
		return err
	}
	if s.persister != nil {
		if err := s.persister.SaveRules(next); err != nil {
			return fmt.Errorf("save rules: %w", err)
		}
	}
	s.publishLocked(next, rs)
	s.logger.Debug(map[string]any{"op": op, "rules": len(next), "version": s.version}, "Rule set updated")
	return nil
}

// Snapshot returns the current compiled rule set.
func (s *Store) Snapshot() *policy.RuleSet {
	return s.snap.Load()
}

// Rules returns a copy of the rules in stored order.
func (s *Store) Rules() []domain.Rule {
	return s.Snapshot().Rules()
}

// Get returns the rule with the given id.
func (s *Store) Get(id string) (domain.Rule, bool) {
	for _, r := range s.Snapshot().Rules() {
		if r.ID == id {
			return r, true
		}
	}
	return domain.Rule{}, false
}

// Add appends rule to the end of the list.
func (s *Store) Add(rule domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return s.mutate("add", func(rules []domain.Rule) ([]domain.Rule, error) {
		if indexOf(rules, rule.ID) >= 0 {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
		}
		return append(rules, rule), nil
	})
}

// Remove deletes the rule with the given id.
func (s *Store) Remove(id string) error {
	return s.mutate("remove", func(rules []domain.Rule) ([]domain.Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		return append(rules[:i], rules[i+1:]...), nil
	})
}

// Update replaces the rule with the same id, keeping its position.
func (s *Store) Update(rule domain.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return s.mutate("update", func(rules []domain.Rule) ([]domain.Rule, error) {
		i := indexOf(rules, rule.ID)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, rule.ID)
		}
		rules[i] = rule
		return rules, nil
	})
}

// SetEnabled enables or disables a rule and returns the updated rule.
func (s *Store) SetEnabled(id string, enabled bool) (domain.Rule, error) {
	var out domain.Rule
	err := s.mutate("set_enabled", func(rules []domain.Rule) ([]domain.Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		rules[i] = rules[i].WithEnabled(enabled)
		out = rules[i]
		return rules, nil
	})
	return out, err
}

// Toggle flips a rule's enabled flag and returns the updated rule.
func (s *Store) Toggle(id string) (domain.Rule, error) {
	var out domain.Rule
	err := s.mutate("toggle", func(rules []domain.Rule) ([]domain.Rule, error) {
		i := indexOf(rules, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
		}
		rules[i] = rules[i].WithEnabled(!rules[i].Enabled)
		out = rules[i]
		return rules, nil
	})
	return out, err
}

// Replace swaps the whole list, e.g. when importing a seed file.
func (s *Store) Replace(rules []domain.Rule) error {
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return s.mutate("replace", func([]domain.Rule) ([]domain.Rule, error) {
		return append([]domain.Rule(nil), rules...), nil
	})
}

// Len returns the number of rules.
func (s *Store) Len() int { return s.Snapshot().Len() }

func indexOf(rules []domain.Rule, id string) int {
	for i, r := range rules {
		if r.ID == id {
			return i
		}
	}
	return -1
}
