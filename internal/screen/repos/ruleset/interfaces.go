package ruleset

import "github.com/haukened/rr-screen/internal/screen/domain"

// Persister loads and saves the ordered rule list. Implementations must
// preserve order across a save/load round trip.
type Persister interface {
	LoadRules() ([]domain.Rule, error)
	SaveRules(rules []domain.Rule) error
}
