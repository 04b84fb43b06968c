package domain

// Decision is the outcome of screening one number against a rule set.
// Pure value type.
type Decision struct {
	Action           Action // ALLOW, or the suppression action of the matched rule
	RuleID           string // matched rule ID, empty when nothing matched
	Pattern          string // matched rule pattern, empty when nothing matched
	MatchedAllowRule bool   // true only when an explicit ALLOW rule matched
}

// Matched is true when some rule produced the decision.
func (d Decision) Matched() bool { return d.RuleID != "" }

// Suppressed is true when the call should not ring normally.
func (d Decision) Suppressed() bool { return d.Action.Suppresses() }

// DefaultAllow is the decision when no rule matched.
func DefaultAllow() Decision { return Decision{Action: ActionAllow} }

// DecisionFor builds the decision produced by a matching rule.
func DecisionFor(r Rule) Decision {
	return Decision{
		Action:           r.Action,
		RuleID:           r.ID,
		Pattern:          r.Pattern,
		MatchedAllowRule: r.IsAllow(),
	}
}
