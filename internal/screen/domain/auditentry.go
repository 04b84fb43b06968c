package domain

import "time"

// auditTimeLayout is the compact month-day clock format used when listing entries.
const auditTimeLayout = "01-02 15:04:05"

// AuditEntry records one screened call. Entries are never mutated once created.
type AuditEntry struct {
	RawNumber        string    `json:"rawNumber"`
	Timestamp        time.Time `json:"timestamp"`
	Suppressed       bool      `json:"suppressed"`
	MatchedPattern   string    `json:"matchedPattern,omitempty"`
	MatchedAction    *Action   `json:"matchedAction,omitempty"`
	MatchedAllowRule bool      `json:"matchedAllowRule"`
}

// NewAuditEntry records decision d for the unnormalized caller string raw.
func NewAuditEntry(raw string, at time.Time, d Decision) AuditEntry {
	e := AuditEntry{
		RawNumber:        raw,
		Timestamp:        at,
		Suppressed:       d.Suppressed(),
		MatchedAllowRule: d.MatchedAllowRule,
	}
	if d.Matched() {
		action := d.Action
		e.MatchedPattern = d.Pattern
		e.MatchedAction = &action
	}
	return e
}

// HasMatch is true when the entry came from a matching rule.
func (e AuditEntry) HasMatch() bool { return e.MatchedAction != nil }

// FormattedTime renders the timestamp in local time as MM-dd HH:mm:ss.
func (e AuditEntry) FormattedTime() string {
	return e.Timestamp.Local().Format(auditTimeLayout)
}
