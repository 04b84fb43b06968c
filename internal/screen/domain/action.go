package domain

import (
	"fmt"
	"strings"
)

// Action is what a rule does to a call it matches.
//
// ALLOW     - let the call through; beats every suppression rule
// BLOCK     - reject the call without a missed-call notification
// SILENCE   - let the call ring through silently
// VOICEMAIL - reject the call so the carrier routes it to voicemail
//
// The zero value is ActionAllow so an unset action never suppresses.
type Action uint8

const (
	ActionAllow Action = iota
	ActionBlock
	ActionSilence
	ActionVoicemail
)

// String returns the stable name used in storage and on the command line.
func (a Action) String() string {
	switch a {
	case ActionAllow:
		return "ALLOW"
	case ActionBlock:
		return "BLOCK"
	case ActionSilence:
		return "SILENCE"
	case ActionVoicemail:
		return "VOICEMAIL"
	default:
		return fmt.Sprintf("Action(%d)", a)
	}
}

// ParseAction converts a name into an Action (case-insensitive).
func ParseAction(s string) (Action, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ALLOW":
		return ActionAllow, nil
	case "BLOCK":
		return ActionBlock, nil
	case "SILENCE":
		return ActionSilence, nil
	case "VOICEMAIL":
		return ActionVoicemail, nil
	default:
		return 0, fmt.Errorf("unsupported action: %q", s)
	}
}

// IsValid reports whether a is one of the defined actions.
func (a Action) IsValid() bool { return a <= ActionVoicemail }

// Suppresses is true for every action other than ALLOW.
func (a Action) Suppresses() bool { return a != ActionAllow }

func (a Action) MarshalText() ([]byte, error) {
	if !a.IsValid() {
		return nil, fmt.Errorf("unsupported action: %d", a)
	}
	return []byte(a.String()), nil
}

func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
