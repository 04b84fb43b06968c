package callsource

import (
	"fmt"

	"github.com/haukened/rr-screen/internal/screen/domain"
)

// Kind names the four instruction shapes a decision can produce.
type Kind string

const (
	KindAllow                  Kind = "allow"
	KindRejectSkipNotification Kind = "reject-skip-notification"
	KindRejectWithNotification Kind = "reject-notify"
	KindSilence                Kind = "silence"
)

// Instruction is the response returned to the platform for one call.
// SkipCallLog is never set: every screened call stays in the call history.
type Instruction struct {
	Disallow         bool
	Reject           bool
	Silence          bool
	SkipCallLog      bool
	SkipNotification bool
}

// InstructionFor maps an action to its instruction. Unknown actions allow
// the call.
func InstructionFor(a domain.Action) Instruction {
	switch a {
	case domain.ActionBlock:
		return Instruction{Disallow: true, Reject: true, SkipNotification: true}
	case domain.ActionVoicemail:
		return Instruction{Disallow: true, Reject: true}
	case domain.ActionSilence:
		return Instruction{Silence: true}
	default:
		return Instruction{}
	}
}

// Kind classifies the instruction.
func (i Instruction) Kind() Kind {
	switch {
	case i.Reject && i.SkipNotification:
		return KindRejectSkipNotification
	case i.Reject:
		return KindRejectWithNotification
	case i.Silence:
		return KindSilence
	default:
		return KindAllow
	}
}

func (i Instruction) String() string {
	return fmt.Sprintf("%s(disallow=%t reject=%t silence=%t skip_call_log=%t skip_notification=%t)",
		i.Kind(), i.Disallow, i.Reject, i.Silence, i.SkipCallLog, i.SkipNotification)
}
