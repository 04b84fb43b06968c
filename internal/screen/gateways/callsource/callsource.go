// Package callsource adapts screening decisions to the instruction the
// telephony layer acts on, and provides a line-oriented call source that
// stands in for the platform call-screening hook.
package callsource

import (
	"context"

	"github.com/haukened/rr-screen/internal/screen/domain"
)

// CallScreener is what a call source hands each incoming caller id to.
type CallScreener interface {
	Screen(rawNumber string) domain.Decision
}

// Source feeds caller ids to a CallScreener and reports the resulting
// instructions back to the telephony layer.
type Source interface {
	// Start begins reading calls and handing them to screener.
	Start(ctx context.Context, screener CallScreener) error

	// Stop shuts the source down and waits for the read loop to exit.
	Stop() error
}
