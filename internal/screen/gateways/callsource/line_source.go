package callsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/haukened/rr-screen/internal/screen/common/log"
)

// ErrAlreadyRunning is returned by Start on a running source.
var ErrAlreadyRunning = errors.New("call source already running")

// LineSource reads one caller id per line from an io.Reader and writes one
// tab-separated response line per call:
//
//	<instruction kind>\t<action>\t<raw number>
//
// The raw number is last and written exactly as read, so it may contain
// spaces. A blank line is a withheld caller id.
//
// A pending read can only be interrupted by closing the reader: if it is an
// io.Closer, Stop (and cancellation of the Start context) closes it.
// Otherwise the loop notices cancellation at the next line.
type LineSource struct {
	in     io.Reader
	out    io.Writer
	logger log.Logger

	mu      sync.Mutex
	running  bool
	stopping bool
	stopCh   chan struct{}
	done    chan struct{}
	err     error
}

// NewLineSource creates a LineSource over in and out.
func NewLineSource(in io.Reader, out io.Writer, logger log.Logger) *LineSource {
	return &LineSource{
		in:     in,
		out:    out,
		logger: log.OrGlobal(logger),
	}
}

// Start begins the read loop in the background.
func (s *LineSource) Start(ctx context.Context, screener CallScreener) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.stopping = false
	s.err = nil
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	s.logger.Info(map[string]any{"source": "lines"}, "Call source started")
	go s.readLoop(ctx, screener, s.stopCh, s.done)
	go s.stopOnCancel(ctx, s.done)
	return nil
}

// stopOnCancel stops the source when ctx ends so a blocked read is released.
func (s *LineSource) stopOnCancel(ctx context.Context, done chan struct{}) {
	select {
	case <-ctx.Done():
		if err := s.Stop(); err != nil {
			s.logger.Warn(map[string]any{"error": err}, "Error closing call source input")
		}
	case <-done:
	}
}

// Stop signals the loop to end and waits for it. Concurrent calls are safe;
// only the first one closes the input.
func (s *LineSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	first := !s.stopping
	var closeErr error
	if first {
		s.stopping = true
		close(s.stopCh)
		if c, ok := s.in.(io.Closer); ok {
			closeErr = c.Close()
		}
	}
	done := s.done
	s.mu.Unlock()

	<-done
	if first {
		s.logger.Info(map[string]any{"source": "lines"}, "Call source stopped")
	}
	return closeErr
}

// Wait blocks until the read loop exits (input exhausted, context done or
// Stop) and returns the read error, if any. It returns nil if never started.
func (s *LineSource) Wait() error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *LineSource) readLoop(ctx context.Context, screener CallScreener, stopCh, done chan struct{}) {
	var loopErr error
	defer func() {
		s.mu.Lock()
		s.err = loopErr
		s.running = false
		s.mu.Unlock()
		close(done)
	}()

	scanner := bufio.NewScanner(s.in)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			s.logger.Debug(nil, "Call source stopping due to context cancellation")
			return
		case <-stopCh:
			s.logger.Debug(nil, "Call source stopping due to stop signal")
			return
		default:
		}

		raw := scanner.Text()
		if strings.TrimSpace(raw) == "" {
			raw = ""
		}
		d := screener.Screen(raw)
		inst := InstructionFor(d.Action)
		if _, err := fmt.Fprintf(s.out, "%s\t%s\t%s\n", inst.Kind(), d.Action, raw); err != nil {
			loopErr = fmt.Errorf("write response: %w", err)
			s.logger.Error(map[string]any{"error": err}, "Failed to write call response")
			return
		}
	}

	select {
	case <-stopCh:
		// Read errors after Stop closed the input are expected.
		return
	default:
	}
	if err := scanner.Err(); err != nil {
		loopErr = fmt.Errorf("read calls: %w", err)
		s.logger.Warn(map[string]any{"error": err}, "Call source read failed")
	}
}

var _ Source = (*LineSource)(nil)
