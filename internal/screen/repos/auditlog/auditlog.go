// Package auditlog keeps the most recent screening decisions, newest first.
package auditlog

import (
	"fmt"
	"sync"

	"github.com/haukened/rr-screen/internal/screen/common/log"
	"github.com/haukened/rr-screen/internal/screen/domain"
	"github.com/haukened/rr-screen/internal/screen/services/screener"
)

// DefaultCapacity is the number of entries kept when no capacity is configured.
const DefaultCapacity = 50

// Persister loads and saves the entry list, newest first.
type Persister interface {
	LoadAudit() ([]domain.AuditEntry, error)
	SaveAudit(entries []domain.AuditEntry) error
}

// Options configures a Log.
type Options struct {
	Capacity  int // <= 0 or > DefaultCapacity selects DefaultCapacity
	Persister Persister
	Logger    log.Logger
}

// Log is a bounded newest-first list of audit entries. Append inserts at
// the front and drops whatever falls past capacity. Entries are never
// edited; they leave only through eviction or Clear.
type Log struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry
	capacity  int
	persister Persister
	logger    log.Logger
}

// New constructs a Log and loads persisted entries. A load failure starts
// the log empty.
func New(opts Options) *Log {
	capacity := opts.Capacity
	if capacity <= 0 || capacity > DefaultCapacity {
		capacity = DefaultCapacity
	}
	l := &Log{
		capacity:  capacity,
		persister: opts.Persister,
		logger:    log.OrGlobal(opts.Logger),
	}
	if l.persister != nil {
		entries, err := l.persister.LoadAudit()
		if err != nil {
			l.logger.Warn(map[string]any{"error": err}, "Failed to load audit log, starting empty")
		} else {
			l.entries = truncate(entries, capacity)
		}
	}
	return l
}

// Append records entry as the newest item.
// Persistence errors are logged; the in-memory log is always updated.
func (l *Log) Append(entry domain.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := make([]domain.AuditEntry, 0, min(len(l.entries)+1, l.capacity))
	next = append(next, entry)
	next = append(next, l.entries...)
	l.entries = truncate(next, l.capacity)

	if err := l.saveLocked(); err != nil {
		l.logger.Warn(map[string]any{"error": err, "entries": len(l.entries)}, "Failed to persist audit log")
	}
}

// List returns a copy of the entries, newest first.
func (l *Log) List() []domain.AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.AuditEntry(nil), l.entries...)
}

// Len returns the number of entries held.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Capacity returns the maximum number of entries kept.
func (l *Log) Capacity() int { return l.capacity }

// Clear removes every entry. The in-memory log is emptied even when
// persisting the empty log fails.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	if err := l.saveLocked(); err != nil {
		return fmt.Errorf("clear audit log: %w", err)
	}
	return nil
}

func (l *Log) saveLocked() error {
	if l.persister == nil {
		return nil
	}
	return l.persister.SaveAudit(append([]domain.AuditEntry(nil), l.entries...))
}

func truncate(entries []domain.AuditEntry, capacity int) []domain.AuditEntry {
	if len(entries) > capacity {
		return entries[:capacity:capacity]
	}
	return entries
}

var _ screener.AuditSink = (*Log)(nil)
