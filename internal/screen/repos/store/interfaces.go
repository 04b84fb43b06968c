package store

import (
	"github.com/haukened/rr-screen/internal/screen/repos/auditlog"
	"github.com/haukened/rr-screen/internal/screen/repos/ruleset"
)

// Store is the on-disk home of the rule list and the audit log.
type Store interface {
	ruleset.Persister
	auditlog.Persister
	Stats() Stats
	Close() error
}

// Stats reports lightweight store metadata.
// Values are read in a read-only transaction.
type Stats struct {
	Rules          int   // persisted rule count
	AuditEntries   int   // persisted audit entry count
	RulesSavedUnix int64 // last rule save, unix seconds (0 if never)
	AuditSavedUnix int64 // last audit save, unix seconds (0 if never)
}
