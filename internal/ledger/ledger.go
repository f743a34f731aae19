// Package ledger tracks which version of each write-only field was last
// transmitted successfully. The ledger is the only durable trace of a
// write-only value: the engine decides whether to retransmit by comparing
// version numbers, never by comparing secret values.
package ledger

import (
	"fmt"
	"sync"

	"github.com/sealix-io/sealix/internal/ir"
)

// InvalidVersionError reports a non-positive declared version. It is raised
// locally, before any call to the secret store.
type InvalidVersionError struct {
	Key     string
	Field   string
	Version int
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid version %d for %s.%s: versions must be positive integers",
		e.Version, e.Key, e.Field)
}

type entry struct {
	key   string
	field string
}

// Ledger maps (resourceKey, fieldName) to the last applied version. It is
// loaded from the persisted record at the start of an apply pass and written
// back as part of the same commit that persists the record.
type Ledger struct {
	mu      sync.Mutex
	applied map[entry]int
}

// FromRecord builds a ledger from the persisted record's field versions.
func FromRecord(record *ir.Record) *Ledger {
	l := &Ledger{applied: make(map[entry]int)}
	for _, res := range record.Resources {
		for field, version := range res.FieldVersions {
			l.applied[entry{res.Key, field}] = version
		}
	}
	return l
}

// ShouldUpdate reports whether a write-only field must be retransmitted:
// true when no entry exists or the stored version differs from the declared
// one. Any difference triggers an update, decreases included.
func (l *Ledger) ShouldUpdate(key, field string, declaredVersion int) (bool, error) {
	if declaredVersion <= 0 {
		return false, &InvalidVersionError{Key: key, Field: field, Version: declaredVersion}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	applied, ok := l.applied[entry{key, field}]
	if !ok {
		return true, nil
	}
	return applied != declaredVersion, nil
}

// RecordApplied marks a version as successfully transmitted. It only mutates
// the in-memory ledger; durability comes from the record write that commits
// the whole pass.
func (l *Ledger) RecordApplied(key, field string, declaredVersion int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.applied[entry{key, field}] = declaredVersion
}

// AppliedVersion returns the last applied version for a field, if any.
func (l *Ledger) AppliedVersion(key, field string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.applied[entry{key, field}]
	return v, ok
}

// Forget drops every entry for the given resource key. Used when a resource
// is destroyed.
func (l *Ledger) Forget(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for e := range l.applied {
		if e.key == key {
			delete(l.applied, e)
		}
	}
}

// Versions returns the applied versions for one resource key, for embedding
// into its record entry.
func (l *Ledger) Versions(key string) map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int)
	for e, v := range l.applied {
		if e.key == key {
			out[e.field] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
