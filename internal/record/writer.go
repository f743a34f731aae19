// Package record produces and persists the durable projection of managed
// resources. It is the only component allowed to write durable state, and
// it enforces the null-out invariant: a write-only field's value never
// reaches storage, only its version number does.
package record

import (
	"fmt"
	"sort"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/ledger"
)

// PersistenceInvariantError reports an internal defect: a write-only field
// carried a value on its way to durable storage. Correct callers can never
// trigger it.
type PersistenceInvariantError struct {
	Key   string
	Field string
}

func (e *PersistenceInvariantError) Error() string {
	return fmt.Sprintf("persistence invariant violated: write-only field %s.%s holds a value", e.Key, e.Field)
}

// EntryFor builds the persisted entry for one resource. Write-only fields
// are emitted as null unconditionally, alongside whatever versions the
// ledger has recorded for them; plain fields keep their declared values.
// Ephemeral resources never reach this function.
func EntryFor(res *ir.Resource, lg *ledger.Ledger, deps []string) *ir.ResourceRecord {
	entry := &ir.ResourceRecord{
		Key:          res.Key(),
		Type:         res.Type,
		Name:         res.Name,
		Store:        res.Store,
		Path:         res.Path,
		Fields:       make(map[string]any, len(res.Fields)),
		Dependencies: deps,
	}

	for name, f := range res.Fields {
		if f.Kind == ir.KindWriteOnly {
			entry.Fields[name] = nil
			entry.WriteOnly = append(entry.WriteOnly, name)
		} else {
			entry.Fields[name] = f.Value
		}
	}
	sort.Strings(entry.WriteOnly)

	entry.FieldVersions = lg.Versions(res.Key())
	return entry
}

// AdoptedEntry builds the entry for a resource imported from an existing
// external object: every write-only field is null with no version baseline,
// since the object's current secret value is unknown. The next apply must
// supply both value and version.
func AdoptedEntry(res *ir.Resource) *ir.ResourceRecord {
	entry := &ir.ResourceRecord{
		Key:    res.Key(),
		Type:   res.Type,
		Name:   res.Name,
		Store:  res.Store,
		Path:   res.Path,
		Fields: make(map[string]any, len(res.Fields)),
	}
	for name, f := range res.Fields {
		if f.Kind == ir.KindWriteOnly {
			entry.Fields[name] = nil
			entry.WriteOnly = append(entry.WriteOnly, name)
		} else {
			entry.Fields[name] = f.Value
		}
	}
	sort.Strings(entry.WriteOnly)
	return entry
}

// CheckInvariant scans a record for write-only fields holding values. It
// runs on every write path immediately before serialization.
func CheckInvariant(rec *ir.Record) error {
	for _, res := range rec.Resources {
		for _, field := range res.WriteOnly {
			if v, ok := res.Fields[field]; ok && v != nil {
				return &PersistenceInvariantError{Key: res.Key, Field: field}
			}
		}
	}
	return nil
}
