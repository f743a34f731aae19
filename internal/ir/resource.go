package ir

import (
	"encoding/json"
	"fmt"
)

// Field kinds. A write-only field's value is consumed during apply and never
// appears in the persisted record; only its version number survives.
const (
	KindPlain     = "plain"
	KindWriteOnly = "write-only"
)

// Resource types understood by the engine.
const (
	TypeKV    = "kv"    // static key-value secret at a store path
	TypeLease = "lease" // dynamic credential issuance against a store role
)

// Resource represents a single declared resource.
type Resource struct {
	Type      string            `yaml:"type"` // "kv" or "lease"
	Name      string            `yaml:"name"`
	Store     string            `yaml:"store"`     // store backend name
	Path      string            `yaml:"path"`      // secret path (kv) or role (lease)
	Ephemeral bool              `yaml:"ephemeral"` // payload is read this pass, never persisted
	DependsOn []string          `yaml:"dependsOn"`
	Fields    map[string]*Field `yaml:"fields"`
	Timeout   string            `yaml:"timeout"` // per-store-call timeout override
}

// Field is a single configuration input on a resource. Write-only fields
// carry a declared version; the raw value only ever travels as a transient
// argument during apply and is never kept once the pass that consumed it
// completes.
type Field struct {
	Kind    string `yaml:"kind"`    // "plain" or "write-only"
	Value   any    `yaml:"value"`   // literal or ephemeral:// reference; may be absent
	Version int    `yaml:"version"` // declared version, write-only fields only
}

// MarshalJSON emits write-only values as null so no serialization path
// (plan output, debug dumps) can carry a raw secret.
func (f *Field) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    string `json:"kind"`
		Value   any    `json:"value"`
		Version int    `json:"version,omitempty"`
	}{Kind: f.Kind, Value: f.Value, Version: f.Version}

	if f.Kind == KindWriteOnly {
		out.Value = nil
	}
	return json.Marshal(out)
}

// Key returns the persisted-record key for a resource, e.g. "kv:database/postgres".
func (r *Resource) Key() string {
	return fmt.Sprintf("%s:%s", r.Type, r.Path)
}

// Addr returns the resource address used in dependency declarations and
// reporting, e.g. "kv.postgres-creds".
func (r *Resource) Addr() string {
	return fmt.Sprintf("%s.%s", r.Type, r.Name)
}

// WriteOnlyFields returns the names of all write-only fields on the resource.
func (r *Resource) WriteOnlyFields() []string {
	var names []string
	for name, f := range r.Fields {
		if f.Kind == KindWriteOnly {
			names = append(names, name)
		}
	}
	return names
}

// IsEphemeral reports whether the resource's payload must never be persisted.
// Lease resources are always ephemeral; kv resources may opt in for reads.
func (r *Resource) IsEphemeral() bool {
	return r.Ephemeral || r.Type == TypeLease
}
