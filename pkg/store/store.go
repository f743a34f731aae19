// Package store defines the boundary between the engine and a secret store.
//
// Implementations live under stores/ and are registered through the
// internal registry. Every call takes a context; callers are expected to
// attach their own timeout, and a timed-out call is reported the same way
// as any other failed write or read.
package store

import (
	"context"
	"time"
)

// Store is the engine's only view of a secret backend.
type Store interface {
	// Write performs an idempotent upsert of a static secret payload.
	Write(ctx context.Context, path string, payload map[string]any) error

	// Read fetches a static secret payload. A missing secret is an error.
	Read(ctx context.Context, path string) (map[string]any, error)

	// IssueLease requests dynamic credentials for the given role.
	IssueLease(ctx context.Context, role string) (*Lease, error)

	// RevokeLease revokes a previously issued lease. The engine never calls
	// this itself; lease lifecycle belongs to the orchestrating caller.
	RevokeLease(ctx context.Context, leaseID string) error
}

// Lease holds dynamically issued credentials together with the identifier
// and TTL the store assigned. Credentials follow the same non-persistence
// rules as any other ephemeral payload.
type Lease struct {
	Credentials map[string]string
	LeaseID     string
	TTL         time.Duration
}
