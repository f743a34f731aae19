// Package memory implements an in-process secret store. It backs tests and
// local experimentation the way the null provider does for resource engines:
// real semantics, no network.
package memory

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sealix-io/sealix/pkg/store"
)

// Store is an in-memory store.Store with operation counters so tests can
// assert exactly how many remote calls an apply pass performed.
type Store struct {
	mu       sync.Mutex
	secrets  map[string]map[string]any
	leases   map[string]bool
	leaseSeq atomic.Int64

	// FailWrites and FailReads simulate an unreachable or rejecting store.
	FailWrites bool
	FailReads  bool

	Writes      atomic.Int64
	Reads       atomic.Int64
	LeaseIssues atomic.Int64
	LeaseRevoke atomic.Int64
}

func New() *Store {
	return &Store{
		secrets: make(map[string]map[string]any),
		leases:  make(map[string]bool),
	}
}

func (s *Store) Write(ctx context.Context, path string, payload map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.Writes.Add(1)
	if s.FailWrites {
		return fmt.Errorf("memory store: write to %s refused", path)
	}

	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		copied[k] = v
	}

	s.mu.Lock()
	s.secrets[path] = copied
	s.mu.Unlock()
	return nil
}

func (s *Store) Read(ctx context.Context, path string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Reads.Add(1)
	if s.FailReads {
		return nil, fmt.Errorf("memory store: read of %s refused", path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.secrets[path]
	if !ok {
		return nil, fmt.Errorf("memory store: no secret at %s", path)
	}

	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	return copied, nil
}

func (s *Store) IssueLease(ctx context.Context, role string) (*store.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.LeaseIssues.Add(1)
	if s.FailReads {
		return nil, fmt.Errorf("memory store: lease issuance for role %s refused", role)
	}

	id := fmt.Sprintf("memory/%s/%d", role, s.leaseSeq.Add(1))
	s.mu.Lock()
	s.leases[id] = true
	s.mu.Unlock()

	return &store.Lease{
		Credentials: map[string]string{
			"username": fmt.Sprintf("v-%s-user", role),
			"password": fmt.Sprintf("v-%s-pass-%s", role, id),
		},
		LeaseID: id,
		TTL:     time.Hour,
	}, nil
}

func (s *Store) RevokeLease(ctx context.Context, leaseID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.LeaseRevoke.Add(1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.leases[leaseID] {
		return fmt.Errorf("memory store: unknown lease %s", leaseID)
	}
	delete(s.leases, leaseID)
	return nil
}

// Secret returns a copy of the stored payload at path, for test assertions.
func (s *Store) Secret(path string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload, ok := s.secrets[path]
	if !ok {
		return nil
	}
	copied := make(map[string]any, len(payload))
	for k, v := range payload {
		copied[k] = v
	}
	return copied
}
