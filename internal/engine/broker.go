package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/metrics"
	"github.com/sealix-io/sealix/internal/secure"
	"github.com/sealix-io/sealix/pkg/store"
)

// Handle holds one ephemeral payload for the duration of a single apply
// pass. The payload lives in protected memory and is wiped when the pass
// ends, success or failure alike.
type Handle struct {
	Addr    string
	LeaseID string // set for dynamic credential leases
	TTL     time.Duration

	buf *secure.Buffer
}

// Broker fetches ephemeral payloads from secret stores and scopes them to
// one apply pass. It offers no way to serialize a payload; the only way out
// of a handle is Value, which feeds individual keys into write-only fields.
type Broker struct {
	mu        sync.Mutex
	handles   map[string]*Handle
	completed func(addr string) bool
}

// NewBroker creates a broker for one apply pass. completed reports whether
// a resource's own apply step has finished; Open refuses to read ahead of
// it.
func NewBroker(completed func(addr string) bool) *Broker {
	return &Broker{
		handles:   make(map[string]*Handle),
		completed: completed,
	}
}

// Open reads the resource's payload from its store and parks it in
// protected memory. Lease resources get dynamic credentials issued; kv
// resources get a static read. Every declared dependency must have
// completed first.
func (b *Broker) Open(ctx context.Context, res *ir.Resource, deps []string, s store.Store, storeName string) (*Handle, error) {
	for _, dep := range deps {
		if !b.completed(dep) {
			return nil, &DependencyOrderError{Address: res.Addr(), Dependency: dep}
		}
	}

	handle := &Handle{Addr: res.Addr()}
	var payload map[string]any

	switch res.Type {
	case ir.TypeLease:
		lease, err := s.IssueLease(ctx, res.Path)
		if err != nil {
			metrics.LeasesIssued.WithLabelValues(storeName, metrics.OutcomeError).Inc()
			return nil, &SecretReadError{Address: res.Addr(), Err: err}
		}
		metrics.LeasesIssued.WithLabelValues(storeName, metrics.OutcomeOK).Inc()

		payload = make(map[string]any, len(lease.Credentials))
		for k, v := range lease.Credentials {
			payload[k] = v
		}
		handle.LeaseID = lease.LeaseID
		handle.TTL = lease.TTL

	default:
		read, err := s.Read(ctx, res.Path)
		if err != nil {
			metrics.StoreReads.WithLabelValues(storeName, metrics.OutcomeError).Inc()
			return nil, &SecretReadError{Address: res.Addr(), Err: err}
		}
		metrics.StoreReads.WithLabelValues(storeName, metrics.OutcomeOK).Inc()
		payload = read
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &SecretReadError{Address: res.Addr(), Err: fmt.Errorf("failed to encode payload: %w", err)}
	}
	// memguard wipes the source slice when building the enclave.
	handle.buf = secure.NewBuffer(encoded)

	b.mu.Lock()
	b.handles[res.Addr()] = handle
	b.mu.Unlock()

	return handle, nil
}

// Value resolves one key of an opened handle's payload, identified by an
// ephemeral:// reference. The returned value must only be passed onward as
// a transient argument.
func (b *Broker) Value(ref string) (string, error) {
	addr, key, err := parseEphemeralRef(ref)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	handle, ok := b.handles[addr]
	b.mu.Unlock()
	if !ok {
		return "", &DependencyOrderError{Address: ref, Dependency: addr}
	}

	var out string
	err = handle.buf.With(func(data []byte) error {
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return fmt.Errorf("corrupt ephemeral payload for %s: %w", addr, err)
		}
		v, ok := payload[key]
		if !ok {
			return fmt.Errorf("ephemeral payload of %s has no key %q", addr, key)
		}
		out = fmt.Sprintf("%v", v)
		return nil
	})
	if err != nil {
		return "", err
	}
	return out, nil
}

// Handles returns metadata for every open handle, for the apply report.
// Payloads stay sealed.
func (b *Broker) Handles() []*Handle {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Handle, 0, len(b.handles))
	for _, h := range b.handles {
		out = append(out, h)
	}
	return out
}

// CloseAll destroys every handle. It runs unconditionally at pass end.
func (b *Broker) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for addr, h := range b.handles {
		h.buf.Destroy()
		delete(b.handles, addr)
	}
}
