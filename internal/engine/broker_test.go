package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/stores/memory"
)

func TestBroker_OpenAndValue(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, "app/db", map[string]any{"password": "s3cret", "username": "admin"}))

	broker := NewBroker(func(string) bool { return true })
	defer broker.CloseAll()

	res := &ir.Resource{Type: ir.TypeKV, Name: "db", Store: "main", Path: "app/db", Ephemeral: true}
	handle, err := broker.Open(ctx, res, nil, mem, "main")
	require.NoError(t, err)
	assert.Equal(t, "kv.db", handle.Addr)
	assert.Empty(t, handle.LeaseID)

	v, err := broker.Value("ephemeral://kv.db/password")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v)

	_, err = broker.Value("ephemeral://kv.db/nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no key")
}

func TestBroker_Lease(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	broker := NewBroker(func(string) bool { return true })
	defer broker.CloseAll()

	res := &ir.Resource{Type: ir.TypeLease, Name: "app-creds", Store: "main", Path: "app-role"}
	handle, err := broker.Open(ctx, res, nil, mem, "main")
	require.NoError(t, err)
	assert.NotEmpty(t, handle.LeaseID)
	assert.NotZero(t, handle.TTL)

	username, err := broker.Value("ephemeral://lease.app-creds/username")
	require.NoError(t, err)
	assert.Equal(t, "v-app-role-user", username)
}

func TestBroker_RefusesUnfinishedDependency(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()

	broker := NewBroker(func(addr string) bool { return addr == "kv.done" })
	defer broker.CloseAll()

	res := &ir.Resource{Type: ir.TypeLease, Name: "app-creds", Store: "main", Path: "app-role"}

	_, err := broker.Open(ctx, res, []string{"kv.done", "kv.pending"}, mem, "main")
	require.Error(t, err)

	var orderErr *DependencyOrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "kv.pending", orderErr.Dependency)
	assert.Equal(t, int64(0), mem.LeaseIssues.Load(), "the store must not be touched before dependencies settle")
}

func TestBroker_ValueWithoutOpenFails(t *testing.T) {
	broker := NewBroker(func(string) bool { return true })

	_, err := broker.Value("ephemeral://kv.ghost/password")
	require.Error(t, err)

	var orderErr *DependencyOrderError
	assert.ErrorAs(t, err, &orderErr)
}

func TestBroker_CloseAllDestroysHandles(t *testing.T) {
	mem := memory.New()
	ctx := context.Background()
	require.NoError(t, mem.Write(ctx, "app/db", map[string]any{"password": "s3cret"}))

	broker := NewBroker(func(string) bool { return true })
	res := &ir.Resource{Type: ir.TypeKV, Name: "db", Store: "main", Path: "app/db", Ephemeral: true}
	_, err := broker.Open(ctx, res, nil, mem, "main")
	require.NoError(t, err)

	broker.CloseAll()

	// After the pass ends the payload is gone for good.
	_, err = broker.Value("ephemeral://kv.db/password")
	assert.Error(t, err)
	assert.Empty(t, broker.Handles())
}
