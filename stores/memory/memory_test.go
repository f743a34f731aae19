package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WriteRead(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, "app/db", map[string]any{"password": "x"}))

	got, err := s.Read(ctx, "app/db")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"password": "x"}, got)

	_, err = s.Read(ctx, "app/missing")
	assert.Error(t, err)

	assert.Equal(t, int64(1), s.Writes.Load())
	assert.Equal(t, int64(2), s.Reads.Load())
}

func TestStore_ReadReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Write(ctx, "app/db", map[string]any{"password": "x"}))

	got, err := s.Read(ctx, "app/db")
	require.NoError(t, err)
	got["password"] = "mutated"

	again, err := s.Read(ctx, "app/db")
	require.NoError(t, err)
	assert.Equal(t, "x", again["password"])
}

func TestStore_Lease(t *testing.T) {
	s := New()
	ctx := context.Background()

	lease, err := s.IssueLease(ctx, "app-role")
	require.NoError(t, err)
	assert.NotEmpty(t, lease.LeaseID)
	assert.NotZero(t, lease.TTL)
	assert.Contains(t, lease.Credentials, "username")
	assert.Contains(t, lease.Credentials, "password")

	require.NoError(t, s.RevokeLease(ctx, lease.LeaseID))
	assert.Error(t, s.RevokeLease(ctx, lease.LeaseID), "double revoke must fail")
}

func TestStore_FailureToggles(t *testing.T) {
	s := New()
	ctx := context.Background()

	s.FailWrites = true
	assert.Error(t, s.Write(ctx, "app/db", map[string]any{"a": 1}))

	s.FailWrites = false
	s.FailReads = true
	require.NoError(t, s.Write(ctx, "app/db", map[string]any{"a": 1}))
	_, err := s.Read(ctx, "app/db")
	assert.Error(t, err)
	_, err = s.IssueLease(ctx, "role")
	assert.Error(t, err)
}

func TestStore_ContextCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.Write(ctx, "app/db", map[string]any{"a": 1}))
	_, err := s.Read(ctx, "app/db")
	assert.Error(t, err)
}
