package vault

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("VAULT_ADDR", srv.URL)
	t.Setenv("VAULT_TOKEN", "test-token")

	s, err := New(nil)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresToken(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	_, err := New(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")

	s, err := New(map[string]string{"token": "opt-token", "mount": "kv", "db_mount": "pg"})
	require.NoError(t, err)
	assert.Equal(t, "kv", s.mount)
	assert.Equal(t, "pg", s.dbMount)
}

func TestStore_Write(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]any

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Vault-Token")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	err := s.Write(context.Background(), "app/db", map[string]any{"password": "x"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/secret/data/app/db", gotPath)
	assert.Equal(t, "test-token", gotToken)
	assert.Equal(t, map[string]any{"data": map[string]any{"password": "x"}}, gotBody)
}

func TestStore_Read(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/secret/data/app/db", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"data": map[string]any{"password": "x", "username": "admin"},
			},
		})
	})

	got, err := s.Read(context.Background(), "app/db")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"password": "x", "username": "admin"}, got)
}

func TestStore_ReadMissing(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[]}`))
	})

	_, err := s.Read(context.Background(), "app/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestStore_IssueLease(t *testing.T) {
	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/database/creds/app-role", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"lease_id":       "database/creds/app-role/abc123",
			"lease_duration": 3600,
			"data": map[string]any{
				"username": "v-user",
				"password": "v-pass",
			},
		})
	})

	lease, err := s.IssueLease(context.Background(), "app-role")
	require.NoError(t, err)
	assert.Equal(t, "database/creds/app-role/abc123", lease.LeaseID)
	assert.Equal(t, time.Hour, lease.TTL)
	assert.Equal(t, "v-user", lease.Credentials["username"])
	assert.Equal(t, "v-pass", lease.Credentials["password"])
}

func TestStore_RevokeLease(t *testing.T) {
	var gotPath string
	var gotBody map[string]any

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.WriteHeader(http.StatusNoContent)
	})

	err := s.RevokeLease(context.Background(), "database/creds/app-role/abc123")
	require.NoError(t, err)
	assert.Equal(t, "/v1/sys/leases/revoke", gotPath)
	assert.Equal(t, map[string]any{"lease_id": "database/creds/app-role/abc123"}, gotBody)
}
