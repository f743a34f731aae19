package record

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sealix-io/sealix/internal/ir"
)

func TestManager_ReadMissingFile(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "record.json"))

	rec, err := m.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Version)
	assert.Equal(t, 0, rec.Serial)
	assert.NotEmpty(t, rec.Lineage)
	assert.Empty(t, rec.Resources)
}

func TestManager_WriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".sealix", "record.json")
	m := NewManager(path)
	ctx := context.Background()

	rec := &ir.Record{
		Version: 1,
		Serial:  3,
		Lineage: "test-lineage",
		Resources: []*ir.ResourceRecord{
			{
				Key: "kv:app/db", Type: "kv", Name: "db", Store: "main", Path: "app/db",
				Fields:        map[string]any{"password": nil, "hostname": "db.internal"},
				WriteOnly:     []string{"password"},
				FieldVersions: map[string]int{"password": 2},
			},
		},
	}
	require.NoError(t, m.Write(ctx, rec))

	// Record files carry secrets' version history; keep them private.
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := m.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.Serial, got.Serial)
	assert.Equal(t, rec.Lineage, got.Lineage)
	require.Len(t, got.Resources, 1)
	assert.Nil(t, got.Resources[0].Fields["password"])
	assert.Equal(t, map[string]int{"password": 2}, got.Resources[0].FieldVersions)
}

func TestManager_WriteRejectsInvariantViolation(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "record.json"))

	rec := &ir.Record{
		Version: 1,
		Lineage: "test",
		Resources: []*ir.ResourceRecord{
			{
				Key:       "kv:app/db",
				Fields:    map[string]any{"password": "leaked"},
				WriteOnly: []string{"password"},
			},
		},
	}

	err := m.Write(context.Background(), rec)
	require.Error(t, err)

	var violation *PersistenceInvariantError
	assert.ErrorAs(t, err, &violation)

	// Nothing must land on disk.
	_, statErr := os.Stat(m.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestManager_Lock(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "record.json"))

	require.NoError(t, m.Lock())

	// Second lock fails while held.
	err := m.Lock()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "locked")

	require.NoError(t, m.Unlock())
	require.NoError(t, m.Lock())
	require.NoError(t, m.Unlock())

	// Unlocking an unlocked record is fine.
	assert.NoError(t, m.Unlock())
}
