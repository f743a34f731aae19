package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/sealix-io/sealix/internal/ir"
)

// Manager handles reading and writing of the persisted record on the local
// filesystem.
type Manager struct {
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Read loads the record from the configured path. A missing file yields a
// fresh empty record with a new lineage.
func (m *Manager) Read(ctx context.Context) (*ir.Record, error) {
	raw, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return &ir.Record{
			Version: 1,
			Serial:  0,
			Lineage: uuid.NewString(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read record file %s: %w", m.path, err)
	}

	if IsEncrypted(raw) {
		raw, err = Decrypt(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt record: %w", err)
		}
	}

	var rec ir.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse record file %s: %w", m.path, err)
	}
	return &rec, nil
}

// Write persists the record, enforcing the null-out invariant first. If
// SEALIX_RECORD_ENCRYPTION_KEY is set the file is transparently encrypted.
func (m *Manager) Write(ctx context.Context, rec *ir.Record) error {
	if err := CheckInvariant(rec); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}

	content, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize record: %w", err)
	}
	content = append(content, '\n')

	encrypted, err := Encrypt(content)
	if err != nil {
		return fmt.Errorf("failed to encrypt record: %w", err)
	}

	if err := os.WriteFile(m.path, encrypted, 0600); err != nil {
		return fmt.Errorf("failed to write record file %s: %w", m.path, err)
	}
	return nil
}

// Lock acquires a file lock on the record to keep concurrent apply passes
// on the same record mutually exclusive.
func (m *Manager) Lock() error {
	lockPath := m.lockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	// A lock older than 10 minutes is considered stale.
	if info, err := os.Stat(lockPath); err == nil {
		if time.Since(info.ModTime()) > 10*time.Minute {
			os.Remove(lockPath)
		} else {
			return fmt.Errorf("record is locked by another process (lock file: %s). "+
				"If this is an error, remove the lock file manually", lockPath)
		}
	}

	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(lockPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	return nil
}

// Unlock releases the record lock.
func (m *Manager) Unlock() error {
	if err := os.Remove(m.lockPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

func (m *Manager) lockPath() string {
	return m.path + ".lock"
}
