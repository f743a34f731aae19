package record

import (
	"context"
	"fmt"

	"github.com/sealix-io/sealix/internal/ir"
)

// Backend is a storage backend for the persisted record.
type Backend interface {
	// Read loads the record from the backend.
	Read(ctx context.Context) (*ir.Record, error)

	// Write saves the record to the backend.
	Write(ctx context.Context, rec *ir.Record) error

	// Lock acquires an exclusive lock on the record.
	Lock() error

	// Unlock releases the lock on the record.
	Unlock() error
}

// BackendConfig holds configuration for a record backend.
type BackendConfig struct {
	Type   string            `json:"type"` // "local", "s3"
	Config map[string]string `json:"config"`
}

// NewBackend creates a record backend from configuration.
func NewBackend(cfg *BackendConfig) (Backend, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backend configuration is nil")
	}

	switch cfg.Type {
	case "local", "":
		path := cfg.Config["path"]
		if path == "" {
			return nil, fmt.Errorf("local backend requires 'path' configuration")
		}
		return NewManager(path), nil
	case "s3":
		return newS3Backend(cfg.Config)
	default:
		return nil, fmt.Errorf("unknown backend type: %s", cfg.Type)
	}
}
