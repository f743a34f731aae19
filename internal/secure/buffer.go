// Package secure provides memory-safe storage for ephemeral secret payloads.
//
// Payloads fetched for a single apply pass are kept in memguard enclaves:
// encrypted at rest in memory, mlocked against swapping, and wiped on
// destruction. Nothing in this package offers a way to serialize a payload
// to durable storage.
package secure

import (
	"fmt"
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer holds one ephemeral payload in protected memory. It is owned by
// the apply pass that created it and must be destroyed when the pass ends.
type Buffer struct {
	mu        sync.Mutex
	enclave   *memguard.Enclave
	destroyed bool
}

// NewBuffer copies data into a protected enclave. The caller should zero
// its own copy afterwards; memguard wipes the slice it is given.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// With decrypts the payload and invokes fn with the plaintext. The plaintext
// buffer is wiped before With returns, so fn must not retain the slice.
func (b *Buffer) With(fn func(data []byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return fmt.Errorf("secure buffer already destroyed")
	}

	locked, err := b.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open enclave: %w", err)
	}
	defer locked.Destroy()

	return fn(locked.Bytes())
}

// Destroy drops the enclave and prevents further use. Idempotent.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}
	b.enclave = nil
	b.destroyed = true
}

// Purge wipes all memguard-managed memory. Call once at process exit.
func Purge() {
	memguard.Purge()
}
