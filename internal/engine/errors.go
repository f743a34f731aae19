package engine

import "fmt"

// SecretWriteError reports that the secret store rejected or could not
// complete a write-only transmission. The ledger is left untouched so the
// next apply pass retries the same version.
type SecretWriteError struct {
	Address string
	Field   string
	Err     error
}

func (e *SecretWriteError) Error() string {
	return fmt.Sprintf("secret write failed for %s.%s: %v", e.Address, e.Field, e.Err)
}

func (e *SecretWriteError) Unwrap() error { return e.Err }

// SecretReadError reports a failed ephemeral read or lease issuance. Every
// write-only field depending on the failed handle fails with it.
type SecretReadError struct {
	Address string
	Err     error
}

func (e *SecretReadError) Error() string {
	return fmt.Sprintf("secret read failed for %s: %v", e.Address, e.Err)
}

func (e *SecretReadError) Unwrap() error { return e.Err }

// DependencyOrderError reports an ephemeral read attempted before its
// declared dependency completed. This is a graph-construction defect, not a
// runtime race: it is fatal and not retryable without fixing the graph.
type DependencyOrderError struct {
	Address    string
	Dependency string
}

func (e *DependencyOrderError) Error() string {
	return fmt.Sprintf("dependency order violated: %s read before %s completed", e.Address, e.Dependency)
}
