// Package postgres verifies dynamically issued PostgreSQL credentials by
// opening a connection with them. It is used by the lease CLI after
// issuance; the engine itself never touches it.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/lib/pq"

	"github.com/sealix-io/sealix/pkg/store"
)

// VerifyLease connects to the given database with the lease's credentials
// and pings it. The DSN is built locally and discarded; the credentials are
// never logged or returned.
func VerifyLease(ctx context.Context, host string, port int, dbname string, lease *store.Lease) error {
	username := lease.Credentials["username"]
	password := lease.Credentials["password"]
	if username == "" || password == "" {
		return fmt.Errorf("lease %s carries no username/password credentials", lease.LeaseID)
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(username), url.QueryEscape(password), host, port, dbname)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("credential check failed: %w", err)
	}
	return nil
}
