package cli

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sealix-io/sealix/stores/postgres"
)

var leaseVerifyPostgres string

var leaseCmd = &cobra.Command{
	Use:   "lease",
	Short: "Issue and revoke dynamic credentials",
}

var leaseIssueCmd = &cobra.Command{
	Use:   "issue <store> <role>",
	Short: "Issue a dynamic credential lease",
	Long: `Issues dynamic credentials from the named store for the given role and
prints them. The credentials are displayed once and never written anywhere;
revoke the lease when done, or let the TTL expire.`,
	Args: cobra.ExactArgs(2),
	RunE: runLeaseIssue,
}

var leaseRevokeCmd = &cobra.Command{
	Use:   "revoke <store> <lease-id>",
	Short: "Revoke a dynamic credential lease",
	Args:  cobra.ExactArgs(2),
	RunE:  runLeaseRevoke,
}

func init() {
	leaseIssueCmd.Flags().StringVar(&leaseVerifyPostgres, "verify-postgres", "",
		"Verify the lease against a Postgres endpoint (host:port/dbname)")
	leaseCmd.AddCommand(leaseIssueCmd)
	leaseCmd.AddCommand(leaseRevokeCmd)
}

func runLeaseIssue(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storeName, role := args[0], args[1]

	s, err := storeFor(ctx, storeName)
	if err != nil {
		return err
	}

	lease, err := s.IssueLease(ctx, role)
	if err != nil {
		return fmt.Errorf("failed to issue lease: %w", err)
	}

	fmt.Printf("Lease issued.\n")
	fmt.Printf("  lease_id = %s\n", lease.LeaseID)
	fmt.Printf("  ttl      = %s\n", lease.TTL)
	for k, v := range lease.Credentials {
		fmt.Printf("  %s = %s\n", k, v)
	}

	if leaseVerifyPostgres != "" {
		host, port, dbname, err := parsePostgresEndpoint(leaseVerifyPostgres)
		if err != nil {
			return err
		}
		if err := postgres.VerifyLease(ctx, host, port, dbname, lease); err != nil {
			return fmt.Errorf("lease verification failed: %w", err)
		}
		fmt.Printf("Verified: credentials accepted by %s.\n", leaseVerifyPostgres)
	}

	return nil
}

func runLeaseRevoke(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	storeName, leaseID := args[0], args[1]

	s, err := storeFor(ctx, storeName)
	if err != nil {
		return err
	}

	if err := s.RevokeLease(ctx, leaseID); err != nil {
		return fmt.Errorf("failed to revoke lease: %w", err)
	}
	fmt.Printf("Lease %s revoked.\n", leaseID)
	return nil
}

// parsePostgresEndpoint splits "host:port/dbname" into its parts.
func parsePostgresEndpoint(endpoint string) (host string, port int, dbname string, err error) {
	hostport, dbname, ok := strings.Cut(endpoint, "/")
	if !ok || dbname == "" {
		return "", 0, "", fmt.Errorf("malformed endpoint %q, expected host:port/dbname", endpoint)
	}
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, "", fmt.Errorf("malformed endpoint %q: %w", endpoint, err)
	}
	port, err = strconv.Atoi(portStr)
	if err != nil {
		return "", 0, "", fmt.Errorf("malformed port in %q: %w", endpoint, err)
	}
	return host, port, dbname, nil
}
