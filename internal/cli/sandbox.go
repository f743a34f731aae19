package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealix-io/sealix/internal/sandbox"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Manage the local development sandbox",
	Long: `Runs a throwaway Vault (dev mode) and Postgres as Docker containers so
apply passes and lease issuance can be exercised without real
infrastructure.`,
}

var sandboxUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the sandbox containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		sb, err := sandbox.New()
		if err != nil {
			return err
		}
		if err := sb.Up(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("Sandbox ready.\n")
		fmt.Printf("  VAULT_ADDR=http://127.0.0.1:%s\n", sb.VaultPort)
		fmt.Printf("  VAULT_TOKEN=%s\n", sandbox.DevRootToken)
		fmt.Printf("  postgres: 127.0.0.1:%s (user=postgres password=%s db=sealix)\n",
			sb.PostgresPort, sandbox.PostgresPassword)
		return nil
	},
}

var sandboxDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Stop and remove the sandbox containers",
	RunE: func(cmd *cobra.Command, args []string) error {
		sb, err := sandbox.New()
		if err != nil {
			return err
		}
		if err := sb.Down(cmd.Context()); err != nil {
			return err
		}
		fmt.Println("Sandbox removed.")
		return nil
	},
}

func init() {
	sandboxCmd.AddCommand(sandboxUpCmd)
	sandboxCmd.AddCommand(sandboxDownCmd)
}
