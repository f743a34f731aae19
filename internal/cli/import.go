package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealix-io/sealix/internal/config"
	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/record"
)

var importCmd = &cobra.Command{
	Use:   "import <address>",
	Short: "Adopt an existing secret into the record",
	Long: `Adopts an existing store object under a declared resource address, e.g.
"kv.postgres-creds". The adopted entry carries no version baseline for its
write-only fields, since their current remote values are unknown; the next
apply must supply a value and version for each one.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	address := args[0]

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	res := findResource(cfg.Resources, address)
	if res == nil {
		return fmt.Errorf("resource %s is not declared in %s", address, configPath)
	}
	if res.IsEphemeral() {
		return fmt.Errorf("resource %s is ephemeral and never persisted; nothing to import", address)
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}
	if err := backend.Lock(); err != nil {
		return err
	}
	defer backend.Unlock()

	rec, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	if rec.Find(res.Key()) != nil {
		return fmt.Errorf("resource %s is already managed (key %s)", address, res.Key())
	}

	rec.Resources = append(rec.Resources, record.AdoptedEntry(res))
	rec.Serial++

	if err := backend.Write(ctx, rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	fmt.Printf("Imported %s (key %s).\n", address, res.Key())
	if len(res.WriteOnlyFields()) > 0 {
		fmt.Println("Write-only fields have no version baseline; the next apply will transmit each supplied value.")
	}
	return nil
}

func findResource(resources []*ir.Resource, address string) *ir.Resource {
	for _, res := range resources {
		if res.Addr() == address {
			return res
		}
	}
	return nil
}
