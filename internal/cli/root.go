package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealix-io/sealix/internal/config"
	"github.com/sealix-io/sealix/internal/engine"
	"github.com/sealix-io/sealix/internal/ir"
	"github.com/sealix-io/sealix/internal/logging"
	"github.com/sealix-io/sealix/internal/record"
	storereg "github.com/sealix-io/sealix/internal/store"
	"github.com/sealix-io/sealix/pkg/store"
)

var (
	configPath string
	recordPath string
	logLevel   string

	backendType string
	s3Bucket    string
	s3Key       string
	s3Region    string
	s3LockTable string
	s3Encrypt   bool
)

var rootCmd = &cobra.Command{
	Use:   "sealix",
	Short: "Declarative secret lifecycle management",
	Long: `Sealix reconciles declared secrets against secret stores without ever
persisting a secret value.

Write-only fields are pushed to the store and immediately forgotten; only a
version number survives in the record. Ephemeral resources are read for the
duration of a single apply pass and wiped when it ends.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(logLevel)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "sealix.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&recordPath, "record", ".sealix/record.json", "Path to the persisted record (local backend)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.PersistentFlags().StringVar(&backendType, "backend", "local", "Record backend (local, s3)")
	rootCmd.PersistentFlags().StringVar(&s3Bucket, "s3-bucket", "", "S3 bucket for the record backend")
	rootCmd.PersistentFlags().StringVar(&s3Key, "s3-key", "sealix/record.json", "S3 object key for the record backend")
	rootCmd.PersistentFlags().StringVar(&s3Region, "s3-region", "", "AWS region for the S3 record backend")
	rootCmd.PersistentFlags().StringVar(&s3LockTable, "s3-lock-table", "", "DynamoDB table for record locking")
	rootCmd.PersistentFlags().BoolVar(&s3Encrypt, "s3-encrypt", false, "Enable server-side encryption on the S3 record object")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(leaseCmd)
	rootCmd.AddCommand(sandboxCmd)
	rootCmd.AddCommand(versionCmd)
}

// newBackend builds the record backend from the persistent flags.
func newBackend() (record.Backend, error) {
	switch backendType {
	case "s3":
		opts := map[string]string{
			"bucket":         s3Bucket,
			"key":            s3Key,
			"region":         s3Region,
			"dynamodb_table": s3LockTable,
		}
		if s3Encrypt {
			opts["encrypt"] = "true"
		}
		return record.NewBackend(&record.BackendConfig{Type: "s3", Config: opts})
	default:
		return record.NewBackend(&record.BackendConfig{
			Type:   backendType,
			Config: map[string]string{"path": recordPath},
		})
	}
}

// loadAll loads the configuration, initializes every declared store and
// returns an engine ready to plan or apply against it.
func loadAll(ctx context.Context) (*ir.Config, *engine.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	registry := storereg.NewRegistry()
	for name, sc := range cfg.Stores {
		if err := registry.Load(ctx, name, sc); err != nil {
			return nil, nil, err
		}
	}

	return cfg, engine.New(registry), nil
}

// storeFor initializes the single named store from the configuration.
func storeFor(ctx context.Context, name string) (store.Store, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	sc, ok := cfg.Stores[name]
	if !ok {
		return nil, fmt.Errorf("store %q is not declared in %s", name, configPath)
	}

	registry := storereg.NewRegistry()
	if err := registry.Load(ctx, name, sc); err != nil {
		return nil, err
	}
	return registry.Get(name)
}
