package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sealix-io/sealix/internal/ir"
)

var destroyAutoApprove bool

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Remove all managed resources from the record",
	Long: `Removes every managed resource from the persisted record, including the
version baselines of write-only fields. Remote secret values are left in
place: the engine never reads or deletes what it wrote, so cleaning up the
stores themselves is up to the operator.`,
	RunE: runDestroy,
}

func init() {
	destroyCmd.Flags().BoolVar(&destroyAutoApprove, "auto-approve", false, "Skip interactive approval")
}

func runDestroy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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

	if len(rec.Resources) == 0 {
		fmt.Println("Nothing to destroy. The record is empty.")
		return nil
	}

	fmt.Println("The following entries will be removed from the record:")
	for _, res := range rec.Resources {
		fmt.Printf("%s  - %s.%s (%s)%s\n", colorRed, res.Type, res.Name, res.Key, colorReset)
	}
	fmt.Println("\nRemote secret values are NOT deleted from their stores.")

	if !destroyAutoApprove {
		fmt.Print("\nDo you really want to destroy? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Destroy cancelled.")
			return nil
		}
	}

	destroyed := len(rec.Resources)
	rec.Resources = []*ir.ResourceRecord{}
	rec.Serial++

	if err := backend.Write(ctx, rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	fmt.Printf("\nDestroy complete! %d entries removed.\n", destroyed)
	return nil
}
