package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var applyAutoApprove bool

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply the configuration",
	Long: `Reconciles declared resources against their secret stores. Write-only
field values are transmitted only when their declared version differs from
the last applied one, then forgotten; ephemeral payloads are wiped when the
pass ends. The record is persisted on failure too, so succeeded writes are
not repeated by the next pass.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().BoolVar(&applyAutoApprove, "auto-approve", false, "Skip interactive approval of plan before applying")
}

func runApply(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, eng, err := loadAll(ctx)
	if err != nil {
		return err
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

	fmt.Print("Calculating plan... ")
	plan, err := eng.CreatePlan(ctx, cfg, rec)
	if err != nil {
		fmt.Println("FAILED")
		return fmt.Errorf("plan generation failed: %w", err)
	}
	fmt.Println("OK")

	if len(plan.Changes) == 0 {
		fmt.Println("No changes. Secrets are up-to-date.")
		return nil
	}

	fmt.Println("\nSealix will perform the following actions:")
	renderPlanChanges(plan)
	renderPlanSummary(plan)

	if !applyAutoApprove {
		fmt.Print("\nDo you want to perform these actions? (y/n): ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "yes" {
			fmt.Println("Apply cancelled.")
			return nil
		}
	}

	fmt.Printf("\nApplying %d changes...\n", len(plan.Changes))

	report, applyErr := eng.Apply(ctx, cfg, rec, nil)
	if report != nil {
		renderReport(report)
	}

	// Persist even on failure: versions that did apply must not be
	// retransmitted next pass.
	if err := backend.Write(ctx, rec); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	if applyErr != nil {
		return fmt.Errorf("apply failed: %w", applyErr)
	}

	fmt.Printf("\nApply complete! Resources: %d added, %d changed, %d destroyed.\n",
		plan.Summary.Create, plan.Summary.Update, plan.Summary.Delete)
	return nil
}
