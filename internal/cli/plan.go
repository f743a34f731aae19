package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var planJSON bool

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show pending changes",
	Long: `Compares declared resources against the persisted record and prints the
pending changes. Planning is a dry run: no secret value is transmitted,
read, or displayed. Write-only fields show version transitions only.`,
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planJSON, "json", false, "Output in JSON format")
}

func runPlan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, eng, err := loadAll(ctx)
	if err != nil {
		return err
	}

	backend, err := newBackend()
	if err != nil {
		return err
	}

	rec, err := backend.Read(ctx)
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	plan, err := eng.CreatePlan(ctx, cfg, rec)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	if planJSON {
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal plan: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(plan.Changes) == 0 {
		fmt.Println("No changes. Secrets are up-to-date.")
		return nil
	}

	fmt.Println("Sealix will perform the following actions:")
	renderPlanChanges(plan)
	renderPlanSummary(plan)

	return nil
}
