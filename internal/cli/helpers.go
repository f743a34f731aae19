package cli

import (
	"fmt"
	"time"

	"github.com/sealix-io/sealix/internal/engine"
	"github.com/sealix-io/sealix/internal/ir"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
)

// renderPlanChanges prints the detailed change list for a plan. Write-only
// fields never show a value; only version transitions are printed.
func renderPlanChanges(plan *ir.Plan) {
	for _, change := range plan.Changes {
		symbol := "~"
		color := colorReset
		switch change.Action {
		case ir.ActionCreate:
			symbol, color = "+", colorGreen
		case ir.ActionDelete:
			symbol, color = "-", colorRed
		case ir.ActionUpdate:
			color = colorYellow
		case ir.ActionRead:
			symbol = "<="
		case ir.ActionNoOp:
			symbol = " "
		}

		fmt.Printf("\n%s  # %s will be %s%s\n", color, change.Address, change.Action, colorReset)
		fmt.Printf("%s  %s %s {%s\n", color, symbol, change.Address, colorReset)

		if change.Action == ir.ActionRead {
			fmt.Printf("      (ephemeral, read during apply, never persisted)\n")
		}

		for key, diff := range change.Diff {
			renderFieldDiff(key, diff)
		}
		fmt.Printf("%s    }%s\n", color, colorReset)
	}
}

// renderFieldDiff prints one field's pending change.
func renderFieldDiff(key string, diff *ir.FieldDiff) {
	if diff.WriteOnly {
		switch diff.Action {
		case "create":
			fmt.Printf("%s      + %s = (write-only, version %d)%s\n", colorGreen, key, diff.AfterVersion, colorReset)
		case "update":
			fmt.Printf("%s      ~ %s = (write-only, version %d -> %d)%s\n", colorYellow, key, diff.BeforeVersion, diff.AfterVersion, colorReset)
		case "delete":
			fmt.Printf("%s      - %s = (write-only)%s\n", colorRed, key, colorReset)
		default:
			fmt.Printf("        %s = (write-only, version %d)\n", key, diff.BeforeVersion)
		}
		return
	}

	switch diff.Action {
	case "create":
		fmt.Printf("%s      + %s = %s%s\n", colorGreen, key, formatValue(diff.After), colorReset)
	case "update":
		fmt.Printf("%s      ~ %s = %s -> %s%s\n", colorYellow, key, formatValue(diff.Before), formatValue(diff.After), colorReset)
	case "delete":
		fmt.Printf("%s      - %s = %s%s\n", colorRed, key, formatValue(diff.Before), colorReset)
	default:
		fmt.Printf("        %s = %s\n", key, formatValue(diff.After))
	}
}

// formatValue returns a human-readable representation of a plain value.
func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// renderPlanSummary prints the plan summary counts.
func renderPlanSummary(plan *ir.Plan) {
	fmt.Println("\nPlan Summary:")
	fmt.Printf("  Create: %d\n", plan.Summary.Create)
	fmt.Printf("  Update: %d\n", plan.Summary.Update)
	fmt.Printf("  Delete: %d\n", plan.Summary.Delete)
	fmt.Printf("  Read:   %d\n", plan.Summary.Read)
	fmt.Printf("  NoOp:   %d\n", plan.Summary.NoOp)
}

// renderReport prints the per-resource outcome of an apply pass.
func renderReport(report *engine.Report) {
	for _, res := range report.Results {
		switch {
		case res.Skipped:
			fmt.Printf("%s  ! %s skipped: %v%s\n", colorYellow, res.Address, res.Err, colorReset)
		case res.Err != nil:
			fmt.Printf("%s  x %s failed: %v%s\n", colorRed, res.Address, res.Err, colorReset)
		case res.Ephemeral:
			if res.LeaseID != "" {
				fmt.Printf("%s  <= %s lease issued (id=%s ttl=%s)%s\n", colorGreen, res.Address, res.LeaseID, res.TTL, colorReset)
			} else {
				fmt.Printf("%s  <= %s read (ephemeral)%s\n", colorGreen, res.Address, colorReset)
			}
		default:
			fmt.Printf("%s  ok %s (%s)%s\n", colorGreen, res.Address, res.Duration.Round(time.Millisecond), colorReset)
		}

		for _, f := range res.Fields {
			switch {
			case f.Err != nil:
				fmt.Printf("%s       x %s: %v%s\n", colorRed, f.Name, f.Err, colorReset)
			case f.Written:
				fmt.Printf("       + %s transmitted\n", f.Name)
			case f.Skipped:
				fmt.Printf("         %s unchanged, skipped\n", f.Name)
			}
		}
	}

	for _, key := range report.Destroyed {
		fmt.Printf("%s  - %s removed from record%s\n", colorRed, key, colorReset)
	}
}
