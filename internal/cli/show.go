package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the persisted record",
	Long: `Displays the persisted record. Write-only fields are always null in the
record; only their version numbers are shown. Ephemeral resources never
appear.`,
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output in JSON format")
}

func runShow(cmd *cobra.Command, args []string) error {
	backend, err := newBackend()
	if err != nil {
		return err
	}

	rec, err := backend.Read(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	if showJSON {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Record: version=%d serial=%d lineage=%s\n", rec.Version, rec.Serial, rec.Lineage)
	fmt.Printf("Resources: %d\n\n", len(rec.Resources))

	for _, res := range rec.Resources {
		fmt.Printf("# %s.%s\n", res.Type, res.Name)
		fmt.Printf("  store = %s\n", res.Store)
		fmt.Printf("  path  = %s\n", res.Path)

		names := make([]string, 0, len(res.Fields))
		for name := range res.Fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if v, ok := res.FieldVersions[name]; ok {
				fmt.Printf("  %s = (write-only, version %d)\n", name, v)
			} else if isWriteOnly(res.WriteOnly, name) {
				fmt.Printf("  %s = (write-only, never applied)\n", name)
			} else {
				fmt.Printf("  %s = %s\n", name, formatValue(res.Fields[name]))
			}
		}
		fmt.Println()
	}

	return nil
}

func isWriteOnly(writeOnly []string, name string) bool {
	for _, w := range writeOnly {
		if w == name {
			return true
		}
	}
	return false
}
