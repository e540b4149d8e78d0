package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/thresholds"
)

// thresholdsCmd represents the thresholds command group
var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Inspect and validate threshold tables",
	Long: `Show the active threshold table or validate a candidate one.

Examples:
  go run ./cmd/fsa thresholds show
  go run ./cmd/fsa thresholds show --sector retail
  go run ./cmd/fsa thresholds validate ./my-table.yaml`,
}

var thresholdsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active table (YAML) or a resolved sector",
	RunE:  runThresholdsShow,
}

var thresholdsValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a threshold table without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runThresholdsValidate,
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
	thresholdsCmd.AddCommand(thresholdsShowCmd)
	thresholdsCmd.AddCommand(thresholdsValidateCmd)
}

func runThresholdsShow(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if sectorFlag != "" {
		res, err := eng.store.Resolve(sectorFlag)
		if err != nil {
			return err
		}
		if jsonOutput() {
			return printJSON(out, map[string]interface{}{
				"sector":     res.Sector(),
				"indicators": res.Indicators(),
				"covenants":  res.Covenants(),
				"table_hash": eng.store.Hash(),
			})
		}
		printHeader(out, "Resolved thresholds",
			[2]string{"Sector", res.Sector()},
			[2]string{"Table", eng.store.Hash()},
		)
		for _, ind := range res.Indicators() {
			median := "-"
			if m, ok := res.Benchmark(ind.Name); ok {
				median = fmt.Sprintf("%.2f", m)
			}
			fmt.Fprintf(out, "  %-28s ranges=%d  peer median=%s\n", ind.Name, len(ind.Ranges), median)
		}
		fmt.Fprintln(out)
		return nil
	}

	if jsonOutput() {
		snap := eng.store.Snapshot()
		snap.TableYAML = ""
		return printJSON(out, map[string]interface{}{
			"snapshot": snap,
			"table":    eng.store.Table(),
		})
	}
	fmt.Fprintf(out, "# table_hash: %s\n", eng.store.Hash())
	_, err = out.Write(eng.store.YAML())
	return err
}

func runThresholdsValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}

	out := cmd.OutOrStdout()
	t, err := thresholds.Parse(data)
	if err != nil {
		if !jsonOutput() {
			printWarning(out, fmt.Sprintf("%s: %v", args[0], err))
		}
		return err
	}
	hash, err := thresholds.Hash(t)
	if err != nil {
		return err
	}
	warnings := thresholds.Warn(t)

	if jsonOutput() {
		return printJSON(out, map[string]interface{}{
			"valid":      true,
			"table_hash": hash,
			"warnings":   warnings,
		})
	}

	for _, w := range warnings {
		printWarning(out, fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	printSuccess(out, fmt.Sprintf("%s is valid (table %s v%s, hash %s)", args[0], t.Meta.TableID, t.Meta.Version, hash))
	return nil
}
