package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/cashflow"
)

// depreciationCmd represents the depreciation command
var depreciationCmd = &cobra.Command{
	Use:   "depreciation",
	Short: "Depreciation schedule of a fixed asset",
	Long: `Print the yearly depreciation schedule of one asset.

Methods: straight_line, sum_of_years_digits, units_of_production

Examples:
  go run ./cmd/fsa depreciation --cost 100000 --salvage 10000 --life 5
  go run ./cmd/fsa depreciation --method sum_of_years_digits --cost 100000 --salvage 10000 --life 5
  go run ./cmd/fsa depreciation --method units_of_production --cost 50000 --total-units 10000 --units 3000,4000,3000`,
	RunE: runDepreciation,
}

var (
	depMethod     string
	depCost       float64
	depSalvage    float64
	depLife       int
	depTotalUnits float64
	depUnits      []float64
)

func init() {
	rootCmd.AddCommand(depreciationCmd)

	depreciationCmd.Flags().StringVar(&depMethod, "method", string(cashflow.StraightLine), "depreciation method")
	depreciationCmd.Flags().Float64Var(&depCost, "cost", 0, "acquisition cost")
	depreciationCmd.Flags().Float64Var(&depSalvage, "salvage", 0, "salvage value")
	depreciationCmd.Flags().IntVar(&depLife, "life", 0, "useful life in years")
	depreciationCmd.Flags().Float64Var(&depTotalUnits, "total-units", 0, "expected lifetime units (units_of_production)")
	depreciationCmd.Flags().Float64SliceVar(&depUnits, "units", nil, "units produced per year (units_of_production)")
}

func runDepreciation(cmd *cobra.Command, args []string) error {
	asset := cashflow.Asset{
		Cost:       decimal.NewFromFloat(depCost),
		Salvage:    decimal.NewFromFloat(depSalvage),
		UsefulLife: depLife,
		TotalUnits: decimal.NewFromFloat(depTotalUnits),
	}
	for _, u := range depUnits {
		asset.Units = append(asset.Units, decimal.NewFromFloat(u))
	}

	rows, err := cashflow.Schedule(cashflow.Method(depMethod), asset)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, map[string]interface{}{
			"method":   depMethod,
			"asset":    asset,
			"schedule": rows,
		})
	}

	printHeader(out, "Depreciation Schedule",
		[2]string{"Method", depMethod},
		[2]string{"Cost", asset.Cost.StringFixed(2)},
		[2]string{"Salvage", asset.Salvage.StringFixed(2)},
	)
	fmt.Fprintf(out, "  %4s %15s %15s %15s\n", "Year", "Expense", "Accumulated", "Book value")
	for _, r := range rows {
		fmt.Fprintf(out, "  %4d %15s %15s %15s\n", r.Year,
			r.Expense.StringFixed(2), r.Accumulated.StringFixed(2), r.BookValue.StringFixed(2))
	}
	fmt.Fprintln(out)
	return nil
}
