package commands

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/scenario"
)

// leverageCmd represents the leverage command
var leverageCmd = &cobra.Command{
	Use:   "leverage",
	Short: "Financial leverage of a stylised capital structure",
	Long: `Compute ROE, the degree of financial leverage and interest coverage
for a company whose only variable is how much of its assets debt funds.

Examples:
  go run ./cmd/fsa leverage --assets 1000 --debt-share 0.5 --rate 0.10 --roa 0.15
  go run ./cmd/fsa leverage --debt-share 0.6 --rate 0.12 --sensitivity 0.05,0.10,0.15,0.20`,
	RunE: runLeverage,
}

var (
	leverageAssets      float64
	leverageDebtShare   float64
	leverageRate        float64
	leverageROA         float64
	leverageTax         float64
	leverageSensitivity []float64
)

func init() {
	rootCmd.AddCommand(leverageCmd)

	leverageCmd.Flags().Float64Var(&leverageAssets, "assets", 1000, "total assets")
	leverageCmd.Flags().Float64Var(&leverageDebtShare, "debt-share", 0.5, "share of assets funded by debt [0, 1)")
	leverageCmd.Flags().Float64Var(&leverageRate, "rate", 0.10, "annual interest rate on debt")
	leverageCmd.Flags().Float64Var(&leverageROA, "roa", 0.15, "operating return on assets (EBIT / assets)")
	leverageCmd.Flags().Float64Var(&leverageTax, "tax", -1, "tax rate (default: the threshold table's)")
	leverageCmd.Flags().Float64SliceVar(&leverageSensitivity, "sensitivity", nil, "operating ROAs for a sensitivity table")
}

func runLeverage(cmd *cobra.Command, args []string) error {
	tax := leverageTax
	if tax < 0 {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		tax = eng.store.Table().TaxRate
	}

	s := scenario.Structure{
		TotalAssets:  decimal.NewFromFloat(leverageAssets),
		DebtShare:    leverageDebtShare,
		InterestRate: leverageRate,
		OperatingROA: leverageROA,
		TaxRate:      tax,
	}
	res, err := scenario.Leverage(s)
	if err != nil {
		return err
	}
	var points []scenario.SensitivityPoint
	if len(leverageSensitivity) > 0 {
		if points, err = scenario.Sensitivity(s, leverageSensitivity); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, map[string]interface{}{
			"structure":       s,
			"result":          res,
			"break_even_rate": scenario.BreakEvenRate(s),
			"sensitivity":     points,
		})
	}

	printHeader(out, "Financial Leverage",
		[2]string{"Debt share", formatPercent(s.DebtShare)},
		[2]string{"Rate", formatPercent(s.InterestRate)},
		[2]string{"ROA (op.)", formatPercent(s.OperatingROA)},
		[2]string{"Tax rate", formatPercent(s.TaxRate)},
	)
	printAmount(out, "Debt", res.Debt)
	printAmount(out, "Equity", res.Equity)
	printAmount(out, "EBIT", res.EBIT)
	printAmount(out, "Interest", res.Interest)
	printAmount(out, "Pretax income", res.PretaxIncome)
	printAmount(out, "Income tax", res.IncomeTax)
	printAmount(out, "Net income", res.NetIncome)
	printSeparator(out)
	fmt.Fprintf(out, "  ROE                %.2f%%\n", res.ROE)
	fmt.Fprintf(out, "  Leverage degree    %.2f\n", res.GAF)
	if res.InterestCoverage != nil {
		fmt.Fprintf(out, "  Interest coverage  %.2fx\n", *res.InterestCoverage)
	}
	fmt.Fprintf(out, "  Break-even rate    %s\n", formatPercent(scenario.BreakEvenRate(s)))

	if len(points) > 0 {
		printSection(out, "Sensitivity")
		for _, p := range points {
			fmt.Fprintf(out, "  ROA %8s  →  ROE %8.2f%%\n", formatPercent(p.OperatingROA), p.ROE)
		}
	}
	fmt.Fprintln(out)
	return nil
}
