package commands

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/cashflow"
)

// cashflowCmd represents the cashflow command
var cashflowCmd = &cobra.Command{
	Use:   "cashflow",
	Short: "Rebuild the cash-flow statement between two periods",
	Long: `Rebuild the indirect-method cash-flow statement from two balance
sheets, the later income statement and the case's supplementary items,
then run the cross-statement linkage checks.

A closing-cash mismatch is printed and returned as an error.

Examples:
  go run ./cmd/fsa cashflow --case tech-solutions
  go run ./cmd/fsa cashflow --case construtora-horizonte --from 2022 --to 2023`,
	RunE: runCashFlow,
}

var (
	cashflowCase string
	cashflowFile string
	cashflowFrom string
	cashflowTo   string
)

func init() {
	rootCmd.AddCommand(cashflowCmd)

	cashflowCmd.Flags().StringVar(&cashflowCase, "case", "", "case study ID")
	cashflowCmd.Flags().StringVar(&cashflowFile, "file", "", "case YAML file")
	cashflowCmd.Flags().StringVar(&cashflowFrom, "from", "", "opening period (default: the one before --to)")
	cashflowCmd.Flags().StringVar(&cashflowTo, "to", "", "closing period (default: latest)")
}

func runCashFlow(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	c, err := eng.loadCase(cashflowCase, cashflowFile)
	if err != nil {
		return err
	}

	in, err := inputFor(c, cashflowTo, cashflowFrom)
	if err != nil {
		return err
	}
	if in.Prior == nil {
		return fmt.Errorf("case %s has no period before %s", c.ID, in.Current.Period())
	}
	supp := c.SupplementaryFor(in.Prior.Period(), in.Current.Period())

	tol := decimal.NewFromFloat(eng.store.Table().Tolerance.CashAbsolute)
	st, recErr := cashflow.NewReconstructor(tol).Reconstruct(*in.Prior, in.Current, supp)
	var mismatch *cashflow.ReconciliationMismatchError
	if recErr != nil && !errors.As(recErr, &mismatch) {
		return recErr
	}
	linkage := cashflow.Linkage(*in.Prior, in.Current, supp, st, tol)

	out := cmd.OutOrStdout()
	if jsonOutput() {
		if err := printJSON(out, map[string]interface{}{
			"statement":      st,
			"linkage":        linkage,
			"free_cash_flow": st.FreeCashFlow(),
		}); err != nil {
			return err
		}
		return recErr
	}

	printHeader(out, "Cash-Flow Statement (indirect method)",
		[2]string{"Company", c.Title},
		[2]string{"Periods", st.FromPeriod + " → " + st.ToPeriod},
		[2]string{"Unit", c.Unit},
	)
	for _, sec := range []struct {
		title string
		s     cashflow.Section
	}{
		{"Operating activities", st.Operating},
		{"Investing activities", st.Investing},
		{"Financing activities", st.Financing},
	} {
		printSection(out, sec.title)
		for _, l := range sec.s.Lines {
			printAmount(out, l.Label, l.Amount)
		}
		printAmount(out, "Total", sec.s.Total)
	}

	fmt.Fprintln(out)
	printSeparator(out)
	printAmount(out, "Net change in cash", st.NetChange)
	printAmount(out, "Opening cash", st.OpeningCash)
	printAmount(out, "Closing cash (reconstructed)", st.ClosingCash)
	printAmount(out, "Closing cash (reported)", st.ReportedCash)
	printAmount(out, "Free cash flow", st.FreeCashFlow())
	printSeparator(out)

	printSection(out, "Linkage checks")
	for _, chk := range linkage.Checks {
		status := "ok"
		switch {
		case chk.Skipped:
			status = "skipped: " + chk.Note
		case !chk.Passed:
			status = "FAILED gap " + chk.Gap.String()
		}
		fmt.Fprintf(out, "  %-40s %s\n", chk.Name, status)
	}
	fmt.Fprintln(out)

	if recErr != nil {
		printWarning(out, recErr.Error())
		return recErr
	}
	printSuccess(out, "closing cash reconciled")
	return nil
}
