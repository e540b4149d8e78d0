package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/analysis"
	"github.com/wonny/finlab/internal/casestudy"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis on a case",
	Long: `Run ratios, DuPont, cash-flow reconstruction, diagnosis and the
case's stress scenarios on one period.

Without --period the latest period is analyzed against the one before it.

Examples:
  go run ./cmd/fsa analyze --case ibm-sa
  go run ./cmd/fsa analyze --case ibm-sa --period 2022 --prior 2021 --averages
  go run ./cmd/fsa analyze --file ./acme.yaml --sector retail -o json`,
	RunE: runAnalyze,
}

var (
	analyzeCase     string
	analyzeFile     string
	analyzePeriod   string
	analyzePrior    string
	analyzeAverages bool
	analyzeNoStress bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzeCase, "case", "", "case study ID")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "case YAML file")
	analyzeCmd.Flags().StringVar(&analyzePeriod, "period", "", "period to analyze (default: latest)")
	analyzeCmd.Flags().StringVar(&analyzePrior, "prior", "", "comparison period (default: the one before --period)")
	analyzeCmd.Flags().BoolVar(&analyzeAverages, "averages", false, "use average balances of prior and current")
	analyzeCmd.Flags().BoolVar(&analyzeNoStress, "no-stress", false, "skip the case's stress scenarios")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	c, err := eng.loadCase(analyzeCase, analyzeFile)
	if err != nil {
		return err
	}

	in, err := inputFor(c, analyzePeriod, analyzePrior)
	if err != nil {
		return err
	}
	in.Sector = sectorFor(c)
	in.Averages = analyzeAverages
	if analyzeNoStress {
		in.Scenarios = nil
	}

	report, err := eng.analyzer.Analyze(cmd.Context(), in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, report)
	}
	fmt.Fprint(out, report.ToSummary())
	return nil
}

// inputFor analysis input for an explicit period pair, falling back to the
// case's latest period and its predecessor
func inputFor(c *casestudy.Case, period, prior string) (analysis.Input, error) {
	if period == "" && prior == "" {
		return analysis.CaseInput(c)
	}

	if period == "" {
		latest, err := c.Latest()
		if err != nil {
			return analysis.Input{}, err
		}
		period = latest.Period()
	}
	current, err := c.Record(period)
	if err != nil {
		return analysis.Input{}, err
	}

	in := analysis.Input{
		Subject:   c.Title,
		Sector:    c.Sector,
		Current:   current,
		Scenarios: c.Scenarios,
	}
	if in.OperatingCashFlow, err = c.OperatingCashFlow(period); err != nil {
		return analysis.Input{}, err
	}

	if prior == "" {
		prior = previousPeriod(c, period)
	}
	if prior != "" {
		p, err := c.Record(prior)
		if err != nil {
			return analysis.Input{}, err
		}
		in.Prior = &p
		if in.PriorOperatingCashFlow, err = c.OperatingCashFlow(prior); err != nil {
			return analysis.Input{}, err
		}
		if hasSupplementary(c, prior, period) {
			supp := c.SupplementaryFor(prior, period)
			in.Supplementary = &supp
		}
	}
	return in, nil
}

// previousPeriod the period listed just before period, or ""
func previousPeriod(c *casestudy.Case, period string) string {
	for i, p := range c.Periods {
		if p.Period == period && i > 0 {
			return c.Periods[i-1].Period
		}
	}
	return ""
}

func hasSupplementary(c *casestudy.Case, from, to string) bool {
	for _, s := range c.Supplementary {
		if s.From == from && s.To == to {
			return true
		}
	}
	return false
}
