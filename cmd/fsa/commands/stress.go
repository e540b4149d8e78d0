package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/finlab/internal/scenario"
)

// stressCmd represents the stress command
var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Run stress scenarios against covenants and diagnosis",
	Long: `Apply shocks to one period and re-evaluate ratios, covenants and
the diagnosis after every step.

Every --ebitda value is run as its own scenario, like the other shock flags.
Without shock flags the case's own scenarios are run.

Examples:
  go run ./cmd/fsa stress --case aerotech --ebitda -0.1,-0.2,-0.3
  go run ./cmd/fsa stress --case aerotech --rate 0.03
  go run ./cmd/fsa stress --case ibm-sa --borrow 150 --borrow-rate 0.135
  go run ./cmd/fsa stress --case ibm-sa`,
	RunE: runStress,
}

var (
	stressCase       string
	stressFile       string
	stressPeriod     string
	stressEBITDA     []float64
	stressRevenue    []float64
	stressRate       []float64
	stressBorrow     float64
	stressBorrowRate float64
)

func init() {
	rootCmd.AddCommand(stressCmd)

	stressCmd.Flags().StringVar(&stressCase, "case", "", "case study ID")
	stressCmd.Flags().StringVar(&stressFile, "file", "", "case YAML file")
	stressCmd.Flags().StringVar(&stressPeriod, "period", "", "period to shock (default: latest)")
	stressCmd.Flags().Float64SliceVar(&stressEBITDA, "ebitda", nil, "EBITDA relative changes, one scenario each (-0.2 = -20%)")
	stressCmd.Flags().Float64SliceVar(&stressRevenue, "revenue", nil, "revenue relative changes, one scenario each")
	stressCmd.Flags().Float64SliceVar(&stressRate, "rate", nil, "interest rate changes on total debt, one scenario each (0.03 = +3pp)")
	stressCmd.Flags().Float64Var(&stressBorrow, "borrow", 0, "new borrowing amount")
	stressCmd.Flags().Float64Var(&stressBorrowRate, "borrow-rate", 0, "annual rate of the new borrowing")
}

func runStress(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	c, err := eng.loadCase(stressCase, stressFile)
	if err != nil {
		return err
	}

	rec, err := c.Latest()
	if stressPeriod != "" {
		rec, err = c.Record(stressPeriod)
	}
	if err != nil {
		return err
	}

	scenarios := flagScenarios()
	if len(scenarios) == 0 {
		scenarios = c.Scenarios
	}
	if len(scenarios) == 0 {
		return fmt.Errorf("case %s has no scenarios and no shock flags were given", c.ID)
	}
	for _, sc := range scenarios {
		for _, s := range sc.Shocks {
			if err := s.Validate(); err != nil {
				return err
			}
		}
	}

	sector := sectorFor(c)
	if sector != "" {
		if _, err := eng.store.Resolve(sector); err != nil {
			return err
		}
	}

	results, err := eng.simulator.WithSector(sector).RunBatch(cmd.Context(), rec, scenarios)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, results)
	}

	printHeader(out, "Stress Scenarios",
		[2]string{"Company", c.Title},
		[2]string{"Period", rec.Period()},
		[2]string{"Sector", formatList(nonEmpty(sector))},
	)
	for _, res := range results {
		printSection(out, res.Scenario)
		if res.Error != "" {
			printWarning(out, res.Error)
			continue
		}
		for _, step := range res.Steps {
			fmt.Fprintf(out, "  after %s\n", step.Shock.Name())
			for _, chk := range step.Covenants {
				fmt.Fprintf(out, "    %-22s %s\n", chk.Indicator, covenantStatus(chk))
			}
		}
		fmt.Fprintf(out, "  diagnosis: %s (score %d)\n", res.Report.Label, res.Report.Score)
		fmt.Fprintf(out, "  newly breached: %s\n", formatList(res.NewlyBreached()))
	}
	fmt.Fprintln(out)
	return nil
}

// flagScenarios one scenario per shock flag value
func flagScenarios() []scenario.Scenario {
	var out []scenario.Scenario
	add := func(kind scenario.Kind, values []float64) {
		for _, v := range values {
			s := scenario.Shock{Kind: kind, Value: v}
			out = append(out, scenario.Scenario{Name: s.Name(), Shocks: []scenario.Shock{s}})
		}
	}
	add(scenario.EBITDAChange, stressEBITDA)
	add(scenario.RevenueChange, stressRevenue)
	add(scenario.InterestRateChange, stressRate)

	if stressBorrow != 0 {
		s := scenario.Shock{Kind: scenario.NewBorrowing, Value: stressBorrow, Rate: stressBorrowRate}
		out = append(out, scenario.Scenario{Name: s.Name(), Shocks: []scenario.Shock{s}})
	}
	return out
}

func covenantStatus(chk scenario.CovenantCheck) string {
	value := "undefined"
	if chk.Value != nil {
		value = fmt.Sprintf("%.2f", *chk.Value)
	}
	switch {
	case chk.NewlyBreached:
		return value + "  BREACHED (new)"
	case chk.Breached:
		return value + "  breached"
	}
	return value + "  ok"
}

func nonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return []string{s}
}
