package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// casesCmd represents the cases command group
var casesCmd = &cobra.Command{
	Use:   "cases",
	Short: "Worked case studies",
	Long: `List and show the bundled case studies.

Extra cases are read from CASES_DIR and override bundled ones with the same ID.

Examples:
  go run ./cmd/fsa cases list
  go run ./cmd/fsa cases show aerotech`,
}

var casesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List case studies",
	RunE:  runCasesList,
}

var casesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a case's figures",
	Args:  cobra.ExactArgs(1),
	RunE:  runCasesShow,
}

func init() {
	rootCmd.AddCommand(casesCmd)
	casesCmd.AddCommand(casesListCmd)
	casesCmd.AddCommand(casesShowCmd)
}

func runCasesList(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	list := eng.cases.List()

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, list)
	}

	printHeader(out, fmt.Sprintf("Case Studies (%d)", len(list)))
	fmt.Fprintf(out, "  %-24s %-6s %-14s %s\n", "ID", "Module", "Sector", "Periods")
	for _, s := range list {
		sector := s.Sector
		if sector == "" {
			sector = "-"
		}
		fmt.Fprintf(out, "  %-24s %-6d %-14s %s\n", s.ID, s.Module, sector, strings.Join(s.Periods, ", "))
	}
	fmt.Fprintln(out)
	return nil
}

func runCasesShow(cmd *cobra.Command, args []string) error {
	eng, err := newEngine()
	if err != nil {
		return err
	}
	c, err := eng.cases.Get(args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput() {
		return printJSON(out, c)
	}

	printHeader(out, c.Title,
		[2]string{"ID", c.ID},
		[2]string{"Module", fmt.Sprint(c.Module)},
		[2]string{"Sector", formatList(nonEmpty(c.Sector))},
		[2]string{"Unit", c.Unit},
	)
	if c.Description != "" {
		fmt.Fprintf(out, "  %s\n", strings.TrimSpace(c.Description))
	}

	for _, p := range c.Periods {
		printSection(out, p.Period)
		keys := make([]string, 0, len(p.Values))
		for k := range p.Values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "  %-32s %15.2f\n", k, p.Values[k])
		}
		if p.OperatingCashFlow != nil {
			fmt.Fprintf(out, "  %-32s %15.2f\n", "(operating cash flow)", *p.OperatingCashFlow)
		}
	}

	if len(c.Scenarios) > 0 {
		printSection(out, "Scenarios")
		for _, sc := range c.Scenarios {
			names := make([]string, len(sc.Shocks))
			for i, s := range sc.Shocks {
				names[i] = s.Name()
			}
			fmt.Fprintf(out, "  %-32s %s\n", sc.Name, formatList(names))
		}
	}
	fmt.Fprintln(out)
	return nil
}
