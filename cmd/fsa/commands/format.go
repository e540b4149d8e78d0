package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command prints through these helpers so text output stays uniform
// ═══════════════════════════════════════════════════════════

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// printHeader prints a boxed title with optional key/value rows
func printHeader(w io.Writer, title string, rows ...[2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	if len(rows) > 0 {
		fmt.Fprintln(w, singleLine)
		for _, row := range rows {
			fmt.Fprintf(w, "  %-10s: %s\n", row[0], row[1])
		}
	}
	fmt.Fprintln(w, singleLine)
}

// printSeparator prints a visual separator
func printSeparator(w io.Writer) {
	fmt.Fprintln(w, singleLine)
}

// printSection prints a section title
func printSection(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "▶ %s\n", title)
}

// printAmount prints an indented label with a right-aligned amount
func printAmount(w io.Writer, label string, amount decimal.Decimal) {
	fmt.Fprintf(w, "  %-40s %15s\n", label, amount.StringFixed(2))
}

// printWarning prints a warning line
func printWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// printSuccess prints a success line
func printSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// jsonOutput true when --output json
func jsonOutput() bool {
	return outputFormat == "json"
}

// formatPercent 0.1234 → "12.34%"
func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// formatList joins non-empty items, or "-" when there are none
func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
