package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/finlab/internal/cashflow"
	"github.com/wonny/finlab/internal/diagnostic"
	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/scenario"
)

// Stage names used in StageError
const (
	StageBalance     = "balance"
	StageAverages    = "averages"
	StageCashFlow    = "cashflow"
	StageDuPont      = "dupont"
	StageAttribution = "attribution"
	StageStress      = "stress"
)

// Basis which balances the ratios were computed on
const (
	BasisPeriodEnd = "period_end"
	BasisAverage   = "average"
)

// =============================================================================
// Report Types
// =============================================================================

// Report full analysis of one company and period
type Report struct {
	RunID       string `json:"run_id"`
	Subject     string `json:"subject,omitempty"`
	Period      string `json:"period"`
	PriorPeriod string `json:"prior_period,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Basis       string `json:"basis"`

	Ratios      ratios.Set              `json:"ratios"`
	CommonSize  []ratios.CommonSizeLine `json:"common_size"`
	Horizontal  []ratios.HorizontalLine `json:"horizontal,omitempty"`
	DuPont3     *dupont.Result          `json:"dupont_3,omitempty"`
	DuPont5     *dupont.Result          `json:"dupont_5,omitempty"`
	Attribution *dupont.Attribution     `json:"attribution,omitempty"`
	CashFlow    *cashflow.Statement     `json:"cash_flow,omitempty"`
	Linkage     *cashflow.LinkageReport `json:"linkage,omitempty"`
	Diagnostic  *diagnostic.Report      `json:"diagnostic"`
	Stress      []*scenario.Result      `json:"stress,omitempty"`
	Errors      []StageError            `json:"errors,omitempty"`
	Metadata    Metadata                `json:"metadata"`
}

// StageError a stage that could not complete
type StageError struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata report metadata
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	TableHash   string    `json:"table_hash"`
	TableID     string    `json:"table_id"`
	Version     string    `json:"version"`
}

func (r *Report) fail(stage string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, StageError{Stage: stage, Code: Code(err), Message: err.Error()})
}

// Failed true when stage recorded at least one error
func (r *Report) Failed(stage string) bool {
	for _, e := range r.Errors {
		if e.Stage == stage {
			return true
		}
	}
	return false
}

// =============================================================================
// Output Formatting
// =============================================================================

// ToJSON indented JSON
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// ToSummary human-readable summary
func (r *Report) ToSummary() string {
	var b strings.Builder

	title := r.Period
	if r.Subject != "" {
		title = r.Subject + " " + r.Period
	}
	fmt.Fprintf(&b, "=== Financial Analysis: %s ===\n", title)
	fmt.Fprintf(&b, "Run ID: %s\n", r.RunID)
	if r.Sector != "" {
		fmt.Fprintf(&b, "Sector: %s\n", r.Sector)
	}
	fmt.Fprintf(&b, "Table: %s %s (%s)\n\n", r.Metadata.TableID, r.Metadata.Version, shortHash(r.Metadata.TableHash))

	if r.Diagnostic != nil {
		d := r.Diagnostic
		fmt.Fprintf(&b, "Diagnosis: %s (score %d; %d ok, %d attention, %d critical)\n",
			d.Label, d.Score, d.Counts.OK, d.Counts.Attention, d.Counts.Critical)
		for _, f := range d.Flagged() {
			fmt.Fprintf(&b, "  [%s] %s (%s): %.2f  %s\n", strings.ToUpper(string(f.Severity)), f.Indicator, f.Mode, f.Value, f.Message)
		}
		b.WriteString("\n")
	}

	if len(r.Ratios.Results) > 0 {
		fmt.Fprintf(&b, "Ratios (%s)\n", r.Basis)
		for _, res := range r.Ratios.Results {
			fmt.Fprintf(&b, "  %-36s %12.4f %s\n", res.Name, res.Value, unitSuffix(res.Unit))
		}
		for _, f := range r.Ratios.Failures {
			fmt.Fprintf(&b, "  %-36s %12s (%s)\n", f.Name, "n/a", f.Reason)
		}
		b.WriteString("\n")
	}

	for _, dp := range []*dupont.Result{r.DuPont3, r.DuPont5} {
		if dp == nil {
			continue
		}
		parts := make([]string, len(dp.Factors))
		for i, f := range dp.Factors {
			parts[i] = fmt.Sprintf("%s %.4f", f.Name, f.Value)
		}
		fmt.Fprintf(&b, "DuPont (%d factors): ROE %.2f%% = %s\n", dp.Level, dp.ROEPercent(), strings.Join(parts, " × "))
	}
	if r.Attribution != nil {
		fmt.Fprintf(&b, "ROE %s→%s driven by %s\n", r.Attribution.BasePeriod, r.Attribution.ComparePeriod, r.Attribution.Driver)
	}

	if r.CashFlow != nil {
		cf := r.CashFlow
		fmt.Fprintf(&b, "\nCash flow %s→%s\n", cf.FromPeriod, cf.ToPeriod)
		fmt.Fprintf(&b, "  Operating: %s\n  Investing: %s\n  Financing: %s\n", cf.Operating.Total, cf.Investing.Total, cf.Financing.Total)
		fmt.Fprintf(&b, "  Closing cash: %s (reported %s, reconciled %t)\n", cf.ClosingCash, cf.ReportedCash, cf.Reconciled)
	}

	if len(r.Stress) > 0 {
		b.WriteString("\nStress scenarios\n")
		for _, s := range r.Stress {
			if s.Error != "" {
				fmt.Fprintf(&b, "  %s: failed (%s)\n", s.Scenario, s.Error)
				continue
			}
			breached := "none"
			if nb := s.NewlyBreached(); len(nb) > 0 {
				breached = strings.Join(nb, ", ")
			}
			label := ""
			if s.Report != nil {
				label = s.Report.Label
			}
			fmt.Fprintf(&b, "  %s: %s, newly breached: %s\n", s.Scenario, label, breached)
		}
	}

	if len(r.Errors) > 0 {
		b.WriteString("\nIncomplete stages\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  %s [%s]: %s\n", e.Stage, e.Code, e.Message)
		}
	}

	return b.String()
}

func unitSuffix(u ratios.Unit) string {
	switch u {
	case ratios.UnitPercent:
		return "%"
	case ratios.UnitDays:
		return "days"
	}
	return ""
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

