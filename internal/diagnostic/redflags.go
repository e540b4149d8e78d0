package diagnostic

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/statement"
	"github.com/wonny/finlab/internal/thresholds"
)

// Red-flag indicator names (trend mode)
const (
	FlagNegativeEquity          = "negative_equity"
	FlagReceivablesVsRevenue    = "receivables_outpacing_revenue"
	FlagInventoryVsCOGS         = "inventory_outpacing_cogs"
	FlagCashLaggingProfit       = "cash_lagging_profit"
	FlagProfitOutpacingCash     = "profit_outpacing_cash"
	FlagInterestCoverageDecline = "interest_coverage_declining"
	FlagReceivableDaysRising    = "receivable_days_rising"
)

// TrendInput two consecutive periods of one company
type TrendInput struct {
	Prior   statement.Record
	Current statement.Record

	// OperatingCashFlow of the current period; nil skips the cash checks
	OperatingCashFlow *decimal.Decimal

	// PriorOperatingCashFlow nil skips the profit vs cash growth check
	PriorOperatingCashFlow *decimal.Decimal
}

// RedFlags earnings-quality checklist across two periods.
// Every check yields a finding (ok when clean); checks whose inputs are
// missing or undefined are returned as unavailable.
func RedFlags(in TrendInput, cutoffs thresholds.RedFlags) ([]Finding, []Unavailable) {
	var (
		findings    []Finding
		unavailable []Unavailable
	)
	add := func(f Finding, err error) {
		if err != nil {
			unavailable = append(unavailable, Unavailable{f.Indicator, err.Error()})
			return
		}
		findings = append(findings, f)
	}

	add(negativeEquity(in.Current))
	add(outpacing(FlagReceivablesVsRevenue, in, statement.AccountsReceivable, statement.NetRevenue, thresholds.SeverityCritical,
		"receivables growing faster than revenue"))
	add(outpacing(FlagInventoryVsCOGS, in, statement.Inventory, statement.COGS, thresholds.SeverityAttention,
		"inventory growing faster than cost of goods sold"))
	if in.OperatingCashFlow != nil {
		add(cashLaggingProfit(in.Current, *in.OperatingCashFlow, cutoffs.OCFToNetIncomeMin))
		if in.PriorOperatingCashFlow != nil {
			add(profitOutpacingCash(in, *in.PriorOperatingCashFlow, *in.OperatingCashFlow))
		}
	}
	add(declining(FlagInterestCoverageDecline, in, ratios.InterestCoverage, "interest coverage fell"))
	add(rising(FlagReceivableDaysRising, in, ratios.ReceivableDays, "collection period lengthened"))

	return findings, unavailable
}

// === Checks ===

func negativeEquity(r statement.Record) (Finding, error) {
	f := Finding{Indicator: FlagNegativeEquity, Mode: ModeTrend, Severity: thresholds.SeverityOK}
	equity, err := r.Float(statement.Equity)
	if err != nil {
		return f, err
	}
	f.Value = equity
	if equity < 0 {
		f.Severity = thresholds.SeverityCritical
		f.Message = "liabilities exceed assets"
	}
	return f, nil
}

// outpacing flags when field a grows faster than field b (percentage points)
func outpacing(name string, in TrendInput, a, b statement.Field, sev thresholds.Severity, msg string) (Finding, error) {
	f := Finding{Indicator: name, Mode: ModeTrend, Severity: thresholds.SeverityOK}
	ga, err := ratios.Growth(in.Prior, in.Current, a)
	if err != nil {
		return f, err
	}
	gb, err := ratios.Growth(in.Prior, in.Current, b)
	if err != nil {
		return f, err
	}
	f.Value = ga - gb
	if ga > gb {
		f.Severity = sev
		f.Message = fmt.Sprintf("%s: %+.1f%% vs %+.1f%%", msg, ga, gb)
	}
	return f, nil
}

func cashLaggingProfit(r statement.Record, ocf decimal.Decimal, minRatio float64) (Finding, error) {
	f := Finding{Indicator: FlagCashLaggingProfit, Mode: ModeTrend, Severity: thresholds.SeverityOK}
	res, err := ratios.CashFlowQuality(ocf, r)
	if err != nil {
		return f, err
	}
	f.Value = res.Value
	if res.Value < minRatio {
		f.Severity = thresholds.SeverityCritical
		f.Message = fmt.Sprintf("operating cash flow is %.2fx net income (minimum %.2f)", res.Value, minRatio)
	}
	return f, nil
}

// profitOutpacingCash flags net income growth that operating cash flow does not follow
func profitOutpacingCash(in TrendInput, priorOCF, ocf decimal.Decimal) (Finding, error) {
	f := Finding{Indicator: FlagProfitOutpacingCash, Mode: ModeTrend, Severity: thresholds.SeverityOK}
	gni, err := ratios.Growth(in.Prior, in.Current, statement.NetIncome)
	if err != nil {
		return f, err
	}
	gocf, err := ratios.GrowthRate("operating_cash_flow", priorOCF, ocf)
	if err != nil {
		return f, err
	}
	f.Value = gni - gocf
	if gni > 0 && gocf < gni {
		f.Severity = thresholds.SeverityAttention
		f.Message = fmt.Sprintf("net income growing faster than operating cash flow: %+.1f%% vs %+.1f%%", gni, gocf)
	}
	return f, nil
}

func declining(name string, in TrendInput, ratio ratios.Name, msg string) (Finding, error) {
	return compareRatio(name, in, ratio, msg, func(prior, current float64) bool { return current < prior })
}

func rising(name string, in TrendInput, ratio ratios.Name, msg string) (Finding, error) {
	return compareRatio(name, in, ratio, msg, func(prior, current float64) bool { return current > prior })
}

// compareRatio Value = current - prior
func compareRatio(name string, in TrendInput, ratio ratios.Name, msg string, worse func(prior, current float64) bool) (Finding, error) {
	f := Finding{Indicator: name, Mode: ModeTrend, Severity: thresholds.SeverityOK}
	prior, err := ratios.Compute(ratio, in.Prior)
	if err != nil {
		return f, err
	}
	current, err := ratios.Compute(ratio, in.Current)
	if err != nil {
		return f, err
	}
	f.Value = current.Value - prior.Value
	if worse(prior.Value, current.Value) {
		f.Severity = thresholds.SeverityAttention
		f.Message = fmt.Sprintf("%s: %.2f → %.2f", msg, prior.Value, current.Value)
	}
	return f, nil
}
