package cashflow

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

// LinkageCheck one cross-statement identity between two periods
type LinkageCheck struct {
	Name     string          `json:"name"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
	Gap      decimal.Decimal `json:"gap"`
	Passed   bool            `json:"passed"`
	Skipped  bool            `json:"skipped,omitempty"`
	Note     string          `json:"note,omitempty"`
}

// LinkageReport income statement → cash flow → balance sheet consistency
type LinkageReport struct {
	Checks    []LinkageCheck `json:"checks"`
	AllPassed bool           `json:"all_passed"`
}

// FailedChecks checks that ran and did not pass
func (r *LinkageReport) FailedChecks() []LinkageCheck {
	var out []LinkageCheck
	for _, c := range r.Checks {
		if !c.Passed && !c.Skipped {
			out = append(out, c)
		}
	}
	return out
}

// CheckRetainedEarnings ΔRE == net income - dividends
func CheckRetainedEarnings(prior, current statement.Record, dividends, tolerance decimal.Decimal) error {
	c, err := retainedEarnings(prior, current, dividends, tolerance)
	if err != nil {
		return err
	}
	if !c.Passed {
		return &statement.InvariantViolationError{
			Rule:   statement.RuleRetainedEarning,
			Period: current.Period(),
			Left:   c.Actual,
			Right:  c.Expected,
		}
	}
	return nil
}

// Linkage runs every cross-statement check the records support. Checks whose
// inputs are absent are reported as skipped rather than failed.
func Linkage(prior, current statement.Record, supp Supplementary, st *Statement, tolerance decimal.Decimal) *LinkageReport {
	report := &LinkageReport{}

	// 1. closing cash
	if st != nil {
		report.Checks = append(report.Checks, compare("closing_cash", st.ReportedCash, st.ClosingCash, tolerance))
	}

	// 2. retained earnings roll-forward
	re, _ := retainedEarnings(prior, current, supp.Dividends, tolerance)
	report.Checks = append(report.Checks, re)

	// 3. equity roll-forward: ΔPL = net income - dividends + capital increase
	eqDelta, err1 := statement.Delta(prior, current, statement.Equity)
	ni, err2 := current.Get(statement.NetIncome)
	if err := errors.Join(err1, err2); err != nil {
		report.Checks = append(report.Checks, LinkageCheck{Name: "equity_roll_forward", Skipped: true, Note: err.Error()})
	} else {
		expected := ni.Sub(supp.Dividends).Add(supp.CapitalIncrease)
		report.Checks = append(report.Checks, compare("equity_roll_forward", expected, eqDelta, tolerance))
	}

	report.AllPassed = len(report.FailedChecks()) == 0
	return report
}

func retainedEarnings(prior, current statement.Record, dividends, tolerance decimal.Decimal) (LinkageCheck, error) {
	reDelta, err1 := statement.Delta(prior, current, statement.RetainedEarnings)
	ni, err2 := current.Get(statement.NetIncome)
	if err := errors.Join(err1, err2); err != nil {
		return LinkageCheck{Name: "retained_earnings", Skipped: true, Note: err.Error()}, err
	}
	return compare("retained_earnings", ni.Sub(dividends), reDelta, tolerance), nil
}

func compare(name string, expected, actual, tolerance decimal.Decimal) LinkageCheck {
	gap := actual.Sub(expected)
	return LinkageCheck{
		Name:     name,
		Expected: expected,
		Actual:   actual,
		Gap:      gap,
		Passed:   gap.Abs().LessThanOrEqual(tolerance.Abs()),
	}
}
