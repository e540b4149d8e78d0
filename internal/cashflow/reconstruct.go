package cashflow

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

var ErrReconciliationMismatch = errors.New("reconstructed closing cash does not match reported cash")

// ReconciliationMismatchError the reconstructed statement does not close to the
// later period's cash. Usually an incomplete supplementary item list.
type ReconciliationMismatchError struct {
	FromPeriod    string
	ToPeriod      string
	Reconstructed decimal.Decimal
	Reported      decimal.Decimal
}

func (e *ReconciliationMismatchError) Error() string {
	return fmt.Sprintf("cash flow %s→%s: reconstructed closing cash %s, reported %s (gap %s)",
		e.FromPeriod, e.ToPeriod, e.Reconstructed, e.Reported, e.Gap())
}

// Gap reconstructed - reported
func (e *ReconciliationMismatchError) Gap() decimal.Decimal {
	return e.Reconstructed.Sub(e.Reported)
}

func (e *ReconciliationMismatchError) Is(target error) bool {
	return target == ErrReconciliationMismatch
}

// Supplementary flows that cannot be derived from balance deltas.
// Zero values mean the flow did not happen.
type Supplementary struct {
	Depreciation     decimal.NullDecimal `json:"depreciation"`  // invalid → current record's depreciation
	NewBorrowing     decimal.NullDecimal `json:"new_borrowing"` // valid → replaces the debt balance delta
	DebtRepayment    decimal.Decimal     `json:"debt_repayment"`
	Dividends        decimal.Decimal     `json:"dividends"`
	Capex            decimal.Decimal     `json:"capex"`
	DisposalProceeds decimal.Decimal     `json:"disposal_proceeds"`
	CapitalIncrease  decimal.Decimal     `json:"capital_increase"`
}

// Line one labelled cash movement (positive = inflow)
type Line struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Section operating / investing / financing block
type Section struct {
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func (s *Section) add(label string, amount decimal.Decimal) {
	s.Lines = append(s.Lines, Line{Label: label, Amount: amount})
	s.Total = s.Total.Add(amount)
}

// Statement indirect-method cash-flow statement (DFC) between two periods
type Statement struct {
	FromPeriod   string          `json:"from_period"`
	ToPeriod     string          `json:"to_period"`
	Operating    Section         `json:"operating"`
	Investing    Section         `json:"investing"`
	Financing    Section         `json:"financing"`
	NetChange    decimal.Decimal `json:"net_change"`
	OpeningCash  decimal.Decimal `json:"opening_cash"`
	ClosingCash  decimal.Decimal `json:"closing_cash"`  // reconstructed
	ReportedCash decimal.Decimal `json:"reported_cash"` // later record
	Reconciled   bool            `json:"reconciled"`
	Capex        decimal.Decimal `json:"capex"`
}

// FreeCashFlow operating cash flow - capex
func (s *Statement) FreeCashFlow() decimal.Decimal {
	return s.Operating.Total.Sub(s.Capex)
}

// Reconstructor builds cash-flow statements from balance-sheet deltas (pure calculator)
type Reconstructor struct {
	tolerance decimal.Decimal // absolute
}

// NewReconstructor tolerance is absolute, in currency units; zero demands an exact close.
func NewReconstructor(tolerance decimal.Decimal) *Reconstructor {
	return &Reconstructor{tolerance: tolerance.Abs()}
}

// Reconstruct with an exact-close requirement
func Reconstruct(prior, current statement.Record, supp Supplementary) (*Statement, error) {
	return NewReconstructor(decimal.Zero).Reconstruct(prior, current, supp)
}

// workingCapital lines: asset increases consume cash, liability increases release it
var workingCapital = []struct {
	field statement.Field
	label string
	asset bool
}{
	{statement.AccountsReceivable, "Δ accounts receivable", true},
	{statement.Inventory, "Δ inventory", true},
	{statement.PrepaidExpenses, "Δ prepaid expenses", true},
	{statement.AccountsPayable, "Δ accounts payable", false},
	{statement.OtherOperatingLiabilities, "Δ other operating liabilities", false},
}

// Reconstruct derives the three activity sections and verifies the closing cash.
// On a mismatch the statement is still returned together with a
// *ReconciliationMismatchError.
func (c *Reconstructor) Reconstruct(prior, current statement.Record, supp Supplementary) (*Statement, error) {
	st := &Statement{FromPeriod: prior.Period(), ToPeriod: current.Period(), Capex: supp.Capex}

	// === Operating ===
	netIncome, err := current.Get(statement.NetIncome)
	if err != nil {
		return nil, err
	}
	st.Operating.add("net income", netIncome)

	dep := supp.Depreciation.Decimal
	if !supp.Depreciation.Valid {
		if dep, err = current.Get(statement.Depreciation); err != nil {
			return nil, err
		}
	}
	st.Operating.add("depreciation and amortization", dep)

	for _, wc := range workingCapital {
		delta, err := statement.Delta(prior, current, wc.field)
		if err != nil {
			return nil, err
		}
		if wc.asset {
			delta = delta.Neg()
		}
		st.Operating.add(wc.label, delta)
	}

	// === Investing ===
	st.Investing.add("capital expenditures", supp.Capex.Neg())
	if !supp.DisposalProceeds.IsZero() {
		st.Investing.add("asset disposals", supp.DisposalProceeds)
	}

	// === Financing ===
	if supp.NewBorrowing.Valid {
		st.Financing.add("new borrowing", supp.NewBorrowing.Decimal)
		st.Financing.add("debt repayment", supp.DebtRepayment.Neg())
	} else {
		for _, f := range []statement.Field{statement.ShortTermDebt, statement.LongTermDebt} {
			delta, err := statement.Delta(prior, current, f)
			if err != nil {
				return nil, err
			}
			st.Financing.add("Δ "+humanize(f), delta)
		}
	}
	if !supp.CapitalIncrease.IsZero() {
		st.Financing.add("capital increase", supp.CapitalIncrease)
	}
	st.Financing.add("dividends paid", supp.Dividends.Neg())

	// === Closing cash ===
	if st.OpeningCash, err = prior.Get(statement.Cash); err != nil {
		return nil, err
	}
	if st.ReportedCash, err = current.Get(statement.Cash); err != nil {
		return nil, err
	}
	st.NetChange = st.Operating.Total.Add(st.Investing.Total).Add(st.Financing.Total)
	st.ClosingCash = st.OpeningCash.Add(st.NetChange)

	if st.ClosingCash.Sub(st.ReportedCash).Abs().GreaterThan(c.tolerance) {
		return st, &ReconciliationMismatchError{
			FromPeriod:    st.FromPeriod,
			ToPeriod:      st.ToPeriod,
			Reconstructed: st.ClosingCash,
			Reported:      st.ReportedCash,
		}
	}
	st.Reconciled = true
	return st, nil
}

func humanize(f statement.Field) string {
	switch f {
	case statement.ShortTermDebt:
		return "short-term debt"
	case statement.LongTermDebt:
		return "long-term debt"
	}
	return string(f)
}
