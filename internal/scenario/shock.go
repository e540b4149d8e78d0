package scenario

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

// Kind shock type
type Kind string

const (
	EBITDAChange           Kind = "ebitda_change"            // Value: relative change (-0.30 = EBITDA ↓30%)
	RevenueChange          Kind = "revenue_change"           // Value: relative change; costs scale with it, opex stays
	FinancialExpenseChange Kind = "financial_expense_change" // Value: relative change of financial expenses
	InterestRateChange     Kind = "interest_rate_change"     // Value: absolute rate change on total financial debt (0.02 = +2pp)
	NewBorrowing           Kind = "new_borrowing"            // Value: amount borrowed; Rate: its annual interest rate
)

var ErrInvalidShock = errors.New("invalid shock")

// Shock one step of a scenario
type Shock struct {
	Label string  `json:"label,omitempty" yaml:"label,omitempty"`
	Kind  Kind    `json:"kind" yaml:"kind"`
	Value float64 `json:"value" yaml:"value"`
	Rate  float64 `json:"rate,omitempty" yaml:"rate,omitempty"`
}

// Validate checks kind and value domain
func (s Shock) Validate() error {
	switch s.Kind {
	case EBITDAChange, RevenueChange, FinancialExpenseChange:
		if s.Value <= -1 {
			return fmt.Errorf("%w: %s %v would remove the line entirely", ErrInvalidShock, s.Kind, s.Value)
		}
	case InterestRateChange:
	case NewBorrowing:
		if s.Value <= 0 || s.Rate < 0 {
			return fmt.Errorf("%w: new_borrowing needs amount > 0 and rate >= 0", ErrInvalidShock)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidShock, s.Kind)
	}
	return nil
}

// Name label, or a generated description
func (s Shock) Name() string {
	if s.Label != "" {
		return s.Label
	}
	switch s.Kind {
	case NewBorrowing:
		return fmt.Sprintf("new_borrowing %.0f @ %.2f%%", s.Value, s.Rate*100)
	case InterestRateChange:
		return fmt.Sprintf("interest_rate %+.2fpp", s.Value*100)
	}
	return fmt.Sprintf("%s %+.0f%%", s.Kind, s.Value*100)
}

// =============================================================================
// Propagation
// =============================================================================

// propagation quantities held fixed across every step of one simulation
type propagation struct {
	taxRate          float64
	afterTaxResidual decimal.Decimal // pretax - tax - net income (minority interest, discontinued ops)
}

// newPropagation fixes the effective tax rate of the unshocked record.
// A loss-making baseline has no effective rate: fallbackRate applies.
func newPropagation(r statement.Record, fallbackRate float64) (propagation, error) {
	v, err := r.Lookup(statement.PretaxIncome, statement.NetIncome)
	if err != nil {
		return propagation{}, err
	}
	pretax, netIncome := v[0], v[1]

	tax := pretax.Sub(netIncome)
	if r.Has(statement.IncomeTax) {
		tax, _ = r.Get(statement.IncomeTax)
	}

	p := propagation{taxRate: fallbackRate, afterTaxResidual: pretax.Sub(tax).Sub(netIncome)}
	if pretax.IsPositive() {
		p.taxRate = tax.Div(pretax).InexactFloat64()
	}
	return p, nil
}

// apply returns a new record with s applied; r is never modified.
// EBIT moves with the operating shocks, financial expenses with the
// financing shocks, and pretax income, tax and net income are recomputed.
// Balance sheet lines only move for new borrowing.
func apply(r statement.Record, s Shock, p propagation) (statement.Record, error) {
	if err := s.Validate(); err != nil {
		return statement.Record{}, err
	}

	v, err := r.Lookup(statement.EBIT, statement.FinancialExpenses, statement.PretaxIncome)
	if err != nil {
		return statement.Record{}, err
	}
	ebit, finExp, pretax := v[0], v[1], v[2]

	updates := map[statement.Field]decimal.Decimal{}
	deltaEBIT := decimal.Zero
	deltaFin := decimal.Zero
	value := decimal.NewFromFloat(s.Value)

	switch s.Kind {
	case EBITDAChange:
		ebitda, err := ebitdaOf(r)
		if err != nil {
			return statement.Record{}, err
		}
		deltaEBIT = ebitda.Mul(value)
		// opex absorbs the change while it can; past that EBIT moves alone
		if r.Has(statement.OperatingExpenses) {
			opex, _ := r.Get(statement.OperatingExpenses)
			if next := opex.Sub(deltaEBIT); !next.IsNegative() {
				updates[statement.OperatingExpenses] = next
			}
		}

	case RevenueChange:
		v, err := r.Lookup(statement.NetRevenue, statement.COGS)
		if err != nil {
			return statement.Record{}, err
		}
		gross := v[0].Sub(v[1])
		deltaEBIT = gross.Mul(value)
		factor := decimal.NewFromInt(1).Add(value)
		for _, f := range []statement.Field{statement.Revenue, statement.Deductions, statement.NetRevenue, statement.COGS, statement.GrossProfit} {
			if r.Has(f) {
				cur, _ := r.Get(f)
				updates[f] = cur.Mul(factor)
			}
		}

	case FinancialExpenseChange:
		deltaFin = finExp.Mul(value)

	case InterestRateChange:
		debt, err := r.TotalDebt()
		if err != nil {
			return statement.Record{}, err
		}
		deltaFin = debt.Mul(value)

	case NewBorrowing:
		amount := value
		deltaFin = amount.Mul(decimal.NewFromFloat(s.Rate))
		if _, err := r.Get(statement.LongTermDebt); err != nil {
			return statement.Record{}, err
		}
		// proceeds sit in cash until deployed
		for _, f := range []statement.Field{statement.Cash, statement.CurrentAssets, statement.TotalAssets,
			statement.LongTermDebt, statement.NonCurrentLiabilities} {
			if r.Has(f) {
				cur, _ := r.Get(f)
				updates[f] = cur.Add(amount)
			}
		}
	}

	// === Income cascade ===
	if !deltaEBIT.IsZero() {
		updates[statement.EBIT] = ebit.Add(deltaEBIT)
		if r.Has(statement.EBITDA) {
			ebitda, _ := r.Get(statement.EBITDA)
			updates[statement.EBITDA] = ebitda.Add(deltaEBIT)
		}
	}
	if !deltaFin.IsZero() {
		updates[statement.FinancialExpenses] = finExp.Add(deltaFin)
	}

	newPretax := pretax.Add(deltaEBIT).Sub(deltaFin)
	newTax := statement.TaxAtRate(newPretax, p.taxRate)
	updates[statement.PretaxIncome] = newPretax
	updates[statement.IncomeTax] = newTax
	updates[statement.NetIncome] = newPretax.Sub(newTax).Sub(p.afterTaxResidual)

	return r.With(updates)
}

// ebitdaOf reported EBITDA, or EBIT + depreciation
func ebitdaOf(r statement.Record) (decimal.Decimal, error) {
	if r.Has(statement.EBITDA) {
		return r.Get(statement.EBITDA)
	}
	v, err := r.Lookup(statement.EBIT, statement.Depreciation)
	if err != nil {
		return decimal.Zero, err
	}
	return v[0].Add(v[1]), nil
}
