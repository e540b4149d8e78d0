package cashflow

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finlab/internal/statement"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// Tech Solutions 2022 → 2023
func techSolutions(t *testing.T) (statement.Record, statement.Record, Supplementary) {
	t.Helper()
	prior, err := statement.FromFloats("2022", map[string]float64{
		"cash":                        150000,
		"accounts_receivable":         280000,
		"inventory":                   120000,
		"prepaid_expenses":            15000,
		"accounts_payable":            95000,
		"other_operating_liabilities": 80000,
		"short_term_debt":             80000,
		"long_term_debt":              200000,
		"retained_earnings":           160000,
		"equity":                      460000,
	})
	require.NoError(t, err)

	current, err := statement.FromFloats("2023", map[string]float64{
		"net_income":                  69300,
		"depreciation":                50000,
		"cash":                        85000,
		"accounts_receivable":         420000,
		"inventory":                   180000,
		"prepaid_expenses":            20000,
		"accounts_payable":            110000,
		"other_operating_liabilities": 95000,
		"short_term_debt":             120000,
		"long_term_debt":              280000,
		"retained_earnings":           200000,
		"equity":                      550000,
	})
	require.NoError(t, err)

	supp := Supplementary{
		Dividends:       dec(29300),
		Capex:           dec(150000),
		CapitalIncrease: dec(50000),
	}
	return prior, current, supp
}

func TestReconstruct_TechSolutions(t *testing.T) {
	prior, current, supp := techSolutions(t)

	st, err := Reconstruct(prior, current, supp)
	require.NoError(t, err)

	assert.True(t, st.Operating.Total.Equal(dec(-55700)), st.Operating.Total.String())
	assert.True(t, st.Investing.Total.Equal(dec(-150000)))
	assert.True(t, st.Financing.Total.Equal(dec(140700)), st.Financing.Total.String())
	assert.True(t, st.NetChange.Equal(dec(-65000)))
	assert.True(t, st.OpeningCash.Equal(dec(150000)))
	assert.True(t, st.ClosingCash.Equal(dec(85000)))
	assert.True(t, st.Reconciled)
	assert.True(t, st.FreeCashFlow().Equal(dec(-205700)))

	assert.Equal(t, "2022", st.FromPeriod)
	assert.Equal(t, "2023", st.ToPeriod)
}

// closing cash = opening + operating + investing + financing, whatever the inputs
func TestReconstruct_SectionsSumToNetChange(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.DisposalProceeds = dec(12345)

	st, err := Reconstruct(prior, current, supp)
	require.Error(t, err)

	sum := st.Operating.Total.Add(st.Investing.Total).Add(st.Financing.Total)
	assert.True(t, sum.Equal(st.NetChange))
	assert.True(t, st.OpeningCash.Add(st.NetChange).Equal(st.ClosingCash))

	for _, s := range []Section{st.Operating, st.Investing, st.Financing} {
		total := decimal.Zero
		for _, l := range s.Lines {
			total = total.Add(l.Amount)
		}
		assert.True(t, total.Equal(s.Total))
	}
}

func TestReconstruct_MissingDividendsIsMismatch(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.Dividends = decimal.Zero

	st, err := Reconstruct(prior, current, supp)
	require.Error(t, err)
	require.NotNil(t, st, "statement returned alongside the mismatch")
	assert.False(t, st.Reconciled)
	assert.True(t, errors.Is(err, ErrReconciliationMismatch))

	var mm *ReconciliationMismatchError
	require.True(t, errors.As(err, &mm))
	assert.True(t, mm.Gap().Equal(dec(29300)), mm.Gap().String())
	assert.True(t, mm.Reported.Equal(dec(85000)))
}

func TestReconstruct_Tolerance(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.Capex = dec(150010)

	_, err := Reconstruct(prior, current, supp)
	assert.ErrorIs(t, err, ErrReconciliationMismatch)

	st, err := NewReconstructor(dec(50)).Reconstruct(prior, current, supp)
	require.NoError(t, err)
	assert.True(t, st.Reconciled)
}

func TestReconstruct_DepreciationOverride(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.Depreciation = decimal.NewNullDecimal(dec(60000))

	st, err := Reconstruct(prior, current, supp)
	require.Error(t, err)
	assert.True(t, st.Operating.Total.Equal(dec(-45700)))
}

func TestReconstruct_ExplicitBorrowing(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.NewBorrowing = decimal.NewNullDecimal(dec(170000))
	supp.DebtRepayment = dec(50000)

	st, err := Reconstruct(prior, current, supp)
	require.NoError(t, err)
	assert.True(t, st.Financing.Total.Equal(dec(140700)))
}

func TestReconstruct_MissingField(t *testing.T) {
	prior, current, supp := techSolutions(t)
	values := current.Floats()
	delete(values, "prepaid_expenses")
	current, err := statement.FromFloats("2023", values)
	require.NoError(t, err)

	_, err = Reconstruct(prior, current, supp)
	assert.ErrorIs(t, err, statement.ErrMissingField)
}

func TestLinkage(t *testing.T) {
	prior, current, supp := techSolutions(t)
	st, err := Reconstruct(prior, current, supp)
	require.NoError(t, err)

	report := Linkage(prior, current, supp, st, decimal.Zero)
	require.Len(t, report.Checks, 3)
	assert.True(t, report.AllPassed)
	assert.Empty(t, report.FailedChecks())
}

func TestLinkage_SkipsAndFails(t *testing.T) {
	prior, current, supp := techSolutions(t)
	supp.Dividends = dec(30000)

	values := prior.Floats()
	delete(values, "equity")
	prior, err := statement.FromFloats("2022", values)
	require.NoError(t, err)

	report := Linkage(prior, current, supp, nil, decimal.Zero)
	require.Len(t, report.Checks, 2)
	assert.False(t, report.AllPassed)

	failed := report.FailedChecks()
	require.Len(t, failed, 1)
	assert.Equal(t, "retained_earnings", failed[0].Name)
	assert.True(t, failed[0].Gap.Equal(dec(700)))
	assert.True(t, report.Checks[1].Skipped)
}

func TestCheckRetainedEarnings(t *testing.T) {
	prior, current, _ := techSolutions(t)

	assert.NoError(t, CheckRetainedEarnings(prior, current, dec(29300), decimal.Zero))

	err := CheckRetainedEarnings(prior, current, dec(0), decimal.Zero)
	var inv *statement.InvariantViolationError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, statement.RuleRetainedEarning, inv.Rule)

	bare, _ := statement.FromFloats("2023", map[string]float64{"net_income": 1})
	assert.ErrorIs(t, CheckRetainedEarnings(prior, bare, dec(0), decimal.Zero), statement.ErrMissingField)
}
