package ratios

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finlab/internal/statement"
)

// techSolutions2023 closes exactly: 705k + 450k = 325k + 280k + 550k
func techSolutions2023(t *testing.T) statement.Record {
	t.Helper()
	r, err := statement.FromFloats("2023", map[string]float64{
		"revenue":                     1200000,
		"net_revenue":                 1200000,
		"cogs":                        720000,
		"gross_profit":                480000,
		"operating_expenses":          280000,
		"depreciation":                50000,
		"ebit":                        150000,
		"ebitda":                      200000,
		"financial_expenses":          45000,
		"pretax_income":               105000,
		"income_tax":                  35700,
		"net_income":                  69300,
		"cash":                        85000,
		"short_term_investments":      0,
		"accounts_receivable":         420000,
		"inventory":                   180000,
		"prepaid_expenses":            20000,
		"current_assets":              705000,
		"long_term_receivables":       0,
		"fixed_assets":                450000,
		"non_current_assets":          450000,
		"total_assets":                1155000,
		"accounts_payable":            110000,
		"other_operating_liabilities": 95000,
		"short_term_debt":             120000,
		"current_liabilities":         325000,
		"long_term_debt":              280000,
		"non_current_liabilities":     280000,
		"share_capital":               350000,
		"retained_earnings":           200000,
		"equity":                      550000,
	})
	require.NoError(t, err)
	return r
}

func TestComputeAll_TechSolutions(t *testing.T) {
	r := techSolutions2023(t)
	ocf := decimal.NewFromInt(-55700)

	set := ComputeAll(r, Options{TaxRate: 0.34, OperatingCashFlow: &ocf})
	require.Empty(t, set.Failures)
	assert.Equal(t, "2023", set.Period)

	tests := []struct {
		name Name
		want float64
		unit Unit
	}{
		{CurrentLiquidity, 705.0 / 325.0, UnitRatio},
		{QuickLiquidity, 525.0 / 325.0, UnitRatio},
		{ImmediateLiquidity, 85.0 / 325.0, UnitRatio},
		{GeneralLiquidity, 705.0 / 605.0, UnitRatio},
		{GrossMargin, 40, UnitPercent},
		{EBITMargin, 12.5, UnitPercent},
		{EBITDAMargin, 200.0 / 12.0, UnitPercent},
		{NetMargin, 5.775, UnitPercent},
		{ROE, 12.6, UnitPercent},
		{ROA, 6.0, UnitPercent},
		{ROIC, 99.0 / 950.0 * 100, UnitPercent},
		{EffectiveTaxRate, 34, UnitPercent},
		{TotalDebtRatio, 605.0 / 1155.0 * 100, UnitPercent},
		{DebtToEquity, 400.0 / 550.0, UnitRatio},
		{DebtToEBITDA, 2.0, UnitRatio},
		{InterestCoverage, 150.0 / 45.0, UnitTimes},
		{FinancialLeverageDegree, 2.1, UnitRatio},
		{EquityMultiplier, 2.1, UnitRatio},
		{AssetTurnover, 1200.0 / 1155.0, UnitRatio},
		{InventoryDays, 90, UnitDays},
		{ReceivableDays, 126, UnitDays},
		{PayableDays, 55, UnitDays},
		{CashConversionCycle, 161, UnitDays},
		{OCFToNetIncome, -55700.0 / 69300.0, UnitRatio},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			got, ok := set.Get(tt.name)
			require.True(t, ok)
			assert.InDelta(t, tt.want, got.Value, 1e-9)
			assert.Equal(t, tt.unit, got.Unit)
		})
	}
	assert.Len(t, set.Results, len(tests))
}

func TestComputeAll_SkipsCashFlowWithoutOCF(t *testing.T) {
	set := ComputeAll(techSolutions2023(t), DefaultOptions())

	_, ok := set.Get(OCFToNetIncome)
	assert.False(t, ok)
	_, failed := set.Failed(OCFToNetIncome)
	assert.False(t, failed)
}

func TestMargins_IncomeScenario(t *testing.T) {
	// revenue 800k, COGS 480k, opex 160k, financial result -40k, tax 40.8k
	income := statement.DeriveIncome(statement.IncomeLines{
		Revenue:           decimal.NewFromInt(800000),
		COGS:              decimal.NewFromInt(480000),
		OperatingExpenses: decimal.NewFromInt(160000),
		FinancialExpenses: decimal.NewFromInt(40000),
		IncomeTax:         decimal.NewFromInt(40800),
	})
	r, err := statement.New("2024", income)
	require.NoError(t, err)

	gm, err := Compute(GrossMargin, r)
	require.NoError(t, err)
	em, err := Compute(EBITMargin, r)
	require.NoError(t, err)
	nm, err := Compute(NetMargin, r)
	require.NoError(t, err)

	assert.InDelta(t, 40.0, gm.Value, 1e-9)
	assert.InDelta(t, 20.0, em.Value, 1e-9)
	assert.InDelta(t, 9.9, nm.Value, 1e-9)
	assert.InDelta(t, 0.099, nm.Fraction(), 1e-12)
}

func TestDivisionByZero(t *testing.T) {
	tests := []struct {
		name     string
		ratio    Name
		override map[string]float64
		denom    string
	}{
		{"zero current liabilities", CurrentLiquidity, map[string]float64{"current_liabilities": 0}, "current_liabilities"},
		{"negative equity", ROE, map[string]float64{"equity": -100}, "equity"},
		{"negative ebitda", DebtToEBITDA, map[string]float64{"ebitda": -10}, "ebitda"},
		{"no interest", InterestCoverage, map[string]float64{"financial_expenses": 0}, "financial_expenses"},
		{"zero revenue", GrossMargin, map[string]float64{"net_revenue": 0}, "net_revenue"},
		{"zero cogs", InventoryDays, map[string]float64{"cogs": 0}, "cogs"},
		{"loss making tax rate", EffectiveTaxRate, map[string]float64{"pretax_income": -5}, "pretax_income"},
		{"zero net income", FinancialLeverageDegree, map[string]float64{"net_income": 0}, "roa"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := techSolutions2023(t).Floats()
			for k, v := range tt.override {
				values[k] = v
			}
			r, err := statement.FromFloats("2023", values)
			require.NoError(t, err)

			_, err = Compute(tt.ratio, r)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDivisionByZero))

			var dz *DivisionByZeroError
			require.True(t, errors.As(err, &dz))
			assert.Equal(t, tt.ratio, dz.Ratio)
			assert.Equal(t, tt.denom, dz.Denominator)
		})
	}
}

func TestMissingField_RecordedNotFatal(t *testing.T) {
	values := techSolutions2023(t).Floats()
	delete(values, "inventory")
	r, err := statement.FromFloats("2023", values)
	require.NoError(t, err)

	_, err = Compute(QuickLiquidity, r)
	assert.ErrorIs(t, err, statement.ErrMissingField)

	set := ComputeAll(r, DefaultOptions())
	f, ok := set.Failed(QuickLiquidity)
	require.True(t, ok)
	assert.ErrorIs(t, f.Err, statement.ErrMissingField)

	_, ok = set.Failed(CashConversionCycle)
	assert.True(t, ok)

	cl, ok := set.Get(CurrentLiquidity)
	require.True(t, ok, "unrelated ratios still computed")
	assert.InDelta(t, 705.0/325.0, cl.Value, 1e-9)
}

func TestCompute_Idempotent(t *testing.T) {
	r := techSolutions2023(t)
	for _, def := range Catalog() {
		if def.Category == CategoryCashFlow {
			continue
		}
		a, errA := Compute(def.Name, r)
		b, errB := Compute(def.Name, r)
		require.NoError(t, errA)
		require.NoError(t, errB)
		assert.Equal(t, a, b, def.Name)
	}
}

func TestCompute_UnknownRatio(t *testing.T) {
	_, err := Compute("ebitda_yield", techSolutions2023(t))
	assert.ErrorIs(t, err, ErrUnknownRatio)
}

func TestCatalog_DeclaresRequiredFields(t *testing.T) {
	seen := map[Name]bool{}
	for _, def := range Catalog() {
		assert.False(t, seen[def.Name], "duplicate %s", def.Name)
		seen[def.Name] = true
		assert.NotEmpty(t, def.Requires, def.Name)

		got, ok := Lookup(def.Name)
		require.True(t, ok)
		assert.Equal(t, def.Requires, got.Requires)
	}
}

func TestCashFlowQuality(t *testing.T) {
	r := techSolutions2023(t)

	res, err := CashFlowQuality(decimal.NewFromInt(138600), r)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, res.Value, 1e-12)

	_, err = ComputeWith(OCFToNetIncome, r, DefaultOptions())
	assert.ErrorIs(t, err, ErrCashFlowRequired)
}

func TestReturnOnInvestedCapital(t *testing.T) {
	r := techSolutions2023(t)

	res, err := ReturnOnInvestedCapital(r, 0)
	require.NoError(t, err)
	assert.InDelta(t, 150.0/950.0*100, res.Value, 1e-9)

	nopat, err := NOPAT(r, 0.34)
	require.NoError(t, err)
	assert.True(t, nopat.Equal(decimal.NewFromInt(99000)))

	ic, err := InvestedCapital(r)
	require.NoError(t, err)
	assert.True(t, ic.Equal(decimal.NewFromInt(950000)))
}
