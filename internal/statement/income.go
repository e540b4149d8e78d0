package statement

import "github.com/shopspring/decimal"

// IncomeLines primitive income-statement lines.
// OperatingExpenses excludes Depreciation when Depreciation is reported separately.
type IncomeLines struct {
	Revenue           decimal.Decimal
	Deductions        decimal.Decimal // returns, sales taxes
	COGS              decimal.Decimal
	OperatingExpenses decimal.Decimal
	Depreciation      decimal.Decimal
	FinancialExpenses decimal.Decimal
	FinancialIncome   decimal.Decimal
	IncomeTax         decimal.Decimal
}

// DeriveIncome builds the income-statement cascade (DRE) from primitive lines:
// net revenue → gross profit → EBIT → pretax income → net income.
func DeriveIncome(l IncomeLines) map[Field]decimal.Decimal {
	netRevenue := l.Revenue.Sub(l.Deductions)
	gross := netRevenue.Sub(l.COGS)
	ebit := gross.Sub(l.OperatingExpenses).Sub(l.Depreciation)
	pretax := ebit.Sub(l.FinancialExpenses).Add(l.FinancialIncome)

	return map[Field]decimal.Decimal{
		Revenue:           l.Revenue,
		Deductions:        l.Deductions,
		NetRevenue:        netRevenue,
		COGS:              l.COGS,
		GrossProfit:       gross,
		OperatingExpenses: l.OperatingExpenses,
		Depreciation:      l.Depreciation,
		EBIT:              ebit,
		EBITDA:            ebit.Add(l.Depreciation),
		FinancialExpenses: l.FinancialExpenses,
		FinancialIncome:   l.FinancialIncome,
		PretaxIncome:      pretax,
		IncomeTax:         l.IncomeTax,
		NetIncome:         pretax.Sub(l.IncomeTax),
	}
}

// TaxAtRate income tax on pretax income; no tax is charged on a loss.
func TaxAtRate(pretax decimal.Decimal, rate float64) decimal.Decimal {
	if !pretax.IsPositive() {
		return decimal.Zero
	}
	return pretax.Mul(decimal.NewFromFloat(rate))
}
