package ratios

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

// Liquidity
const (
	CurrentLiquidity   Name = "current_liquidity"
	QuickLiquidity     Name = "quick_liquidity"
	ImmediateLiquidity Name = "immediate_liquidity"
	GeneralLiquidity   Name = "general_liquidity"
)

// Profitability
const (
	GrossMargin      Name = "gross_margin"
	EBITMargin       Name = "ebit_margin"
	EBITDAMargin     Name = "ebitda_margin"
	NetMargin        Name = "net_margin"
	ROE              Name = "roe"
	ROA              Name = "roa"
	ROIC             Name = "roic"
	EffectiveTaxRate Name = "effective_tax_rate"
)

// Leverage
const (
	TotalDebtRatio          Name = "total_debt_ratio"
	DebtToEquity            Name = "debt_to_equity"
	DebtToEBITDA            Name = "debt_to_ebitda"
	InterestCoverage        Name = "interest_coverage"
	FinancialLeverageDegree Name = "financial_leverage_degree"
	EquityMultiplier        Name = "equity_multiplier"
)

// Efficiency
const (
	AssetTurnover       Name = "asset_turnover"
	InventoryDays       Name = "inventory_days"
	ReceivableDays      Name = "receivable_days"
	PayableDays         Name = "payable_days"
	CashConversionCycle Name = "cash_conversion_cycle"
)

// Cash-flow quality
const (
	OCFToNetIncome Name = "operating_cash_flow_to_net_income"
)

type denominatorRule int

const (
	mustBePositive denominatorRule = iota
	mustBeNonZero
)

var (
	hundred = decimal.NewFromInt(100)
	days    = decimal.NewFromInt(DaysInYear)
)

func divide(ratio Name, num, den decimal.Decimal, label string, rule denominatorRule) (decimal.Decimal, error) {
	if den.IsZero() || (rule == mustBePositive && den.IsNegative()) {
		return decimal.Zero, &DivisionByZeroError{Ratio: ratio, Denominator: label, Value: den}
	}
	return num.Div(den), nil
}

func daysOf(ratio Name, balance, flow decimal.Decimal, label string) (decimal.Decimal, error) {
	q, err := divide(ratio, balance, flow, label, mustBePositive)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Mul(days), nil
}

// =============================================================================
// Catalog
// =============================================================================

// catalog order is the order of Set.Results.
// compute receives the Requires fields in declaration order.
var catalog = []struct {
	Definition
	compute func(v []decimal.Decimal, o Options) (decimal.Decimal, error)
}{
	// === Liquidity ===
	{
		Definition: Definition{CurrentLiquidity, CategoryLiquidity, UnitRatio,
			[]statement.Field{statement.CurrentAssets, statement.CurrentLiabilities}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(CurrentLiquidity, v[0], v[1], "current_liabilities", mustBePositive)
		},
	},
	{
		Definition: Definition{QuickLiquidity, CategoryLiquidity, UnitRatio,
			[]statement.Field{statement.CurrentAssets, statement.Inventory, statement.CurrentLiabilities}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(QuickLiquidity, v[0].Sub(v[1]), v[2], "current_liabilities", mustBePositive)
		},
	},
	{
		Definition: Definition{ImmediateLiquidity, CategoryLiquidity, UnitRatio,
			[]statement.Field{statement.Cash, statement.ShortTermInvestments, statement.CurrentLiabilities}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(ImmediateLiquidity, v[0].Add(v[1]), v[2], "current_liabilities", mustBePositive)
		},
	},
	{
		Definition: Definition{GeneralLiquidity, CategoryLiquidity, UnitRatio,
			[]statement.Field{statement.CurrentAssets, statement.LongTermReceivables, statement.CurrentLiabilities, statement.NonCurrentLiabilities}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(GeneralLiquidity, v[0].Add(v[1]), v[2].Add(v[3]), "current_liabilities + non_current_liabilities", mustBePositive)
		},
	},

	// === Profitability ===
	{
		Definition: Definition{GrossMargin, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.GrossProfit, statement.NetRevenue}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(GrossMargin, v[0], v[1], "net_revenue", mustBePositive)
		},
	},
	{
		Definition: Definition{EBITMargin, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.EBIT, statement.NetRevenue}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(EBITMargin, v[0], v[1], "net_revenue", mustBePositive)
		},
	},
	{
		Definition: Definition{EBITDAMargin, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.EBITDA, statement.NetRevenue}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(EBITDAMargin, v[0], v[1], "net_revenue", mustBePositive)
		},
	},
	{
		Definition: Definition{NetMargin, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.NetIncome, statement.NetRevenue}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(NetMargin, v[0], v[1], "net_revenue", mustBePositive)
		},
	},
	{
		Definition: Definition{ROE, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.NetIncome, statement.Equity}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(ROE, v[0], v[1], "equity", mustBePositive)
		},
	},
	{
		Definition: Definition{ROA, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.NetIncome, statement.TotalAssets}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(ROA, v[0], v[1], "total_assets", mustBePositive)
		},
	},
	{
		Definition: Definition{ROIC, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.EBIT, statement.Equity, statement.ShortTermDebt, statement.LongTermDebt}},
		compute: func(v []decimal.Decimal, o Options) (decimal.Decimal, error) {
			nopat := v[0].Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(o.TaxRate)))
			invested := v[1].Add(v[2]).Add(v[3])
			return divide(ROIC, nopat, invested, "invested_capital", mustBePositive)
		},
	},
	{
		Definition: Definition{EffectiveTaxRate, CategoryProfitability, UnitPercent,
			[]statement.Field{statement.IncomeTax, statement.PretaxIncome}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(EffectiveTaxRate, v[0], v[1], "pretax_income", mustBePositive)
		},
	},

	// === Leverage ===
	{
		Definition: Definition{TotalDebtRatio, CategoryLeverage, UnitPercent,
			[]statement.Field{statement.CurrentLiabilities, statement.NonCurrentLiabilities, statement.TotalAssets}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(TotalDebtRatio, v[0].Add(v[1]), v[2], "total_assets", mustBePositive)
		},
	},
	{
		Definition: Definition{DebtToEquity, CategoryLeverage, UnitRatio,
			[]statement.Field{statement.ShortTermDebt, statement.LongTermDebt, statement.Equity}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(DebtToEquity, v[0].Add(v[1]), v[2], "equity", mustBePositive)
		},
	},
	{
		Definition: Definition{DebtToEBITDA, CategoryLeverage, UnitRatio,
			[]statement.Field{statement.ShortTermDebt, statement.LongTermDebt, statement.EBITDA}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(DebtToEBITDA, v[0].Add(v[1]), v[2], "ebitda", mustBePositive)
		},
	},
	{
		Definition: Definition{InterestCoverage, CategoryLeverage, UnitTimes,
			[]statement.Field{statement.EBIT, statement.FinancialExpenses}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(InterestCoverage, v[0], v[1], "financial_expenses", mustBePositive)
		},
	},
	{
		Definition: Definition{FinancialLeverageDegree, CategoryLeverage, UnitRatio,
			[]statement.Field{statement.NetIncome, statement.Equity, statement.TotalAssets}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			roe, err := divide(FinancialLeverageDegree, v[0], v[1], "equity", mustBePositive)
			if err != nil {
				return decimal.Zero, err
			}
			roa, err := divide(FinancialLeverageDegree, v[0], v[2], "total_assets", mustBePositive)
			if err != nil {
				return decimal.Zero, err
			}
			return divide(FinancialLeverageDegree, roe, roa, "roa", mustBeNonZero)
		},
	},
	{
		Definition: Definition{EquityMultiplier, CategoryLeverage, UnitRatio,
			[]statement.Field{statement.TotalAssets, statement.Equity}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(EquityMultiplier, v[0], v[1], "equity", mustBePositive)
		},
	},

	// === Efficiency ===
	{
		Definition: Definition{AssetTurnover, CategoryEfficiency, UnitRatio,
			[]statement.Field{statement.NetRevenue, statement.TotalAssets}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return divide(AssetTurnover, v[0], v[1], "total_assets", mustBePositive)
		},
	},
	{
		Definition: Definition{InventoryDays, CategoryEfficiency, UnitDays,
			[]statement.Field{statement.Inventory, statement.COGS}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return daysOf(InventoryDays, v[0], v[1], "cogs")
		},
	},
	{
		Definition: Definition{ReceivableDays, CategoryEfficiency, UnitDays,
			[]statement.Field{statement.AccountsReceivable, statement.NetRevenue}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return daysOf(ReceivableDays, v[0], v[1], "net_revenue")
		},
	},
	{
		Definition: Definition{PayableDays, CategoryEfficiency, UnitDays,
			[]statement.Field{statement.AccountsPayable, statement.COGS}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			return daysOf(PayableDays, v[0], v[1], "cogs")
		},
	},
	{
		Definition: Definition{CashConversionCycle, CategoryEfficiency, UnitDays,
			[]statement.Field{statement.Inventory, statement.COGS, statement.AccountsReceivable, statement.NetRevenue, statement.AccountsPayable}},
		compute: func(v []decimal.Decimal, _ Options) (decimal.Decimal, error) {
			inv, err := daysOf(CashConversionCycle, v[0], v[1], "cogs")
			if err != nil {
				return decimal.Zero, err
			}
			rec, err := daysOf(CashConversionCycle, v[2], v[3], "net_revenue")
			if err != nil {
				return decimal.Zero, err
			}
			pay, err := daysOf(CashConversionCycle, v[4], v[1], "cogs")
			if err != nil {
				return decimal.Zero, err
			}
			return inv.Add(rec).Sub(pay), nil
		},
	},

	// === Cash-flow quality ===
	{
		Definition: Definition{OCFToNetIncome, CategoryCashFlow, UnitRatio,
			[]statement.Field{statement.NetIncome}},
		compute: func(v []decimal.Decimal, o Options) (decimal.Decimal, error) {
			if o.OperatingCashFlow == nil {
				return decimal.Zero, ErrCashFlowRequired
			}
			return divide(OCFToNetIncome, *o.OperatingCashFlow, v[0], "net_income", mustBePositive)
		},
	},
}

// Catalog every ratio definition in computation order
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	for i, c := range catalog {
		out[i] = c.Definition
		out[i].Requires = append([]statement.Field(nil), c.Requires...)
	}
	return out
}

// Lookup definition by name
func Lookup(name Name) (Definition, bool) {
	for _, c := range catalog {
		if c.Name == name {
			return c.Definition, true
		}
	}
	return Definition{}, false
}

// =============================================================================
// Computation (pure)
// =============================================================================

// Compute one ratio with DefaultOptions.
func Compute(name Name, r statement.Record) (Result, error) {
	return ComputeWith(name, r, DefaultOptions())
}

// ComputeWith one ratio.
// Absent fields → statement.MissingFieldError, undefined denominators → DivisionByZeroError.
func ComputeWith(name Name, r statement.Record, opts Options) (Result, error) {
	for _, c := range catalog {
		if c.Name != name {
			continue
		}
		v, err := r.Lookup(c.Requires...)
		if err != nil {
			return Result{}, err
		}
		raw, err := c.compute(v, opts)
		if err != nil {
			return Result{}, err
		}
		if c.Unit == UnitPercent {
			raw = raw.Mul(hundred)
		}
		return Result{Name: c.Name, Value: raw.InexactFloat64(), Unit: c.Unit, Category: c.Category}, nil
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnknownRatio, name)
}

// ComputeAll evaluates the whole catalog for one period. A failing ratio is
// recorded in Set.Failures and does not stop the others. The cash-flow quality
// ratio is skipped when no operating cash flow is supplied.
func ComputeAll(r statement.Record, opts Options) Set {
	set := Set{Period: r.Period()}
	for _, c := range catalog {
		if c.Category == CategoryCashFlow && opts.OperatingCashFlow == nil {
			continue
		}
		res, err := ComputeWith(c.Name, r, opts)
		if err != nil {
			set.Failures = append(set.Failures, Failure{Name: c.Name, Reason: err.Error(), Err: err})
			continue
		}
		set.Results = append(set.Results, res)
	}
	return set
}

// ReturnOnInvestedCapital ROIC at the given tax rate
func ReturnOnInvestedCapital(r statement.Record, taxRate float64) (Result, error) {
	return ComputeWith(ROIC, r, Options{TaxRate: taxRate})
}

// CashFlowQuality operating cash flow / net income
func CashFlowQuality(ocf decimal.Decimal, r statement.Record) (Result, error) {
	return ComputeWith(OCFToNetIncome, r, Options{OperatingCashFlow: &ocf})
}

// NOPAT ebit × (1 - taxRate)
func NOPAT(r statement.Record, taxRate float64) (decimal.Decimal, error) {
	ebit, err := r.Get(statement.EBIT)
	if err != nil {
		return decimal.Zero, err
	}
	return ebit.Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(taxRate))), nil
}

// InvestedCapital equity + short and long term financial debt
func InvestedCapital(r statement.Record) (decimal.Decimal, error) {
	v, err := r.Lookup(statement.Equity, statement.ShortTermDebt, statement.LongTermDebt)
	if err != nil {
		return decimal.Zero, err
	}
	return v[0].Add(v[1]).Add(v[2]), nil
}
