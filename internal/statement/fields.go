package statement

import "fmt"

// Field identifies one line item of a period's statements.
// Wire keys are snake_case, the same keys used by the YAML case files and the HTTP adapter.
type Field string

// Income statement (DRE)
const (
	Revenue           Field = "revenue"
	Deductions        Field = "deductions"
	NetRevenue        Field = "net_revenue"
	COGS              Field = "cogs"
	GrossProfit       Field = "gross_profit"
	OperatingExpenses Field = "operating_expenses"
	Depreciation      Field = "depreciation"
	EBIT              Field = "ebit"
	EBITDA            Field = "ebitda"
	FinancialExpenses Field = "financial_expenses"
	FinancialIncome   Field = "financial_income"
	PretaxIncome      Field = "pretax_income"
	IncomeTax         Field = "income_tax"
	NetIncome         Field = "net_income"
)

// Balance sheet: assets
const (
	TotalAssets          Field = "total_assets"
	CurrentAssets        Field = "current_assets"
	Cash                 Field = "cash"
	ShortTermInvestments Field = "short_term_investments"
	AccountsReceivable   Field = "accounts_receivable"
	Inventory            Field = "inventory"
	PrepaidExpenses      Field = "prepaid_expenses"
	NonCurrentAssets     Field = "non_current_assets"
	LongTermReceivables  Field = "long_term_receivables"
	FixedAssets          Field = "fixed_assets"
	IntangibleAssets     Field = "intangible_assets"
)

// Balance sheet: liabilities and equity
const (
	CurrentLiabilities        Field = "current_liabilities"
	AccountsPayable           Field = "accounts_payable"
	OtherOperatingLiabilities Field = "other_operating_liabilities" // salaries, taxes payable
	ShortTermDebt             Field = "short_term_debt"
	NonCurrentLiabilities     Field = "non_current_liabilities"
	LongTermDebt              Field = "long_term_debt"
	Equity                    Field = "equity"
	ShareCapital              Field = "share_capital"
	RetainedEarnings          Field = "retained_earnings"
)

// incomeFields are flows for the period; everything else is a closing balance.
var incomeFields = []Field{
	Revenue, Deductions, NetRevenue, COGS, GrossProfit, OperatingExpenses, Depreciation,
	EBIT, EBITDA, FinancialExpenses, FinancialIncome, PretaxIncome, IncomeTax, NetIncome,
}

var balanceFields = []Field{
	TotalAssets, CurrentAssets, Cash, ShortTermInvestments, AccountsReceivable, Inventory,
	PrepaidExpenses, NonCurrentAssets, LongTermReceivables, FixedAssets, IntangibleAssets,
	CurrentLiabilities, AccountsPayable, OtherOperatingLiabilities, ShortTermDebt,
	NonCurrentLiabilities, LongTermDebt, Equity, ShareCapital, RetainedEarnings,
}

// signedFields may legitimately be negative (losses, accumulated deficits).
var signedFields = map[Field]bool{
	GrossProfit:      true,
	EBIT:             true,
	EBITDA:           true,
	PretaxIncome:     true,
	IncomeTax:        true,
	NetIncome:        true,
	Equity:           true,
	RetainedEarnings: true,
}

var known = func() map[Field]bool {
	m := make(map[Field]bool, len(incomeFields)+len(balanceFields))
	for _, f := range incomeFields {
		m[f] = true
	}
	for _, f := range balanceFields {
		m[f] = true
	}
	return m
}()

// AllFields returns every known field, income lines first.
func AllFields() []Field {
	out := make([]Field, 0, len(incomeFields)+len(balanceFields))
	out = append(out, incomeFields...)
	return append(out, balanceFields...)
}

// ParseField validates a wire key.
func ParseField(key string) (Field, error) {
	f := Field(key)
	if !known[f] {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, key)
	}
	return f, nil
}

// IsSigned reports whether the field may hold a negative value.
func (f Field) IsSigned() bool {
	return signedFields[f]
}

// IsBalance reports whether the field is a balance-sheet (stock) line.
func (f Field) IsBalance() bool {
	return known[f] && !isIncome(f)
}

func isIncome(f Field) bool {
	for _, x := range incomeFields {
		if x == f {
			return true
		}
	}
	return false
}
