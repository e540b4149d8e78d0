package cashflow

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Method depreciation method
type Method string

const (
	StraightLine      Method = "straight_line"
	SumOfYearsDigits  Method = "sum_of_years_digits"
	UnitsOfProduction Method = "units_of_production"
)

var (
	ErrInvalidAsset  = errors.New("invalid asset")
	ErrUnknownMethod = errors.New("unknown depreciation method")
)

// Asset depreciable fixed asset
type Asset struct {
	Cost       decimal.Decimal   `json:"cost"`
	Salvage    decimal.Decimal   `json:"salvage"`
	UsefulLife int               `json:"useful_life"`           // years
	TotalUnits decimal.Decimal   `json:"total_units,omitempty"` // units of production
	Units      []decimal.Decimal `json:"units,omitempty"`       // units produced per year
}

// ScheduleRow one year of a depreciation schedule
type ScheduleRow struct {
	Year        int             `json:"year"`
	Expense     decimal.Decimal `json:"expense"`
	Accumulated decimal.Decimal `json:"accumulated"`
	BookValue   decimal.Decimal `json:"book_value"`
}

func (a Asset) validate(m Method) error {
	switch {
	case a.Cost.IsNegative() || a.Salvage.IsNegative():
		return fmt.Errorf("%w: cost and salvage must be >= 0", ErrInvalidAsset)
	case a.Salvage.GreaterThan(a.Cost):
		return fmt.Errorf("%w: salvage %s exceeds cost %s", ErrInvalidAsset, a.Salvage, a.Cost)
	case m != UnitsOfProduction && a.UsefulLife <= 0:
		return fmt.Errorf("%w: useful life must be > 0", ErrInvalidAsset)
	case m == UnitsOfProduction && !a.TotalUnits.IsPositive():
		return fmt.Errorf("%w: total units must be > 0", ErrInvalidAsset)
	case m == UnitsOfProduction && len(a.Units) == 0:
		return fmt.Errorf("%w: units per year required", ErrInvalidAsset)
	}
	return nil
}

// Schedule computes the yearly depreciation expense. Expenses are rounded to
// cents and the last year absorbs the rounding so the book value lands on salvage.
// Units of production stops once the depreciable base is exhausted.
func Schedule(m Method, a Asset) ([]ScheduleRow, error) {
	if err := a.validate(m); err != nil {
		return nil, err
	}
	base := a.Cost.Sub(a.Salvage)

	var expenses []decimal.Decimal
	switch m {
	case StraightLine:
		yearly := base.Div(decimal.NewFromInt(int64(a.UsefulLife))).Round(2)
		for y := 0; y < a.UsefulLife; y++ {
			expenses = append(expenses, yearly)
		}
	case SumOfYearsDigits:
		n := a.UsefulLife
		sum := decimal.NewFromInt(int64(n * (n + 1) / 2))
		for y := 1; y <= n; y++ {
			remaining := decimal.NewFromInt(int64(n - y + 1))
			expenses = append(expenses, base.Mul(remaining).Div(sum).Round(2))
		}
	case UnitsOfProduction:
		for _, u := range a.Units {
			expenses = append(expenses, base.Mul(u).Div(a.TotalUnits).Round(2))
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, m)
	}

	rows := make([]ScheduleRow, 0, len(expenses))
	accumulated := decimal.Zero
	for i, exp := range expenses {
		remaining := base.Sub(accumulated)
		if exp.GreaterThan(remaining) {
			exp = remaining
		}
		if i == len(expenses)-1 && m != UnitsOfProduction {
			exp = remaining
		}
		accumulated = accumulated.Add(exp)
		rows = append(rows, ScheduleRow{
			Year:        i + 1,
			Expense:     exp,
			Accumulated: accumulated,
			BookValue:   a.Cost.Sub(accumulated),
		})
	}
	return rows, nil
}

// ExpenseForYear depreciation add-back for one year of the schedule
func ExpenseForYear(m Method, a Asset, year int) (decimal.Decimal, error) {
	rows, err := Schedule(m, a)
	if err != nil {
		return decimal.Zero, err
	}
	if year < 1 || year > len(rows) {
		return decimal.Zero, fmt.Errorf("%w: year %d outside 1..%d", ErrInvalidAsset, year, len(rows))
	}
	return rows[year-1].Expense, nil
}
