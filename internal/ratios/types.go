package ratios

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

// Name ratio identifier, also the indicator key in the threshold table
type Name string

// Unit how Value is expressed
type Unit string

const (
	UnitRatio   Unit = "ratio"
	UnitPercent Unit = "percent" // ×100
	UnitDays    Unit = "days"    // 360-day year
	UnitTimes   Unit = "times"
)

// Category ratio family
type Category string

const (
	CategoryLiquidity     Category = "liquidity"
	CategoryProfitability Category = "profitability"
	CategoryLeverage      Category = "leverage"
	CategoryEfficiency    Category = "efficiency"
	CategoryCashFlow      Category = "cash_flow"
)

// DefaultTaxRate IR + CSLL rate used for NOPAT when none is configured
const DefaultTaxRate = 0.34

// DaysInYear commercial year used by the days ratios
const DaysInYear = 360

// Result one derived indicator. Produced fresh per call, no identity.
type Result struct {
	Name     Name     `json:"name"`
	Value    float64  `json:"value"`
	Unit     Unit     `json:"unit"`
	Category Category `json:"category"`
}

// Fraction value as a plain fraction (percent / 100)
func (r Result) Fraction() float64 {
	if r.Unit == UnitPercent {
		return r.Value / 100
	}
	return r.Value
}

// Options inputs that are not statement line items
type Options struct {
	TaxRate           float64          // NOPAT / ROIC
	OperatingCashFlow *decimal.Decimal // cash-flow quality; nil skips it
}

// DefaultOptions tax rate at DefaultTaxRate, no cash flow
func DefaultOptions() Options {
	return Options{TaxRate: DefaultTaxRate}
}

// Definition catalog entry for one ratio
type Definition struct {
	Name     Name
	Category Category
	Unit     Unit
	Requires []statement.Field
}

// Failure a ratio that could not be computed for the period
type Failure struct {
	Name   Name   `json:"name"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Set every ratio computed for one period, in catalog order.
type Set struct {
	Period   string    `json:"period"`
	Results  []Result  `json:"results"`
	Failures []Failure `json:"failures,omitempty"`
}

// Get result by name
func (s Set) Get(name Name) (Result, bool) {
	for _, r := range s.Results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}

// Failed reports the failure for name, if any
func (s Set) Failed(name Name) (Failure, bool) {
	for _, f := range s.Failures {
		if f.Name == name {
			return f, true
		}
	}
	return Failure{}, false
}
