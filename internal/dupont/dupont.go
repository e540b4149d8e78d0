package dupont

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/statement"
)

// Level decomposition depth
type Level int

const (
	ThreeFactor Level = 3
	FiveFactor  Level = 5
)

// DefaultTolerance relative tolerance between factor product and direct ROE
const DefaultTolerance = 1e-6

// RuleReconciliation InvariantViolationError.Rule for a product/ROE mismatch
const RuleReconciliation = "dupont_reconciliation"

var (
	ErrLossMakingPeriod = errors.New("pretax income not positive: tax burden undefined")
	ErrInvalidLevel     = errors.New("invalid decomposition level")
)

// FactorName identifies one DuPont factor
type FactorName string

const (
	NetMargin        FactorName = "net_margin"
	TaxBurden        FactorName = "tax_burden"      // net income / pretax income
	InterestBurden   FactorName = "interest_burden" // pretax income / ebit
	OperatingMargin  FactorName = "operating_margin"
	AssetTurnover    FactorName = "asset_turnover"
	EquityMultiplier FactorName = "equity_multiplier"
)

// UndefinedFactorError a factor cannot be computed meaningfully for the period
type UndefinedFactorError struct {
	Factor FactorName
	Period string
	Value  decimal.Decimal
	cause  error
}

func (e *UndefinedFactorError) Error() string {
	return fmt.Sprintf("%s undefined for period %s (%s): %v", e.Factor, e.Period, e.Value, e.cause)
}

func (e *UndefinedFactorError) Is(target error) bool {
	return target == e.cause
}

func (e *UndefinedFactorError) Unwrap() error {
	return e.cause
}

// Factor one multiplicative component, expressed as a fraction
type Factor struct {
	Name  FactorName `json:"name"`
	Value float64    `json:"value"`
}

// Result ordered factors whose product reconciles to ROE
type Result struct {
	Level     Level    `json:"level"`
	Period    string   `json:"period"`
	Factors   []Factor `json:"factors"`
	Product   float64  `json:"product"`
	DirectROE float64  `json:"direct_roe"` // fraction
	Gap       float64  `json:"gap"`        // product - direct
}

// Factor looks up a factor value by name
func (r *Result) Factor(name FactorName) (float64, bool) {
	for _, f := range r.Factors {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// ROEPercent direct ROE ×100
func (r *Result) ROEPercent() float64 {
	return r.DirectROE * 100
}

// Decomposer DuPont decomposition (pure calculator)
type Decomposer struct {
	tolerance float64
}

// NewDecomposer tolerance <= 0 falls back to DefaultTolerance
func NewDecomposer(tolerance float64) *Decomposer {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Decomposer{tolerance: tolerance}
}

// Decompose with DefaultTolerance
func Decompose(r statement.Record, level Level) (*Result, error) {
	return NewDecomposer(DefaultTolerance).Decompose(r, level)
}

// Decompose splits ROE into 3 factors (net margin × asset turnover × equity multiplier)
// or 5 factors (tax burden × interest burden × operating margin × asset turnover ×
// equity multiplier). Factors come from the ratio library; the product must
// reconcile with net income / equity.
func (d *Decomposer) Decompose(r statement.Record, level Level) (*Result, error) {
	direct, err := ratios.Compute(ratios.ROE, r)
	if err != nil {
		return nil, err
	}

	var factors []Factor
	switch level {
	case ThreeFactor:
		factors, err = threeFactors(r)
	case FiveFactor:
		factors, err = fiveFactors(r)
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidLevel, level)
	}
	if err != nil {
		return nil, err
	}

	product, gap, err := Reconcile(factors, direct.Fraction(), d.tolerance)
	if err != nil {
		var inv *statement.InvariantViolationError
		if errors.As(err, &inv) {
			inv.Period = r.Period()
		}
		return nil, err
	}

	return &Result{
		Level:     level,
		Period:    r.Period(),
		Factors:   factors,
		Product:   product,
		DirectROE: direct.Fraction(),
		Gap:       gap,
	}, nil
}

// Reconcile multiplies the factors and checks the product against direct ROE
// within a relative tolerance.
func Reconcile(factors []Factor, direct, tolerance float64) (product, gap float64, err error) {
	product = 1.0
	for _, f := range factors {
		product *= f.Value
	}
	gap = product - direct

	scale := math.Max(math.Abs(direct), math.Abs(product))
	if math.Abs(gap) > tolerance*scale {
		return product, gap, &statement.InvariantViolationError{
			Rule:  RuleReconciliation,
			Left:  decimal.NewFromFloat(product),
			Right: decimal.NewFromFloat(direct),
		}
	}
	return product, gap, nil
}

func threeFactors(r statement.Record) ([]Factor, error) {
	names := []ratios.Name{ratios.NetMargin, ratios.AssetTurnover, ratios.EquityMultiplier}
	fnames := []FactorName{NetMargin, AssetTurnover, EquityMultiplier}
	return fromLibrary(r, names, fnames)
}

func fiveFactors(r statement.Record) ([]Factor, error) {
	v, err := r.Lookup(statement.NetIncome, statement.PretaxIncome, statement.EBIT)
	if err != nil {
		return nil, err
	}
	netIncome, pretax, ebit := v[0], v[1], v[2]

	if !pretax.IsPositive() {
		return nil, &UndefinedFactorError{Factor: TaxBurden, Period: r.Period(), Value: pretax, cause: ErrLossMakingPeriod}
	}
	// negative EBIT flips the interest burden and the operating margin together
	if ebit.IsZero() {
		return nil, &ratios.DivisionByZeroError{Ratio: ratios.Name(InterestBurden), Denominator: "ebit", Value: ebit}
	}

	rest, err := fromLibrary(r,
		[]ratios.Name{ratios.EBITMargin, ratios.AssetTurnover, ratios.EquityMultiplier},
		[]FactorName{OperatingMargin, AssetTurnover, EquityMultiplier})
	if err != nil {
		return nil, err
	}

	factors := []Factor{
		{Name: TaxBurden, Value: netIncome.Div(pretax).InexactFloat64()},
		{Name: InterestBurden, Value: pretax.Div(ebit).InexactFloat64()},
	}
	return append(factors, rest...), nil
}

func fromLibrary(r statement.Record, names []ratios.Name, fnames []FactorName) ([]Factor, error) {
	out := make([]Factor, len(names))
	for i, n := range names {
		res, err := ratios.Compute(n, r)
		if err != nil {
			return nil, err
		}
		out[i] = Factor{Name: fnames[i], Value: res.Fraction()}
	}
	return out, nil
}
