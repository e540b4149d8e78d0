package scenario

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

var ErrInvalidStructure = errors.New("invalid capital structure")

// Structure stylised company: same assets, operating return and tax, only
// the debt share and its cost vary.
type Structure struct {
	TotalAssets  decimal.Decimal `json:"total_assets"`
	DebtShare    float64         `json:"debt_share"`    // 0 ≤ share < 1
	InterestRate float64         `json:"interest_rate"` // annual, on debt
	OperatingROA float64         `json:"operating_roa"` // ebit / total assets
	TaxRate      float64         `json:"tax_rate"`
}

// LeverageResult ROE, degree of financial leverage and coverage for a Structure
type LeverageResult struct {
	Debt             decimal.Decimal `json:"debt"`
	Equity           decimal.Decimal `json:"equity"`
	EBIT             decimal.Decimal `json:"ebit"`
	Interest         decimal.Decimal `json:"interest"`
	PretaxIncome     decimal.Decimal `json:"pretax_income"`
	IncomeTax        decimal.Decimal `json:"income_tax"`
	NetIncome        decimal.Decimal `json:"net_income"`
	ROE              float64         `json:"roe"`                         // percent
	GAF              float64         `json:"gaf"`                         // ROE / operating ROA
	InterestCoverage *float64        `json:"interest_coverage,omitempty"` // nil without debt
}

func (s Structure) validate() error {
	switch {
	case !s.TotalAssets.IsPositive():
		return fmt.Errorf("%w: total assets must be > 0", ErrInvalidStructure)
	case s.DebtShare < 0 || s.DebtShare >= 1:
		return fmt.Errorf("%w: debt share must be in [0, 1)", ErrInvalidStructure)
	case s.InterestRate < 0:
		return fmt.Errorf("%w: interest rate must be >= 0", ErrInvalidStructure)
	case s.TaxRate < 0 || s.TaxRate >= 1:
		return fmt.Errorf("%w: tax rate must be in [0, 1)", ErrInvalidStructure)
	}
	return nil
}

// Leverage ROE of a capital structure. No tax is charged on a loss, so ROE
// strictly decreases with the interest rate whenever there is debt.
func Leverage(s Structure) (LeverageResult, error) {
	if err := s.validate(); err != nil {
		return LeverageResult{}, err
	}

	out := LeverageResult{}
	out.Debt = s.TotalAssets.Mul(decimal.NewFromFloat(s.DebtShare))
	out.Equity = s.TotalAssets.Sub(out.Debt)
	out.EBIT = s.TotalAssets.Mul(decimal.NewFromFloat(s.OperatingROA))
	out.Interest = out.Debt.Mul(decimal.NewFromFloat(s.InterestRate))
	out.PretaxIncome = out.EBIT.Sub(out.Interest)
	out.IncomeTax = statement.TaxAtRate(out.PretaxIncome, s.TaxRate)
	out.NetIncome = out.PretaxIncome.Sub(out.IncomeTax)

	out.ROE = out.NetIncome.Div(out.Equity).InexactFloat64() * 100
	if s.OperatingROA != 0 {
		out.GAF = out.ROE / (s.OperatingROA * 100)
	}
	if out.Interest.IsPositive() {
		cov := out.EBIT.Div(out.Interest).InexactFloat64()
		out.InterestCoverage = &cov
	}
	return out, nil
}

// SensitivityPoint ROE at one operating ROA
type SensitivityPoint struct {
	OperatingROA float64 `json:"operating_roa"`
	ROE          float64 `json:"roe"`
}

// Sensitivity ROE across operating ROAs, everything else fixed
func Sensitivity(s Structure, roas []float64) ([]SensitivityPoint, error) {
	points := make([]SensitivityPoint, 0, len(roas))
	for _, roa := range roas {
		s.OperatingROA = roa
		res, err := Leverage(s)
		if err != nil {
			return nil, err
		}
		points = append(points, SensitivityPoint{OperatingROA: roa, ROE: res.ROE})
	}
	return points, nil
}

// BreakEvenRate interest rate above which debt lowers ROE (valid while pretax income stays positive)
func BreakEvenRate(s Structure) float64 {
	return s.OperatingROA
}
