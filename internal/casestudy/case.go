// Package casestudy holds the worked cases used to teach and regression-test the engine.
// Each case is a YAML file: periods of statement figures, optional supplementary
// cash-flow items and the stress scenarios discussed with it.
package casestudy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/wonny/finlab/internal/cashflow"
	"github.com/wonny/finlab/internal/scenario"
	"github.com/wonny/finlab/internal/statement"
)

var (
	ErrUnknownCase   = errors.New("unknown case")
	ErrUnknownPeriod = errors.New("period not in case")
)

// Case one worked example
type Case struct {
	ID            string              `yaml:"id" json:"id" validate:"required"`
	Title         string              `yaml:"title" json:"title" validate:"required"`
	Module        int                 `yaml:"module" json:"module" validate:"gte=0"`
	Sector        string              `yaml:"sector,omitempty" json:"sector,omitempty"`
	Unit          string              `yaml:"unit,omitempty" json:"unit,omitempty"`
	Description   string              `yaml:"description,omitempty" json:"description,omitempty"`
	Periods       []Period            `yaml:"periods" json:"periods" validate:"required,min=1,dive"`
	Supplementary []Supplementary     `yaml:"supplementary,omitempty" json:"supplementary,omitempty" validate:"dive"`
	Scenarios     []scenario.Scenario `yaml:"scenarios,omitempty" json:"scenarios,omitempty"`
}

// Period statement figures keyed by field wire name
type Period struct {
	Period            string             `yaml:"period" json:"period" validate:"required"`
	Values            map[string]float64 `yaml:"values" json:"values" validate:"required,min=1"`
	OperatingCashFlow *float64           `yaml:"operating_cash_flow,omitempty" json:"operating_cash_flow,omitempty"`
}

// Supplementary cash-flow items between two consecutive periods
type Supplementary struct {
	From             string   `yaml:"from" json:"from" validate:"required"`
	To               string   `yaml:"to" json:"to" validate:"required,nefield=From"`
	Depreciation     *float64 `yaml:"depreciation,omitempty" json:"depreciation,omitempty" validate:"omitempty,gte=0"`
	NewBorrowing     *float64 `yaml:"new_borrowing,omitempty" json:"new_borrowing,omitempty" validate:"omitempty,gte=0"`
	DebtRepayment    float64  `yaml:"debt_repayment,omitempty" json:"debt_repayment,omitempty" validate:"gte=0"`
	Dividends        float64  `yaml:"dividends,omitempty" json:"dividends,omitempty" validate:"gte=0"`
	Capex            float64  `yaml:"capex,omitempty" json:"capex,omitempty" validate:"gte=0"`
	DisposalProceeds float64  `yaml:"disposal_proceeds,omitempty" json:"disposal_proceeds,omitempty" validate:"gte=0"`
	CapitalIncrease  float64  `yaml:"capital_increase,omitempty" json:"capital_increase,omitempty" validate:"gte=0"`
}

// =============================================================================
// Loading
// =============================================================================

var caseValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// LoadFile reads one case file
func LoadFile(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a case.
// Every period must build a Record and every scenario shock must be valid.
func Parse(data []byte) (*Case, error) {
	var c Case
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, err
	}

	if err := caseValidator.Struct(&c); err != nil {
		return nil, fmt.Errorf("case %q: %w", c.ID, err)
	}

	seen := make(map[string]bool, len(c.Periods))
	for _, p := range c.Periods {
		if seen[p.Period] {
			return nil, fmt.Errorf("case %q: duplicate period %q", c.ID, p.Period)
		}
		seen[p.Period] = true
		if _, err := statement.FromFloats(p.Period, p.Values); err != nil {
			return nil, fmt.Errorf("case %q period %s: %w", c.ID, p.Period, err)
		}
	}
	for _, s := range c.Supplementary {
		if !seen[s.From] || !seen[s.To] {
			return nil, fmt.Errorf("case %q: supplementary %s→%s: %w", c.ID, s.From, s.To, ErrUnknownPeriod)
		}
	}
	for _, sc := range c.Scenarios {
		for _, s := range sc.Shocks {
			if err := s.Validate(); err != nil {
				return nil, fmt.Errorf("case %q scenario %q: %w", c.ID, sc.Name, err)
			}
		}
	}
	return &c, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Records every period as a statement Record, in file order
func (c *Case) Records() ([]statement.Record, error) {
	out := make([]statement.Record, 0, len(c.Periods))
	for _, p := range c.Periods {
		r, err := statement.FromFloats(p.Period, p.Values)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Record one period
func (c *Case) Record(period string) (statement.Record, error) {
	p, err := c.period(period)
	if err != nil {
		return statement.Record{}, err
	}
	return statement.FromFloats(p.Period, p.Values)
}

// Latest last period in file order
func (c *Case) Latest() (statement.Record, error) {
	return c.Record(c.Periods[len(c.Periods)-1].Period)
}

// OperatingCashFlow reported OCF of a period, nil if the case does not give one
func (c *Case) OperatingCashFlow(period string) (*decimal.Decimal, error) {
	p, err := c.period(period)
	if err != nil {
		return nil, err
	}
	if p.OperatingCashFlow == nil {
		return nil, nil
	}
	d := decimal.NewFromFloat(*p.OperatingCashFlow)
	return &d, nil
}

// Supplementary cash-flow items between from and to.
// Cases without an entry get the zero value: no dividends, no capex, no new funding.
func (c *Case) SupplementaryFor(from, to string) cashflow.Supplementary {
	for _, s := range c.Supplementary {
		if s.From == from && s.To == to {
			return s.toCashflow()
		}
	}
	return cashflow.Supplementary{}
}

func (c *Case) period(name string) (Period, error) {
	for _, p := range c.Periods {
		if p.Period == name {
			return p, nil
		}
	}
	return Period{}, fmt.Errorf("%w: %s has no %q", ErrUnknownPeriod, c.ID, name)
}

func (s Supplementary) toCashflow() cashflow.Supplementary {
	out := cashflow.Supplementary{
		DebtRepayment:    decimal.NewFromFloat(s.DebtRepayment),
		Dividends:        decimal.NewFromFloat(s.Dividends),
		Capex:            decimal.NewFromFloat(s.Capex),
		DisposalProceeds: decimal.NewFromFloat(s.DisposalProceeds),
		CapitalIncrease:  decimal.NewFromFloat(s.CapitalIncrease),
	}
	if s.Depreciation != nil {
		out.Depreciation = decimal.NewNullDecimal(decimal.NewFromFloat(*s.Depreciation))
	}
	if s.NewBorrowing != nil {
		out.NewBorrowing = decimal.NewNullDecimal(decimal.NewFromFloat(*s.NewBorrowing))
	}
	return out
}
