package ratios

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/finlab/internal/statement"
)

// CommonSizeLine one line of a vertical analysis
type CommonSizeLine struct {
	Field statement.Field `json:"field"`
	Value float64         `json:"value"`
	Share float64         `json:"share_pct"` // % of the base line
	Base  statement.Field `json:"base"`
}

// HorizontalLine one line of a horizontal analysis
type HorizontalLine struct {
	Field     statement.Field `json:"field"`
	Prior     float64         `json:"prior"`
	Current   float64         `json:"current"`
	Change    float64         `json:"change"`
	ChangePct *float64        `json:"change_pct,omitempty"` // nil when prior is zero
}

// CommonSize vertical analysis: income lines as % of net revenue, balance lines
// as % of total assets. A side whose base is absent or non-positive is skipped.
func CommonSize(r statement.Record) []CommonSizeLine {
	netRevenue, revErr := r.Get(statement.NetRevenue)
	totalAssets, taErr := r.Get(statement.TotalAssets)

	var out []CommonSizeLine
	for _, f := range r.Fields() {
		base, baseField := totalAssets, statement.TotalAssets
		ok := taErr == nil && totalAssets.IsPositive()
		if !f.IsBalance() {
			base, baseField = netRevenue, statement.NetRevenue
			ok = revErr == nil && netRevenue.IsPositive()
		}
		if !ok {
			continue
		}
		v, _ := r.Get(f)
		out = append(out, CommonSizeLine{
			Field: f,
			Value: v.InexactFloat64(),
			Share: v.Div(base).Mul(hundred).InexactFloat64(),
			Base:  baseField,
		})
	}
	return out
}

// Horizontal period-over-period change for every field present in both records.
func Horizontal(prior, current statement.Record) []HorizontalLine {
	var out []HorizontalLine
	for _, f := range current.Fields() {
		if !prior.Has(f) {
			continue
		}
		p, _ := prior.Get(f)
		c, _ := current.Get(f)
		line := HorizontalLine{
			Field:   f,
			Prior:   p.InexactFloat64(),
			Current: c.InexactFloat64(),
			Change:  c.Sub(p).InexactFloat64(),
		}
		if !p.IsZero() {
			pct := c.Sub(p).Div(p.Abs()).Mul(hundred).InexactFloat64()
			line.ChangePct = &pct
		}
		out = append(out, line)
	}
	return out
}

// Growth relative change of one field in percent; prior must be non-zero.
func Growth(prior, current statement.Record, f statement.Field) (float64, error) {
	p, err := prior.Get(f)
	if err != nil {
		return 0, err
	}
	c, err := current.Get(f)
	if err != nil {
		return 0, err
	}
	return GrowthRate(string(f), p, c)
}

// GrowthRate percentage change from prior to current, over |prior|
func GrowthRate(label string, prior, current decimal.Decimal) (float64, error) {
	g, err := divide(Name(label+"_growth"), current.Sub(prior), prior.Abs(), label, mustBeNonZero)
	if err != nil {
		return 0, err
	}
	return g.Mul(hundred).InexactFloat64(), nil
}

