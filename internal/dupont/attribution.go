package dupont

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrLevelMismatch     = errors.New("decompositions have different levels")
	ErrNonPositiveFactor = errors.New("attribution needs strictly positive factors")
)

// Contribution one factor's part in an ROE change
type Contribution struct {
	Factor    FactorName `json:"factor"`
	Base      float64    `json:"base"`
	Compare   float64    `json:"compare"`
	ChangePct float64    `json:"change_pct"`
	Share     float64    `json:"share"` // fraction of the total log change in ROE
}

// Attribution explains the ROE gap between two decompositions (two periods, or two companies)
type Attribution struct {
	BasePeriod    string         `json:"base_period"`
	ComparePeriod string         `json:"compare_period"`
	BaseROE       float64        `json:"base_roe"`
	CompareROE    float64        `json:"compare_roe"`
	Contributions []Contribution `json:"contributions"`
	Driver        FactorName     `json:"driver"` // largest absolute share
}

// Attribute splits ln(ROE_compare / ROE_base) across factors. Because ROE is a
// product, the log change is exactly the sum of the per-factor log changes.
func Attribute(base, compare *Result) (*Attribution, error) {
	if base.Level != compare.Level || len(base.Factors) != len(compare.Factors) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLevelMismatch, base.Level, compare.Level)
	}

	logs := make([]float64, len(base.Factors))
	total := 0.0
	for i, bf := range base.Factors {
		cf := compare.Factors[i]
		if bf.Value <= 0 || cf.Value <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrNonPositiveFactor, bf.Name)
		}
		logs[i] = math.Log(cf.Value / bf.Value)
		total += logs[i]
	}

	out := &Attribution{
		BasePeriod:    base.Period,
		ComparePeriod: compare.Period,
		BaseROE:       base.DirectROE,
		CompareROE:    compare.DirectROE,
	}

	maxShare := -1.0
	for i, bf := range base.Factors {
		cf := compare.Factors[i]
		c := Contribution{
			Factor:    bf.Name,
			Base:      bf.Value,
			Compare:   cf.Value,
			ChangePct: (cf.Value/bf.Value - 1) * 100,
		}
		if total != 0 {
			c.Share = logs[i] / total
		}
		if math.Abs(logs[i]) > maxShare {
			maxShare = math.Abs(logs[i])
			out.Driver = bf.Name
		}
		out.Contributions = append(out.Contributions, c)
	}
	return out, nil
}
