package diagnostic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/finlab/internal/dupont"
	"github.com/wonny/finlab/internal/ratios"
	"github.com/wonny/finlab/internal/thresholds"
	"github.com/wonny/finlab/pkg/logger"
)

func resolve(t *testing.T, sector string) *thresholds.Resolved {
	t.Helper()
	res, err := thresholds.Default().Resolve(sector)
	require.NoError(t, err)
	return res
}

func set(period string, values map[ratios.Name]float64) ratios.Set {
	s := ratios.Set{Period: period}
	for _, def := range ratios.Catalog() {
		if v, ok := values[def.Name]; ok {
			s.Results = append(s.Results, ratios.Result{Name: def.Name, Value: v, Unit: def.Unit, Category: def.Category})
		}
	}
	return s
}

func TestEvaluateAbsolute(t *testing.T) {
	in := Input{
		Subject: "acme",
		Ratios: set("2023", map[ratios.Name]float64{
			ratios.CurrentLiquidity: 0.9,
			ratios.ROE:              15,
			ratios.TotalDebtRatio:   65,
		}),
	}
	in.Ratios.Failures = []ratios.Failure{{Name: ratios.InterestCoverage, Reason: "financial_expenses is zero"}}

	report := Evaluate(resolve(t, ""), in)

	assert.Equal(t, "2023", report.Period)
	require.Len(t, report.Findings, 3)

	cl, ok := report.Finding("current_liquidity", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityCritical, cl.Severity)
	require.NotNil(t, cl.Threshold)
	assert.Equal(t, 1.0, *cl.Threshold.Max)

	// ok findings are reported too
	roe, ok := report.Finding("roe", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityOK, roe.Severity)

	assert.Equal(t, 3, report.Score)
	assert.Equal(t, Counts{OK: 1, Attention: 1, Critical: 1}, report.Counts)
	assert.Equal(t, "moderate", report.Label)

	reasons := map[string]string{}
	for _, u := range report.Unavailable {
		reasons[u.Indicator] = u.Reason
	}
	assert.Equal(t, "financial_expenses is zero", reasons["interest_coverage"])
	assert.Equal(t, "not computed", reasons["quick_liquidity"])
	assert.NotContains(t, reasons, "current_liquidity")
}

func TestEvaluateNoAlert(t *testing.T) {
	report := Evaluate(resolve(t, ""), Input{Ratios: set("2023", map[ratios.Name]float64{
		ratios.CurrentLiquidity: 2.0,
		ratios.InterestCoverage: 5.0,
	})})

	assert.Equal(t, 0, report.Score)
	assert.Equal(t, "no_alert", report.Label)
	assert.Empty(t, report.Flagged())
}

func TestEvaluatePeer(t *testing.T) {
	in := Input{Ratios: set("2023", map[ratios.Name]float64{
		ratios.ROE:              7,   // median 14 → 50% below
		ratios.DebtToEBITDA:     2.4, // median 2.0 → 20% above, under the band
		ratios.GrossMargin:      21,  // median 28 → 25% below, peer only
		ratios.InterestCoverage: 3.0, // sector override: attention below 4
	})}

	report := Evaluate(resolve(t, "capital_goods"), in)
	assert.Equal(t, "capital_goods", report.Sector)

	roe, ok := report.Finding("roe", ModePeer)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityCritical, roe.Severity)
	assert.InDelta(t, -0.5, *roe.Deviation, 1e-12)
	assert.Equal(t, 14.0, *roe.Benchmark)

	d2e, ok := report.Finding("debt_to_ebitda", ModePeer)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityOK, d2e.Severity)

	gm, ok := report.Finding("gross_margin", ModePeer)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityAttention, gm.Severity)
	_, ok = report.Finding("gross_margin", ModeAbsolute)
	assert.False(t, ok)

	ic, ok := report.Finding("interest_coverage", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityAttention, ic.Severity)
}

func TestPeerDirection(t *testing.T) {
	bands := thresholds.PeerBands{Attention: 0.25, Critical: 0.5}

	tests := []struct {
		name         string
		value        float64
		higherBetter bool
		want         thresholds.Severity
	}{
		{"margin well above median", 20, true, thresholds.SeverityOK},
		{"margin 30% below", 7, true, thresholds.SeverityAttention},
		{"leverage 30% below", 7, false, thresholds.SeverityOK},
		{"leverage 60% above", 16, false, thresholds.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := peerFinding("x", "", tt.value, 10, bands, tt.higherBetter)
			assert.Equal(t, tt.want, f.Severity)
		})
	}
}

func TestHigherIsBetter(t *testing.T) {
	res := resolve(t, "")
	for name, want := range map[string]bool{
		"current_liquidity":     true,
		"roe":                   true,
		"total_debt_ratio":      false,
		"debt_to_ebitda":        false,
		"cash_conversion_cycle": false,
	} {
		ind, ok := res.Indicator(name)
		require.True(t, ok, name)
		assert.Equal(t, want, higherIsBetter(ind), name)
	}
}

func TestEvaluateDuPontFactors(t *testing.T) {
	dp := &dupont.Result{
		Level: dupont.FiveFactor,
		Factors: []dupont.Factor{
			{Name: dupont.TaxBurden, Value: 0.66},
			{Name: dupont.InterestBurden, Value: 0.6},
			{Name: dupont.OperatingMargin, Value: 0.1},
			{Name: dupont.AssetTurnover, Value: 1.0},
			{Name: dupont.EquityMultiplier, Value: 2.0},
		},
	}
	in := Input{
		Ratios: set("2023", map[ratios.Name]float64{ratios.NetMargin: 4.0}),
		DuPont: dp,
	}

	report := Evaluate(resolve(t, ""), in)

	ib, ok := report.Finding("interest_burden", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityCritical, ib.Severity)

	// the ratio (percent) wins over a factor with the same name
	nm, ok := report.Finding("net_margin", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, 4.0, nm.Value)

	em, ok := report.Finding("equity_multiplier", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, 2.0, em.Value)
}

func TestEvaluateDuPontUnavailable(t *testing.T) {
	in := Input{
		Ratios:    set("2023", nil),
		DuPontErr: errors.New("tax_burden undefined: loss-making period"),
	}
	report := Evaluate(resolve(t, ""), in)

	for _, u := range report.Unavailable {
		if u.Indicator == "interest_burden" {
			assert.Contains(t, u.Reason, "loss-making")
			return
		}
	}
	t.Fatal("interest_burden not reported unavailable")
}

func TestEvaluateExtraFindings(t *testing.T) {
	in := Input{
		Ratios: set("2023", nil),
		Extra: []Finding{
			{Indicator: FlagNegativeEquity, Mode: ModeTrend, Severity: thresholds.SeverityCritical},
		},
	}
	report := Evaluate(resolve(t, ""), in)

	require.Len(t, report.Findings, 1)
	assert.Equal(t, 2, report.Score)
	assert.Equal(t, "moderate", report.Label)
}

func TestClassifier(t *testing.T) {
	store, err := thresholds.NewStoreFromTable(thresholds.Default())
	require.NoError(t, err)

	c := NewClassifier(store, logger.Nop())

	report, err := c.Classify(Input{Subject: "acme", Sector: "retail", Ratios: set("2023", map[ratios.Name]float64{
		ratios.CurrentLiquidity: 1.1,
	})})
	require.NoError(t, err)
	assert.Equal(t, store.Hash(), report.TableHash)

	// retail override: 1.1 is attention, not critical
	cl, ok := report.Finding("current_liquidity", ModeAbsolute)
	require.True(t, ok)
	assert.Equal(t, thresholds.SeverityAttention, cl.Severity)

	_, err = c.Classify(Input{Sector: "mining"})
	assert.ErrorIs(t, err, thresholds.ErrUnknownSector)
}
