package scenario

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func structure(debtShare, rate float64) Structure {
	return Structure{
		TotalAssets:  decimal.NewFromInt(1_000_000),
		DebtShare:    debtShare,
		InterestRate: rate,
		OperatingROA: 0.15,
		TaxRate:      0.34,
	}
}

func TestLeverage(t *testing.T) {
	// conservative: 30% debt at 12%
	a, err := Leverage(structure(0.30, 0.12))
	require.NoError(t, err)
	assert.Equal(t, "36000", a.Interest.String())
	assert.Equal(t, "75240", a.NetIncome.String())
	assert.InDelta(t, 10.748571, a.ROE, 1e-6)
	assert.InDelta(t, 0.716571, a.GAF, 1e-6)
	require.NotNil(t, a.InterestCoverage)
	assert.InDelta(t, 4.1667, *a.InterestCoverage, 1e-4)

	// leveraged: 70% debt at 15% (cost = ROA: leverage adds nothing)
	b, err := Leverage(structure(0.70, 0.15))
	require.NoError(t, err)
	assert.InDelta(t, 9.9, b.ROE, 1e-9)
	assert.InDelta(t, 1.4286, *b.InterestCoverage, 1e-4)

	// no debt: ROE = ROA × (1 - t)
	c, err := Leverage(structure(0, 0.12))
	require.NoError(t, err)
	assert.InDelta(t, 9.9, c.ROE, 1e-9)
	assert.Nil(t, c.InterestCoverage)
}

func TestLeverageMonotonicInRate(t *testing.T) {
	prev := 0.0
	for i := 0; i <= 40; i++ {
		rate := float64(i) * 0.01
		res, err := Leverage(structure(0.6, rate))
		require.NoError(t, err)
		if i > 0 {
			assert.Less(t, res.ROE, prev, "rate %.2f", rate)
		}
		prev = res.ROE
	}
}

func TestLeverageBreakEven(t *testing.T) {
	s := structure(0.5, 0)
	unlevered, err := Leverage(structure(0, 0))
	require.NoError(t, err)

	s.InterestRate = BreakEvenRate(s) - 0.01
	below, _ := Leverage(s)
	s.InterestRate = BreakEvenRate(s) + 0.01
	above, _ := Leverage(s)

	assert.Greater(t, below.ROE, unlevered.ROE)
	assert.Less(t, above.ROE, unlevered.ROE)
}

func TestSensitivity(t *testing.T) {
	points, err := Sensitivity(structure(0.7, 0.15), []float64{0.05, 0.10, 0.20})
	require.NoError(t, err)
	require.Len(t, points, 3)

	// ROA 5%: EBIT 50k < interest 105k, loss untaxed → ROE -18.33%
	assert.InDelta(t, -55000.0/300000*100, points[0].ROE, 1e-9)
	assert.Less(t, points[0].ROE, points[1].ROE)
	assert.Less(t, points[1].ROE, points[2].ROE)
}

func TestLeverageInvalid(t *testing.T) {
	for _, s := range []Structure{
		structure(1.0, 0.1),
		structure(-0.1, 0.1),
		structure(0.5, -0.01),
		{TotalAssets: decimal.Zero, TaxRate: 0.34},
	} {
		_, err := Leverage(s)
		assert.ErrorIs(t, err, ErrInvalidStructure)
	}
}
