package plan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aurum/internal/decision"
	"aurum/internal/market"
)

func testRiskConfig() RiskConfig {
	return RiskConfig{
		Mode:           RiskModeSafer,
		RiskPerTrade:   0.01,
		StrictRisk:     0.20,
		RewardMultiple: 2.0,
		ATRPeriod:      14,
		ATRMultiplier:  1.5,
		PipSize:        0.01,
		PipValuePerLot: 1.0,
		LotStep:        0.01,
		MinLot:         0.01,
		MaxLot:         50.0,
		AssumedSpread:  0.05,
	}
}

// syntheticCandles builds a window with a constant true range so the ATR is
// predictable: each bar spans rangeSize around a flat close.
func syntheticCandles(n int, close, rangeSize float64) []market.Candle {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime:  int64(i) * 60_000,
			CloseTime: int64(i+1)*60_000 - 1,
			Open:      close,
			High:      close + rangeSize/2,
			Low:       close - rangeSize/2,
			Close:     close,
			Volume:    100,
		}
	}
	return candles
}

func TestCreateBuyPlanLevels(t *testing.T) {
	candles := syntheticCandles(60, 2650.00, 2.0)
	p, err := Create(candles, decision.VerdictBuy, 1000, testRiskConfig())
	require.NoError(t, err)

	assert.Equal(t, 2650.00, p.Entry)
	assert.Less(t, p.StopLoss, p.Entry)
	assert.Greater(t, p.TakeProfit, p.Entry)
	// ATR = 2.0 -> stop 1.5*2.0 = 3.00 -> 300 pips, target 600 pips
	assert.Equal(t, 300, p.StopPips)
	assert.Equal(t, 600, p.TargetPips)
	// stop carries the 0.05 spread allowance on top of the pip distance
	assert.InDelta(t, 2650.00-3.00-0.05, p.StopLoss, 1e-9)
	assert.InDelta(t, 2650.00+6.00, p.TakeProfit, 1e-9)
}

func TestCreateSellPlanMirrors(t *testing.T) {
	candles := syntheticCandles(60, 2650.00, 2.0)
	p, err := Create(candles, decision.VerdictSell, 1000, testRiskConfig())
	require.NoError(t, err)

	assert.Greater(t, p.StopLoss, p.Entry)
	assert.Less(t, p.TakeProfit, p.Entry)
	assert.InDelta(t, 2650.00+3.00+0.05, p.StopLoss, 1e-9)
	assert.InDelta(t, 2650.00-6.00, p.TakeProfit, 1e-9)
}

func TestCreateGainLossRatioMatchesRewardMultiple(t *testing.T) {
	cfg := testRiskConfig()
	for _, balance := range []float64{20, 500, 10_000} {
		candles := syntheticCandles(60, 2650.00, 1.2)
		p, err := Create(candles, decision.VerdictBuy, balance, cfg)
		require.NoError(t, err)
		require.Greater(t, p.PotentialLoss, 0.0)
		ratio := p.PotentialGain / p.PotentialLoss
		assert.InDelta(t, cfg.RewardMultiple, ratio, 0.02, "balance %v", balance)
	}
}

func TestCreateRiskModeFraction(t *testing.T) {
	candles := syntheticCandles(60, 2650.00, 2.0)

	safer, err := Create(candles, decision.VerdictBuy, 1000, testRiskConfig())
	require.NoError(t, err)
	assert.Equal(t, 10.00, safer.RiskAmount)

	strictCfg := testRiskConfig()
	strictCfg.Mode = RiskModeStrict
	strict, err := Create(candles, decision.VerdictBuy, 1000, strictCfg)
	require.NoError(t, err)
	assert.Equal(t, 200.00, strict.RiskAmount)
}

func TestCreateLotsClampedToBrokerLimits(t *testing.T) {
	cfg := testRiskConfig()
	candles := syntheticCandles(60, 2650.00, 2.0)

	tiny, err := Create(candles, decision.VerdictBuy, 1, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.MinLot, tiny.Lots)

	huge, err := Create(candles, decision.VerdictBuy, 100_000_000, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxLot, huge.Lots)

	mid, err := Create(candles, decision.VerdictBuy, 30_000, cfg)
	require.NoError(t, err)
	steps := mid.Lots / cfg.LotStep
	assert.InDelta(t, math.Round(steps), steps, 1e-6)
}

func TestCreateInsufficientData(t *testing.T) {
	cfg := testRiskConfig()

	_, err := Create(nil, decision.VerdictBuy, 1000, cfg)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// too few bars for the ATR period
	_, err = Create(syntheticCandles(5, 2650.00, 2.0), decision.VerdictBuy, 1000, cfg)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// zero-range bars: no volatility, no plan
	_, err = Create(syntheticCandles(60, 2650.00, 0), decision.VerdictBuy, 1000, cfg)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCreateRejectsNeutralDirection(t *testing.T) {
	_, err := Create(syntheticCandles(60, 2650.00, 2.0), decision.VerdictNeutral, 1000, testRiskConfig())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientData)
}

func TestRiskConfigValidate(t *testing.T) {
	require.NoError(t, testRiskConfig().Validate())

	bad := testRiskConfig()
	bad.Mode = "YOLO"
	assert.Error(t, bad.Validate())

	bad = testRiskConfig()
	bad.RewardMultiple = 0
	assert.Error(t, bad.Validate())

	bad = testRiskConfig()
	bad.MaxLot = 0.005
	assert.Error(t, bad.Validate())
}
