// Package plan turns a directional decision into a risk-sized trade plan.
package plan

import (
	"errors"
	"fmt"

	talib "github.com/markcheno/go-talib"

	"aurum/internal/decision"
	"aurum/internal/market"
	"aurum/internal/pkg/trading"
)

// ErrInsufficientData marks a planning precondition failure (not enough
// bars or zero volatility). Callers skip the cycle; it is never a fault.
var ErrInsufficientData = errors.New("plan: insufficient data")

// RiskMode selects how much of the balance one trade risks.
type RiskMode string

const (
	RiskModeSafer  RiskMode = "SAFER"
	RiskModeStrict RiskMode = "STRICT"
)

// RiskConfig holds instrument and risk parameters for plan sizing.
type RiskConfig struct {
	Mode           RiskMode `mapstructure:"mode"`
	RiskPerTrade   float64  `mapstructure:"risk_per_trade"`
	StrictRisk     float64  `mapstructure:"strict_risk"`
	RewardMultiple float64  `mapstructure:"reward_multiple"`
	ATRPeriod      int      `mapstructure:"atr_period"`
	ATRMultiplier  float64  `mapstructure:"atr_multiplier"`
	PipSize        float64  `mapstructure:"pip_size"`
	PipValuePerLot float64  `mapstructure:"pip_value_per_lot"`
	LotStep        float64  `mapstructure:"lot_step"`
	MinLot         float64  `mapstructure:"min_lot"`
	MaxLot         float64  `mapstructure:"max_lot"`
	AssumedSpread  float64  `mapstructure:"assumed_spread"`
}

// Validate enforces the sizing preconditions once, at startup.
func (c RiskConfig) Validate() error {
	if c.Mode != RiskModeSafer && c.Mode != RiskModeStrict {
		return fmt.Errorf("plan: unknown risk mode %q", c.Mode)
	}
	if c.RiskPerTrade <= 0 || c.RiskPerTrade >= 1 {
		return fmt.Errorf("plan: risk_per_trade must be in (0, 1), got %v", c.RiskPerTrade)
	}
	if c.StrictRisk <= 0 || c.StrictRisk >= 1 {
		return fmt.Errorf("plan: strict_risk must be in (0, 1), got %v", c.StrictRisk)
	}
	if c.RewardMultiple <= 0 {
		return fmt.Errorf("plan: reward_multiple must be > 0, got %v", c.RewardMultiple)
	}
	if c.ATRPeriod <= 0 {
		return fmt.Errorf("plan: atr_period must be > 0, got %d", c.ATRPeriod)
	}
	if c.ATRMultiplier <= 0 {
		return fmt.Errorf("plan: atr_multiplier must be > 0, got %v", c.ATRMultiplier)
	}
	if c.PipSize <= 0 || c.PipValuePerLot <= 0 {
		return fmt.Errorf("plan: pip_size and pip_value_per_lot must be > 0")
	}
	if c.LotStep <= 0 || c.MinLot <= 0 || c.MaxLot < c.MinLot {
		return fmt.Errorf("plan: broker lot limits invalid (step=%v min=%v max=%v)",
			c.LotStep, c.MinLot, c.MaxLot)
	}
	if c.AssumedSpread < 0 {
		return fmt.Errorf("plan: assumed_spread must be >= 0, got %v", c.AssumedSpread)
	}
	return nil
}

func (c RiskConfig) riskFraction() float64 {
	if c.Mode == RiskModeStrict {
		return c.StrictRisk
	}
	return c.RiskPerTrade
}

// TradePlan is the immutable output of one planning pass. Prices are 2dp,
// pip distances whole pips.
type TradePlan struct {
	Direction      decision.Verdict `json:"direction"`
	Entry          float64          `json:"entry"`
	StopLoss       float64          `json:"stop_loss"`
	TakeProfit     float64          `json:"take_profit"`
	Lots           float64          `json:"lots"`
	StopPips       int              `json:"stop_pips"`
	TargetPips     int              `json:"target_pips"`
	RewardMultiple float64          `json:"reward_multiple"`
	RiskAmount     float64          `json:"risk_amount"`
	PotentialLoss  float64          `json:"potential_loss"`
	PotentialGain  float64          `json:"potential_gain"`
	ATR            float64          `json:"atr"`
}

// ATR returns the latest true-range moving average over the candle window,
// or 0 when there is not enough history.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) <= period {
		return 0
	}
	_, highs, lows, closes, _ := market.Series(candles)
	series := talib.Atr(highs, lows, closes, period)
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Create builds a trade plan for the given direction out of the current
// bar window and balance. Returns ErrInsufficientData when the window is
// too short or volatility is zero; never guesses.
func Create(candles []market.Candle, direction decision.Verdict, balance float64, cfg RiskConfig) (*TradePlan, error) {
	if direction != decision.VerdictBuy && direction != decision.VerdictSell {
		return nil, fmt.Errorf("plan: direction must be BUY or SELL, got %s", direction)
	}
	if len(candles) == 0 {
		return nil, ErrInsufficientData
	}
	entry := trading.Round2(market.LastClose(candles))
	atr := ATR(candles, cfg.ATRPeriod)
	if atr <= 0 {
		return nil, ErrInsufficientData
	}

	stopPips := trading.RoundInt(cfg.ATRMultiplier * atr / cfg.PipSize)
	if stopPips <= 0 {
		return nil, ErrInsufficientData
	}
	targetPips := trading.RoundInt(cfg.RewardMultiple * float64(stopPips))

	var stop, target float64
	if direction == decision.VerdictBuy {
		stop = trading.Round2(entry - float64(stopPips)*cfg.PipSize)
		target = trading.Round2(entry + float64(targetPips)*cfg.PipSize)
		// assume the stop-side fill is worse by the spread
		stop = trading.Round2(stop - cfg.AssumedSpread)
	} else {
		stop = trading.Round2(entry + float64(stopPips)*cfg.PipSize)
		target = trading.Round2(entry - float64(targetPips)*cfg.PipSize)
		stop = trading.Round2(stop + cfg.AssumedSpread)
	}

	riskAmount := trading.Round2(cfg.riskFraction() * balance)
	lots := lotSize(riskAmount, stopPips, cfg)

	return &TradePlan{
		Direction:      direction,
		Entry:          entry,
		StopLoss:       stop,
		TakeProfit:     target,
		Lots:           lots,
		StopPips:       stopPips,
		TargetPips:     targetPips,
		RewardMultiple: cfg.RewardMultiple,
		RiskAmount:     riskAmount,
		PotentialLoss:  trading.Round2(float64(stopPips) * cfg.PipValuePerLot * lots),
		PotentialGain:  trading.Round2(float64(targetPips) * cfg.PipValuePerLot * lots),
		ATR:            trading.Round2(atr),
	}, nil
}

func lotSize(riskAmount float64, stopPips int, cfg RiskConfig) float64 {
	if stopPips <= 0 {
		return cfg.MinLot
	}
	lots := riskAmount / (float64(stopPips) * cfg.PipValuePerLot)
	lots = trading.RoundStep(lots, cfg.LotStep)
	return trading.Round2(trading.Clamp(lots, cfg.MinLot, cfg.MaxLot))
}
