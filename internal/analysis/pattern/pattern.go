// Package pattern recognizes single and two-bar candlestick formations.
package pattern

import (
	"aurum/internal/market"
)

// Result names the detected formation and its directional read.
type Result struct {
	Name string `json:"name"`
	Bias string `json:"bias"` // "bullish", "bearish" or "neutral"
}

// Detect inspects the two most recent candles. Formation priority follows
// the reference order: engulfing patterns first, then hammer, then doji.
func Detect(candles []market.Candle) Result {
	if len(candles) < 2 {
		return Result{Name: "No Pattern", Bias: "neutral"}
	}
	curr := candles[len(candles)-1]
	prev := candles[len(candles)-2]

	switch {
	case isBullishEngulfing(curr, prev):
		return Result{Name: "Bullish Engulfing", Bias: "bullish"}
	case isBearishEngulfing(curr, prev):
		return Result{Name: "Bearish Engulfing", Bias: "bearish"}
	case isHammer(curr):
		return Result{Name: "Hammer", Bias: "bullish"}
	case isDoji(curr, 0.1):
		return Result{Name: "Doji", Bias: "neutral"}
	}
	return Result{Name: "No Clear Pattern", Bias: "neutral"}
}

func body(c market.Candle) float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

func isDoji(c market.Candle, threshold float64) bool {
	rng := c.High - c.Low
	if rng == 0 {
		return false
	}
	return body(c)/rng < threshold
}

func isHammer(c market.Candle) bool {
	b := body(c)
	if b == 0 {
		return false
	}
	lowerShadow := minOf(c.Open, c.Close) - c.Low
	upperShadow := c.High - maxOf(c.Open, c.Close)
	return lowerShadow > 2*b && upperShadow < b*0.5
}

func isBullishEngulfing(curr, prev market.Candle) bool {
	prevBearish := prev.Close < prev.Open
	currBullish := curr.Close > curr.Open
	engulfs := curr.Open < prev.Close && curr.Close > prev.Open
	return prevBearish && currBullish && engulfs
}

func isBearishEngulfing(curr, prev market.Candle) bool {
	prevBullish := prev.Close > prev.Open
	currBearish := curr.Close < curr.Open
	engulfs := curr.Open > prev.Close && curr.Close < prev.Open
	return prevBullish && currBearish && engulfs
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
