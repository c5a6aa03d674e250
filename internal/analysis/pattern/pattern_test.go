package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"aurum/internal/market"
)

func candle(open, high, low, close float64) market.Candle {
	return market.Candle{Open: open, High: high, Low: low, Close: close}
}

func TestDetectBullishEngulfing(t *testing.T) {
	prev := candle(2652, 2653, 2649, 2650) // bearish
	curr := candle(2649.5, 2654, 2649, 2653) // bullish, engulfs prev body
	res := Detect([]market.Candle{prev, curr})
	assert.Equal(t, "Bullish Engulfing", res.Name)
	assert.Equal(t, "bullish", res.Bias)
}

func TestDetectBearishEngulfing(t *testing.T) {
	prev := candle(2650, 2653, 2649, 2652)
	curr := candle(2652.5, 2653, 2648, 2649.5)
	res := Detect([]market.Candle{prev, curr})
	assert.Equal(t, "Bearish Engulfing", res.Name)
	assert.Equal(t, "bearish", res.Bias)
}

func TestDetectHammer(t *testing.T) {
	prev := candle(2650, 2651, 2648, 2649)
	// long lower shadow, small body near the top
	curr := candle(2649.8, 2650.05, 2645, 2650)
	res := Detect([]market.Candle{prev, curr})
	assert.Equal(t, "Hammer", res.Name)
	assert.Equal(t, "bullish", res.Bias)
}

func TestDetectDoji(t *testing.T) {
	prev := candle(2650, 2652, 2648, 2651)
	curr := candle(2650, 2651, 2649, 2650.05)
	res := Detect([]market.Candle{prev, curr})
	assert.Equal(t, "Doji", res.Name)
	assert.Equal(t, "neutral", res.Bias)
}

func TestDetectInsufficientBars(t *testing.T) {
	res := Detect([]market.Candle{candle(1, 2, 0, 1)})
	assert.Equal(t, "No Pattern", res.Name)
}
