package market

import "time"

type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// OpenAt returns the candle open time as UTC wall clock.
func (c Candle) OpenAt() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// Series splits candles into parallel slices for indicator math.
func Series(candles []Candle) (opens, highs, lows, closes, volumes []float64) {
	opens = make([]float64, len(candles))
	highs = make([]float64, len(candles))
	lows = make([]float64, len(candles))
	closes = make([]float64, len(candles))
	volumes = make([]float64, len(candles))
	for i, c := range candles {
		opens[i] = c.Open
		highs[i] = c.High
		lows[i] = c.Low
		closes[i] = c.Close
		volumes[i] = c.Volume
	}
	return opens, highs, lows, closes, volumes
}

// LastClose returns the close of the most recent candle, 0 when empty.
func LastClose(candles []Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

// After returns the candles whose open time is strictly later than t,
// preserving chronological order.
func After(candles []Candle, t time.Time) []Candle {
	cut := t.UnixMilli()
	for i, c := range candles {
		if c.OpenTime > cut {
			return candles[i:]
		}
	}
	return nil
}
