// Package indicator wraps the talib series used by the council analysts.
package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"aurum/internal/market"
)

// EMA returns the exponential moving average series for the closes.
func EMA(candles []market.Candle, period int) []float64 {
	_, _, _, closes, _ := market.Series(candles)
	return sanitize(talib.Ema(closes, period))
}

// RSI returns the relative strength index series.
func RSI(candles []market.Candle, period int) []float64 {
	_, _, _, closes, _ := market.Series(candles)
	return sanitize(talib.Rsi(closes, period))
}

// MACD returns the macd line, signal line and histogram (12/26/9).
func MACD(candles []market.Candle) (macd, signal, hist []float64) {
	_, _, _, closes, _ := market.Series(candles)
	m, s, h := talib.Macd(closes, 12, 26, 9)
	return sanitize(m), sanitize(s), sanitize(h)
}

// Bollinger returns the upper, middle and lower bands.
func Bollinger(candles []market.Candle, period int, stdDev float64) (upper, middle, lower []float64) {
	_, _, _, closes, _ := market.Series(candles)
	u, m, l := talib.BBands(closes, period, stdDev, stdDev, talib.SMA)
	return sanitize(u), sanitize(m), sanitize(l)
}

// VolumeSMA returns the simple moving average of volume.
func VolumeSMA(candles []market.Candle, period int) []float64 {
	_, _, _, _, volumes := market.Series(candles)
	return sanitize(talib.Sma(volumes, period))
}

// Last returns the final value of a series, 0 when empty.
func Last(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}
	return series[len(series)-1]
}

// Prev returns the second-to-last value of a series, 0 when too short.
func Prev(series []float64) float64 {
	if len(series) < 2 {
		return 0
	}
	return series[len(series)-2]
}

func sanitize(series []float64) []float64 {
	out := make([]float64, len(series))
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[i] = 0
			continue
		}
		out[i] = v
	}
	return out
}
