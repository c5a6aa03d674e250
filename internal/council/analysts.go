// Package council implements the voting analysts: pure functions mapping a
// candle window to a directional opinion with a short explanation.
package council

import (
	"fmt"
	"sort"

	"aurum/internal/analysis/indicator"
	"aurum/internal/analysis/pattern"
	"aurum/internal/decision"
	"aurum/internal/market"
)

// Opinion is one analyst's read of the current window.
type Opinion struct {
	Verdict     decision.Verdict `json:"verdict"`
	Explanation string           `json:"explanation"`
}

// AnalystFunc is the contract every voting analyst satisfies. Analysts are
// stateless; insufficient history always degrades to NEUTRAL.
type AnalystFunc func(candles []market.Candle) Opinion

// Voting returns the seven voting analysts keyed by council member name.
// Macro is deliberately absent: it gates the aggregate, it does not vote.
func Voting() map[string]AnalystFunc {
	return map[string]AnalystFunc{
		"trend":       Trend,
		"candlestick": Candlestick,
		"sr":          SupportResistance,
		"volume":      Volume,
		"rsi":         RSI,
		"macd":        MACD,
		"bollinger":   Bollinger,
	}
}

// Evaluate runs every voting analyst over the window.
func Evaluate(candles []market.Candle) map[string]Opinion {
	out := make(map[string]Opinion, 7)
	for name, fn := range Voting() {
		out[name] = fn(candles)
	}
	return out
}

func neutral(reason string) Opinion {
	return Opinion{Verdict: decision.VerdictNeutral, Explanation: reason}
}

// Trend reads price against EMA20/EMA50.
func Trend(candles []market.Candle) Opinion {
	if len(candles) < 50 {
		return neutral("Insufficient data")
	}
	price := market.LastClose(candles)
	ema20 := indicator.Last(indicator.EMA(candles, 20))
	ema50 := indicator.Last(indicator.EMA(candles, 50))
	switch {
	case price > ema20 && price > ema50:
		return Opinion{decision.VerdictBuy, fmt.Sprintf("Price above EMA20 %.2f and EMA50 %.2f", ema20, ema50)}
	case price < ema20 && price < ema50:
		return Opinion{decision.VerdictSell, fmt.Sprintf("Price below EMA20 %.2f and EMA50 %.2f", ema20, ema50)}
	}
	return neutral("Price between EMAs")
}

// Candlestick reads the latest two-bar formation.
func Candlestick(candles []market.Candle) Opinion {
	res := pattern.Detect(candles)
	switch res.Bias {
	case "bullish":
		return Opinion{decision.VerdictBuy, res.Name}
	case "bearish":
		return Opinion{decision.VerdictSell, res.Name}
	}
	return neutral(res.Name)
}

// RSI reads momentum off RSI(14): oversold/overbought extremes plus the
// 40-50 rising and 50-60 falling momentum zones.
func RSI(candles []market.Candle) Opinion {
	const period = 14
	if len(candles) < period+5 {
		return neutral("Insufficient data")
	}
	series := indicator.RSI(candles, period)
	curr, prev := indicator.Last(series), indicator.Prev(series)
	if curr == 0 {
		return neutral("RSI unavailable")
	}
	switch {
	case curr < 30:
		return Opinion{decision.VerdictBuy, fmt.Sprintf("RSI %.1f oversold", curr)}
	case curr >= 40 && curr <= 50 && curr > prev:
		return Opinion{decision.VerdictBuy, fmt.Sprintf("RSI %.1f rising", curr)}
	case curr > 70:
		return Opinion{decision.VerdictSell, fmt.Sprintf("RSI %.1f overbought", curr)}
	case curr >= 50 && curr <= 60 && curr < prev:
		return Opinion{decision.VerdictSell, fmt.Sprintf("RSI %.1f falling", curr)}
	}
	return neutral(fmt.Sprintf("RSI %.1f neutral", curr))
}

// MACD reads 12/26/9 crossovers and histogram slope.
func MACD(candles []market.Candle) Opinion {
	if len(candles) < 35 {
		return neutral("Insufficient data")
	}
	macd, signal, hist := indicator.MACD(candles)
	currMACD, currSignal := indicator.Last(macd), indicator.Last(signal)
	currHist, prevHist := indicator.Last(hist), indicator.Prev(hist)

	switch {
	case currMACD > currSignal && prevHist < 0 && currHist > 0:
		return Opinion{decision.VerdictBuy, "Bullish crossover"}
	case currMACD > currSignal && currHist > prevHist:
		return Opinion{decision.VerdictBuy, "MACD bullish"}
	case currMACD < currSignal && prevHist > 0 && currHist < 0:
		return Opinion{decision.VerdictSell, "Bearish crossover"}
	case currMACD < currSignal && currHist < prevHist:
		return Opinion{decision.VerdictSell, "MACD bearish"}
	}
	return neutral("MACD flat")
}

// Bollinger reads band (20, 2.0) touches as reversal hints.
func Bollinger(candles []market.Candle) Opinion {
	const period = 20
	if len(candles) < period+5 {
		return neutral("Insufficient data")
	}
	upper, middle, lower := indicator.Bollinger(candles, period, 2.0)
	currUpper, currMiddle, currLower := indicator.Last(upper), indicator.Last(middle), indicator.Last(lower)
	if currUpper == 0 || currLower == 0 {
		return neutral("Bands unavailable")
	}
	price := market.LastClose(candles)
	prevPrice := candles[len(candles)-2].Close

	if price <= currLower*1.005 {
		if price > prevPrice {
			return Opinion{decision.VerdictBuy, "Bounce off lower band"}
		}
		return Opinion{decision.VerdictBuy, "At lower band"}
	}
	if price >= currUpper*0.995 {
		if price < prevPrice {
			return Opinion{decision.VerdictSell, "Rejection at upper band"}
		}
		return Opinion{decision.VerdictSell, "At upper band"}
	}
	if mid := abs(price-currMiddle) / currMiddle; mid < 0.003 {
		return neutral("Near middle band")
	}
	return neutral("Inside bands")
}

// Volume compares the latest volume against its 20-bar average.
func Volume(candles []market.Candle) Opinion {
	const period = 20
	if len(candles) < period {
		return neutral("Insufficient data")
	}
	avg := indicator.Last(indicator.VolumeSMA(candles, period))
	if avg == 0 {
		return neutral("No volume data")
	}
	ratio := candles[len(candles)-1].Volume / avg
	switch {
	case ratio > 1.2:
		return Opinion{decision.VerdictBuy, fmt.Sprintf("Strong volume (%.2fx avg)", ratio)}
	case ratio < 0.7:
		return Opinion{decision.VerdictSell, fmt.Sprintf("Weak volume (%.2fx avg)", ratio)}
	}
	return neutral(fmt.Sprintf("Normal volume (%.2fx avg)", ratio))
}

// SupportResistance votes when price sits within 0.5% of a recent swing level.
func SupportResistance(candles []market.Candle) Opinion {
	if len(candles) < 20 {
		return neutral("Insufficient data")
	}
	price := market.LastClose(candles)
	supports, resistances := swingLevels(candles, price)

	const proximity = 0.005
	if len(supports) > 0 {
		nearest := supports[0]
		if abs(price-nearest)/price < proximity {
			return Opinion{decision.VerdictBuy, fmt.Sprintf("Near support at %.2f", nearest)}
		}
	}
	if len(resistances) > 0 {
		nearest := resistances[0]
		if abs(price-nearest)/price < proximity {
			return Opinion{decision.VerdictSell, fmt.Sprintf("Near resistance at %.2f", nearest)}
		}
	}
	return neutral("Mid-zone between levels")
}

// swingLevels finds swing highs/lows with a 5-bar lookback and splits them
// around the current price: supports sorted nearest-first descending,
// resistances nearest-first ascending.
func swingLevels(candles []market.Candle, price float64) (supports, resistances []float64) {
	const window = 5
	for i := window; i < len(candles)-window; i++ {
		high, low := candles[i].High, candles[i].Low
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if candles[j].High > high {
				isHigh = false
			}
			if candles[j].Low < low {
				isLow = false
			}
		}
		if isHigh && high > price {
			resistances = append(resistances, high)
		}
		if isLow && low < price {
			supports = append(supports, low)
		}
	}
	sort.Float64s(resistances)
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	const maxLevels = 3
	if len(resistances) > maxLevels {
		resistances = resistances[:maxLevels]
	}
	if len(supports) > maxLevels {
		supports = supports[:maxLevels]
	}
	return supports, resistances
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
