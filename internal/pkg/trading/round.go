// Package trading provides shared trade arithmetic helpers.
package trading

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds a monetary value to 2 decimal places, half away from zero.
func Round2(val float64) float64 {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(val).Round(2).Float64()
	return f
}

// RoundInt rounds to the nearest integer, half away from zero.
func RoundInt(val float64) int {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return 0
	}
	return int(decimal.NewFromFloat(val).Round(0).IntPart())
}

// RoundStep snaps a quantity to the nearest multiple of step.
func RoundStep(val, step float64) float64 {
	if step <= 0 {
		return val
	}
	d := decimal.NewFromFloat(val).Div(decimal.NewFromFloat(step)).Round(0)
	f, _ := d.Mul(decimal.NewFromFloat(step)).Round(2).Float64()
	return f
}

// Clamp bounds val to [lo, hi].
func Clamp(val, lo, hi float64) float64 {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
