package model

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	minorUnit   = decimal.NewFromInt(100)
	hundredMill = decimal.NewFromInt(100_000_000)
)

// toDecimal maps NaN and ±Inf to zero; decimal rejects them.
func toDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// FromMinor converts a source value expressed in 1/100 units.
func FromMinor(v float64) float64 {
	return toDecimal(v).Div(minorUnit).InexactFloat64()
}

// FormatYi renders yuan as 亿 with two decimals.
func FormatYi(yuan float64) string {
	return toDecimal(yuan).Div(hundredMill).StringFixed(2)
}
