package convert

import (
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Finite reports whether number is neither NaN nor infinite. decimal panics on
// anything else, so the helpers below hand such values back unchanged.
func Finite(number float64) bool {
	return !math.IsNaN(number) && !math.IsInf(number, 0)
}

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

// RoundFloat64 rounds half away from zero in decimal, so 1.005 becomes 1.01.
func RoundFloat64(number float64, decimals int) float64 {
	if !Finite(number) {
		return number
	}
	return decimal.NewFromFloat(number).Round(int32(decimals)).InexactFloat64()
}

// Money is an amount rounded to whole cents. Non finite amounts are zero.
func Money(amount float64) decimal.Decimal {
	if !Finite(amount) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Round(2)
}

// MoneyString formats an amount with two decimals, "71341.20".
func MoneyString(amount float64) string {
	if !Finite(amount) {
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}
	return Money(amount).StringFixed(2)
}

// Percent turns a fraction into a percentage with the given number of decimals.
func Percent(fraction float64, decimals int) float64 {
	if !Finite(fraction) {
		return fraction
	}
	return decimal.NewFromFloat(fraction).Shift(2).Round(int32(decimals)).InexactFloat64()
}

// Fraction is the inverse of Percent, 30 becomes 0.3.
func Fraction(percent float64) float64 {
	if !Finite(percent) {
		return percent
	}
	return decimal.NewFromFloat(percent).Shift(-2).InexactFloat64()
}
