package utils

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// RoundToDecimalPrecision truncates a non-negative quantity to the given
// number of decimal places.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	return decimal.NewFromFloat(quantity).RoundDown(int32(decimalPrecision)).InexactFloat64()
}

// FormatQuantity renders quantity with exactly decimalPrecision places, as
// exchange APIs expect.
func FormatQuantity(quantity float64, decimalPrecision int) string {
	return strconv.FormatFloat(quantity, 'f', decimalPrecision, 64)
}

// FormatPrice renders price with the shortest exact representation.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}
