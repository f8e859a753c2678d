package market

import "github.com/shopspring/decimal"

// FormatPrice renders x with the instrument's display precision.
func (p Profile) FormatPrice(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(int32(p.Precision))
}

// RoundPrice rounds x half away from zero to the display precision.
func (p Profile) RoundPrice(x float64) float64 {
	f, _ := decimal.NewFromFloat(x).Round(int32(p.Precision)).Float64()
	return f
}
