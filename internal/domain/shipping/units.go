package shipping

import "github.com/shopspring/decimal"

// The remote submission schema requires imperial units; measurements are
// collected metric and converted at build time.
var (
	cmPerInch = decimal.NewFromFloat(2.54)
	lbPerKg   = decimal.NewFromFloat(2.2046226218)
	hundred   = decimal.NewFromInt(100)

	// carrierCeilingLb is the heaviest box weight carriers accept without
	// special handling. Converted weights must land strictly below it.
	carrierCeilingLb = decimal.NewFromInt(50)
	// metricCeilingKg is the metric equivalent of the carrier ceiling.
	metricCeilingKg = decimal.NewFromFloat(22.68)
	// weightSafetyMarginKg is subtracted from at-ceiling weights so the
	// converted value clears carrier validation.
	weightSafetyMarginKg = decimal.NewFromFloat(0.1)
	// lbClampStep is one reporting unit; the smallest decrement that keeps
	// a clamped weight below the ceiling at two decimals.
	lbClampStep = decimal.NewFromFloat(0.01)
)

// CentimetersToInches converts with 2-decimal rounding.
func CentimetersToInches(cm decimal.Decimal) decimal.Decimal {
	return cm.Div(cmPerInch).Round(2)
}

// InchesToCentimeters is the inverse conversion, 2-decimal rounded.
func InchesToCentimeters(in decimal.Decimal) decimal.Decimal {
	return in.Mul(cmPerInch).Round(2)
}

// KilogramsToPounds converts a box weight for submission. The result is
// floored at two decimals rather than rounded so it can never creep above
// the true weight; inputs at or above the metric ceiling are nudged down by
// the safety margin first. The converted value is then clamped strictly
// below the carrier ceiling: metric inputs just under the ceiling can still
// floor to exactly 50.00 lb, which carriers reject.
func KilogramsToPounds(kg decimal.Decimal) decimal.Decimal {
	if kg.GreaterThanOrEqual(metricCeilingKg) {
		kg = metricCeilingKg.Sub(weightSafetyMarginKg)
	}
	lb := kg.Mul(lbPerKg).Mul(hundred).Floor().Div(hundred)
	if lb.GreaterThanOrEqual(carrierCeilingLb) {
		lb = carrierCeilingLb.Sub(lbClampStep)
	}
	return lb
}

// CarrierCeilingPounds returns the carrier weight ceiling in pounds.
func CarrierCeilingPounds() decimal.Decimal {
	return carrierCeilingLb
}
