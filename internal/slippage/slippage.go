// Package slippage holds the basis-point bound math shared by plan
// validation and swap execution.
package slippage

import "github.com/shopspring/decimal"

const maxBps = 10000

// ValidBps reports whether bps is a valid basis-point value in [0,10000].
func ValidBps(bps int) bool {
	return bps >= 0 && bps <= maxBps
}

// MinOutput returns the minimum acceptable swap output for an expected
// output and a maximum tolerated slippage: expected * (1 - bps/10000).
func MinOutput(expected decimal.Decimal, bps int) decimal.Decimal {
	if bps <= 0 {
		return expected
	}
	if bps >= maxBps {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(int64(maxBps - bps)).Div(decimal.NewFromInt(maxBps))
	return expected.Mul(factor)
}

// ShortfallBps returns the realized shortfall of actual vs expected output in
// basis points, or zero when actual meets or exceeds expected.
func ShortfallBps(expected, actual decimal.Decimal) int64 {
	if expected.LessThanOrEqual(decimal.Zero) || actual.GreaterThanOrEqual(expected) {
		return 0
	}
	diff := expected.Sub(actual)
	return diff.Mul(decimal.NewFromInt(maxBps)).Div(expected).IntPart()
}
