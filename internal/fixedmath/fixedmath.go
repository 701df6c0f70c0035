// Package fixedmath provides the checked unsigned integer arithmetic
// shared by the ledger components: basis-point percentages and
// time-weighted annual scaling. All division truncates toward zero and
// any intermediate overflow is reported instead of wrapping.
package fixedmath

import (
	"math/bits"
	"time"

	"github.com/rafflefi/api/internal/models"
)

const (
	// BpsDenominator is the basis-points scale: 10000 == 100%.
	BpsDenominator uint64 = 10_000
	// SecondsPerYear is the 365-day year used for annualized rates.
	SecondsPerYear uint64 = 31_536_000
)

// CheckedAdd returns a+b, failing on overflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, models.ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedMul returns a*b, failing on overflow.
func CheckedMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, models.ErrArithmeticOverflow
	}
	return lo, nil
}

// CheckedSub returns a-b, failing on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, models.ErrArithmeticOverflow
	}
	return diff, nil
}

// MulDiv returns floor(a*b/den) with a 128-bit intermediate product.
// It fails when den is zero or the quotient does not fit in 64 bits.
func MulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, models.ErrArithmeticOverflow
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, models.ErrArithmeticOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// BasisPointsOf returns floor(x*bps/10000).
func BasisPointsOf(x, bps uint64) (uint64, error) {
	return MulDiv(x, bps, BpsDenominator)
}

// ScaleByTime prorates an annual amount over an elapsed duration:
// floor(annual*elapsedSeconds/secondsPerYear). Negative durations
// count as zero.
func ScaleByTime(annual uint64, elapsed time.Duration) (uint64, error) {
	if elapsed <= 0 {
		return 0, nil
	}
	return MulDiv(annual, uint64(elapsed/time.Second), SecondsPerYear)
}

// Pow10 returns 10^decimals as the smallest-unit scale of an asset.
// Anything above 19 overflows uint64.
func Pow10(decimals uint8) (uint64, error) {
	if decimals > 19 {
		return 0, models.ErrArithmeticOverflow
	}
	unit := uint64(1)
	for i := uint8(0); i < decimals; i++ {
		unit *= 10
	}
	return unit, nil
}
