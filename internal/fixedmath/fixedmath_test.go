package fixedmath

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rafflefi/api/internal/models"
)

func TestBasisPointsOf(t *testing.T) {
	got, err := BasisPointsOf(1000, 500)
	assert.NoError(t, err)
	assert.Equal(t, uint64(50), got)

	// 150% collateral factor.
	got, err = BasisPointsOf(500_000_000, 15_000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(750_000_000), got)

	// Truncating division.
	got, err = BasisPointsOf(1, 9_999)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestBasisPointsOfLargeOperands(t *testing.T) {
	// The 128-bit intermediate keeps amounts near the uint64 ceiling safe.
	got, err := BasisPointsOf(math.MaxUint64/2, 10_000)
	assert.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64/2), got)

	_, err = MulDiv(math.MaxUint64, math.MaxUint64, 1)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestScaleByTime(t *testing.T) {
	// Full year passes the annual amount through.
	got, err := ScaleByTime(25_000_000, 365*24*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, uint64(25_000_000), got)

	// Half a year, floored.
	got, err = ScaleByTime(25_000_001, 365*12*time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, uint64(12_500_000), got)

	got, err = ScaleByTime(25_000_000, 0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), got)

	got, err = ScaleByTime(25_000_000, -time.Hour)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), got)
}

func TestMulDivRejectsZeroDenominator(t *testing.T) {
	_, err := MulDiv(1, 1, 0)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestCheckedAddSub(t *testing.T) {
	sum, err := CheckedAdd(math.MaxUint64-1, 1)
	assert.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), sum)

	_, err = CheckedAdd(math.MaxUint64, 1)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)

	diff, err := CheckedSub(5, 5)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), diff)

	_, err = CheckedSub(4, 5)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}

func TestPow10(t *testing.T) {
	unit, err := Pow10(6)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), unit)

	unit, err = Pow10(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), unit)

	_, err = Pow10(20)
	assert.ErrorIs(t, err, models.ErrArithmeticOverflow)
}
