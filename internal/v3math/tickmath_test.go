package v3math

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fromString(s string) *big.Int {
	n, _ := new(big.Int).SetString(s, 10)
	return n
}

func TestGetSqrtRatioAtTick(t *testing.T) {
	t.Run("throws for too low", func(t *testing.T) {
		_, err := GetSqrtRatioAtTick(MinTick - 1)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("throws for too high", func(t *testing.T) {
		_, err := GetSqrtRatioAtTick(MaxTick + 1)
		assert.ErrorIs(t, err, ErrTickOutOfBounds)
	})

	t.Run("min tick", func(t *testing.T) {
		sqrtP, err := GetSqrtRatioAtTick(MinTick)
		require.NoError(t, err)
		assert.Zero(t, fromString("4295128739").Cmp(sqrtP))
	})

	t.Run("max tick", func(t *testing.T) {
		sqrtP, err := GetSqrtRatioAtTick(MaxTick)
		require.NoError(t, err)
		assert.Zero(t, fromString("1461446703485210103287273052203988822378723970342").Cmp(sqrtP))
	})

	t.Run("tick zero is one", func(t *testing.T) {
		sqrtP, err := GetSqrtRatioAtTick(0)
		require.NoError(t, err)
		assert.Zero(t, Q96.Cmp(sqrtP))
	})

	t.Run("monotonic", func(t *testing.T) {
		prev, err := GetSqrtRatioAtTick(-1000)
		require.NoError(t, err)
		for tick := int32(-999); tick <= 1000; tick += 37 {
			cur, err := GetSqrtRatioAtTick(tick)
			require.NoError(t, err)
			assert.Equal(t, 1, cur.Cmp(prev), "tick %d", tick)
			prev = cur
		}
	})
}

func TestGetTickAtSqrtRatio(t *testing.T) {
	t.Run("throws for too low", func(t *testing.T) {
		_, err := GetTickAtSqrtRatio(new(big.Int).Sub(MinSqrtRatio, big.NewInt(1)))
		assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)
	})

	t.Run("throws for too high", func(t *testing.T) {
		_, err := GetTickAtSqrtRatio(MaxSqrtRatio)
		assert.ErrorIs(t, err, ErrSqrtPriceOutOfBounds)
	})

	t.Run("ratio of min tick", func(t *testing.T) {
		tick, err := GetTickAtSqrtRatio(MinSqrtRatio)
		require.NoError(t, err)
		assert.Equal(t, MinTick, tick)
	})

	t.Run("ratio closest to max tick", func(t *testing.T) {
		tick, err := GetTickAtSqrtRatio(new(big.Int).Sub(MaxSqrtRatio, big.NewInt(1)))
		require.NoError(t, err)
		assert.Equal(t, MaxTick-1, tick)
	})

	t.Run("round trip", func(t *testing.T) {
		for _, want := range []int32{-500000, -12345, -1, 0, 1, 60, 12345, 500000} {
			ratio, err := GetSqrtRatioAtTick(want)
			require.NoError(t, err)
			got, err := GetTickAtSqrtRatio(ratio)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})
}
