package v3math

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiquidityAmountsRoundTrip(t *testing.T) {
	amount := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	sqrtA, err := GetSqrtRatioAtTick(-600)
	require.NoError(t, err)
	sqrtB, err := GetSqrtRatioAtTick(600)
	require.NoError(t, err)

	liquidity, err := GetLiquidityForAmounts(Q96, sqrtA, sqrtB, amount, amount)
	require.NoError(t, err)
	require.Equal(t, 1, liquidity.Sign())

	amount0, amount1, err := GetAmountsForLiquidity(Q96, sqrtA, sqrtB, liquidity)
	require.NoError(t, err)
	assert.LessOrEqual(t, amount0.Cmp(amount), 0)
	assert.LessOrEqual(t, amount1.Cmp(amount), 0)

	// Symmetric range at price 1 consumes both sides equally.
	diff := new(big.Int).Sub(amount0, amount1)
	assert.LessOrEqual(t, diff.CmpAbs(big.NewInt(2)), 0)
}

func TestPositionAmountsOutOfRange(t *testing.T) {
	liquidity := big.NewInt(1_000_000_000)

	below, err := GetSqrtRatioAtTick(-1200)
	require.NoError(t, err)
	amount0, amount1, err := PositionAmounts(below, -600, 600, liquidity)
	require.NoError(t, err)
	assert.Equal(t, 1, amount0.Sign())
	assert.Zero(t, amount1.Sign())

	above, err := GetSqrtRatioAtTick(1200)
	require.NoError(t, err)
	amount0, amount1, err = PositionAmounts(above, -600, 600, liquidity)
	require.NoError(t, err)
	assert.Zero(t, amount0.Sign())
	assert.Equal(t, 1, amount1.Sign())
}

func TestTokenValueProportion(t *testing.T) {
	half := decimal.RequireFromString("0.5")
	price, err := RawPriceFromTokenValueProportion(-600, 600, half)
	require.NoError(t, err)

	proportion, err := TokenValueProportionFromPriceRatio(-600, 600, price)
	require.NoError(t, err)
	assert.True(t, proportion.Sub(half).Abs().LessThan(decimal.New(1, -12)), proportion.String())

	// A symmetric range is balanced at price 1.
	assert.True(t, price.Sub(decimal.NewFromInt(1)).Abs().LessThan(decimal.New(1, -12)), price.String())

	below, err := TokenValueProportionFromPriceRatio(-600, 600, decimal.RequireFromString("0.5"))
	require.NoError(t, err)
	assert.True(t, below.Equal(decimal.NewFromInt(1)))

	above, err := TokenValueProportionFromPriceRatio(-600, 600, decimal.NewFromInt(2))
	require.NoError(t, err)
	assert.True(t, above.IsZero())

	_, err = RawPriceFromTokenValueProportion(-600, 600, decimal.RequireFromString("1.5"))
	assert.ErrorIs(t, err, ErrInvalidProportion)
	_, err = RawPriceFromTokenValueProportion(-600, 600, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidProportion)
}

func TestApplySlippage(t *testing.T) {
	got, err := ApplySlippage(big.NewInt(1000), 0.01)
	require.NoError(t, err)
	assert.Equal(t, "990", got.String())

	got, err = ApplySlippage(big.NewInt(999), 0.005)
	require.NoError(t, err)
	assert.Equal(t, "994", got.String())

	_, err = ApplySlippage(big.NewInt(1000), 1.5)
	assert.ErrorIs(t, err, ErrInvalidSlippage)
	_, err = ApplySlippage(big.NewInt(1000), -0.1)
	assert.ErrorIs(t, err, ErrInvalidSlippage)
}
