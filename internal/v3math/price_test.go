package v3math

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"automanKit/internal/model"
)

var (
	usdc = model.TokenMeta{Address: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", Decimals: 6, Symbol: "USDC"}
	weth = model.TokenMeta{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Symbol: "WETH"}
)

func TestParsePrice(t *testing.T) {
	price, err := ParsePrice(weth, usdc, "2000.5")
	require.NoError(t, err)
	assert.True(t, price.Decimal().Equal(decimal.RequireFromString("2000.5")), price.String())

	// 1 wei of WETH buys 2000.5e6/1e18 raw USDC.
	want := new(big.Rat).SetFrac(big.NewInt(20005e5), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
	assert.Zero(t, want.Cmp(price.Raw()))

	for _, bad := range []string{"", "abc", "-1", "0", "1.2.3"} {
		_, err := ParsePrice(weth, usdc, bad)
		assert.ErrorIs(t, err, ErrInvalidPrice, bad)
	}
}

func TestTickToPriceAndBack(t *testing.T) {
	assert.True(t, SortsBefore(usdc, weth))

	for _, tick := range []int32{-200000, -887, 0, 1, 195000} {
		price, err := TickToPrice(usdc, weth, tick)
		require.NoError(t, err)
		got, err := PriceToClosestTick(price)
		require.NoError(t, err)
		assert.Equal(t, tick, got, "usdc/weth tick %d", tick)

		inverse, err := TickToPrice(weth, usdc, tick)
		require.NoError(t, err)
		got, err = PriceToClosestTick(inverse)
		require.NoError(t, err)
		assert.Equal(t, tick, got, "weth/usdc tick %d", tick)
	}
}

func TestPriceToClosestUsableTick(t *testing.T) {
	price, err := ParsePrice(weth, usdc, "2000")
	require.NoError(t, err)

	tick, err := PriceToClosestUsableTick(price, FeeMedium)
	require.NoError(t, err)
	assert.Zero(t, tick%60)

	closest, err := PriceToClosestTick(price)
	require.NoError(t, err)
	assert.LessOrEqual(t, abs32(tick-closest), int32(30))

	tiny := Price{Base: usdc, Quote: weth, Numerator: big.NewInt(1), Denominator: new(big.Int).Lsh(big.NewInt(1), 200)}
	tick, err = PriceToClosestUsableTick(tiny, FeeMedium)
	require.NoError(t, err)
	assert.Equal(t, MinUsableTick(60), tick)
}

func TestSqrtPriceX96ToPrice(t *testing.T) {
	price := SqrtPriceX96ToPrice(Q96, usdc, weth)
	assert.Zero(t, price.Raw().Cmp(big.NewRat(1, 1)))
	assert.Zero(t, price.Invert().Raw().Cmp(big.NewRat(1, 1)))
	assert.Equal(t, weth, price.Invert().Base)
}

func TestFormatAndParseTokenAmount(t *testing.T) {
	assert.Equal(t, "1.500000", FormatTokenAmount(big.NewInt(1500000), 6))
	assert.Equal(t, "42", FormatTokenAmount(big.NewInt(42), 0))
	assert.Equal(t, "0", FormatTokenAmount(nil, 6))

	raw, err := ParseTokenAmount("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", raw.String())

	_, err = ParseTokenAmount("1.1234567", 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = ParseTokenAmount("-3", 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
