package v3math

import (
	"errors"
	"math/big"
)

var ErrInvalidSqrtRange = errors.New("invalid sqrt price range")

func sortSqrt(a, b *big.Int) (*big.Int, *big.Int) {
	if a.Cmp(b) > 0 {
		return b, a
	}
	return a, b
}

func mulDiv(a, b, denom *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, denom)
}

func mulDivRoundingUp(a, b, denom *big.Int) *big.Int {
	num := new(big.Int).Mul(a, b)
	q, r := new(big.Int).QuoRem(num, denom, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// GetAmount0Delta returns the token0 amount between two sqrt prices for a liquidity.
func GetAmount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) (*big.Int, error) {
	sqrtA, sqrtB = sortSqrt(sqrtA, sqrtB)
	if sqrtA.Sign() <= 0 {
		return nil, ErrInvalidSqrtRange
	}
	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		inner := mulDivRoundingUp(numerator1, numerator2, sqrtB)
		return divRoundingUp(inner, sqrtA), nil
	}
	inner := mulDiv(numerator1, numerator2, sqrtB)
	return inner.Quo(inner, sqrtA), nil
}

// GetAmount1Delta returns the token1 amount between two sqrt prices for a liquidity.
func GetAmount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	sqrtA, sqrtB = sortSqrt(sqrtA, sqrtB)
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}

func divRoundingUp(a, b *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(a, b, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// GetAmountsForLiquidity computes the token amounts a position holds at the current price,
// rounding down as the pool does when burning.
func GetAmountsForLiquidity(sqrtPriceX96, sqrtA, sqrtB, liquidity *big.Int) (*big.Int, *big.Int, error) {
	sqrtA, sqrtB = sortSqrt(sqrtA, sqrtB)
	switch {
	case sqrtPriceX96.Cmp(sqrtA) <= 0:
		amount0, err := GetAmount0Delta(sqrtA, sqrtB, liquidity, false)
		return amount0, new(big.Int), err
	case sqrtPriceX96.Cmp(sqrtB) < 0:
		amount0, err := GetAmount0Delta(sqrtPriceX96, sqrtB, liquidity, false)
		if err != nil {
			return nil, nil, err
		}
		return amount0, GetAmount1Delta(sqrtA, sqrtPriceX96, liquidity, false), nil
	default:
		return new(big.Int), GetAmount1Delta(sqrtA, sqrtB, liquidity, false), nil
	}
}

// GetLiquidityForAmounts computes the maximum liquidity mintable from the given amounts.
func GetLiquidityForAmounts(sqrtPriceX96, sqrtA, sqrtB, amount0, amount1 *big.Int) (*big.Int, error) {
	sqrtA, sqrtB = sortSqrt(sqrtA, sqrtB)
	if sqrtA.Cmp(sqrtB) == 0 || sqrtA.Sign() <= 0 {
		return nil, ErrInvalidSqrtRange
	}
	switch {
	case sqrtPriceX96.Cmp(sqrtA) <= 0:
		return liquidityForAmount0(sqrtA, sqrtB, amount0), nil
	case sqrtPriceX96.Cmp(sqrtB) < 0:
		l0 := liquidityForAmount0(sqrtPriceX96, sqrtB, amount0)
		l1 := liquidityForAmount1(sqrtA, sqrtPriceX96, amount1)
		if l0.Cmp(l1) < 0 {
			return l0, nil
		}
		return l1, nil
	default:
		return liquidityForAmount1(sqrtA, sqrtB, amount1), nil
	}
}

func liquidityForAmount0(sqrtA, sqrtB, amount0 *big.Int) *big.Int {
	intermediate := mulDiv(sqrtA, sqrtB, Q96)
	return mulDiv(amount0, intermediate, new(big.Int).Sub(sqrtB, sqrtA))
}

func liquidityForAmount1(sqrtA, sqrtB, amount1 *big.Int) *big.Int {
	return mulDiv(amount1, Q96, new(big.Int).Sub(sqrtB, sqrtA))
}

// PositionAmounts is a convenience wrapper resolving tick bounds before GetAmountsForLiquidity.
func PositionAmounts(sqrtPriceX96 *big.Int, tickLower, tickUpper int32, liquidity *big.Int) (*big.Int, *big.Int, error) {
	sqrtA, err := GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	return GetAmountsForLiquidity(sqrtPriceX96, sqrtA, sqrtB, liquidity)
}
