package v3math

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const floatPrec = 256

var ErrInvalidProportion = errors.New("invalid token value proportion")

// TokenValueProportionFromPriceRatio returns the share of position value held in token0
// for a range at the given raw token1/token0 price.
func TokenValueProportionFromPriceRatio(tickLower, tickUpper int32, priceRatio decimal.Decimal) (decimal.Decimal, error) {
	if priceRatio.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: price ratio must be positive", ErrInvalidPrice)
	}
	sqrtLower, sqrtUpper, err := rangeSqrtPrices(tickLower, tickUpper)
	if err != nil {
		return decimal.Zero, err
	}

	price := toFloat(priceRatio)
	sqrtPrice := newFloat().Sqrt(price)
	if sqrtPrice.Cmp(sqrtLower) <= 0 {
		return decimal.NewFromInt(1), nil
	}
	if sqrtPrice.Cmp(sqrtUpper) >= 0 {
		return decimal.Zero, nil
	}

	// value0 = sqrt(p) - p/sqrt(pb), value1 = sqrt(p) - sqrt(pa), both per unit of liquidity.
	value0 := newFloat().Sub(sqrtPrice, newFloat().Quo(price, sqrtUpper))
	value1 := newFloat().Sub(sqrtPrice, sqrtLower)
	total := newFloat().Add(value0, value1)
	return fromFloat(newFloat().Quo(value0, total))
}

// RawPriceFromTokenValueProportion inverts TokenValueProportionFromPriceRatio, returning the
// raw token1/token0 price at which token0 makes up proportion of the position value.
func RawPriceFromTokenValueProportion(tickLower, tickUpper int32, proportion decimal.Decimal) (decimal.Decimal, error) {
	if proportion.Sign() < 0 || proportion.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidProportion, proportion.String())
	}
	sqrtLower, sqrtUpper, err := rangeSqrtPrices(tickLower, tickUpper)
	if err != nil {
		return decimal.Zero, err
	}
	if proportion.IsZero() {
		return fromFloat(newFloat().Mul(sqrtUpper, sqrtUpper))
	}
	if proportion.Equal(decimal.NewFromInt(1)) {
		return fromFloat(newFloat().Mul(sqrtLower, sqrtLower))
	}

	r := toFloat(proportion)
	one := newFloat().SetInt64(1)
	two := newFloat().SetInt64(2)
	four := newFloat().SetInt64(4)

	// (1-r)/sqrt(pb) * x^2 + (2r-1) * x - r*sqrt(pa) = 0, x = sqrt(p)
	oneMinusR := newFloat().Sub(one, r)
	b := newFloat().Sub(newFloat().Mul(two, r), one)
	disc := newFloat().Mul(b, b)
	cross := newFloat().Mul(four, r)
	cross.Mul(cross, oneMinusR)
	cross.Mul(cross, sqrtLower)
	cross.Quo(cross, sqrtUpper)
	disc.Add(disc, cross)

	numerator := newFloat().Sub(newFloat().Sqrt(disc), b)
	denominator := newFloat().Quo(newFloat().Mul(two, oneMinusR), sqrtUpper)
	x := newFloat().Quo(numerator, denominator)
	return fromFloat(newFloat().Mul(x, x))
}

func rangeSqrtPrices(tickLower, tickUpper int32) (*big.Float, *big.Float, error) {
	if tickLower >= tickUpper {
		return nil, nil, fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidTicks, tickLower, tickUpper)
	}
	lower, err := GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	upper, err := GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	q96 := newFloat().SetInt(Q96)
	return newFloat().Quo(newFloat().SetInt(lower), q96), newFloat().Quo(newFloat().SetInt(upper), q96), nil
}

func newFloat() *big.Float {
	return new(big.Float).SetPrec(floatPrec)
}

func toFloat(d decimal.Decimal) *big.Float {
	f, _ := newFloat().SetString(d.String())
	return f
}

func fromFloat(f *big.Float) (decimal.Decimal, error) {
	return decimal.NewFromString(f.Text('e', 40))
}
