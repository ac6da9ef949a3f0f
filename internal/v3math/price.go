package v3math

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"automanKit/internal/model"
)

// pricePrecision is the number of fractional digits kept when rendering prices.
const pricePrecision int32 = 36

var (
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidAmount = errors.New("invalid token amount")
)

// Price is an exchange rate expressed in raw token units:
// Numerator/Denominator units of Quote per unit of Base.
type Price struct {
	Base        model.TokenMeta
	Quote       model.TokenMeta
	Numerator   *big.Int
	Denominator *big.Int
}

// SortsBefore reports whether a is token0 of a pool containing a and b.
func SortsBefore(a, b model.TokenMeta) bool {
	return bytes.Compare(common.HexToAddress(a.Address).Bytes(), common.HexToAddress(b.Address).Bytes()) < 0
}

// ParsePrice parses a human readable price of base denominated in quote, e.g. "1850.25" USDC per WETH.
func ParsePrice(base, quote model.TokenMeta, price string) (Price, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return Price{}, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	if d.Sign() <= 0 {
		return Price{}, fmt.Errorf("%w: %q must be positive", ErrInvalidPrice, price)
	}
	rat := d.Rat()
	return Price{
		Base:        base,
		Quote:       quote,
		Numerator:   new(big.Int).Mul(rat.Num(), pow10(quote.Decimals)),
		Denominator: new(big.Int).Mul(rat.Denom(), pow10(base.Decimals)),
	}, nil
}

// Decimal renders the price in human units.
func (p Price) Decimal() decimal.Decimal {
	num := decimal.NewFromBigInt(p.Numerator, int32(p.Base.Decimals))
	den := decimal.NewFromBigInt(p.Denominator, int32(p.Quote.Decimals))
	return num.DivRound(den, pricePrecision)
}

// Raw returns the raw ratio of quote units per base unit.
func (p Price) Raw() *big.Rat {
	return new(big.Rat).SetFrac(p.Numerator, p.Denominator)
}

// Invert swaps base and quote.
func (p Price) Invert() Price {
	return Price{Base: p.Quote, Quote: p.Base, Numerator: p.Denominator, Denominator: p.Numerator}
}

// Cmp compares two prices over the same base and quote.
func (p Price) Cmp(other Price) int {
	left := new(big.Int).Mul(p.Numerator, other.Denominator)
	right := new(big.Int).Mul(other.Numerator, p.Denominator)
	return left.Cmp(right)
}

func (p Price) String() string {
	return p.Decimal().String()
}

// TickToPrice returns the price of base in quote at tick.
func TickToPrice(base, quote model.TokenMeta, tick int32) (Price, error) {
	sqrtRatio, err := GetSqrtRatioAtTick(tick)
	if err != nil {
		return Price{}, err
	}
	ratioX192 := new(big.Int).Mul(sqrtRatio, sqrtRatio)
	if SortsBefore(base, quote) {
		return Price{Base: base, Quote: quote, Numerator: ratioX192, Denominator: new(big.Int).Set(Q192)}, nil
	}
	return Price{Base: base, Quote: quote, Numerator: new(big.Int).Set(Q192), Denominator: ratioX192}, nil
}

// SqrtPriceX96ToPrice converts a pool sqrt price into the price of token0 in token1.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, token0, token1 model.TokenMeta) Price {
	return Price{
		Base:        token0,
		Quote:       token1,
		Numerator:   new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96),
		Denominator: new(big.Int).Set(Q192),
	}
}

// EncodeSqrtRatioX96 returns sqrt(amount1/amount0) as a Q64.96.
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) *big.Int {
	ratioX192 := new(big.Int).Lsh(amount1, 192)
	ratioX192.Quo(ratioX192, amount0)
	return ratioX192.Sqrt(ratioX192)
}

// PriceToClosestTick returns the first tick whose price is greater than or equal to p.
func PriceToClosestTick(p Price) (int32, error) {
	if p.Numerator == nil || p.Denominator == nil || p.Numerator.Sign() <= 0 || p.Denominator.Sign() <= 0 {
		return 0, ErrInvalidPrice
	}
	sorted := SortsBefore(p.Base, p.Quote)
	var sqrtRatio *big.Int
	if sorted {
		sqrtRatio = EncodeSqrtRatioX96(p.Numerator, p.Denominator)
	} else {
		sqrtRatio = EncodeSqrtRatioX96(p.Denominator, p.Numerator)
	}

	tick, err := GetTickAtSqrtRatio(sqrtRatio)
	if err != nil {
		return 0, err
	}
	if tick+1 > MaxTick {
		return tick, nil
	}
	next, err := TickToPrice(p.Base, p.Quote, tick+1)
	if err != nil {
		return 0, err
	}
	if sorted {
		if p.Cmp(next) >= 0 {
			tick++
		}
	} else if p.Cmp(next) <= 0 {
		tick++
	}
	return tick, nil
}

// PriceToClosestUsableTick aligns p to the nearest tick usable by the fee tier,
// clamping prices outside the representable range to the usable bounds.
func PriceToClosestUsableTick(p Price, fee uint32) (int32, error) {
	spacing, err := TickSpacing(fee)
	if err != nil {
		return 0, err
	}
	tick, err := PriceToClosestTick(p)
	switch {
	case errors.Is(err, ErrSqrtPriceOutOfBounds):
		if priceBelowRange(p) {
			return MinUsableTick(spacing), nil
		}
		return MaxUsableTick(spacing), nil
	case err != nil:
		return 0, err
	}

	tick = NearestUsableTick(tick, spacing)
	if tick < MinUsableTick(spacing) {
		tick = MinUsableTick(spacing)
	}
	if tick > MaxUsableTick(spacing) {
		tick = MaxUsableTick(spacing)
	}
	return tick, nil
}

// priceBelowRange reports whether p maps below MinSqrtRatio in token1/token0 terms.
func priceBelowRange(p Price) bool {
	num, den := p.Numerator, p.Denominator
	if !SortsBefore(p.Base, p.Quote) {
		num, den = den, num
	}
	return EncodeSqrtRatioX96(num, den).Cmp(MinSqrtRatio) < 0
}

// FormatTokenAmount renders a raw amount using the token decimals.
func FormatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).StringFixed(int32(decimals))
}

// ParseTokenAmount converts a human amount into raw token units.
func ParseTokenAmount(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, amount)
	}
	raw := d.Shift(int32(decimals))
	if !raw.IsInteger() {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, amount, decimals)
	}
	return raw.BigInt(), nil
}

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}
