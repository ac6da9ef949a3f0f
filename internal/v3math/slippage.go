package v3math

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var ErrInvalidSlippage = errors.New("slippage must be within [0, 1]")

// ValidateSlippage rejects tolerances outside [0, 1].
func ValidateSlippage(slippage float64) error {
	if slippage < 0 || slippage > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSlippage, slippage)
	}
	return nil
}

// ApplySlippage returns the minimum acceptable amount, amount * (1 - slippage) rounded down.
func ApplySlippage(amount *big.Int, slippage float64) (*big.Int, error) {
	if err := ValidateSlippage(slippage); err != nil {
		return nil, err
	}
	if amount == nil {
		return new(big.Int), nil
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippage))
	return decimal.NewFromBigInt(amount, 0).Mul(factor).Floor().BigInt(), nil
}
