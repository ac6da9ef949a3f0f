package v3math

import (
	"errors"
	"fmt"
)

// Fee tiers supported by the Uniswap V3 factory, in hundredths of a bip.
const (
	FeeLowest uint32 = 100
	FeeLow    uint32 = 500
	FeeMedium uint32 = 3000
	FeeHigh   uint32 = 10000
)

var ErrUnknownFeeTier = errors.New("unknown fee tier")

var tickSpacings = map[uint32]int32{
	FeeLowest: 1,
	FeeLow:    10,
	FeeMedium: 60,
	FeeHigh:   200,
}

// FeeTiers returns the known fee tiers in ascending order.
func FeeTiers() []uint32 {
	return []uint32{FeeLowest, FeeLow, FeeMedium, FeeHigh}
}

// TickSpacing returns the tick spacing enabled for a fee tier.
func TickSpacing(fee uint32) (int32, error) {
	spacing, ok := tickSpacings[fee]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownFeeTier, fee)
	}
	return spacing, nil
}
