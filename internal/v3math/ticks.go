package v3math

import (
	"errors"
	"fmt"
)

var ErrInvalidTicks = errors.New("tickLower or tickUpper not valid")

// NearestUsableTick rounds tick to the nearest multiple of tickSpacing (halves round up),
// keeping the result inside [MinTick, MaxTick].
func NearestUsableTick(tick, tickSpacing int32) int32 {
	if tickSpacing <= 0 {
		return tick
	}
	rounded := floorDiv(2*int64(tick)+int64(tickSpacing), 2*int64(tickSpacing)) * int64(tickSpacing)
	if rounded < int64(MinTick) {
		return int32(rounded + int64(tickSpacing))
	}
	if rounded > int64(MaxTick) {
		return int32(rounded - int64(tickSpacing))
	}
	return int32(rounded)
}

// MinUsableTick is the lowest initializable tick for the spacing.
func MinUsableTick(tickSpacing int32) int32 {
	return -(MaxTick / tickSpacing) * tickSpacing
}

// MaxUsableTick is the highest initializable tick for the spacing.
func MaxUsableTick(tickSpacing int32) int32 {
	return (MaxTick / tickSpacing) * tickSpacing
}

// ValidateTicks checks that both ticks are usable for the fee tier and ordered.
func ValidateTicks(tickLower, tickUpper int32, fee uint32) error {
	spacing, err := TickSpacing(fee)
	if err != nil {
		return err
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return ErrInvalidTicks
	}
	if tickLower != NearestUsableTick(tickLower, spacing) || tickUpper != NearestUsableTick(tickUpper, spacing) {
		return ErrInvalidTicks
	}
	if tickLower >= tickUpper {
		return fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidTicks, tickLower, tickUpper)
	}
	return nil
}

// LimitOrderRange is the single-spacing range a limit order occupies.
type LimitOrderRange struct {
	TickLower int32 `json:"tick_lower"`
	TickUpper int32 `json:"tick_upper"`
	TickAvg   int32 `json:"tick_avg"`
}

// TickToLimitOrderRange returns the aligned range containing tick, one spacing wide.
func TickToLimitOrderRange(tick int32, fee uint32) (LimitOrderRange, error) {
	spacing, err := TickSpacing(fee)
	if err != nil {
		return LimitOrderRange{}, err
	}
	lower := int32(floorDiv(int64(tick), int64(spacing)) * int64(spacing))
	if lower < MinUsableTick(spacing) {
		lower = MinUsableTick(spacing)
	}
	if lower+spacing > MaxUsableTick(spacing) {
		lower = MaxUsableTick(spacing) - spacing
	}
	return LimitOrderRange{
		TickLower: lower,
		TickUpper: lower + spacing,
		TickAvg:   lower + spacing/2,
	}, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
