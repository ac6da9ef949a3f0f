package txbuilder

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/automan"
	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/v3math"
)

// LimitOrderRequest sells Amount of Sell for Buy once the pool crosses LimitPrice.
type LimitOrderRequest struct {
	Sell   model.TokenMeta
	Buy    model.TokenMeta
	Amount *big.Int
	// LimitPrice is the price of Sell denominated in Buy.
	LimitPrice v3math.Price
	Fee        uint32
	// WidthMultiplier widens the range to that many tick spacings; zero means one.
	WidthMultiplier int32
	Recipient       common.Address
	Deadline        *big.Int
	NativeIn        bool
}

// LimitOrderTx mints a single-sided position that is fully converted once the price passes the limit.
func (b *Builder) LimitOrderTx(ctx context.Context, req LimitOrderRequest) (Tx, v3math.LimitOrderRange, error) {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return Tx{}, v3math.LimitOrderRange{}, fmt.Errorf("%w: limit order amount must be positive", v3math.ErrInvalidAmount)
	}
	if !strings.EqualFold(req.LimitPrice.Base.Address, req.Sell.Address) || !strings.EqualFold(req.LimitPrice.Quote.Address, req.Buy.Address) {
		return Tx{}, v3math.LimitOrderRange{}, fmt.Errorf("%w: limit price must be quoted as sell token in buy token", v3math.ErrInvalidPrice)
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}
	spacing, err := v3math.TickSpacing(req.Fee)
	if err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}
	multiplier := req.WidthMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	width := spacing * multiplier

	tick, err := v3math.PriceToClosestUsableTick(req.LimitPrice, req.Fee)
	if err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}
	zeroToOne := v3math.SortsBefore(req.Sell, req.Buy)
	var rng v3math.LimitOrderRange
	if zeroToOne {
		rng.TickUpper = tick
		rng.TickLower = tick - width
	} else {
		rng.TickLower = tick
		rng.TickUpper = tick + width
	}
	rng.TickAvg = rng.TickLower + width/2
	if err := v3math.ValidateTicks(rng.TickLower, rng.TickUpper, req.Fee); err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}

	token0, token1 := req.Sell, req.Buy
	if !zeroToOne {
		token0, token1 = req.Buy, req.Sell
	}
	address0, address1 := common.HexToAddress(token0.Address), common.HexToAddress(token1.Address)
	poolAddress, err := dex.ComputePoolAddress(b.info.Factory, address0, address1, req.Fee, b.info.PoolInitCodeHash)
	if err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}
	pool, err := dex.FetchPoolState(ctx, b.sim, poolAddress, b.poolCache, b.tokenCache, nil)
	if err != nil {
		return Tx{}, v3math.LimitOrderRange{}, fmt.Errorf("pool %s: %w", poolAddress.Hex(), err)
	}
	// the range must sit entirely on the sell side of the current price
	if (zeroToOne && pool.Tick >= rng.TickLower) || (!zeroToOne && pool.Tick < rng.TickUpper) {
		return Tx{}, v3math.LimitOrderRange{}, fmt.Errorf("%w: current tick %d, range [%d, %d]", ErrLimitPriceNotValid, pool.Tick, rng.TickLower, rng.TickUpper)
	}

	amount0, amount1 := new(big.Int), new(big.Int)
	if zeroToOne {
		amount0.Set(req.Amount)
	} else {
		amount1.Set(req.Amount)
	}
	params := automan.MintParams{
		Token0:         address0,
		Token1:         address1,
		Fee:            new(big.Int).SetUint64(uint64(req.Fee)),
		TickLower:      big.NewInt(int64(rng.TickLower)),
		TickUpper:      big.NewInt(int64(rng.TickUpper)),
		Amount0Desired: amount0,
		Amount1Desired: amount1,
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Recipient:      req.Recipient,
		Deadline:       req.Deadline,
	}
	tx, err := b.npmMint(params, req.NativeIn)
	if err != nil {
		return Tx{}, v3math.LimitOrderRange{}, err
	}
	return tx, rng, nil
}
