package txbuilder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"automanKit/internal/automan"
	"automanKit/internal/dex"
	"automanKit/internal/v3math"
)

// RebalanceRequest moves a position into a new range through Automan.
type RebalanceRequest struct {
	TokenID      *big.Int
	Owner        common.Address
	NewTickLower int32
	NewTickUpper int32
	FeeBips      *big.Int
	SwapData     []byte
	Slippage     float64
	Deadline     *big.Int
	// Permit is used instead of a prior approval when set.
	Permit *automan.Permit
}

// RebalanceTx simulates the rebalance and returns the transaction with slippage protected minimums.
func (b *Builder) RebalanceTx(ctx context.Context, req RebalanceRequest) (Tx, automan.RebalanceResult, error) {
	if err := v3math.ValidateSlippage(req.Slippage); err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}

	position, err := dex.FetchBasicPositionInfo(ctx, b.sim, b.info.PositionManager, req.TokenID, nil)
	if err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}
	if err := v3math.ValidateTicks(req.NewTickLower, req.NewTickUpper, position.Fee); err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}

	params := automan.MintParams{
		Token0:         position.Token0,
		Token1:         position.Token1,
		Fee:            new(big.Int).SetUint64(uint64(position.Fee)),
		TickLower:      big.NewInt(int64(req.NewTickLower)),
		TickUpper:      big.NewInt(int64(req.NewTickUpper)),
		Amount0Desired: new(big.Int),
		Amount1Desired: new(big.Int),
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Recipient:      req.Owner,
		Deadline:       req.Deadline,
	}
	feeBips := orZero(req.FeeBips)
	result, err := b.automan.SimulateRebalance(ctx, req.Owner, params, req.TokenID, feeBips, req.SwapData, nil)
	if err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}
	params.Amount0Min, params.Amount1Min, err = minimums(result.Amount0, result.Amount1, req.Slippage)
	if err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}
	b.logger.Debug("rebalance simulated",
		zap.String("token_id", req.TokenID.String()),
		zap.String("liquidity", result.Liquidity.String()),
		zap.Int32("tick_lower", req.NewTickLower),
		zap.Int32("tick_upper", req.NewTickUpper),
	)

	data, err := automan.RebalanceCalldata(params, req.TokenID, feeBips, req.SwapData, req.Permit)
	if err != nil {
		return Tx{}, automan.RebalanceResult{}, err
	}
	return Tx{To: b.info.Automan, Data: data, Value: new(big.Int)}, result, nil
}

// ReinvestRequest compounds collected fees back into the same position.
type ReinvestRequest struct {
	TokenID  *big.Int
	Owner    common.Address
	FeeBips  *big.Int
	SwapData []byte
	Slippage float64
	Deadline *big.Int
	Permit   *automan.Permit
}

// ReinvestTx simulates the reinvest and returns the transaction with slippage protected minimums.
func (b *Builder) ReinvestTx(ctx context.Context, req ReinvestRequest) (Tx, automan.ReinvestResult, error) {
	if err := v3math.ValidateSlippage(req.Slippage); err != nil {
		return Tx{}, automan.ReinvestResult{}, err
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, automan.ReinvestResult{}, err
	}

	params := automan.IncreaseLiquidityParams{
		TokenId:        req.TokenID,
		Amount0Desired: new(big.Int),
		Amount1Desired: new(big.Int),
		Amount0Min:     new(big.Int),
		Amount1Min:     new(big.Int),
		Deadline:       req.Deadline,
	}
	feeBips := orZero(req.FeeBips)
	result, err := b.automan.SimulateReinvest(ctx, req.Owner, params, feeBips, req.SwapData, nil)
	if err != nil {
		return Tx{}, automan.ReinvestResult{}, err
	}
	params.Amount0Min, params.Amount1Min, err = minimums(result.Amount0, result.Amount1, req.Slippage)
	if err != nil {
		return Tx{}, automan.ReinvestResult{}, err
	}

	data, err := automan.ReinvestCalldata(params, feeBips, req.SwapData, req.Permit)
	if err != nil {
		return Tx{}, automan.ReinvestResult{}, err
	}
	return Tx{To: b.info.Automan, Data: data, Value: new(big.Int)}, result, nil
}

// RemoveLiquidityRequest withdraws some or all liquidity from a position.
// A Percentage of 1 closes the position and burns the NFT.
type RemoveLiquidityRequest struct {
	TokenID    *big.Int
	Owner      common.Address
	Percentage float64
	FeeBips    *big.Int
	Slippage   float64
	Deadline   *big.Int
	Permit     *automan.Permit
}

// RemoveLiquidityTx simulates the withdrawal and returns the transaction with slippage protected minimums.
func (b *Builder) RemoveLiquidityTx(ctx context.Context, req RemoveLiquidityRequest) (Tx, automan.RemoveLiquidityResult, error) {
	if req.Percentage <= 0 || req.Percentage > 1 {
		return Tx{}, automan.RemoveLiquidityResult{}, fmt.Errorf("%w: %v", ErrInvalidPercentage, req.Percentage)
	}
	if err := v3math.ValidateSlippage(req.Slippage); err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}

	position, err := dex.FetchBasicPositionInfo(ctx, b.sim, b.info.PositionManager, req.TokenID, nil)
	if err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}
	closing := req.Percentage == 1
	liquidity := position.Liquidity
	if !closing {
		liquidity = decimal.NewFromBigInt(position.Liquidity, 0).
			Mul(decimal.NewFromFloat(req.Percentage)).
			Floor().
			BigInt()
	}

	params := automan.DecreaseLiquidityParams{
		TokenId:    req.TokenID,
		Liquidity:  liquidity,
		Amount0Min: new(big.Int),
		Amount1Min: new(big.Int),
		Deadline:   req.Deadline,
	}
	feeBips := orZero(req.FeeBips)

	var result automan.RemoveLiquidityResult
	if closing {
		result, err = b.automan.SimulateRemoveLiquidity(ctx, req.Owner, params, feeBips, nil)
	} else {
		result, err = b.automan.SimulateDecreaseLiquidity(ctx, req.Owner, params, feeBips, nil)
	}
	if err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}
	params.Amount0Min, params.Amount1Min, err = minimums(result.Amount0, result.Amount1, req.Slippage)
	if err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}

	var data []byte
	if closing {
		data, err = automan.RemoveLiquidityCalldata(params, feeBips, req.Permit)
	} else {
		data, err = automan.DecreaseLiquidityCalldata(params, feeBips, req.Permit)
	}
	if err != nil {
		return Tx{}, automan.RemoveLiquidityResult{}, err
	}
	return Tx{To: b.info.Automan, Data: data, Value: new(big.Int)}, result, nil
}
