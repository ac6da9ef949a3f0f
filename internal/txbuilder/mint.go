package txbuilder

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/aggregator"
	"automanKit/internal/automan"
	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/v3math"
)

// MintRequest describes a new position minted directly on the position manager.
type MintRequest struct {
	Token0         model.TokenMeta
	Token1         model.TokenMeta
	Fee            uint32
	TickLower      int32
	TickUpper      int32
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Recipient      common.Address
	Slippage       float64
	Deadline       *big.Int
	// NativeIn pays the wrapped native side with the chain's native currency.
	NativeIn bool
}

// MintTx builds a position manager mint for the liquidity the desired amounts buy at the current price.
func (b *Builder) MintTx(ctx context.Context, req MintRequest) (Tx, error) {
	if !v3math.SortsBefore(req.Token0, req.Token1) {
		return Tx{}, aggregator.ErrTokenOrder
	}
	if err := v3math.ValidateTicks(req.TickLower, req.TickUpper, req.Fee); err != nil {
		return Tx{}, err
	}
	if err := v3math.ValidateSlippage(req.Slippage); err != nil {
		return Tx{}, err
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, err
	}

	token0, token1 := common.HexToAddress(req.Token0.Address), common.HexToAddress(req.Token1.Address)
	poolAddress, err := dex.ComputePoolAddress(b.info.Factory, token0, token1, req.Fee, b.info.PoolInitCodeHash)
	if err != nil {
		return Tx{}, err
	}
	pool, err := dex.FetchPoolState(ctx, b.sim, poolAddress, b.poolCache, b.tokenCache, nil)
	if err != nil {
		return Tx{}, fmt.Errorf("pool %s: %w", poolAddress.Hex(), err)
	}

	amount0, amount1, err := expectedAmounts(pool.SqrtPriceX96, req.TickLower, req.TickUpper, orZero(req.Amount0Desired), orZero(req.Amount1Desired))
	if err != nil {
		return Tx{}, err
	}
	min0, min1, err := minimums(amount0, amount1, req.Slippage)
	if err != nil {
		return Tx{}, err
	}

	params := automan.MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            new(big.Int).SetUint64(uint64(req.Fee)),
		TickLower:      big.NewInt(int64(req.TickLower)),
		TickUpper:      big.NewInt(int64(req.TickUpper)),
		Amount0Desired: orZero(req.Amount0Desired),
		Amount1Desired: orZero(req.Amount1Desired),
		Amount0Min:     min0,
		Amount1Min:     min1,
		Recipient:      req.Recipient,
		Deadline:       req.Deadline,
	}
	return b.npmMint(params, req.NativeIn)
}

func (b *Builder) npmMint(params automan.MintParams, nativeIn bool) (Tx, error) {
	npmABI, err := dex.PositionManagerABI()
	if err != nil {
		return Tx{}, fmt.Errorf("parse npm abi: %w", err)
	}
	data, err := npmABI.Pack("mint", params)
	if err != nil {
		return Tx{}, fmt.Errorf("pack mint: %w", err)
	}

	value := b.nativeValue(nativeIn, params.Token0, params.Amount0Desired, params.Token1, params.Amount1Desired)
	if value.Sign() == 0 {
		return Tx{To: b.info.PositionManager, Data: data, Value: value}, nil
	}
	// unused native currency is refunded in the same call
	refund, err := npmABI.Pack("refundETH")
	if err != nil {
		return Tx{}, fmt.Errorf("pack refundETH: %w", err)
	}
	multicall, err := npmABI.Pack("multicall", [][]byte{data, refund})
	if err != nil {
		return Tx{}, fmt.Errorf("pack multicall: %w", err)
	}
	return Tx{To: b.info.PositionManager, Data: multicall, Value: value}, nil
}

func (b *Builder) nativeValue(nativeIn bool, token0 common.Address, amount0 *big.Int, token1 common.Address, amount1 *big.Int) *big.Int {
	if !nativeIn {
		return new(big.Int)
	}
	wrapped := common.HexToAddress(b.info.WrappedNative.Address)
	switch wrapped {
	case token0:
		return new(big.Int).Set(orZero(amount0))
	case token1:
		return new(big.Int).Set(orZero(amount1))
	default:
		return new(big.Int)
	}
}

// IncreaseLiquidityTx adds the desired amounts to an existing position.
func (b *Builder) IncreaseLiquidityTx(ctx context.Context, tokenID, amount0Desired, amount1Desired *big.Int, slippage float64, deadline *big.Int) (Tx, error) {
	if err := v3math.ValidateSlippage(slippage); err != nil {
		return Tx{}, err
	}
	if err := b.validateDeadline(deadline); err != nil {
		return Tx{}, err
	}
	details, err := dex.FetchPositionDetails(ctx, b.sim, b.info, tokenID, b.poolCache, b.tokenCache, nil)
	if err != nil {
		return Tx{}, err
	}
	amount0, amount1, err := expectedAmounts(details.Pool.SqrtPriceX96, details.Position.TickLower, details.Position.TickUpper, orZero(amount0Desired), orZero(amount1Desired))
	if err != nil {
		return Tx{}, err
	}
	min0, min1, err := minimums(amount0, amount1, slippage)
	if err != nil {
		return Tx{}, err
	}

	npmABI, err := dex.PositionManagerABI()
	if err != nil {
		return Tx{}, fmt.Errorf("parse npm abi: %w", err)
	}
	data, err := npmABI.Pack("increaseLiquidity", automan.IncreaseLiquidityParams{
		TokenId:        tokenID,
		Amount0Desired: orZero(amount0Desired),
		Amount1Desired: orZero(amount1Desired),
		Amount0Min:     min0,
		Amount1Min:     min1,
		Deadline:       deadline,
	})
	if err != nil {
		return Tx{}, fmt.Errorf("pack increaseLiquidity: %w", err)
	}
	return Tx{To: b.info.PositionManager, Data: data, Value: new(big.Int)}, nil
}

// CollectTx collects every owed token of a position to recipient.
func (b *Builder) CollectTx(tokenID *big.Int, recipient common.Address) (Tx, error) {
	npmABI, err := dex.PositionManagerABI()
	if err != nil {
		return Tx{}, fmt.Errorf("parse npm abi: %w", err)
	}
	data, err := npmABI.Pack("collect", dex.CollectParams{
		TokenId:    tokenID,
		Recipient:  recipient,
		Amount0Max: v3math.MaxUint128,
		Amount1Max: v3math.MaxUint128,
	})
	if err != nil {
		return Tx{}, fmt.Errorf("pack collect: %w", err)
	}
	return Tx{To: b.info.PositionManager, Data: data, Value: new(big.Int)}, nil
}

// OptimalMintTx mints through Automan, swapping to the optimal ratio first.
func (b *Builder) OptimalMintTx(ctx context.Context, req aggregator.MintRequest) (Tx, aggregator.MintEstimate, error) {
	if b.optimizer == nil {
		return Tx{}, aggregator.MintEstimate{}, ErrNoOptimizer
	}
	if err := req.Validate(); err != nil {
		return Tx{}, aggregator.MintEstimate{}, err
	}
	if err := b.validateDeadline(req.Deadline); err != nil {
		return Tx{}, aggregator.MintEstimate{}, err
	}
	estimate, err := b.optimizer.OptimalMint(ctx, req)
	if err != nil {
		return Tx{}, aggregator.MintEstimate{}, err
	}
	min0, min1, err := minimums(estimate.Amount0, estimate.Amount1, req.Slippage)
	if err != nil {
		return Tx{}, aggregator.MintEstimate{}, err
	}

	params := req.MintParams()
	params.Amount0Min = min0
	params.Amount1Min = min1
	data, err := automan.MintOptimalCalldata(params, estimate.SwapData)
	if err != nil {
		return Tx{}, aggregator.MintEstimate{}, err
	}
	return Tx{To: b.info.Automan, Data: data, Value: new(big.Int)}, estimate, nil
}

// expectedAmounts returns the amounts a mint of the desired amounts would consume at sqrtPriceX96.
func expectedAmounts(sqrtPriceX96 *big.Int, tickLower, tickUpper int32, amount0Desired, amount1Desired *big.Int) (*big.Int, *big.Int, error) {
	sqrtA, err := v3math.GetSqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtB, err := v3math.GetSqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}
	liquidity, err := v3math.GetLiquidityForAmounts(sqrtPriceX96, sqrtA, sqrtB, amount0Desired, amount1Desired)
	if err != nil {
		return nil, nil, err
	}
	return v3math.GetAmountsForLiquidity(sqrtPriceX96, sqrtA, sqrtB, liquidity)
}
