package automan

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Field names follow the ABI component names so go-ethereum can pack the tuples directly.

// MintParams is INonfungiblePositionManager.MintParams.
type MintParams struct {
	Token0         common.Address
	Token1         common.Address
	Fee            *big.Int
	TickLower      *big.Int
	TickUpper      *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Recipient      common.Address
	Deadline       *big.Int
}

// IncreaseLiquidityParams is INonfungiblePositionManager.IncreaseLiquidityParams.
type IncreaseLiquidityParams struct {
	TokenId        *big.Int
	Amount0Desired *big.Int
	Amount1Desired *big.Int
	Amount0Min     *big.Int
	Amount1Min     *big.Int
	Deadline       *big.Int
}

// DecreaseLiquidityParams is INonfungiblePositionManager.DecreaseLiquidityParams.
type DecreaseLiquidityParams struct {
	TokenId    *big.Int
	Liquidity  *big.Int
	Amount0Min *big.Int
	Amount1Min *big.Int
	Deadline   *big.Int
}

// Permit is a position manager permit signature granting Automan access to one position.
type Permit struct {
	Deadline *big.Int
	V        uint8
	R        [32]byte
	S        [32]byte
}

// MintResult is returned by mintOptimal.
type MintResult struct {
	TokenID   *big.Int
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

// RebalanceResult is returned by rebalance.
type RebalanceResult struct {
	NewTokenID *big.Int
	Liquidity  *big.Int
	Amount0    *big.Int
	Amount1    *big.Int
}

// ReinvestResult is returned by reinvest.
type ReinvestResult struct {
	Liquidity *big.Int
	Amount0   *big.Int
	Amount1   *big.Int
}

// RemoveLiquidityResult is returned by removeLiquidity and decreaseLiquidity.
type RemoveLiquidityResult struct {
	Amount0 *big.Int
	Amount1 *big.Int
}

// OptimalSwap is the pool-only swap computed by getOptimalSwap.
type OptimalSwap struct {
	AmountIn     *big.Int
	AmountOut    *big.Int
	ZeroForOne   bool
	SqrtPriceX96 *big.Int
}
