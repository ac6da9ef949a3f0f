package automan

import (
	"fmt"
	"math/big"
)

// DecodeMintResult decodes mintOptimal return data.
func DecodeMintResult(data []byte) (MintResult, error) {
	values, err := unpackOutput("mintOptimal", data, 4)
	if err != nil {
		return MintResult{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return MintResult{}, fmt.Errorf("mintOptimal: %w", err)
	}
	return MintResult{TokenID: ints[0], Liquidity: ints[1], Amount0: ints[2], Amount1: ints[3]}, nil
}

// DecodeRebalanceResult decodes rebalance return data. Both overloads share the layout.
func DecodeRebalanceResult(data []byte) (RebalanceResult, error) {
	values, err := unpackOutput("rebalance", data, 4)
	if err != nil {
		return RebalanceResult{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return RebalanceResult{}, fmt.Errorf("rebalance: %w", err)
	}
	return RebalanceResult{NewTokenID: ints[0], Liquidity: ints[1], Amount0: ints[2], Amount1: ints[3]}, nil
}

// DecodeReinvestResult decodes reinvest return data.
func DecodeReinvestResult(data []byte) (ReinvestResult, error) {
	values, err := unpackOutput("reinvest", data, 3)
	if err != nil {
		return ReinvestResult{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return ReinvestResult{}, fmt.Errorf("reinvest: %w", err)
	}
	return ReinvestResult{Liquidity: ints[0], Amount0: ints[1], Amount1: ints[2]}, nil
}

// DecodeRemoveLiquidityResult decodes removeLiquidity or decreaseLiquidity return data.
func DecodeRemoveLiquidityResult(data []byte) (RemoveLiquidityResult, error) {
	values, err := unpackOutput("removeLiquidity", data, 2)
	if err != nil {
		return RemoveLiquidityResult{}, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return RemoveLiquidityResult{}, fmt.Errorf("removeLiquidity: %w", err)
	}
	return RemoveLiquidityResult{Amount0: ints[0], Amount1: ints[1]}, nil
}

// DecodeDecreaseLiquiditySingleResult decodes the single-token amount.
func DecodeDecreaseLiquiditySingleResult(data []byte) (*big.Int, error) {
	values, err := unpackOutput("decreaseLiquiditySingle", data, 1)
	if err != nil {
		return nil, err
	}
	ints, err := bigInts(values)
	if err != nil {
		return nil, fmt.Errorf("decreaseLiquiditySingle: %w", err)
	}
	return ints[0], nil
}

// DecodeOptimalSwap decodes getOptimalSwap return data.
func DecodeOptimalSwap(data []byte) (OptimalSwap, error) {
	values, err := unpackOutput("getOptimalSwap", data, 4)
	if err != nil {
		return OptimalSwap{}, err
	}
	amountIn, ok1 := values[0].(*big.Int)
	amountOut, ok2 := values[1].(*big.Int)
	zeroForOne, ok3 := values[2].(bool)
	sqrtPrice, ok4 := values[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return OptimalSwap{}, fmt.Errorf("getOptimalSwap: unexpected return types")
	}
	return OptimalSwap{AmountIn: amountIn, AmountOut: amountOut, ZeroForOne: zeroForOne, SqrtPriceX96: sqrtPrice}, nil
}

func unpackOutput(method string, data []byte, want int) ([]interface{}, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse automan abi: %w", err)
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) != want {
		return nil, fmt.Errorf("unpack %s: %d values, want %d", method, len(values), want)
	}
	return values, nil
}

func bigInts(values []interface{}) ([]*big.Int, error) {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		n, ok := v.(*big.Int)
		if !ok {
			return nil, fmt.Errorf("value %d has type %T", i, v)
		}
		out[i] = n
	}
	return out, nil
}
