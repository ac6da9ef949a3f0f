package automan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// MintOptimalCalldata encodes mintOptimal(params, swapData).
func MintOptimalCalldata(params MintParams, swapData []byte) ([]byte, error) {
	return pack("mintOptimal", params, nonNil(swapData))
}

// RebalanceCalldata encodes rebalance; a non-nil permit selects the permit overload.
func RebalanceCalldata(params MintParams, tokenID, feeBips *big.Int, swapData []byte, permit *Permit) ([]byte, error) {
	if permit != nil {
		return pack(methodRebalancePermit, params, tokenID, orZero(feeBips), nonNil(swapData), permit.Deadline, permit.V, permit.R, permit.S)
	}
	return pack("rebalance", params, tokenID, orZero(feeBips), nonNil(swapData))
}

// ReinvestCalldata encodes reinvest; a non-nil permit selects the permit overload.
func ReinvestCalldata(params IncreaseLiquidityParams, feeBips *big.Int, swapData []byte, permit *Permit) ([]byte, error) {
	if permit != nil {
		return pack(methodReinvestPermit, params, orZero(feeBips), nonNil(swapData), permit.Deadline, permit.V, permit.R, permit.S)
	}
	return pack("reinvest", params, orZero(feeBips), nonNil(swapData))
}

// DecreaseLiquidityCalldata encodes decreaseLiquidity; a non-nil permit selects the permit overload.
func DecreaseLiquidityCalldata(params DecreaseLiquidityParams, feeBips *big.Int, permit *Permit) ([]byte, error) {
	if permit != nil {
		return pack(methodDecreaseLiquidityPermit, params, orZero(feeBips), permit.Deadline, permit.V, permit.R, permit.S)
	}
	return pack("decreaseLiquidity", params, orZero(feeBips))
}

// DecreaseLiquiditySingleCalldata encodes decreaseLiquiditySingle, which swaps the withdrawn amounts into one token.
func DecreaseLiquiditySingleCalldata(params DecreaseLiquidityParams, zeroForOne bool, feeBips *big.Int, swapData []byte) ([]byte, error) {
	return pack("decreaseLiquiditySingle", params, zeroForOne, orZero(feeBips), nonNil(swapData))
}

// RemoveLiquidityCalldata encodes removeLiquidity; a non-nil permit selects the permit overload.
func RemoveLiquidityCalldata(params DecreaseLiquidityParams, feeBips *big.Int, permit *Permit) ([]byte, error) {
	if permit != nil {
		return pack(methodRemoveLiquidityPermit, params, orZero(feeBips), permit.Deadline, permit.V, permit.R, permit.S)
	}
	return pack("removeLiquidity", params, orZero(feeBips))
}

// GetOptimalSwapCalldata encodes getOptimalSwap(pool, tickLower, tickUpper, amount0Desired, amount1Desired).
func GetOptimalSwapCalldata(pool common.Address, tickLower, tickUpper int32, amount0Desired, amount1Desired *big.Int) ([]byte, error) {
	return pack("getOptimalSwap", pool, big.NewInt(int64(tickLower)), big.NewInt(int64(tickUpper)), orZero(amount0Desired), orZero(amount1Desired))
}

// IsWhiteListedSwapRouterCalldata encodes isWhiteListedSwapRouter(router).
func IsWhiteListedSwapRouterCalldata(router common.Address) ([]byte, error) {
	return pack("isWhiteListedSwapRouter", router)
}

// DecodeMintOptimalCalldata recovers the arguments of a mintOptimal call.
func DecodeMintOptimalCalldata(data []byte) (MintParams, []byte, error) {
	args, err := unpackInput("mintOptimal", data)
	if err != nil {
		return MintParams{}, nil, err
	}
	var params MintParams
	if err := convert(args[0], &params); err != nil {
		return MintParams{}, nil, err
	}
	swapData, ok := args[1].([]byte)
	if !ok {
		return MintParams{}, nil, fmt.Errorf("swap data type %T", args[1])
	}
	return params, swapData, nil
}

// DecodeRebalanceCalldata recovers the arguments of a rebalance call without permit.
func DecodeRebalanceCalldata(data []byte) (MintParams, *big.Int, *big.Int, []byte, error) {
	args, err := unpackInput("rebalance", data)
	if err != nil {
		return MintParams{}, nil, nil, nil, err
	}
	var params MintParams
	if err := convert(args[0], &params); err != nil {
		return MintParams{}, nil, nil, nil, err
	}
	tokenID, ok1 := args[1].(*big.Int)
	feeBips, ok2 := args[2].(*big.Int)
	swapData, ok3 := args[3].([]byte)
	if !ok1 || !ok2 || !ok3 {
		return MintParams{}, nil, nil, nil, fmt.Errorf("unexpected rebalance argument types")
	}
	return params, tokenID, feeBips, swapData, nil
}

// DecodeReinvestCalldata recovers the arguments of a reinvest call without permit.
func DecodeReinvestCalldata(data []byte) (IncreaseLiquidityParams, *big.Int, []byte, error) {
	args, err := unpackInput("reinvest", data)
	if err != nil {
		return IncreaseLiquidityParams{}, nil, nil, err
	}
	var params IncreaseLiquidityParams
	if err := convert(args[0], &params); err != nil {
		return IncreaseLiquidityParams{}, nil, nil, err
	}
	feeBips, ok1 := args[1].(*big.Int)
	swapData, ok2 := args[2].([]byte)
	if !ok1 || !ok2 {
		return IncreaseLiquidityParams{}, nil, nil, fmt.Errorf("unexpected reinvest argument types")
	}
	return params, feeBips, swapData, nil
}

func pack(method string, args ...interface{}) ([]byte, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse automan abi: %w", err)
	}
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func unpackInput(method string, data []byte) ([]interface{}, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, fmt.Errorf("parse automan abi: %w", err)
	}
	m, ok := parsed.Methods[method]
	if !ok {
		return nil, fmt.Errorf("unknown method %s", method)
	}
	if len(data) < 4 || string(data[:4]) != string(m.ID) {
		return nil, fmt.Errorf("calldata is not %s", method)
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s input: %w", method, err)
	}
	return args, nil
}

func convert(value interface{}, out interface{}) error {
	converted := abi.ConvertType(value, out)
	if converted == nil {
		return fmt.Errorf("convert %T", value)
	}
	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
