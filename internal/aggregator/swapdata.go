package aggregator

import (
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// SwapRoute describes an external swap executed by the optimal swap router inside mintOptimal.
type SwapRoute struct {
	Token0        common.Address
	Token1        common.Address
	Fee           uint32
	TickLower     int32
	TickUpper     int32
	ZeroForOne    bool
	ApproveTarget common.Address
	Router        common.Address
	Data          []byte
}

var (
	swapDataArgs     abi.Arguments
	swapDataArgsOnce sync.Once
	swapDataArgsErr  error
)

func optimalSwapArguments() (abi.Arguments, error) {
	swapDataArgsOnce.Do(func() {
		types := []string{"address", "address", "uint24", "int24", "int24", "bool", "address", "address", "bytes"}
		for _, name := range types {
			typ, err := abi.NewType(name, "", nil)
			if err != nil {
				swapDataArgsErr = fmt.Errorf("abi type %s: %w", name, err)
				return
			}
			swapDataArgs = append(swapDataArgs, abi.Argument{Type: typ})
		}
	})
	return swapDataArgs, swapDataArgsErr
}

// EncodeOptimalSwapData builds the swapData argument of mintOptimal:
// the 20 byte router address followed by abi.encode of the route.
func EncodeOptimalSwapData(optimalSwapRouter common.Address, route SwapRoute) ([]byte, error) {
	args, err := optimalSwapArguments()
	if err != nil {
		return nil, err
	}
	data := route.Data
	if data == nil {
		data = []byte{}
	}
	encoded, err := args.Pack(
		route.Token0,
		route.Token1,
		new(big.Int).SetUint64(uint64(route.Fee)),
		big.NewInt(int64(route.TickLower)),
		big.NewInt(int64(route.TickUpper)),
		route.ZeroForOne,
		route.ApproveTarget,
		route.Router,
		data,
	)
	if err != nil {
		return nil, fmt.Errorf("pack swap data: %w", err)
	}
	out := make([]byte, 0, common.AddressLength+len(encoded))
	out = append(out, optimalSwapRouter.Bytes()...)
	return append(out, encoded...), nil
}

// DecodeOptimalSwapData splits swapData back into router and route.
func DecodeOptimalSwapData(swapData []byte) (common.Address, SwapRoute, error) {
	if len(swapData) < common.AddressLength {
		return common.Address{}, SwapRoute{}, fmt.Errorf("swap data too short: %d", len(swapData))
	}
	args, err := optimalSwapArguments()
	if err != nil {
		return common.Address{}, SwapRoute{}, err
	}
	values, err := args.Unpack(swapData[common.AddressLength:])
	if err != nil {
		return common.Address{}, SwapRoute{}, fmt.Errorf("unpack swap data: %w", err)
	}
	if len(values) != 9 {
		return common.Address{}, SwapRoute{}, fmt.Errorf("unexpected swap data values: %d", len(values))
	}
	route := SwapRoute{}
	var ok [9]bool
	route.Token0, ok[0] = values[0].(common.Address)
	route.Token1, ok[1] = values[1].(common.Address)
	fee, ok2 := values[2].(*big.Int)
	ok[2] = ok2
	lower, ok3 := values[3].(*big.Int)
	ok[3] = ok3
	upper, ok4 := values[4].(*big.Int)
	ok[4] = ok4
	route.ZeroForOne, ok[5] = values[5].(bool)
	route.ApproveTarget, ok[6] = values[6].(common.Address)
	route.Router, ok[7] = values[7].(common.Address)
	route.Data, ok[8] = values[8].([]byte)
	for i, good := range ok {
		if !good {
			return common.Address{}, SwapRoute{}, fmt.Errorf("swap data value %d has type %T", i, values[i])
		}
	}
	route.Fee = uint32(fee.Uint64())
	route.TickLower = int32(lower.Int64())
	route.TickUpper = int32(upper.Int64())
	return common.BytesToAddress(swapData[:common.AddressLength]), route, nil
}
