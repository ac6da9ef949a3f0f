package dex

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/chain"
)

// FetchTokenBalance reads balanceOf(owner).
func FetchTokenBalance(ctx context.Context, caller chain.ContractCaller, token, owner common.Address, block *big.Int) (*big.Int, error) {
	erc20ABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, erc20ABI, "balanceOf", block, owner)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// FetchTokenAllowance reads allowance(owner, spender).
func FetchTokenAllowance(ctx context.Context, caller chain.ContractCaller, token, owner, spender common.Address, block *big.Int) (*big.Int, error) {
	erc20ABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := callMethod(ctx, caller, token, erc20ABI, "allowance", block, owner, spender)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// FetchApproved reads getApproved(tokenId) on the position manager.
func FetchApproved(ctx context.Context, caller chain.ContractCaller, npm common.Address, tokenID *big.Int, block *big.Int) (common.Address, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse npm abi: %w", err)
	}
	values, err := callMethod(ctx, caller, npm, npmABI, "getApproved", block, tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// FetchApprovedForAll reads isApprovedForAll(owner, operator) on the position manager.
func FetchApprovedForAll(ctx context.Context, caller chain.ContractCaller, npm, owner, operator common.Address, block *big.Int) (bool, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return false, fmt.Errorf("parse npm abi: %w", err)
	}
	values, err := callMethod(ctx, caller, npm, npmABI, "isApprovedForAll", block, owner, operator)
	if err != nil {
		return false, err
	}
	return asBool(values[0])
}
