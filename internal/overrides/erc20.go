package overrides

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"golang.org/x/sync/errgroup"

	"automanKit/internal/chain"
	"automanKit/internal/dex"
)

// ErrInvalidAccessList means a token's storage layout could not be located from its access lists.
var ErrInvalidAccessList = errors.New("invalid access list")

// ERC20Overrides forces token.balanceOf(owner) and token.allowance(owner, spender) to amount.
//
// The balance and allowance slots are discovered with eth_createAccessList on the real reads.
// Proxy tokens also touch their implementation slot; it is read by both calls, so it is
// removed by differencing the two key sets.
func ERC20Overrides(ctx context.Context, provider chain.AccessListCreator, token, owner, spender common.Address, amount *big.Int) (chain.StateOverrides, error) {
	erc20ABI, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	balanceData, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	allowanceData, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("pack allowance: %w", err)
	}

	var balanceKeys, allowanceKeys []common.Hash
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balanceKeys, err = tokenStorageKeys(gctx, provider, owner, token, balanceData, "balanceOf")
		return err
	})
	g.Go(func() error {
		var err error
		allowanceKeys, err = tokenStorageKeys(gctx, provider, owner, token, allowanceData, "allowance")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	balanceSlot, err := pickSlot(balanceKeys, allowanceKeys, "balanceOf")
	if err != nil {
		return nil, err
	}
	allowanceSlot, err := pickSlot(allowanceKeys, balanceKeys, "allowance")
	if err != nil {
		return nil, err
	}

	value := common.BigToHash(amount)
	return chain.StateOverrides{
		token: gethclient.OverrideAccount{
			StateDiff: map[common.Hash]common.Hash{
				balanceSlot:   value,
				allowanceSlot: value,
			},
		},
	}, nil
}

func tokenStorageKeys(ctx context.Context, provider chain.AccessListCreator, from, token common.Address, data []byte, label string) ([]common.Hash, error) {
	list, _, vmErr, err := provider.CreateAccessList(ctx, ethereum.CallMsg{From: from, To: &token, Data: data})
	if err != nil {
		return nil, fmt.Errorf("create %s access list: %w", label, err)
	}
	if vmErr != "" {
		return nil, fmt.Errorf("create %s access list: %s", label, vmErr)
	}
	var entries []types.AccessTuple
	if list != nil {
		for _, tuple := range *list {
			if tuple.Address == token {
				entries = append(entries, tuple)
			}
		}
	}
	if len(entries) != 1 {
		return nil, fmt.Errorf("%w: invalid %s access list length %d", ErrInvalidAccessList, label, len(entries))
	}
	return entries[0].StorageKeys, nil
}

// pickSlot returns the only key of keys that other lacks.
func pickSlot(keys, other []common.Hash, label string) (common.Hash, error) {
	seen := make(map[common.Hash]struct{}, len(other))
	for _, k := range other {
		seen[k] = struct{}{}
	}
	var diff []common.Hash
	for _, k := range keys {
		if _, ok := seen[k]; !ok {
			diff = append(diff, k)
		}
	}
	if len(diff) != 1 {
		return common.Hash{}, fmt.Errorf("%w: invalid %s storage key number %d", ErrInvalidAccessList, label, len(diff))
	}
	return diff[0], nil
}
