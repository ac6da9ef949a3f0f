package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/model"
	"automanKit/internal/v3math"
)

// ErrPositionNotFound is returned for burned or never minted token ids.
var ErrPositionNotFound = errors.New("position not found")

// BasicPosition mirrors NonfungiblePositionManager.positions(tokenId).
type BasicPosition struct {
	TokenID                  *big.Int
	Nonce                    *big.Int
	Operator                 common.Address
	Token0                   common.Address
	Token1                   common.Address
	Fee                      uint32
	TickLower                int32
	TickUpper                int32
	Liquidity                *big.Int
	FeeGrowthInside0LastX128 *big.Int
	FeeGrowthInside1LastX128 *big.Int
	TokensOwed0              *big.Int
	TokensOwed1              *big.Int
}

// PositionDetails joins a position with its pool state and derived amounts.
type PositionDetails struct {
	Position     BasicPosition
	Owner        common.Address
	Pool         PoolState
	Amount0      *big.Int
	Amount1      *big.Int
	Collectable0 *big.Int
	Collectable1 *big.Int
	InRange      bool
}

// Snapshot flattens the details into the storage representation.
func (d PositionDetails) Snapshot(chainID, blockNumber uint64, observedAt time.Time) model.PositionSnapshot {
	return model.PositionSnapshot{
		ChainID:      chainID,
		TokenID:      d.Position.TokenID.String(),
		Owner:        d.Owner.Hex(),
		Pool:         d.Pool.Address.Hex(),
		Token0:       d.Position.Token0.Hex(),
		Token1:       d.Position.Token1.Hex(),
		Fee:          d.Position.Fee,
		TickLower:    d.Position.TickLower,
		TickUpper:    d.Position.TickUpper,
		Liquidity:    d.Position.Liquidity.String(),
		Amount0:      d.Amount0.String(),
		Amount1:      d.Amount1.String(),
		Collectable0: d.Collectable0.String(),
		Collectable1: d.Collectable1.String(),
		InRange:      d.InRange,
		BlockNumber:  blockNumber,
		ObservedAt:   observedAt,
	}
}

// FetchBasicPositionInfo reads positions(tokenId) from the position manager.
func FetchBasicPositionInfo(ctx context.Context, caller chain.ContractCaller, npm common.Address, tokenID *big.Int, block *big.Int) (BasicPosition, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return BasicPosition{}, fmt.Errorf("parse npm abi: %w", err)
	}
	values, err := callMethod(ctx, caller, npm, npmABI, "positions", block, tokenID)
	if err != nil {
		return BasicPosition{}, fmt.Errorf("position %s: %w", tokenID, err)
	}
	if len(values) != 12 {
		return BasicPosition{}, fmt.Errorf("positions return size %d", len(values))
	}

	pos := BasicPosition{TokenID: new(big.Int).Set(tokenID)}
	ints := make([]*big.Int, len(values))
	for _, idx := range []int{0, 4, 5, 6, 7, 8, 9, 10, 11} {
		v, err := asBigInt(values[idx])
		if err != nil {
			return BasicPosition{}, fmt.Errorf("positions field %d: %w", idx, err)
		}
		ints[idx] = v
	}
	if pos.Operator, err = asAddress(values[1]); err != nil {
		return BasicPosition{}, fmt.Errorf("operator: %w", err)
	}
	if pos.Token0, err = asAddress(values[2]); err != nil {
		return BasicPosition{}, fmt.Errorf("token0: %w", err)
	}
	if pos.Token1, err = asAddress(values[3]); err != nil {
		return BasicPosition{}, fmt.Errorf("token1: %w", err)
	}
	if pos.TickLower, err = int24FromBig(ints[5]); err != nil {
		return BasicPosition{}, fmt.Errorf("tick lower: %w", err)
	}
	if pos.TickUpper, err = int24FromBig(ints[6]); err != nil {
		return BasicPosition{}, fmt.Errorf("tick upper: %w", err)
	}
	pos.Nonce = ints[0]
	pos.Fee = uint32(ints[4].Uint64())
	pos.Liquidity = ints[7]
	pos.FeeGrowthInside0LastX128 = ints[8]
	pos.FeeGrowthInside1LastX128 = ints[9]
	pos.TokensOwed0 = ints[10]
	pos.TokensOwed1 = ints[11]

	if pos.Token0 == (common.Address{}) {
		return BasicPosition{}, fmt.Errorf("%w: %s", ErrPositionNotFound, tokenID)
	}
	return pos, nil
}

// FetchPositionOwner reads ownerOf(tokenId).
func FetchPositionOwner(ctx context.Context, caller chain.ContractCaller, npm common.Address, tokenID *big.Int, block *big.Int) (common.Address, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse npm abi: %w", err)
	}
	values, err := callMethod(ctx, caller, npm, npmABI, "ownerOf", block, tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

// CollectParams matches INonfungiblePositionManager.CollectParams for ABI packing.
type CollectParams struct {
	TokenId    *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// FetchCollectableAmounts statically calls collect from the owner to read uncollected fees.
func FetchCollectableAmounts(ctx context.Context, caller chain.ContractCaller, npm common.Address, tokenID *big.Int, owner common.Address, block *big.Int) (*big.Int, *big.Int, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse npm abi: %w", err)
	}
	params := CollectParams{
		TokenId:    tokenID,
		Recipient:  owner,
		Amount0Max: v3math.MaxUint128,
		Amount1Max: v3math.MaxUint128,
	}
	data, err := npmABI.Pack("collect", params)
	if err != nil {
		return nil, nil, fmt.Errorf("pack collect: %w", err)
	}
	resp, err := caller.CallContract(ctx, callMsg(owner, npm, data), block)
	if err != nil {
		return nil, nil, fmt.Errorf("call collect: %w", err)
	}
	values, err := npmABI.Unpack("collect", resp)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack collect: %w", err)
	}
	if len(values) != 2 {
		return nil, nil, fmt.Errorf("collect return size %d", len(values))
	}
	amount0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, err
	}
	amount1, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// FetchPositionDetails loads a position together with its pool, owner, token amounts and fees.
func FetchPositionDetails(ctx context.Context, caller chain.ContractCaller, info chaininfo.Info, tokenID *big.Int, poolCache *PoolMetaCache, tokenCache *TokenMetaCache, block *big.Int) (PositionDetails, error) {
	var (
		pos   BasicPosition
		owner common.Address
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		pos, err = FetchBasicPositionInfo(gctx, caller, info.PositionManager, tokenID, block)
		return err
	})
	g.Go(func() error {
		var err error
		owner, err = FetchPositionOwner(gctx, caller, info.PositionManager, tokenID, block)
		return err
	})
	if err := g.Wait(); err != nil {
		return PositionDetails{}, err
	}

	poolAddress, err := ComputePoolAddress(info.Factory, pos.Token0, pos.Token1, pos.Fee, info.PoolInitCodeHash)
	if err != nil {
		return PositionDetails{}, err
	}

	details := PositionDetails{Position: pos, Owner: owner}
	g, gctx = errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		details.Pool, err = FetchPoolState(gctx, caller, poolAddress, poolCache, tokenCache, block)
		return err
	})
	g.Go(func() error {
		var err error
		details.Collectable0, details.Collectable1, err = FetchCollectableAmounts(gctx, caller, info.PositionManager, tokenID, owner, block)
		return err
	})
	if err := g.Wait(); err != nil {
		return PositionDetails{}, err
	}

	details.Amount0, details.Amount1, err = v3math.PositionAmounts(details.Pool.SqrtPriceX96, pos.TickLower, pos.TickUpper, pos.Liquidity)
	if err != nil {
		return PositionDetails{}, fmt.Errorf("position amounts: %w", err)
	}
	details.InRange = pos.TickLower <= details.Pool.Tick && details.Pool.Tick < pos.TickUpper
	return details, nil
}

// FetchPositionIDs enumerates the position ids held by owner.
func FetchPositionIDs(ctx context.Context, caller chain.ContractCaller, npm, owner common.Address, block *big.Int) ([]*big.Int, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return nil, fmt.Errorf("parse npm abi: %w", err)
	}
	values, err := callMethod(ctx, caller, npm, npmABI, "balanceOf", block, owner)
	if err != nil {
		return nil, err
	}
	count, err := asBigInt(values[0])
	if err != nil {
		return nil, err
	}
	if !count.IsUint64() {
		return nil, fmt.Errorf("position count overflow: %s", count)
	}

	ids := make([]*big.Int, count.Uint64())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i := range ids {
		i := i
		g.Go(func() error {
			values, err := callMethod(gctx, caller, npm, npmABI, "tokenOfOwnerByIndex", block, owner, big.NewInt(int64(i)))
			if err != nil {
				return err
			}
			id, err := asBigInt(values[0])
			if err != nil {
				return err
			}
			ids[i] = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// FetchAllPositions loads details for every position held by owner.
func FetchAllPositions(ctx context.Context, caller chain.ContractCaller, info chaininfo.Info, owner common.Address, poolCache *PoolMetaCache, tokenCache *TokenMetaCache, block *big.Int) ([]PositionDetails, error) {
	ids, err := FetchPositionIDs(ctx, caller, info.PositionManager, owner, block)
	if err != nil {
		return nil, err
	}

	out := make([]PositionDetails, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			details, err := FetchPositionDetails(gctx, caller, info, id, poolCache, tokenCache, block)
			if err != nil {
				return err
			}
			out[i] = details
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
