package subgraph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/v3math"
)

const feeTierQuery = `query FeeTierDistribution($token0: String!, $token1: String!) {
  pools(where: {token0: $token0, token1: $token1}) {
    feeTier
    totalValueLockedToken0
    totalValueLockedToken1
  }
}`

const topPoolsQuery = `query TopPools($first: Int!) {
  pools(first: $first, orderBy: totalValueLockedUSD, orderDirection: desc) {
    id
    feeTier
    liquidity
    sqrtPrice
    tick
    totalValueLockedUSD
    volumeUSD
    token0 { id symbol name decimals }
    token1 { id symbol name decimals }
  }
}`

// FeeTierShare is the fraction of a pair's liquidity held by one fee tier.
type FeeTierShare struct {
	Fee     uint32          `json:"fee"`
	TVL0    decimal.Decimal `json:"tvl_token0"`
	TVL1    decimal.Decimal `json:"tvl_token1"`
	Percent decimal.Decimal `json:"percent"`
}

type feeTierPool struct {
	FeeTier                string `json:"feeTier"`
	TotalValueLockedToken0 string `json:"totalValueLockedToken0"`
	TotalValueLockedToken1 string `json:"totalValueLockedToken1"`
}

// FeeTierDistribution weighs every fee tier of a pair by its share of locked token0 and token1,
// averaging the two shares. Tiers without a pool are omitted.
func (c *Client) FeeTierDistribution(ctx context.Context, chainID uint64, tokenA, tokenB common.Address) ([]FeeTierShare, error) {
	if tokenA == tokenB {
		return nil, dex.ErrIdenticalTokens
	}
	token0, token1 := dex.SortTokens(tokenA, tokenB)
	var resp struct {
		Pools []feeTierPool `json:"pools"`
	}
	vars := map[string]interface{}{
		"token0": strings.ToLower(token0.Hex()),
		"token1": strings.ToLower(token1.Hex()),
	}
	if err := c.Query(ctx, chainID, feeTierQuery, vars, &resp); err != nil {
		return nil, err
	}
	return feeTierShares(resp.Pools)
}

func feeTierShares(pools []feeTierPool) ([]FeeTierShare, error) {
	byFee := make(map[uint32]*FeeTierShare)
	total0, total1 := decimal.Zero, decimal.Zero
	for _, pool := range pools {
		fee, err := strconv.ParseUint(pool.FeeTier, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("fee tier %q: %w", pool.FeeTier, err)
		}
		tvl0, err := decimal.NewFromString(pool.TotalValueLockedToken0)
		if err != nil {
			return nil, fmt.Errorf("tvl token0 %q: %w", pool.TotalValueLockedToken0, err)
		}
		tvl1, err := decimal.NewFromString(pool.TotalValueLockedToken1)
		if err != nil {
			return nil, fmt.Errorf("tvl token1 %q: %w", pool.TotalValueLockedToken1, err)
		}
		share, ok := byFee[uint32(fee)]
		if !ok {
			share = &FeeTierShare{Fee: uint32(fee)}
			byFee[uint32(fee)] = share
		}
		share.TVL0 = share.TVL0.Add(tvl0)
		share.TVL1 = share.TVL1.Add(tvl1)
		total0 = total0.Add(tvl0)
		total1 = total1.Add(tvl1)
	}

	out := make([]FeeTierShare, 0, len(byFee))
	for _, share := range byFee {
		var parts []decimal.Decimal
		if total0.Sign() > 0 {
			parts = append(parts, share.TVL0.Div(total0))
		}
		if total1.Sign() > 0 {
			parts = append(parts, share.TVL1.Div(total1))
		}
		if len(parts) > 0 {
			share.Percent = decimal.Sum(parts[0], parts[1:]...).Div(decimal.NewFromInt(int64(len(parts)))).Mul(decimal.NewFromInt(100))
		}
		out = append(out, *share)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Fee < out[j].Fee })
	return out, nil
}

// PoolSummary is one row of TopPools.
type PoolSummary struct {
	Address   common.Address  `json:"address"`
	Token0    model.TokenMeta `json:"token0"`
	Token1    model.TokenMeta `json:"token1"`
	Fee       uint32          `json:"fee"`
	Tick      int32           `json:"tick"`
	TVLUSD    decimal.Decimal `json:"tvl_usd"`
	VolumeUSD decimal.Decimal `json:"volume_usd"`
}

// Price returns the pool price of token0 in token1 at the reported tick.
func (p PoolSummary) Price() (v3math.Price, error) {
	return v3math.TickToPrice(p.Token0, p.Token1, p.Tick)
}

type subgraphToken struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals string `json:"decimals"`
}

func (t subgraphToken) meta() (model.TokenMeta, error) {
	decimals, err := strconv.ParseUint(t.Decimals, 10, 8)
	if err != nil {
		return model.TokenMeta{}, fmt.Errorf("token %s decimals %q: %w", t.ID, t.Decimals, err)
	}
	return model.TokenMeta{
		Address:  common.HexToAddress(t.ID).Hex(),
		Decimals: uint8(decimals),
		Symbol:   t.Symbol,
		Name:     t.Name,
	}, nil
}

// TopPools returns the n pools with the most value locked.
func (c *Client) TopPools(ctx context.Context, chainID uint64, n int) ([]PoolSummary, error) {
	if n <= 0 {
		return nil, nil
	}
	var resp struct {
		Pools []struct {
			ID                  string        `json:"id"`
			FeeTier             string        `json:"feeTier"`
			Tick                string        `json:"tick"`
			TotalValueLockedUSD string        `json:"totalValueLockedUSD"`
			VolumeUSD           string        `json:"volumeUSD"`
			Token0              subgraphToken `json:"token0"`
			Token1              subgraphToken `json:"token1"`
		} `json:"pools"`
	}
	if err := c.Query(ctx, chainID, topPoolsQuery, map[string]interface{}{"first": n}, &resp); err != nil {
		return nil, err
	}

	out := make([]PoolSummary, 0, len(resp.Pools))
	for _, pool := range resp.Pools {
		fee, err := strconv.ParseUint(pool.FeeTier, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("pool %s fee tier %q: %w", pool.ID, pool.FeeTier, err)
		}
		var tick int64
		// pools that were created but never initialized report a null tick
		if pool.Tick != "" {
			tick, err = strconv.ParseInt(pool.Tick, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("pool %s tick %q: %w", pool.ID, pool.Tick, err)
			}
		}
		token0, err := pool.Token0.meta()
		if err != nil {
			return nil, err
		}
		token1, err := pool.Token1.meta()
		if err != nil {
			return nil, err
		}
		tvl, _ := decimal.NewFromString(pool.TotalValueLockedUSD)
		volume, _ := decimal.NewFromString(pool.VolumeUSD)
		out = append(out, PoolSummary{
			Address:   common.HexToAddress(pool.ID),
			Token0:    token0,
			Token1:    token1,
			Fee:       uint32(fee),
			Tick:      int32(tick),
			TVLUSD:    tvl,
			VolumeUSD: volume,
		})
	}
	return out, nil
}
