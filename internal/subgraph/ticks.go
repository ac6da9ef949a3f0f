package subgraph

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// pageSize is the largest page The Graph serves.
const pageSize = 1000

const poolTicksQuery = `query PoolTicks($pool: String!, $skipTick: BigInt!, $first: Int!) {
  ticks(first: $first, orderBy: tickIdx, orderDirection: asc, where: {poolAddress: $pool, tickIdx_gt: $skipTick}) {
    tickIdx
    liquidityGross
    liquidityNet
  }
}`

// Tick is an initialized tick as indexed by the subgraph.
type Tick struct {
	TickIdx        int32    `json:"tick_idx"`
	LiquidityGross *big.Int `json:"liquidity_gross"`
	LiquidityNet   *big.Int `json:"liquidity_net"`
}

// LiquidityPoint is the active liquidity from TickIdx up to the next initialized tick.
type LiquidityPoint struct {
	TickIdx   int32    `json:"tick_idx"`
	Liquidity *big.Int `json:"liquidity"`
}

// PoolTicks pages through every initialized tick of pool in ascending order.
func (c *Client) PoolTicks(ctx context.Context, chainID uint64, pool common.Address) ([]Tick, error) {
	var (
		out  []Tick
		skip = int64(-1 << 31)
	)
	for {
		var resp struct {
			Ticks []struct {
				TickIdx        string `json:"tickIdx"`
				LiquidityGross string `json:"liquidityGross"`
				LiquidityNet   string `json:"liquidityNet"`
			} `json:"ticks"`
		}
		vars := map[string]interface{}{
			"pool":     strings.ToLower(pool.Hex()),
			"skipTick": strconv.FormatInt(skip, 10),
			"first":    pageSize,
		}
		if err := c.Query(ctx, chainID, poolTicksQuery, vars, &resp); err != nil {
			return nil, err
		}
		for _, raw := range resp.Ticks {
			idx, err := strconv.ParseInt(raw.TickIdx, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("tick index %q: %w", raw.TickIdx, err)
			}
			gross, ok := new(big.Int).SetString(raw.LiquidityGross, 10)
			if !ok {
				return nil, fmt.Errorf("tick %d liquidityGross %q", idx, raw.LiquidityGross)
			}
			net, ok := new(big.Int).SetString(raw.LiquidityNet, 10)
			if !ok {
				return nil, fmt.Errorf("tick %d liquidityNet %q", idx, raw.LiquidityNet)
			}
			out = append(out, Tick{TickIdx: int32(idx), LiquidityGross: gross, LiquidityNet: net})
			skip = idx
		}
		if len(resp.Ticks) < pageSize {
			return out, nil
		}
	}
}

// LiquidityDistribution accumulates liquidityNet across ticks in ascending order.
func LiquidityDistribution(ticks []Tick) []LiquidityPoint {
	sorted := make([]Tick, len(ticks))
	copy(sorted, ticks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TickIdx < sorted[j].TickIdx })

	out := make([]LiquidityPoint, 0, len(sorted))
	active := new(big.Int)
	for _, tick := range sorted {
		active = new(big.Int).Add(active, tick.LiquidityNet)
		out = append(out, LiquidityPoint{TickIdx: tick.TickIdx, Liquidity: active})
	}
	return out
}

// ActiveLiquidityAt returns the liquidity active at tick according to dist.
func ActiveLiquidityAt(dist []LiquidityPoint, tick int32) *big.Int {
	idx := sort.Search(len(dist), func(i int) bool { return dist[i].TickIdx > tick })
	if idx == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(dist[idx-1].Liquidity)
}
