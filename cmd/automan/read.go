package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/permit"
	"automanKit/internal/pricefeed"
	"automanKit/internal/subgraph"
	"automanKit/internal/v3math"
	"automanKit/internal/valuation"
)

func poolAddressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool-address",
		Short: "Compute a pool address from its tokens and fee tier",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenA, tokenB, fee, err := pairFlags(cmd)
			if err != nil {
				return err
			}
			pool, err := dex.ComputePoolAddress(rt.info.Factory, tokenA, tokenB, fee, rt.info.PoolInitCodeHash)
			if err != nil {
				return err
			}
			token0, token1 := dex.SortTokens(tokenA, tokenB)
			return printJSON(map[string]interface{}{
				"pool":   pool,
				"token0": token0,
				"token1": token1,
				"fee":    fee,
			})
		},
	}
	addPairFlags(cmd)
	return cmd
}

func poolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Read live pool state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			pool, err := poolFromFlags(cmd, rt)
			if err != nil {
				return err
			}
			state, err := dex.FetchPoolState(rt.ctx, client, pool, nil, nil, nil)
			if err != nil {
				return err
			}

			price := v3math.SqrtPriceX96ToPrice(state.SqrtPriceX96, state.Token0, state.Token1)
			out := map[string]interface{}{
				"pool":  state.Snapshot(rt.info.ChainID, 0, time.Now()),
				"price": price.Decimal().String(),
			}

			if withTVL, _ := cmd.Flags().GetBool("tvl"); withTVL {
				valuer := valuation.NewValuer(rt.info.ChainID, client, newPriceClient(rt), "usd", rt.logger)
				tvl, err := valuer.Pool(rt.ctx, state, nil)
				if err != nil {
					return err
				}
				out["tvl"] = tvl
			}
			return printJSON(out)
		},
	}
	addPairFlags(cmd)
	cmd.Flags().String("address", "", "pool address (overrides token-a/token-b/fee)")
	cmd.Flags().Bool("tvl", false, "price pool balances with CoinGecko")
	return cmd
}

func positionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "position",
		Short: "Read a position with its amounts and uncollected fees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenID, err := tokenIDFlag(cmd)
			if err != nil {
				return err
			}
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			details, err := dex.FetchPositionDetails(rt.ctx, client, rt.info, tokenID, nil, nil, nil)
			if err != nil {
				return err
			}
			out := map[string]interface{}{
				"position": details.Snapshot(rt.info.ChainID, 0, time.Now()),
			}

			if withValue, _ := cmd.Flags().GetBool("value"); withValue {
				valuer := valuation.NewValuer(rt.info.ChainID, client, newPriceClient(rt), "usd", rt.logger)
				value, err := valuer.Position(rt.ctx, details)
				if err != nil {
					return err
				}
				out["value"] = value
			}
			return printJSON(out)
		},
	}
	cmd.Flags().String("token-id", "", "position token id")
	cmd.Flags().Bool("value", false, "price the position with CoinGecko")
	return cmd
}

func positionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List every position held by an owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			ownerValue, _ := cmd.Flags().GetString("owner")
			owner, err := parseAddress("owner", ownerValue)
			if err != nil {
				return err
			}
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			positions, err := dex.FetchAllPositions(rt.ctx, client, rt.info, owner, dex.NewPoolMetaCache(), dex.NewTokenMetaCache(), nil)
			if err != nil {
				return err
			}
			now := time.Now()
			snapshots := make([]model.PositionSnapshot, 0, len(positions))
			for _, p := range positions {
				snapshots = append(snapshots, p.Snapshot(rt.info.ChainID, 0, now))
			}
			rt.logger.Info("positions loaded", zap.String("owner", owner.Hex()), zap.Int("count", len(snapshots)))
			return printJSON(snapshots)
		},
	}
	cmd.Flags().String("owner", "", "position owner")
	return cmd
}

func approvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approval",
		Short: "Check whether Automan may operate a position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenID, err := tokenIDFlag(cmd)
			if err != nil {
				return err
			}
			p, err := permitFlags(cmd)
			if err != nil {
				return err
			}
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			status, err := permit.CheckPositionApproval(rt.ctx, client, rt.info, tokenID, p, time.Now())
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}
	cmd.Flags().String("token-id", "", "position token id")
	addPermitFlags(cmd)
	return cmd
}

func permitDataCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permit-data",
		Short: "Print the EIP-712 permit a position owner signs for Automan",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenID, err := tokenIDFlag(cmd)
			if err != nil {
				return err
			}
			validFor, _ := cmd.Flags().GetDuration("valid-for")
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			position, err := dex.FetchBasicPositionInfo(rt.ctx, client, rt.info.PositionManager, tokenID, nil)
			if err != nil {
				return err
			}
			typed := permit.TypedData(rt.info, tokenID, rt.info.Automan, position.Nonce, deadlineFrom(validFor))
			digest, err := permit.Digest(typed)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"typed_data": typed,
				"digest":     digest,
			})
		},
	}
	cmd.Flags().String("token-id", "", "position token id")
	cmd.Flags().Duration("valid-for", 30*time.Minute, "permit validity window")
	return cmd
}

func priceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "price",
		Short: "Fetch a token price from CoinGecko",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			vs, _ := cmd.Flags().GetString("vs")
			days, _ := cmd.Flags().GetInt("days")
			tokenValue, _ := cmd.Flags().GetString("token")
			prices := newPriceClient(rt)

			if tokenValue == "" {
				price, err := prices.NativePrice(rt.ctx, rt.info.ChainID, vs)
				if err != nil {
					return err
				}
				return printJSON(map[string]interface{}{"native": price})
			}

			token, err := parseAddress("token", tokenValue)
			if err != nil {
				return err
			}
			if days > 0 {
				points, err := prices.HistoricalPrices(rt.ctx, rt.info.ChainID, token, vs, days)
				if err != nil {
					return err
				}
				return printJSON(points)
			}
			price, err := prices.TokenPrice(rt.ctx, rt.info.ChainID, token, vs)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"token": token, "price": price, "vs": vs})
		},
	}
	cmd.Flags().String("token", "", "token address; empty prices the native currency")
	cmd.Flags().String("vs", "usd", "quote currency")
	cmd.Flags().Int("days", 0, "return daily history for this many days")
	cmd.Flags().String("coingecko-url", "", "CoinGecko API base URL")
	cmd.Flags().String("coingecko-key", "", "CoinGecko pro API key")
	return cmd
}

func feeTiersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fee-tiers",
		Short: "Show how a pair's liquidity is split across fee tiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenA, tokenB, _, err := pairFlags(cmd)
			if err != nil {
				return err
			}
			shares, err := newSubgraphClient(rt).FeeTierDistribution(rt.ctx, rt.info.ChainID, tokenA, tokenB)
			if err != nil {
				return err
			}
			return printJSON(shares)
		},
	}
	addPairFlags(cmd)
	cmd.Flags().String("subgraph-key", "", "The Graph gateway API key")
	return cmd
}

func topPoolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top-pools",
		Short: "List the pools with the highest TVL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, _ := cmd.Flags().GetInt("n")
			client := newSubgraphClient(rt)
			pools, err := client.TopPools(rt.ctx, rt.info.ChainID, n)
			if err != nil {
				return err
			}

			pool, _ := cmd.Flags().GetString("liquidity")
			if pool == "" {
				return printJSON(pools)
			}
			addr, err := parseAddress("liquidity", pool)
			if err != nil {
				return err
			}
			ticks, err := client.PoolTicks(rt.ctx, rt.info.ChainID, addr)
			if err != nil {
				return err
			}
			return printJSON(subgraph.LiquidityDistribution(ticks))
		},
	}
	cmd.Flags().Int("n", 10, "number of pools")
	cmd.Flags().String("liquidity", "", "print the active liquidity distribution of this pool instead")
	cmd.Flags().String("subgraph-key", "", "The Graph gateway API key")
	return cmd
}

func newPriceClient(rt *session) *pricefeed.Client {
	opts := []pricefeed.Option{pricefeed.WithLogger(rt.logger)}
	if rt.cfg.CoinGeckoURL != "" {
		opts = append(opts, pricefeed.WithBaseURL(rt.cfg.CoinGeckoURL))
	}
	return pricefeed.NewClient(rt.cfg.CoinGeckoKey, rt.registry, opts...)
}

func newSubgraphClient(rt *session) *subgraph.Client {
	return subgraph.NewClient(rt.cfg.SubgraphKey, rt.registry, subgraph.WithLogger(rt.logger))
}

func addPairFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-a", "", "first token address")
	cmd.Flags().String("token-b", "", "second token address")
	cmd.Flags().Uint32("fee", 3000, "fee tier in hundredths of a bip")
}

func pairFlags(cmd *cobra.Command) (common.Address, common.Address, uint32, error) {
	aValue, _ := cmd.Flags().GetString("token-a")
	bValue, _ := cmd.Flags().GetString("token-b")
	fee, _ := cmd.Flags().GetUint32("fee")

	tokenA, err := parseAddress("token-a", aValue)
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	tokenB, err := parseAddress("token-b", bValue)
	if err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	if _, err := v3math.TickSpacing(fee); err != nil {
		return common.Address{}, common.Address{}, 0, err
	}
	return tokenA, tokenB, fee, nil
}

func poolFromFlags(cmd *cobra.Command, rt *session) (common.Address, error) {
	if value, _ := cmd.Flags().GetString("address"); value != "" {
		return parseAddress("pool", value)
	}
	tokenA, tokenB, fee, err := pairFlags(cmd)
	if err != nil {
		return common.Address{}, err
	}
	return dex.ComputePoolAddress(rt.info.Factory, tokenA, tokenB, fee, rt.info.PoolInitCodeHash)
}

func tokenIDFlag(cmd *cobra.Command) (*big.Int, error) {
	value, _ := cmd.Flags().GetString("token-id")
	if value == "" {
		return nil, fmt.Errorf("token-id is required")
	}
	return parseBigInt("token-id", value)
}
