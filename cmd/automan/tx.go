package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"automanKit/internal/aggregator"
	"automanKit/internal/automan"
	"automanKit/internal/chain"
	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/txbuilder"
	"automanKit/internal/v3math"
)

// mintInputs is a token pair, range and deposit resolved from flags, ordered token0/token1.
type mintInputs struct {
	token0, token1       model.TokenMeta
	fee                  uint32
	tickLower, tickUpper int32
	amount0, amount1     *big.Int
}

func addMintFlags(cmd *cobra.Command) {
	addPairFlags(cmd)
	cmd.Flags().String("amount-a", "0", "deposit of token-a in human units")
	cmd.Flags().String("amount-b", "0", "deposit of token-b in human units")
	cmd.Flags().Int32("tick-lower", 0, "lower tick")
	cmd.Flags().Int32("tick-upper", 0, "upper tick")
	cmd.Flags().String("price-lower", "", "lower bound as price of token0 in token1 (overrides tick-lower)")
	cmd.Flags().String("price-upper", "", "upper bound as price of token0 in token1 (overrides tick-upper)")
	cmd.Flags().Float64("slippage", 0.005, "slippage tolerance in [0, 1]")
	cmd.Flags().Duration("valid-for", 30*time.Minute, "transaction deadline from now")
	cmd.Flags().String("from", "", "sender and recipient of the position")
}

func resolveMintInputs(cmd *cobra.Command, rt *session, client chain.ContractCaller) (mintInputs, error) {
	tokenA, tokenB, fee, err := pairFlags(cmd)
	if err != nil {
		return mintInputs{}, err
	}
	metaA, metaB, err := dex.FetchTokenPair(rt.ctx, client, tokenA, tokenB, nil, rt.logger)
	if err != nil {
		return mintInputs{}, err
	}

	amountAValue, _ := cmd.Flags().GetString("amount-a")
	amountBValue, _ := cmd.Flags().GetString("amount-b")
	amountA, err := v3math.ParseTokenAmount(amountAValue, metaA.Decimals)
	if err != nil {
		return mintInputs{}, err
	}
	amountB, err := v3math.ParseTokenAmount(amountBValue, metaB.Decimals)
	if err != nil {
		return mintInputs{}, err
	}

	in := mintInputs{token0: metaA, token1: metaB, fee: fee, amount0: amountA, amount1: amountB}
	if !v3math.SortsBefore(metaA, metaB) {
		in.token0, in.token1 = metaB, metaA
		in.amount0, in.amount1 = amountB, amountA
	}

	in.tickLower, _ = cmd.Flags().GetInt32("tick-lower")
	in.tickUpper, _ = cmd.Flags().GetInt32("tick-upper")
	if value, _ := cmd.Flags().GetString("price-lower"); value != "" {
		if in.tickLower, err = priceTick(in, value); err != nil {
			return mintInputs{}, err
		}
	}
	if value, _ := cmd.Flags().GetString("price-upper"); value != "" {
		if in.tickUpper, err = priceTick(in, value); err != nil {
			return mintInputs{}, err
		}
	}
	return in, nil
}

func priceTick(in mintInputs, value string) (int32, error) {
	price, err := v3math.ParsePrice(in.token0, in.token1, value)
	if err != nil {
		return 0, err
	}
	return v3math.PriceToClosestUsableTick(price, in.fee)
}

func optimalMintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimal-mint",
		Short: "Build a mintOptimal transaction using the best of the pool and the aggregator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			fromValue, _ := cmd.Flags().GetString("from")
			from, err := parseAddress("from", fromValue)
			if err != nil {
				return err
			}
			slippage, _ := cmd.Flags().GetFloat64("slippage")
			validFor, _ := cmd.Flags().GetDuration("valid-for")

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			in, err := resolveMintInputs(cmd, rt, client)
			if err != nil {
				return err
			}

			metrics := aggregator.NewMetrics(nil)
			quoter := aggregator.NewClient(rt.cfg.AggregatorURL,
				aggregator.WithLogger(rt.logger),
				aggregator.WithMetrics(metrics),
			)
			optimizer := aggregator.NewOptimizer(quoter, automan.NewClient(client, rt.info, rt.logger), rt.logger, metrics)
			builder := txbuilder.NewBuilder(client, rt.info, optimizer, rt.logger)

			tx, estimate, err := builder.OptimalMintTx(rt.ctx, aggregator.MintRequest{
				Token0:         in.token0,
				Token1:         in.token1,
				Fee:            in.fee,
				TickLower:      in.tickLower,
				TickUpper:      in.tickUpper,
				Amount0Desired: in.amount0,
				Amount1Desired: in.amount1,
				From:           from,
				Slippage:       slippage,
				Deadline:       deadlineFrom(validFor),
			})
			if err != nil {
				return err
			}
			rt.logger.Info("optimal mint built",
				zap.String("liquidity", estimate.Liquidity.String()),
				zap.Int("iterations", estimate.Iterations),
			)
			return printJSON(map[string]interface{}{
				"tx":            tx,
				"liquidity":     estimate.Liquidity,
				"amount0":       v3math.FormatTokenAmount(estimate.Amount0, in.token0.Decimals),
				"amount1":       v3math.FormatTokenAmount(estimate.Amount1, in.token1.Decimals),
				"swap_amount":   estimate.SwapAmountIn,
				"swap_data":     hexutil.Bytes(estimate.SwapData),
				"search_rounds": estimate.Iterations,
			})
		},
	}
	addMintFlags(cmd)
	cmd.Flags().String("aggregator-url", "", "aggregator API base URL")
	return cmd
}

func mintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint-tx",
		Short: "Build a position manager mint transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			fromValue, _ := cmd.Flags().GetString("from")
			from, err := parseAddress("from", fromValue)
			if err != nil {
				return err
			}
			slippage, _ := cmd.Flags().GetFloat64("slippage")
			validFor, _ := cmd.Flags().GetDuration("valid-for")
			native, _ := cmd.Flags().GetBool("native")

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			in, err := resolveMintInputs(cmd, rt, client)
			if err != nil {
				return err
			}
			tx, err := txbuilder.NewBuilder(client, rt.info, nil, rt.logger).MintTx(rt.ctx, txbuilder.MintRequest{
				Token0:         in.token0,
				Token1:         in.token1,
				Fee:            in.fee,
				TickLower:      in.tickLower,
				TickUpper:      in.tickUpper,
				Amount0Desired: in.amount0,
				Amount1Desired: in.amount1,
				Recipient:      from,
				Slippage:       slippage,
				Deadline:       deadlineFrom(validFor),
				NativeIn:       native,
			})
			if err != nil {
				return err
			}
			return printJSON(tx)
		},
	}
	addMintFlags(cmd)
	cmd.Flags().Bool("native", false, "pay the wrapped native side with the native currency")
	return cmd
}

func rebalanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebalance-tx",
		Short: "Build an Automan rebalance transaction into a new range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			req, err := automanRequestFlags(cmd)
			if err != nil {
				return err
			}
			tickLower, _ := cmd.Flags().GetInt32("tick-lower")
			tickUpper, _ := cmd.Flags().GetInt32("tick-upper")
			swapData, err := swapDataFlag(cmd)
			if err != nil {
				return err
			}

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			tx, result, err := txbuilder.NewBuilder(client, rt.info, nil, rt.logger).RebalanceTx(rt.ctx, txbuilder.RebalanceRequest{
				TokenID:      req.tokenID,
				Owner:        req.owner,
				NewTickLower: tickLower,
				NewTickUpper: tickUpper,
				FeeBips:      req.feeBips,
				SwapData:     swapData,
				Slippage:     req.slippage,
				Deadline:     req.deadline,
				Permit:       req.permit,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"tx": tx, "simulated": result})
		},
	}
	addAutomanFlags(cmd)
	cmd.Flags().Int32("tick-lower", 0, "new lower tick")
	cmd.Flags().Int32("tick-upper", 0, "new upper tick")
	cmd.Flags().String("swap-data", "", "hex swap data; empty lets Automan swap through the pool")
	return cmd
}

func reinvestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reinvest-tx",
		Short: "Build an Automan reinvest transaction that compounds collected fees",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			req, err := automanRequestFlags(cmd)
			if err != nil {
				return err
			}
			swapData, err := swapDataFlag(cmd)
			if err != nil {
				return err
			}
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			tx, result, err := txbuilder.NewBuilder(client, rt.info, nil, rt.logger).ReinvestTx(rt.ctx, txbuilder.ReinvestRequest{
				TokenID:  req.tokenID,
				Owner:    req.owner,
				FeeBips:  req.feeBips,
				SwapData: swapData,
				Slippage: req.slippage,
				Deadline: req.deadline,
				Permit:   req.permit,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"tx": tx, "simulated": result})
		},
	}
	addAutomanFlags(cmd)
	cmd.Flags().String("swap-data", "", "hex swap data; empty lets Automan swap through the pool")
	return cmd
}

func removeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove-tx",
		Short: "Build an Automan transaction that withdraws part or all of a position",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			req, err := automanRequestFlags(cmd)
			if err != nil {
				return err
			}
			percentage, _ := cmd.Flags().GetFloat64("percentage")
			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			tx, result, err := txbuilder.NewBuilder(client, rt.info, nil, rt.logger).RemoveLiquidityTx(rt.ctx, txbuilder.RemoveLiquidityRequest{
				TokenID:    req.tokenID,
				Owner:      req.owner,
				Percentage: percentage,
				FeeBips:    req.feeBips,
				Slippage:   req.slippage,
				Deadline:   req.deadline,
				Permit:     req.permit,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"tx": tx, "simulated": result})
		},
	}
	addAutomanFlags(cmd)
	cmd.Flags().Float64("percentage", 1, "share of liquidity to withdraw in (0, 1]")
	return cmd
}

func collectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect-tx",
		Short: "Build a transaction collecting all fees owed to a position",
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
			recipientValue, _ := cmd.Flags().GetString("recipient")
			recipient, err := parseAddress("recipient", recipientValue)
			if err != nil {
				return err
			}
			// Encoding only; no RPC is needed.
			tx, err := txbuilder.NewBuilder(nil, rt.info, nil, rt.logger).CollectTx(tokenID, recipient)
			if err != nil {
				return err
			}
			return printJSON(tx)
		},
	}
	cmd.Flags().String("token-id", "", "position token id")
	cmd.Flags().String("recipient", "", "fee recipient")
	return cmd
}

func limitOrderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit-order-tx",
		Short: "Build a single-sided mint that fills once the price crosses a limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			sellValue, _ := cmd.Flags().GetString("sell")
			buyValue, _ := cmd.Flags().GetString("buy")
			amountValue, _ := cmd.Flags().GetString("amount")
			priceValue, _ := cmd.Flags().GetString("price")
			fee, _ := cmd.Flags().GetUint32("fee")
			width, _ := cmd.Flags().GetInt32("width")
			recipientValue, _ := cmd.Flags().GetString("recipient")
			validFor, _ := cmd.Flags().GetDuration("valid-for")
			native, _ := cmd.Flags().GetBool("native")

			sell, err := parseAddress("sell", sellValue)
			if err != nil {
				return err
			}
			buy, err := parseAddress("buy", buyValue)
			if err != nil {
				return err
			}
			recipient, err := parseAddress("recipient", recipientValue)
			if err != nil {
				return err
			}

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			sellMeta, buyMeta, err := dex.FetchTokenPair(rt.ctx, client, sell, buy, nil, rt.logger)
			if err != nil {
				return err
			}
			amount, err := v3math.ParseTokenAmount(amountValue, sellMeta.Decimals)
			if err != nil {
				return err
			}
			price, err := v3math.ParsePrice(sellMeta, buyMeta, priceValue)
			if err != nil {
				return err
			}

			tx, rng, err := txbuilder.NewBuilder(client, rt.info, nil, rt.logger).LimitOrderTx(rt.ctx, txbuilder.LimitOrderRequest{
				Sell:            sellMeta,
				Buy:             buyMeta,
				Amount:          amount,
				LimitPrice:      price,
				Fee:             fee,
				WidthMultiplier: width,
				Recipient:       recipient,
				Deadline:        deadlineFrom(validFor),
				NativeIn:        native,
			})
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{"tx": tx, "range": rng})
		},
	}
	cmd.Flags().String("sell", "", "token to sell")
	cmd.Flags().String("buy", "", "token to buy")
	cmd.Flags().String("amount", "", "amount to sell in human units")
	cmd.Flags().String("price", "", "limit price of the sell token in the buy token")
	cmd.Flags().Uint32("fee", 3000, "fee tier")
	cmd.Flags().Int32("width", 1, "range width in tick spacings")
	cmd.Flags().String("recipient", "", "position recipient")
	cmd.Flags().Duration("valid-for", 30*time.Minute, "transaction deadline from now")
	cmd.Flags().Bool("native", false, "pay a wrapped native sell token with the native currency")
	return cmd
}

// automanRequest holds the flags shared by the Automan position commands.
type automanRequest struct {
	tokenID  *big.Int
	owner    common.Address
	feeBips  *big.Int
	slippage float64
	deadline *big.Int
	permit   *automan.Permit
}

func addAutomanFlags(cmd *cobra.Command) {
	cmd.Flags().String("token-id", "", "position token id")
	cmd.Flags().String("owner", "", "position owner")
	cmd.Flags().String("fee-bips", "0", "Automan fee share, 1e18 = 100%")
	cmd.Flags().Float64("slippage", 0.005, "slippage tolerance in [0, 1]")
	cmd.Flags().Duration("valid-for", 30*time.Minute, "transaction deadline from now")
	addPermitFlags(cmd)
}

func automanRequestFlags(cmd *cobra.Command) (automanRequest, error) {
	tokenID, err := tokenIDFlag(cmd)
	if err != nil {
		return automanRequest{}, err
	}
	ownerValue, _ := cmd.Flags().GetString("owner")
	owner, err := parseAddress("owner", ownerValue)
	if err != nil {
		return automanRequest{}, err
	}
	feeValue, _ := cmd.Flags().GetString("fee-bips")
	feeBips, err := parseBigInt("fee-bips", feeValue)
	if err != nil {
		return automanRequest{}, err
	}
	slippage, _ := cmd.Flags().GetFloat64("slippage")
	validFor, _ := cmd.Flags().GetDuration("valid-for")
	p, err := permitFlags(cmd)
	if err != nil {
		return automanRequest{}, err
	}
	return automanRequest{
		tokenID:  tokenID,
		owner:    owner,
		feeBips:  feeBips,
		slippage: slippage,
		deadline: deadlineFrom(validFor),
		permit:   p,
	}, nil
}

func addPermitFlags(cmd *cobra.Command) {
	cmd.Flags().String("permit-signature", "", "65 byte permit signature (r || s || v), hex")
	cmd.Flags().Int64("permit-deadline", 0, "permit deadline (unix seconds)")
}

// permitFlags returns nil when no signature was given.
func permitFlags(cmd *cobra.Command) (*automan.Permit, error) {
	sigValue, _ := cmd.Flags().GetString("permit-signature")
	if sigValue == "" {
		return nil, nil
	}
	deadline, _ := cmd.Flags().GetInt64("permit-deadline")
	sig, err := hexutil.Decode(sigValue)
	if err != nil {
		return nil, fmt.Errorf("invalid permit signature: %w", err)
	}
	if len(sig) != 65 {
		return nil, fmt.Errorf("invalid permit signature length %d", len(sig))
	}
	if deadline <= 0 {
		return nil, fmt.Errorf("permit-deadline is required with a signature")
	}
	p := &automan.Permit{Deadline: big.NewInt(deadline), V: sig[64]}
	if p.V < 27 {
		p.V += 27
	}
	copy(p.R[:], sig[:32])
	copy(p.S[:], sig[32:64])
	return p, nil
}

func swapDataFlag(cmd *cobra.Command) ([]byte, error) {
	value, _ := cmd.Flags().GetString("swap-data")
	if value == "" {
		return nil, nil
	}
	data, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("invalid swap data: %w", err)
	}
	return data, nil
}
