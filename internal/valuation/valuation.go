package valuation

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"automanKit/internal/chain"
	"automanKit/internal/dex"
	"automanKit/internal/model"
)

const (
	TVLMethodBlock  = "block"
	TVLMethodLatest = "latest"
)

const yearSeconds = 365 * 24 * 60 * 60

// PriceSource quotes tokens in a fiat currency. pricefeed.Client satisfies it.
type PriceSource interface {
	TokenPrices(ctx context.Context, chainID uint64, tokens []common.Address, vsCurrency string) (map[common.Address]decimal.Decimal, error)
}

// PositionValue is a position priced in VsCurrency. Token amounts are in human units.
type PositionValue struct {
	VsCurrency   string
	Price0       decimal.Decimal
	Price1       decimal.Decimal
	Amount0      decimal.Decimal
	Amount1      decimal.Decimal
	Fees0        decimal.Decimal
	Fees1        decimal.Decimal
	PrincipalUSD decimal.Decimal
	FeesUSD      decimal.Decimal
	TotalUSD     decimal.Decimal
}

// PoolTVL is the token balance held by a pool and its value.
type PoolTVL struct {
	Balance0 decimal.Decimal
	Balance1 decimal.Decimal
	Value    decimal.Decimal
	// Method records whether balances were read at the requested block or at latest.
	Method string
}

type Valuer struct {
	chainID    uint64
	caller     chain.ContractCaller
	prices     PriceSource
	vsCurrency string
	logger     *zap.Logger
}

func NewValuer(chainID uint64, caller chain.ContractCaller, prices PriceSource, vsCurrency string, logger *zap.Logger) *Valuer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if vsCurrency == "" {
		vsCurrency = "usd"
	}
	return &Valuer{chainID: chainID, caller: caller, prices: prices, vsCurrency: vsCurrency, logger: logger}
}

// Position prices the principal and uncollected fees of a position.
func (v *Valuer) Position(ctx context.Context, details dex.PositionDetails) (PositionValue, error) {
	token0, token1 := details.Pool.Token0, details.Pool.Token1
	price0, price1, err := v.pairPrices(ctx, token0, token1)
	if err != nil {
		return PositionValue{}, err
	}

	out := PositionValue{
		VsCurrency: v.vsCurrency,
		Price0:     price0,
		Price1:     price1,
		Amount0:    humanAmount(details.Amount0, token0.Decimals),
		Amount1:    humanAmount(details.Amount1, token1.Decimals),
		Fees0:      humanAmount(details.Collectable0, token0.Decimals),
		Fees1:      humanAmount(details.Collectable1, token1.Decimals),
	}
	out.PrincipalUSD = out.Amount0.Mul(price0).Add(out.Amount1.Mul(price1))
	out.FeesUSD = out.Fees0.Mul(price0).Add(out.Fees1.Mul(price1))
	out.TotalUSD = out.PrincipalUSD.Add(out.FeesUSD)
	return out, nil
}

// Pool reads the pool's token balances at block, retrying at latest when the node
// cannot serve historical state, and prices them.
func (v *Valuer) Pool(ctx context.Context, pool dex.PoolState, block *big.Int) (PoolTVL, error) {
	bal0, bal1, method, err := v.poolBalances(ctx, pool, block)
	if err != nil {
		return PoolTVL{}, err
	}
	price0, price1, err := v.pairPrices(ctx, pool.Token0, pool.Token1)
	if err != nil {
		return PoolTVL{}, err
	}

	out := PoolTVL{
		Balance0: humanAmount(bal0, pool.Token0.Decimals),
		Balance1: humanAmount(bal1, pool.Token1.Decimals),
		Method:   method,
	}
	out.Value = out.Balance0.Mul(price0).Add(out.Balance1.Mul(price1))
	return out, nil
}

func (v *Valuer) poolBalances(ctx context.Context, pool dex.PoolState, block *big.Int) (*big.Int, *big.Int, string, error) {
	token0 := common.HexToAddress(pool.Token0.Address)
	token1 := common.HexToAddress(pool.Token1.Address)

	if block != nil {
		bal0, err0 := dex.FetchTokenBalance(ctx, v.caller, token0, pool.Address, block)
		bal1, err1 := dex.FetchTokenBalance(ctx, v.caller, token1, pool.Address, block)
		if err0 == nil && err1 == nil {
			return bal0, bal1, TVLMethodBlock, nil
		}
		v.logger.Debug("historical balance read failed, using latest",
			zap.String("pool", pool.Address.Hex()),
			zap.NamedError("token0_err", err0),
			zap.NamedError("token1_err", err1),
		)
	}

	bal0, err := dex.FetchTokenBalance(ctx, v.caller, token0, pool.Address, nil)
	if err != nil {
		return nil, nil, "", fmt.Errorf("token0 balance: %w", err)
	}
	bal1, err := dex.FetchTokenBalance(ctx, v.caller, token1, pool.Address, nil)
	if err != nil {
		return nil, nil, "", fmt.Errorf("token1 balance: %w", err)
	}
	return bal0, bal1, TVLMethodLatest, nil
}

func (v *Valuer) pairPrices(ctx context.Context, token0, token1 model.TokenMeta) (decimal.Decimal, decimal.Decimal, error) {
	if v.prices == nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("price source is nil")
	}
	addr0 := common.HexToAddress(token0.Address)
	addr1 := common.HexToAddress(token1.Address)
	prices, err := v.prices.TokenPrices(ctx, v.chainID, []common.Address{addr0, addr1}, v.vsCurrency)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("token prices: %w", err)
	}
	price0, ok0 := prices[addr0]
	price1, ok1 := prices[addr1]
	if !ok0 {
		v.logger.Warn("missing token price", zap.String("token", addr0.Hex()))
	}
	if !ok1 {
		v.logger.Warn("missing token price", zap.String("token", addr1.Hex()))
	}
	return price0, price1, nil
}

// FeeAPR annualizes fees earned over window relative to value.
// It returns zero when either input cannot produce a rate.
func FeeAPR(fees, value decimal.Decimal, window time.Duration) decimal.Decimal {
	seconds := int64(window / time.Second)
	if seconds <= 0 || value.Sign() <= 0 || fees.Sign() <= 0 {
		return decimal.Zero
	}
	return fees.Mul(decimal.NewFromInt(yearSeconds)).Div(value.Mul(decimal.NewFromInt(seconds)))
}

func humanAmount(value *big.Int, decimals uint8) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value, -int32(decimals))
}
