package dex

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"automanKit/internal/chain"
	"automanKit/internal/model"
)

// PoolMetaCache caches immutable pool metadata by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolMeta
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolMeta)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// PoolState is the live state of a pool together with its token metadata.
type PoolState struct {
	Address      common.Address
	Token0       model.TokenMeta
	Token1       model.TokenMeta
	Fee          uint32
	TickSpacing  int32
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// Meta flattens the state into the storage representation.
func (s PoolState) Meta() model.PoolMeta {
	meta := model.PoolMeta{
		Address:     s.Address.Hex(),
		Token0:      s.Token0.Address,
		Token1:      s.Token1.Address,
		Fee:         s.Fee,
		TickSpacing: s.TickSpacing,
	}
	if s.Liquidity != nil {
		meta.Liquidity = s.Liquidity.String()
	}
	if s.SqrtPriceX96 != nil {
		meta.Slot0 = &model.PoolSlot0{SqrtPriceX96: s.SqrtPriceX96.String(), Tick: s.Tick}
	}
	return meta
}

// Snapshot flattens the state into a storage row observed at blockNumber.
func (s PoolState) Snapshot(chainID, blockNumber uint64, observedAt time.Time) model.PoolSnapshot {
	snap := model.PoolSnapshot{
		ChainID:     chainID,
		Address:     s.Address.Hex(),
		Token0:      s.Token0.Address,
		Token1:      s.Token1.Address,
		Fee:         s.Fee,
		TickSpacing: s.TickSpacing,
		Tick:        s.Tick,
		BlockNumber: blockNumber,
		ObservedAt:  observedAt.UTC(),
	}
	if s.SqrtPriceX96 != nil {
		snap.SqrtPriceX96 = s.SqrtPriceX96.String()
	}
	if s.Liquidity != nil {
		snap.Liquidity = s.Liquidity.String()
	}
	return snap
}

// FetchPoolMeta loads immutable pool metadata, consulting cache first when provided.
func FetchPoolMeta(ctx context.Context, caller chain.ContractCaller, pool common.Address, cache *PoolMetaCache) (model.PoolMeta, error) {
	if caller == nil {
		return model.PoolMeta{}, fmt.Errorf("chain client is nil")
	}
	if cache != nil {
		if meta, ok := cache.Get(pool); ok {
			return meta, nil
		}
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, caller, pool, poolABI, "token0", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "token1", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "fee", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	feeInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("fee: %w", err)
	}

	values, err = callMethod(ctx, caller, pool, poolABI, "tickSpacing", nil)
	if err != nil {
		return model.PoolMeta{}, err
	}
	tickSpacingInt, err := asBigInt(values[0])
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}
	tickSpacing, err := int24FromBig(tickSpacingInt)
	if err != nil {
		return model.PoolMeta{}, fmt.Errorf("tick spacing: %w", err)
	}

	meta := model.PoolMeta{
		Address:     pool.Hex(),
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         uint32(feeInt.Uint64()),
		TickSpacing: tickSpacing,
	}
	if cache != nil {
		cache.Set(pool, meta)
	}
	return meta, nil
}

// FetchPoolState loads slot0, in-range liquidity and token metadata of a pool at block (nil for latest).
func FetchPoolState(ctx context.Context, caller chain.ContractCaller, pool common.Address, poolCache *PoolMetaCache, tokenCache *TokenMetaCache, block *big.Int) (PoolState, error) {
	meta, err := FetchPoolMeta(ctx, caller, pool, poolCache)
	if err != nil {
		return PoolState{}, err
	}

	poolABI, err := V3PoolABI()
	if err != nil {
		return PoolState{}, fmt.Errorf("parse pool abi: %w", err)
	}

	state := PoolState{Address: pool, Fee: meta.Fee, TickSpacing: meta.TickSpacing}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		values, err := callMethod(gctx, caller, pool, poolABI, "slot0", block)
		if err != nil {
			return err
		}
		if len(values) < 2 {
			return fmt.Errorf("slot0 return size %d", len(values))
		}
		sqrt, err := asBigInt(values[0])
		if err != nil {
			return fmt.Errorf("slot0 sqrt price: %w", err)
		}
		tickInt, err := asBigInt(values[1])
		if err != nil {
			return fmt.Errorf("slot0 tick: %w", err)
		}
		tick, err := int24FromBig(tickInt)
		if err != nil {
			return fmt.Errorf("slot0 tick: %w", err)
		}
		state.SqrtPriceX96 = sqrt
		state.Tick = tick
		return nil
	})
	g.Go(func() error {
		values, err := callMethod(gctx, caller, pool, poolABI, "liquidity", block)
		if err != nil {
			return err
		}
		liquidity, err := asBigInt(values[0])
		if err != nil {
			return fmt.Errorf("liquidity: %w", err)
		}
		state.Liquidity = liquidity
		return nil
	})
	g.Go(func() error {
		token0, token1, err := FetchTokenPair(gctx, caller, common.HexToAddress(meta.Token0), common.HexToAddress(meta.Token1), tokenCache, nil)
		if err != nil {
			return err
		}
		state.Token0 = token0
		state.Token1 = token1
		return nil
	})
	if err := g.Wait(); err != nil {
		return PoolState{}, err
	}
	return state, nil
}

// FetchTokenPair loads metadata for two tokens concurrently.
func FetchTokenPair(ctx context.Context, caller chain.ContractCaller, tokenA, tokenB common.Address, cache *TokenMetaCache, logger *zap.Logger) (model.TokenMeta, model.TokenMeta, error) {
	var metaA, metaB model.TokenMeta
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		metaA, err = fetchTokenMetaCached(gctx, caller, tokenA, cache, logger)
		return err
	})
	g.Go(func() error {
		var err error
		metaB, err = fetchTokenMetaCached(gctx, caller, tokenB, cache, logger)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.TokenMeta{}, model.TokenMeta{}, err
	}
	return metaA, metaB, nil
}

func fetchTokenMetaCached(ctx context.Context, caller chain.ContractCaller, token common.Address, cache *TokenMetaCache, logger *zap.Logger) (model.TokenMeta, error) {
	if cache != nil {
		if meta, ok := cache.Get(token); ok {
			return meta, nil
		}
	}
	meta, err := FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, fmt.Errorf("token %s: %w", token.Hex(), err)
	}
	if cache != nil {
		cache.Set(token, meta)
	}
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are required, name and symbol are best effort.
func FetchTokenMeta(ctx context.Context, caller chain.ContractCaller, token common.Address, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := ERC20ABI()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := callMethod(ctx, caller, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := callMethod(ctx, caller, token, stringABI, "symbol", nil); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "symbol", nil); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := callMethod(ctx, caller, token, stringABI, "name", nil); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := callMethod(ctx, caller, token, bytes32ABI, "name", nil); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

// FetchPoolAddress asks the factory for a pool; the zero address means the pool does not exist.
func FetchPoolAddress(ctx context.Context, caller chain.ContractCaller, factory, tokenA, tokenB common.Address, fee uint32) (common.Address, error) {
	factoryABI, err := V3FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := callMethod(ctx, caller, factory, factoryABI, "getPool", nil, tokenA, tokenB, new(big.Int).SetUint64(uint64(fee)))
	if err != nil {
		return common.Address{}, err
	}
	return asAddress(values[0])
}

func callMethod(ctx context.Context, caller chain.ContractCaller, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	resp, err := caller.CallContract(ctx, callMsg(common.Address{}, to, data), block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func callMsg(from, to common.Address, data []byte) ethereum.CallMsg {
	return ethereum.CallMsg{From: from, To: &to, Data: data}
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int32:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}

func asBool(value interface{}) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("unsupported bool type %T", value)
	}
	return v, nil
}

func int24FromBig(value *big.Int) (int32, error) {
	min := big.NewInt(-1 << 23)
	max := big.NewInt((1 << 23) - 1)
	if value.Cmp(min) < 0 || value.Cmp(max) > 0 {
		return 0, fmt.Errorf("int24 overflow: %s", value.String())
	}
	return int32(value.Int64()), nil
}
