package chaininfo

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/model"
)

const (
	Ethereum uint64 = 1
	Optimism uint64 = 10
	BNB      uint64 = 56
	Polygon  uint64 = 137
	Base     uint64 = 8453
	Arbitrum uint64 = 42161
)

// PoolInitCodeHash is the keccak256 of the Uniswap V3 pool creation code.
var PoolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

var ErrUnsupportedChain = errors.New("unsupported chain")

// Info describes the deployments the toolkit talks to on a chain.
type Info struct {
	ChainID               uint64          `json:"chain_id"`
	Name                  string          `json:"name"`
	Factory               common.Address  `json:"factory"`
	PositionManager       common.Address  `json:"position_manager"`
	SwapRouter            common.Address  `json:"swap_router"`
	Automan               common.Address  `json:"automan"`
	OptimalSwapRouter     common.Address  `json:"optimal_swap_router"`
	WrappedNative         model.TokenMeta `json:"wrapped_native"`
	CoinGeckoPlatform     string          `json:"coingecko_platform"`
	CoinGeckoNativeID     string          `json:"coingecko_native_id"`
	SubgraphID            string          `json:"subgraph_id"`
	SupportsStateOverride bool            `json:"supports_state_override"`
	PoolInitCodeHash      common.Hash     `json:"pool_init_code_hash"`
}

// Override replaces selected Info fields; empty strings keep the default.
type Override struct {
	Name                  string `mapstructure:"name"`
	Factory               string `mapstructure:"factory"`
	PositionManager       string `mapstructure:"position-manager"`
	SwapRouter            string `mapstructure:"swap-router"`
	Automan               string `mapstructure:"automan"`
	OptimalSwapRouter     string `mapstructure:"optimal-swap-router"`
	WrappedNative         string `mapstructure:"wrapped-native"`
	CoinGeckoPlatform     string `mapstructure:"coingecko-platform"`
	SubgraphID            string `mapstructure:"subgraph-id"`
	SupportsStateOverride *bool  `mapstructure:"supports-state-override"`
	PoolInitCodeHash      string `mapstructure:"pool-init-code-hash"`
}

var (
	uniswapFactory         = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	uniswapPositionManager = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")
	uniswapSwapRouter02    = common.HexToAddress("0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	automanAddress         = common.HexToAddress("0x00000000Ede6d8D217c60f93191C060747324bca")
)

func defaults() map[uint64]Info {
	return map[uint64]Info{
		Ethereum: {
			ChainID:               Ethereum,
			Name:                  "ethereum",
			Factory:               uniswapFactory,
			PositionManager:       uniswapPositionManager,
			SwapRouter:            uniswapSwapRouter02,
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
			CoinGeckoPlatform:     "ethereum",
			CoinGeckoNativeID:     "ethereum",
			SubgraphID:            "5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
		Optimism: {
			ChainID:               Optimism,
			Name:                  "optimism",
			Factory:               uniswapFactory,
			PositionManager:       uniswapPositionManager,
			SwapRouter:            uniswapSwapRouter02,
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
			CoinGeckoPlatform:     "optimistic-ethereum",
			CoinGeckoNativeID:     "ethereum",
			SubgraphID:            "Cghf4LfVqPiFw6fp6Y5X5Ubc8UpmUhSfJL82zwiBFLaj",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
		BNB: {
			ChainID:               BNB,
			Name:                  "bnb",
			Factory:               common.HexToAddress("0xdB1d10011AD0Ff90774D0C6Bb92e5C5c8b4461F7"),
			PositionManager:       common.HexToAddress("0x7b8A01B39D58278b5DE7e48c8449c9f4F5170613"),
			SwapRouter:            common.HexToAddress("0xB971eF87ede563556b2ED4b1C0b0019111Dd85d2"),
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", Decimals: 18, Symbol: "WBNB", Name: "Wrapped BNB"},
			CoinGeckoPlatform:     "binance-smart-chain",
			CoinGeckoNativeID:     "binancecoin",
			SubgraphID:            "F85MNzUGYqgSHSHRGgeVMNsdnW1KtZSVgFULumXRZTw2",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
		Polygon: {
			ChainID:               Polygon,
			Name:                  "polygon",
			Factory:               uniswapFactory,
			PositionManager:       uniswapPositionManager,
			SwapRouter:            uniswapSwapRouter02,
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", Decimals: 18, Symbol: "WMATIC", Name: "Wrapped Matic"},
			CoinGeckoPlatform:     "polygon-pos",
			CoinGeckoNativeID:     "matic-network",
			SubgraphID:            "3hCPRGf4z88VC5rsBKU5AA9FBBq5nF3jbKJG7VZCbhjm",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
		Base: {
			ChainID:               Base,
			Name:                  "base",
			Factory:               common.HexToAddress("0x33128a8fC17869897dcE68Ed026d694621f6FDfD"),
			PositionManager:       common.HexToAddress("0x03a520b32C04BF3bEEf7BEb72E919cf822Ed34f1"),
			SwapRouter:            common.HexToAddress("0x2626664c2603336E57B271c5C0b26F421741e481"),
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0x4200000000000000000000000000000000000006", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
			CoinGeckoPlatform:     "base",
			CoinGeckoNativeID:     "ethereum",
			SubgraphID:            "43Hwfi3dJSoGpyas9VwNoDAv55yjgGrPpNSmbQZArzMG",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
		Arbitrum: {
			ChainID:               Arbitrum,
			Name:                  "arbitrum",
			Factory:               uniswapFactory,
			PositionManager:       uniswapPositionManager,
			SwapRouter:            uniswapSwapRouter02,
			Automan:               automanAddress,
			WrappedNative:         model.TokenMeta{Address: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", Decimals: 18, Symbol: "WETH", Name: "Wrapped Ether"},
			CoinGeckoPlatform:     "arbitrum-one",
			CoinGeckoNativeID:     "ethereum",
			SubgraphID:            "FbCGRftH4a3yZugY7TnbYgPJVEv2LvMT6oF1fxPe9aJM",
			SupportsStateOverride: true,
			PoolInitCodeHash:      PoolInitCodeHash,
		},
	}
}

// Registry resolves chain info, with optional per-chain overrides.
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]Info
}

// NewRegistry returns a registry seeded with the built-in deployments.
func NewRegistry() *Registry {
	return &Registry{chains: defaults()}
}

// Get returns the info for chainID.
func (r *Registry) Get(chainID uint64) (Info, error) {
	r.mu.RLock()
	info, ok := r.chains[chainID]
	r.mu.RUnlock()
	if !ok {
		return Info{}, fmt.Errorf("%w: %d", ErrUnsupportedChain, chainID)
	}
	return info, nil
}

// ChainIDs lists the registered chains in ascending order.
func (r *Registry) ChainIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Apply merges an override into chainID, registering the chain when unknown.
func (r *Registry) Apply(chainID uint64, o Override) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, ok := r.chains[chainID]
	if !ok {
		info = Info{ChainID: chainID, PoolInitCodeHash: PoolInitCodeHash, SupportsStateOverride: true}
	}

	addresses := []struct {
		value string
		dest  *common.Address
		name  string
	}{
		{o.Factory, &info.Factory, "factory"},
		{o.PositionManager, &info.PositionManager, "position-manager"},
		{o.SwapRouter, &info.SwapRouter, "swap-router"},
		{o.Automan, &info.Automan, "automan"},
		{o.OptimalSwapRouter, &info.OptimalSwapRouter, "optimal-swap-router"},
	}
	for _, a := range addresses {
		if a.value == "" {
			continue
		}
		if !common.IsHexAddress(a.value) {
			return fmt.Errorf("chain %d: invalid %s address: %s", chainID, a.name, a.value)
		}
		*a.dest = common.HexToAddress(a.value)
	}

	if o.WrappedNative != "" {
		if !common.IsHexAddress(o.WrappedNative) {
			return fmt.Errorf("chain %d: invalid wrapped-native address: %s", chainID, o.WrappedNative)
		}
		info.WrappedNative.Address = common.HexToAddress(o.WrappedNative).Hex()
		if info.WrappedNative.Decimals == 0 {
			info.WrappedNative.Decimals = 18
		}
	}
	if o.Name != "" {
		info.Name = o.Name
	}
	if o.CoinGeckoPlatform != "" {
		info.CoinGeckoPlatform = o.CoinGeckoPlatform
	}
	if o.SubgraphID != "" {
		info.SubgraphID = o.SubgraphID
	}
	if o.SupportsStateOverride != nil {
		info.SupportsStateOverride = *o.SupportsStateOverride
	}
	if o.PoolInitCodeHash != "" {
		info.PoolInitCodeHash = common.HexToHash(o.PoolInitCodeHash)
	}

	r.chains[chainID] = info
	return nil
}

// ApplyAll applies overrides keyed by decimal chain id, as loaded from config.
func (r *Registry) ApplyAll(overrides map[string]Override) error {
	for key, o := range overrides {
		chainID, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid chain id %q: %w", key, err)
		}
		if err := r.Apply(chainID, o); err != nil {
			return err
		}
	}
	return nil
}
