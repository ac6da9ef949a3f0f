package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"automanKit/internal/chaininfo"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL        string
	ChainID       uint64
	AggregatorURL string
	CoinGeckoURL  string
	CoinGeckoKey  string
	SubgraphKey   string
	PGDSN         string
	ChainsFile    string
	LogLevel      string

	BatchSize    uint64
	MaxRetries   int
	RetryBackoff time.Duration
	Checkpoint   string
	Out          string
	ErrorsOut    string

	// Chains holds per-chain deployment overrides keyed by decimal chain id.
	Chains map[string]chaininfo.Override
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTOMAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(chaininfo.Ethereum))
	v.SetDefault("aggregator-url", "https://api.1inch.dev/swap/v5.2")
	v.SetDefault("batch-size", uint64(2000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("checkpoint", "./data/checkpoint.json")
	v.SetDefault("out", "./data/position_events.jsonl")
	v.SetDefault("errors", "./data/decode_errors.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		RPCURL:        v.GetString("rpc"),
		ChainID:       v.GetUint64("chain-id"),
		AggregatorURL: v.GetString("aggregator-url"),
		CoinGeckoURL:  v.GetString("coingecko-url"),
		CoinGeckoKey:  v.GetString("coingecko-key"),
		SubgraphKey:   v.GetString("subgraph-key"),
		PGDSN:         v.GetString("pg-dsn"),
		ChainsFile:    v.GetString("chains-file"),
		LogLevel:      v.GetString("log-level"),
		BatchSize:     v.GetUint64("batch-size"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryBackoff:  v.GetDuration("retry-backoff"),
		Checkpoint:    v.GetString("checkpoint"),
		Out:           v.GetString("out"),
		ErrorsOut:     v.GetString("errors"),
	}

	if err := v.UnmarshalKey("chains", &cfg.Chains); err != nil {
		return Config{}, fmt.Errorf("decode chains: %w", err)
	}
	if cfg.ChainsFile != "" {
		extra, err := loadChainsFile(cfg.ChainsFile)
		if err != nil {
			return Config{}, err
		}
		if cfg.Chains == nil {
			cfg.Chains = make(map[string]chaininfo.Override, len(extra))
		}
		for id, override := range extra {
			cfg.Chains[id] = override
		}
	}

	return cfg, nil
}

// Registry returns the built-in chain registry with the configured overrides applied.
func (c Config) Registry() (*chaininfo.Registry, error) {
	registry := chaininfo.NewRegistry()
	if len(c.Chains) == 0 {
		return registry, nil
	}
	if err := registry.ApplyAll(c.Chains); err != nil {
		return nil, fmt.Errorf("apply chain overrides: %w", err)
	}
	return registry, nil
}

// loadChainsFile reads a file whose top-level keys are chain ids.
func loadChainsFile(path string) (map[string]chaininfo.Override, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}
	var chains map[string]chaininfo.Override
	if err := v.Unmarshal(&chains); err != nil {
		return nil, fmt.Errorf("decode chains file: %w", err)
	}
	return chains, nil
}
