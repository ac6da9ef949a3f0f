package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "automan",
		Short:        "Uniswap V3 position reader and transaction builder",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("rpc", "", "JSON-RPC URL")
	flags.Uint64("chain-id", chaininfo.Ethereum, "chain id")
	flags.String("chains-file", "", "chain deployment overrides file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(
		poolAddressCmd(),
		poolCmd(),
		positionCmd(),
		positionsCmd(),
		approvalCmd(),
		permitDataCmd(),
		priceCmd(),
		feeTiersCmd(),
		topPoolsCmd(),
		optimalMintCmd(),
		mintCmd(),
		rebalanceCmd(),
		reinvestCmd(),
		removeCmd(),
		collectCmd(),
		limitOrderCmd(),
		historyCmd(),
		snapshotCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// session carries what every command needs after flags are resolved.
type session struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *chaininfo.Registry
	info     chaininfo.Info
	ctx      context.Context
	stop     context.CancelFunc
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	info, err := registry.Get(cfg.ChainID)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return &session{cfg: cfg, logger: logger, registry: registry, info: info, ctx: ctx, stop: stop}, nil
}

func (r *session) Close() {
	r.stop()
	_ = r.logger.Sync()
}

// dial connects to the configured RPC and checks that it serves the configured chain.
func (r *session) dial() (*chain.Client, error) {
	if r.cfg.RPCURL == "" {
		return nil, fmt.Errorf("rpc url is required")
	}
	client, err := chain.NewClient(r.ctx, r.cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}
	chainID, err := client.GetChainID(r.ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() || chainID.Uint64() != r.info.ChainID {
		client.Close()
		return nil, fmt.Errorf("rpc serves chain %s, configured chain is %d", chainID, r.info.ChainID)
	}
	return client, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(value interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func parseAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, fmt.Errorf("invalid %s address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}

func parseBigInt(name, value string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(value, 0)
	if !ok || n.Sign() < 0 {
		return nil, fmt.Errorf("invalid %s: %q", name, value)
	}
	return n, nil
}

// deadlineFrom turns a relative validity window into a unix deadline.
func deadlineFrom(window time.Duration) *big.Int {
	return big.NewInt(time.Now().Add(window).Unix())
}
