package overrides

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"automanKit/internal/chain"
)

// SimulationGas is the gas limit attached to simulated calls that do not set one.
const SimulationGas uint64 = 0x11E1A300

// StaticCallWithOverrides runs eth_call at block with overrides applied.
func StaticCallWithOverrides(ctx context.Context, provider chain.OverrideCaller, msg ethereum.CallMsg, overrides chain.StateOverrides, block *big.Int) ([]byte, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is nil")
	}
	if msg.Gas == 0 {
		msg.Gas = SimulationGas
	}
	out, err := provider.CallContractWithOverrides(ctx, msg, block, overrides)
	if err != nil {
		return nil, fmt.Errorf("call with overrides: %w", err)
	}
	return out, nil
}

// TryCallWithOverrides applies overrides when the chain supports them and falls back to a plain eth_call otherwise.
func TryCallWithOverrides(ctx context.Context, provider chain.OverrideCaller, supportsOverrides bool, msg ethereum.CallMsg, overrides chain.StateOverrides, block *big.Int, logger *zap.Logger) ([]byte, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if supportsOverrides && len(overrides) > 0 {
		return StaticCallWithOverrides(ctx, provider, msg, overrides, block)
	}
	if len(overrides) > 0 {
		logger.Debug("state overrides unsupported, using plain call", zap.Int("accounts", len(overrides)))
	}
	if msg.Gas == 0 {
		msg.Gas = SimulationGas
	}
	out, err := provider.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	return out, nil
}
