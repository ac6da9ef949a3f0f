package chaininfo

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestRegistryDefaults(t *testing.T) {
	reg := NewRegistry()

	info, err := reg.Get(Ethereum)
	if err != nil {
		t.Fatalf("get mainnet: %v", err)
	}
	if info.Factory != common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984") {
		t.Fatalf("factory mismatch: %s", info.Factory.Hex())
	}
	if info.PoolInitCodeHash != PoolInitCodeHash {
		t.Fatalf("init code hash mismatch")
	}

	if _, err := reg.Get(999999); !errors.Is(err, ErrUnsupportedChain) {
		t.Fatalf("expected unsupported chain, got %v", err)
	}

	ids := reg.ChainIDs()
	if len(ids) != 6 || ids[0] != Ethereum || ids[len(ids)-1] != Arbitrum {
		t.Fatalf("chain ids mismatch: %v", ids)
	}
}

func TestRegistryApplyAll(t *testing.T) {
	reg := NewRegistry()
	disabled := false

	err := reg.ApplyAll(map[string]Override{
		"1": {
			OptimalSwapRouter:     "0x1111111111111111111111111111111111111111",
			SupportsStateOverride: &disabled,
		},
		"31337": {
			Name:            "anvil",
			Factory:         "0x2222222222222222222222222222222222222222",
			PositionManager: "0x3333333333333333333333333333333333333333",
			WrappedNative:   "0x4444444444444444444444444444444444444444",
		},
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	mainnet, _ := reg.Get(Ethereum)
	if mainnet.OptimalSwapRouter != common.HexToAddress("0x1111111111111111111111111111111111111111") {
		t.Fatalf("optimal swap router not applied")
	}
	if mainnet.SupportsStateOverride {
		t.Fatalf("state override flag not applied")
	}
	if mainnet.Automan == (common.Address{}) {
		t.Fatalf("unrelated fields must be kept")
	}

	local, err := reg.Get(31337)
	if err != nil {
		t.Fatalf("get local: %v", err)
	}
	if local.Name != "anvil" || local.WrappedNative.Decimals != 18 || local.PoolInitCodeHash != PoolInitCodeHash {
		t.Fatalf("local chain mismatch: %+v", local)
	}
}

func TestRegistryApplyRejectsBadInput(t *testing.T) {
	reg := NewRegistry()
	if err := reg.ApplyAll(map[string]Override{"mainnet": {}}); err == nil {
		t.Fatalf("expected error for non-numeric chain id")
	}
	if err := reg.Apply(Ethereum, Override{Factory: "0x123"}); err == nil {
		t.Fatalf("expected error for invalid address")
	}
}
