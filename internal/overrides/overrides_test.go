package overrides

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/dex"
)

func TestOperatorApprovalSlot(t *testing.T) {
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x00000000Ede6d8D217c60f93191C060747324bca")
	want := common.HexToHash("0x4e6a209988b99443c748f6817bb42d5ca05cd44e5c29ee89dcf27b3e7aeec1f4")

	if got := OperatorApprovalSlot(owner, spender); got != want {
		t.Fatalf("slot mismatch: got %s want %s", got.Hex(), want.Hex())
	}
	if OperatorApprovalSlot(spender, owner) == want {
		t.Fatalf("slot must depend on argument order")
	}
}

func TestRouterWhitelistSlot(t *testing.T) {
	router := common.HexToAddress("0x2222222222222222222222222222222222222222")
	want := common.HexToHash("0x53af42d0a8bf5903ecbc159ba2f6e0fa2dc0165bfe911ace311677c562114276")
	if got := RouterWhitelistSlotFor(router); got != want {
		t.Fatalf("slot mismatch: got %s want %s", got.Hex(), want.Hex())
	}
}

func TestNPMApprovalOverrides(t *testing.T) {
	info, err := chaininfo.NewRegistry().Get(chaininfo.Ethereum)
	if err != nil {
		t.Fatalf("chain info: %v", err)
	}
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	set := NPMApprovalOverrides(info, owner)
	account, ok := set[info.PositionManager]
	if !ok || len(set) != 1 {
		t.Fatalf("expected a single position manager override, got %d", len(set))
	}
	if account.StateDiff[OperatorApprovalSlot(owner, info.Automan)] != common.BigToHash(big.NewInt(1)) {
		t.Fatalf("approval slot not set to true")
	}
}

func TestMerge(t *testing.T) {
	addr := common.HexToAddress("0x3333333333333333333333333333333333333333")
	a := chain.StateOverrides{addr: {StateDiff: map[common.Hash]common.Hash{{1}: {1}}}}
	b := chain.StateOverrides{addr: {StateDiff: map[common.Hash]common.Hash{{2}: {2}}, Balance: big.NewInt(9)}}

	merged := Merge(a, b, nil)
	account := merged[addr]
	if len(account.StateDiff) != 2 {
		t.Fatalf("expected 2 state diff entries, got %d", len(account.StateDiff))
	}
	if account.Balance == nil || account.Balance.Int64() != 9 {
		t.Fatalf("balance not carried")
	}
	if len(a[addr].StateDiff) != 1 {
		t.Fatalf("inputs must not be mutated")
	}
}

type fakeSimulator struct {
	mu           sync.Mutex
	accessLists  map[string]types.AccessList
	lastOverride chain.StateOverrides
	plainCalls   int
}

func (f *fakeSimulator) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plainCalls++
	return []byte{1}, nil
}

func (f *fakeSimulator) CallContractWithOverrides(_ context.Context, msg ethereum.CallMsg, _ *big.Int, overrides chain.StateOverrides) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.Gas != SimulationGas {
		return nil, errors.New("gas not defaulted")
	}
	f.lastOverride = overrides
	return []byte{2}, nil
}

func (f *fakeSimulator) CreateAccessList(_ context.Context, msg ethereum.CallMsg) (*types.AccessList, uint64, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list, ok := f.accessLists[string(msg.Data[:4])]
	if !ok {
		return nil, 0, "", errors.New("unexpected access list request")
	}
	return &list, 21000, "", nil
}

func erc20Selector(t *testing.T, method string) string {
	t.Helper()
	parsed, err := dex.ERC20ABI()
	if err != nil {
		t.Fatalf("erc20 abi: %v", err)
	}
	return string(parsed.Methods[method].ID)
}

func TestERC20OverridesSingleSlot(t *testing.T) {
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	balanceSlot, allowanceSlot := common.Hash{0xb}, common.Hash{0xa}

	sim := &fakeSimulator{accessLists: map[string]types.AccessList{
		erc20Selector(t, "balanceOf"): {{Address: token, StorageKeys: []common.Hash{balanceSlot}}},
		erc20Selector(t, "allowance"): {
			{Address: owner},
			{Address: token, StorageKeys: []common.Hash{allowanceSlot}},
		},
	}}

	amount := big.NewInt(1_000_000)
	set, err := ERC20Overrides(context.Background(), sim, token, owner, spender, amount)
	if err != nil {
		t.Fatalf("erc20 overrides: %v", err)
	}
	diff := set[token].StateDiff
	if diff[balanceSlot] != common.BigToHash(amount) || diff[allowanceSlot] != common.BigToHash(amount) {
		t.Fatalf("unexpected state diff: %v", diff)
	}
}

func TestERC20OverridesProxyToken(t *testing.T) {
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")
	implSlot, balanceSlot, allowanceSlot := common.Hash{0x1}, common.Hash{0xb}, common.Hash{0xa}

	sim := &fakeSimulator{accessLists: map[string]types.AccessList{
		erc20Selector(t, "balanceOf"): {{Address: token, StorageKeys: []common.Hash{implSlot, balanceSlot}}},
		erc20Selector(t, "allowance"): {{Address: token, StorageKeys: []common.Hash{allowanceSlot, implSlot}}},
	}}

	set, err := ERC20Overrides(context.Background(), sim, token, owner, spender, big.NewInt(5))
	if err != nil {
		t.Fatalf("erc20 overrides: %v", err)
	}
	diff := set[token].StateDiff
	if len(diff) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(diff))
	}
	if _, ok := diff[implSlot]; ok {
		t.Fatalf("implementation slot must not be overridden")
	}
}

func TestERC20OverridesRejectsUnexpectedShape(t *testing.T) {
	token := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	spender := common.HexToAddress("0x2222222222222222222222222222222222222222")

	cases := map[string]map[string]types.AccessList{
		"missing token entry": {
			erc20Selector(t, "balanceOf"): {},
			erc20Selector(t, "allowance"): {{Address: token, StorageKeys: []common.Hash{{0xa}}}},
		},
		"ambiguous keys": {
			erc20Selector(t, "balanceOf"): {{Address: token, StorageKeys: []common.Hash{{0x1}, {0x2}, {0x3}}}},
			erc20Selector(t, "allowance"): {{Address: token, StorageKeys: []common.Hash{{0x1}, {0xa}}}},
		},
		"shared slot": {
			erc20Selector(t, "balanceOf"): {{Address: token, StorageKeys: []common.Hash{{0x1}}}},
			erc20Selector(t, "allowance"): {{Address: token, StorageKeys: []common.Hash{{0x1}}}},
		},
	}
	for name, lists := range cases {
		sim := &fakeSimulator{accessLists: lists}
		_, err := ERC20Overrides(context.Background(), sim, token, owner, spender, big.NewInt(1))
		if !errors.Is(err, ErrInvalidAccessList) {
			t.Fatalf("%s: expected ErrInvalidAccessList, got %v", name, err)
		}
	}
}

func TestTryCallWithOverrides(t *testing.T) {
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	set := chain.StateOverrides{to: gethclient.OverrideAccount{Balance: big.NewInt(1)}}
	msg := ethereum.CallMsg{To: &to}

	sim := &fakeSimulator{}
	out, err := TryCallWithOverrides(context.Background(), sim, true, msg, set, nil, nil)
	if err != nil || out[0] != 2 {
		t.Fatalf("expected override call, got %v %v", out, err)
	}
	if sim.lastOverride == nil {
		t.Fatalf("overrides not forwarded")
	}

	out, err = TryCallWithOverrides(context.Background(), sim, false, msg, set, nil, nil)
	if err != nil || out[0] != 1 || sim.plainCalls != 1 {
		t.Fatalf("expected plain call fallback, got %v %v", out, err)
	}
}
