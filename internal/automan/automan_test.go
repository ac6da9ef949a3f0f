package automan

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"automanKit/internal/chain"
	"automanKit/internal/chaininfo"
	"automanKit/internal/overrides"
)

var (
	token0 = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	token1 = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	owner  = common.HexToAddress("0x1111111111111111111111111111111111111111")
)

func sampleMintParams() MintParams {
	return MintParams{
		Token0:         token0,
		Token1:         token1,
		Fee:            big.NewInt(3000),
		TickLower:      big.NewInt(-887220),
		TickUpper:      big.NewInt(60),
		Amount0Desired: big.NewInt(1_000_000),
		Amount1Desired: big.NewInt(2_000_000),
		Amount0Min:     big.NewInt(1),
		Amount1Min:     big.NewInt(2),
		Recipient:      owner,
		Deadline:       big.NewInt(1700000000),
	}
}

func sameShape(a, b interface{}) bool {
	return fmt.Sprintf("%+v", a) == fmt.Sprintf("%+v", b)
}

func TestMintOptimalRoundTrip(t *testing.T) {
	params := sampleMintParams()
	swapData := []byte{0xde, 0xad, 0xbe, 0xef}

	data, err := MintOptimalCalldata(params, swapData)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotParams, gotSwap, err := DecodeMintOptimalCalldata(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sameShape(params, gotParams) {
		t.Fatalf("params mismatch:\n%+v\n%+v", params, gotParams)
	}
	if string(gotSwap) != string(swapData) {
		t.Fatalf("swap data mismatch: %x", gotSwap)
	}

	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	want := MintResult{TokenID: big.NewInt(9), Liquidity: big.NewInt(12345), Amount0: big.NewInt(11), Amount1: big.NewInt(22)}
	ret, err := parsed.Methods["mintOptimal"].Outputs.Pack(want.TokenID, want.Liquidity, want.Amount0, want.Amount1)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := DecodeMintResult(ret)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !sameShape(want, got) {
		t.Fatalf("result mismatch: %+v", got)
	}
}

func TestRebalanceRoundTrip(t *testing.T) {
	params := sampleMintParams()
	data, err := RebalanceCalldata(params, big.NewInt(42), big.NewInt(100), nil, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotParams, tokenID, feeBips, swapData, err := DecodeRebalanceCalldata(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sameShape(params, gotParams) || tokenID.Int64() != 42 || feeBips.Int64() != 100 || len(swapData) != 0 {
		t.Fatalf("rebalance round trip mismatch")
	}

	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	want := RebalanceResult{NewTokenID: big.NewInt(43), Liquidity: big.NewInt(5), Amount0: big.NewInt(6), Amount1: big.NewInt(7)}
	ret, err := parsed.Methods["rebalance"].Outputs.Pack(want.NewTokenID, want.Liquidity, want.Amount0, want.Amount1)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := DecodeRebalanceResult(ret)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !sameShape(want, got) {
		t.Fatalf("result mismatch: %+v", got)
	}
}

func TestReinvestRoundTrip(t *testing.T) {
	params := IncreaseLiquidityParams{
		TokenId:        big.NewInt(7),
		Amount0Desired: big.NewInt(1),
		Amount1Desired: big.NewInt(2),
		Amount0Min:     big.NewInt(3),
		Amount1Min:     big.NewInt(4),
		Deadline:       big.NewInt(5),
	}
	data, err := ReinvestCalldata(params, big.NewInt(30), []byte{1}, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	gotParams, feeBips, swapData, err := DecodeReinvestCalldata(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sameShape(params, gotParams) || feeBips.Int64() != 30 || len(swapData) != 1 {
		t.Fatalf("reinvest round trip mismatch: %+v", gotParams)
	}

	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	want := ReinvestResult{Liquidity: big.NewInt(100), Amount0: big.NewInt(1), Amount1: big.NewInt(2)}
	ret, err := parsed.Methods["reinvest"].Outputs.Pack(want.Liquidity, want.Amount0, want.Amount1)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := DecodeReinvestResult(ret)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !sameShape(want, got) {
		t.Fatalf("result mismatch: %+v", got)
	}
}

func TestPermitOverloadSelectors(t *testing.T) {
	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	permit := &Permit{Deadline: big.NewInt(1), V: 27}
	params := DecreaseLiquidityParams{TokenId: big.NewInt(1), Liquidity: big.NewInt(2), Amount0Min: big.NewInt(0), Amount1Min: big.NewInt(0), Deadline: big.NewInt(3)}

	plain, err := RemoveLiquidityCalldata(params, nil, nil)
	if err != nil {
		t.Fatalf("encode plain: %v", err)
	}
	withPermit, err := RemoveLiquidityCalldata(params, nil, permit)
	if err != nil {
		t.Fatalf("encode permit: %v", err)
	}
	if string(plain[:4]) != string(parsed.Methods["removeLiquidity"].ID) {
		t.Fatalf("plain selector mismatch")
	}
	if string(withPermit[:4]) != string(parsed.Methods[methodRemoveLiquidityPermit].ID) {
		t.Fatalf("permit selector mismatch")
	}
	if parsed.Methods[methodRemoveLiquidityPermit].Sig != "removeLiquidity((uint256,uint128,uint256,uint256,uint256),uint256,uint256,uint8,bytes32,bytes32)" {
		t.Fatalf("unexpected permit signature %s", parsed.Methods[methodRemoveLiquidityPermit].Sig)
	}
}

type fakeSimulator struct {
	mu        sync.Mutex
	response  []byte
	overrides chain.StateOverrides
	from      common.Address
	lists     int
}

func (f *fakeSimulator) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("plain call not expected")
}

func (f *fakeSimulator) CallContractWithOverrides(_ context.Context, msg ethereum.CallMsg, _ *big.Int, set chain.StateOverrides) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides = set
	f.from = msg.From
	return f.response, nil
}

// CreateAccessList reports one slot per (token, selector) so both lookups resolve.
func (f *fakeSimulator) CreateAccessList(_ context.Context, msg ethereum.CallMsg) (*types.AccessList, uint64, string, error) {
	f.mu.Lock()
	f.lists++
	f.mu.Unlock()
	slot := common.BytesToHash(append(msg.To.Bytes(), msg.Data[:4]...))
	return &types.AccessList{{Address: *msg.To, StorageKeys: []common.Hash{slot}}}, 0, "", nil
}

func TestSimulateMintOptimal(t *testing.T) {
	info, err := chaininfo.NewRegistry().Get(chaininfo.Ethereum)
	if err != nil {
		t.Fatalf("chain info: %v", err)
	}
	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	ret, err := parsed.Methods["mintOptimal"].Outputs.Pack(big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	sim := &fakeSimulator{response: ret}
	client := NewClient(sim, info, nil)
	result, err := client.SimulateMintOptimal(context.Background(), owner, sampleMintParams(), nil, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if result.Liquidity.Int64() != 2 {
		t.Fatalf("liquidity mismatch: %s", result.Liquidity)
	}
	if sim.lists != 4 {
		t.Fatalf("expected 4 access lists, got %d", sim.lists)
	}
	if sim.from != owner {
		t.Fatalf("simulation sender mismatch")
	}
	for _, token := range []common.Address{token0, token1} {
		if len(sim.overrides[token].StateDiff) != 2 {
			t.Fatalf("token %s: expected balance and allowance overrides", token.Hex())
		}
	}
}

func TestSimulateRemoveLiquidityApprovesAutoman(t *testing.T) {
	info, err := chaininfo.NewRegistry().Get(chaininfo.Ethereum)
	if err != nil {
		t.Fatalf("chain info: %v", err)
	}
	parsed, err := ABI()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}
	ret, err := parsed.Methods["removeLiquidity"].Outputs.Pack(big.NewInt(10), big.NewInt(20))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}

	sim := &fakeSimulator{response: ret}
	client := NewClient(sim, info, nil)
	params := DecreaseLiquidityParams{TokenId: big.NewInt(1), Liquidity: big.NewInt(2), Amount0Min: big.NewInt(0), Amount1Min: big.NewInt(0), Deadline: big.NewInt(3)}
	result, err := client.SimulateRemoveLiquidity(context.Background(), owner, params, nil, nil)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if result.Amount0.Int64() != 10 || result.Amount1.Int64() != 20 {
		t.Fatalf("amounts mismatch: %+v", result)
	}
	slot := overrides.OperatorApprovalSlot(owner, info.Automan)
	if _, ok := sim.overrides[info.PositionManager].StateDiff[slot]; !ok {
		t.Fatalf("operator approval override missing")
	}
}
