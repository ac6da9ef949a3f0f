package dex

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func TestReceiptHelpers(t *testing.T) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	tokenID := big.NewInt(901)

	collectData, err := npmABI.Events["Collect"].Inputs.NonIndexed().Pack(owner, big.NewInt(11), big.NewInt(22))
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}
	increaseData, err := npmABI.Events["IncreaseLiquidity"].Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(2), big.NewInt(3))
	if err != nil {
		t.Fatalf("pack increase: %v", err)
	}

	receipt := &types.Receipt{Logs: []*types.Log{
		// same event signature from another contract must be ignored
		{Address: common.HexToAddress("0x1"), Topics: []common.Hash{npmABI.Events["Collect"].ID, common.BigToHash(tokenID)}, Data: collectData},
		{Address: testNPM, Topics: []common.Hash{npmABI.Events["Transfer"].ID, {}, topicFromAddress(owner), common.BigToHash(tokenID)}, Index: 1},
		{Address: testNPM, Topics: []common.Hash{npmABI.Events["IncreaseLiquidity"].ID, common.BigToHash(tokenID)}, Data: increaseData, Index: 2},
		{Address: testNPM, Topics: []common.Hash{npmABI.Events["Collect"].ID, common.BigToHash(tokenID)}, Data: collectData, Index: 3},
	}}

	minted, err := MintedPositionIDFromReceipt(receipt, testNPM)
	if err != nil {
		t.Fatalf("minted id: %v", err)
	}
	if minted.Cmp(tokenID) != 0 {
		t.Fatalf("minted id mismatch: %s", minted)
	}

	amount0, amount1, err := CollectedFeesFromReceipt(receipt, testNPM, tokenID)
	if err != nil {
		t.Fatalf("collected fees: %v", err)
	}
	if amount0.Int64() != 11 || amount1.Int64() != 22 {
		t.Fatalf("fees mismatch: %s %s", amount0, amount1)
	}

	if _, _, err := CollectedFeesFromReceipt(receipt, testNPM, big.NewInt(1)); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
