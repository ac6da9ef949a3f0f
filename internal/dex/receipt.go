package dex

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"automanKit/internal/model"
)

var ErrEventNotFound = errors.New("event not found in receipt")

// DecodeReceipt decodes every position manager event emitted by npm in the receipt.
// Logs from other contracts are skipped.
func (d *PositionDecoder) DecodeReceipt(chainID uint64, receipt *types.Receipt, npm common.Address) ([]model.PositionEvent, error) {
	if receipt == nil {
		return nil, fmt.Errorf("receipt is nil")
	}
	var events []model.PositionEvent
	for _, log := range receipt.Logs {
		if log == nil || log.Address != npm || len(log.Topics) == 0 {
			continue
		}
		record := model.NewLogRecord(chainID, *log, 0)
		if !d.CanDecode(record.Topics[0]) {
			continue
		}
		event, err := d.Decode(record)
		if err != nil {
			return nil, fmt.Errorf("log %d: %w", log.Index, err)
		}
		events = append(events, *event)
	}
	return events, nil
}

// MintedPositionIDFromReceipt returns the id of the position minted in the transaction.
func MintedPositionIDFromReceipt(receipt *types.Receipt, npm common.Address) (*big.Int, error) {
	decoder, err := NewPositionDecoder()
	if err != nil {
		return nil, err
	}
	events, err := decoder.DecodeReceipt(0, receipt, npm)
	if err != nil {
		return nil, err
	}
	for _, event := range events {
		transfer, ok := event.Decoded.(model.TransferEventData)
		if !ok || transfer.From != (common.Address{}).Hex() {
			continue
		}
		id, ok := new(big.Int).SetString(transfer.TokenID, 10)
		if !ok {
			return nil, fmt.Errorf("invalid token id %q", transfer.TokenID)
		}
		return id, nil
	}
	return nil, fmt.Errorf("mint transfer: %w", ErrEventNotFound)
}

// CollectedFeesFromReceipt sums the Collect amounts for tokenID in the transaction.
func CollectedFeesFromReceipt(receipt *types.Receipt, npm common.Address, tokenID *big.Int) (*big.Int, *big.Int, error) {
	decoder, err := NewPositionDecoder()
	if err != nil {
		return nil, nil, err
	}
	events, err := decoder.DecodeReceipt(0, receipt, npm)
	if err != nil {
		return nil, nil, err
	}

	amount0, amount1 := new(big.Int), new(big.Int)
	found := false
	for _, event := range events {
		collect, ok := event.Decoded.(model.CollectEventData)
		if !ok || collect.TokenID != tokenID.String() {
			continue
		}
		a0, ok0 := new(big.Int).SetString(collect.Amount0, 10)
		a1, ok1 := new(big.Int).SetString(collect.Amount1, 10)
		if !ok0 || !ok1 {
			return nil, nil, fmt.Errorf("invalid collect amounts %+v", collect)
		}
		amount0.Add(amount0, a0)
		amount1.Add(amount1, a1)
		found = true
	}
	if !found {
		return nil, nil, fmt.Errorf("collect for %s: %w", tokenID, ErrEventNotFound)
	}
	return amount0, amount1, nil
}
