package dex

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"automanKit/internal/model"
)

var testNPM = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")

func TestPositionDecoderIncreaseDecrease(t *testing.T) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewPositionDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokenID := big.NewInt(4242)
	data, err := npmABI.Events["IncreaseLiquidity"].Inputs.NonIndexed().Pack(
		big.NewInt(5000),
		big.NewInt(100),
		big.NewInt(200),
	)
	if err != nil {
		t.Fatalf("pack increase: %v", err)
	}

	logRecord := buildLogRecord(testNPM, npmABI.Events["IncreaseLiquidity"].ID, data, []common.Hash{common.BigToHash(tokenID)})
	event, err := decoder.Decode(logRecord)
	if err != nil {
		t.Fatalf("decode increase: %v", err)
	}
	increase, ok := event.Decoded.(model.IncreaseLiquidityEventData)
	if !ok {
		t.Fatalf("decoded type mismatch")
	}
	if increase.TokenID != "4242" || increase.Liquidity != "5000" {
		t.Fatalf("increase mismatch: %+v", increase)
	}
	if increase.Amount0 != "100" || increase.Amount1 != "200" {
		t.Fatalf("amounts mismatch: %+v", increase)
	}
	if event.TokenID != "4242" || event.EventName != EventIncreaseLiquidity {
		t.Fatalf("event envelope mismatch: %+v", event)
	}

	data, err = npmABI.Events["DecreaseLiquidity"].Inputs.NonIndexed().Pack(
		big.NewInt(7000),
		big.NewInt(300),
		big.NewInt(400),
	)
	if err != nil {
		t.Fatalf("pack decrease: %v", err)
	}
	logRecord = buildLogRecord(testNPM, npmABI.Events["DecreaseLiquidity"].ID, data, []common.Hash{common.BigToHash(tokenID)})
	event, err = decoder.Decode(logRecord)
	if err != nil {
		t.Fatalf("decode decrease: %v", err)
	}
	decrease, ok := event.Decoded.(model.DecreaseLiquidityEventData)
	if !ok {
		t.Fatalf("decrease type mismatch")
	}
	if decrease.Liquidity != "7000" {
		t.Fatalf("decrease mismatch: %+v", decrease)
	}
}

func TestPositionDecoderCollectTransfer(t *testing.T) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewPositionDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}

	tokenID := big.NewInt(77)
	recipient := common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
	owner := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	collectData, err := npmABI.Events["Collect"].Inputs.NonIndexed().Pack(
		recipient,
		big.NewInt(900),
		big.NewInt(1000),
	)
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}
	collectEvent, err := decoder.Decode(buildLogRecord(testNPM, npmABI.Events["Collect"].ID, collectData, []common.Hash{common.BigToHash(tokenID)}))
	if err != nil {
		t.Fatalf("decode collect: %v", err)
	}
	collect, ok := collectEvent.Decoded.(model.CollectEventData)
	if !ok {
		t.Fatalf("collect type mismatch")
	}
	if collect.Amount0 != "900" || collect.Amount1 != "1000" {
		t.Fatalf("collect amount mismatch: %+v", collect)
	}
	if collect.Recipient != recipient.Hex() {
		t.Fatalf("collect recipient mismatch")
	}

	transferEvent, err := decoder.Decode(buildLogRecord(testNPM, npmABI.Events["Transfer"].ID, nil, []common.Hash{
		topicFromAddress(common.Address{}),
		topicFromAddress(owner),
		common.BigToHash(tokenID),
	}))
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	transfer, ok := transferEvent.Decoded.(model.TransferEventData)
	if !ok {
		t.Fatalf("transfer type mismatch")
	}
	if transfer.To != owner.Hex() || transfer.TokenID != "77" {
		t.Fatalf("transfer mismatch: %+v", transfer)
	}
}

func TestPositionDecoderRejectsWrongTopicCount(t *testing.T) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	decoder, err := NewPositionDecoder()
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	record := buildLogRecord(testNPM, npmABI.Events["Transfer"].ID, nil, []common.Hash{topicFromAddress(common.Address{})})
	if _, err := decoder.Decode(record); err == nil {
		t.Fatalf("expected topic count error")
	}
	if decoder.CanDecode("0x1234") {
		t.Fatalf("unexpected topic accepted")
	}
}

func buildLogRecord(address common.Address, topic0 common.Hash, data []byte, indexed []common.Hash) model.LogRecord {
	topics := make([]string, 0, len(indexed)+1)
	topics = append(topics, topic0.Hex())
	for _, topic := range indexed {
		topics = append(topics, topic.Hex())
	}

	return model.LogRecord{
		ChainID:     1,
		BlockNumber: 12345,
		BlockHash:   "0xabc",
		TxHash:      "0xdef",
		LogIndex:    1,
		Address:     address.Hex(),
		Topics:      topics,
		Data:        hexutil.Encode(data),
		Timestamp:   1700000000,
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
