package dex

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"automanKit/internal/model"
)

// Position manager event names.
const (
	EventIncreaseLiquidity = "IncreaseLiquidity"
	EventDecreaseLiquidity = "DecreaseLiquidity"
	EventCollect           = "Collect"
	EventTransfer          = "Transfer"
)

// PositionDecoder decodes NonfungiblePositionManager events.
type PositionDecoder struct {
	npmABI      abi.ABI
	topicToName map[string]string
}

// NewPositionDecoder builds a position manager decoder.
func NewPositionDecoder() (*PositionDecoder, error) {
	npmABI, err := PositionManagerABI()
	if err != nil {
		return nil, err
	}

	topicToName := make(map[string]string, 4)
	for _, name := range []string{EventIncreaseLiquidity, EventDecreaseLiquidity, EventCollect, EventTransfer} {
		topicToName[strings.ToLower(npmABI.Events[name].ID.Hex())] = name
	}

	return &PositionDecoder{
		npmABI:      npmABI,
		topicToName: topicToName,
	}, nil
}

// EventTopic returns topic0 of a position manager event.
func (d *PositionDecoder) EventTopic(name string) common.Hash {
	return d.npmABI.Events[name].ID
}

// CanDecode checks if the topic0 is supported.
func (d *PositionDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a PositionEvent.
func (d *PositionDecoder) Decode(log model.LogRecord) (*model.PositionEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	var (
		decoded interface{}
		tokenID string
		err     error
	)
	switch name {
	case EventIncreaseLiquidity:
		var data model.IncreaseLiquidityEventData
		data.TokenID, data.Liquidity, data.Amount0, data.Amount1, err = d.decodeLiquidityChange(name, log)
		decoded, tokenID = data, data.TokenID
	case EventDecreaseLiquidity:
		var data model.DecreaseLiquidityEventData
		data.TokenID, data.Liquidity, data.Amount0, data.Amount1, err = d.decodeLiquidityChange(name, log)
		decoded, tokenID = data, data.TokenID
	case EventCollect:
		var data model.CollectEventData
		data, err = d.decodeCollect(log)
		decoded, tokenID = data, data.TokenID
	case EventTransfer:
		var data model.TransferEventData
		data, err = d.decodeTransfer(log)
		decoded, tokenID = data, data.TokenID
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}

	return &model.PositionEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		BlockHash:   log.BlockHash,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		TokenID:     tokenID,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		Raw:         &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data},
	}, nil
}

// IncreaseLiquidity and DecreaseLiquidity share a layout.
func (d *PositionDecoder) decodeLiquidityChange(name string, log model.LogRecord) (string, string, string, string, error) {
	event := d.npmABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return "", "", "", "", err
	}

	var indexed struct {
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return "", "", "", "", fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return "", "", "", "", err
	}
	if len(values) != 3 {
		return "", "", "", "", fmt.Errorf("unexpected %s values: %d", strings.ToLower(name), len(values))
	}

	liquidity, err := asBigInt(values[0])
	if err != nil {
		return "", "", "", "", err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return "", "", "", "", err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return "", "", "", "", err
	}
	return indexed.TokenId.String(), liquidity.String(), amount0.String(), amount1.String(), nil
}

func (d *PositionDecoder) decodeCollect(log model.LogRecord) (model.CollectEventData, error) {
	event := d.npmABI.Events[EventCollect]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.CollectEventData{}, err
	}

	var indexed struct {
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.CollectEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return model.CollectEventData{}, err
	}
	if len(values) != 3 {
		return model.CollectEventData{}, fmt.Errorf("unexpected collect values: %d", len(values))
	}

	recipient, err := asAddress(values[0])
	if err != nil {
		return model.CollectEventData{}, err
	}
	amount0, err := asBigInt(values[1])
	if err != nil {
		return model.CollectEventData{}, err
	}
	amount1, err := asBigInt(values[2])
	if err != nil {
		return model.CollectEventData{}, err
	}

	return model.CollectEventData{
		TokenID:   indexed.TokenId.String(),
		Recipient: recipient.Hex(),
		Amount0:   amount0.String(),
		Amount1:   amount1.String(),
	}, nil
}

func (d *PositionDecoder) decodeTransfer(log model.LogRecord) (model.TransferEventData, error) {
	event := d.npmABI.Events[EventTransfer]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return model.TransferEventData{}, err
	}

	var indexed struct {
		From    common.Address
		To      common.Address
		TokenId *big.Int
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), indexedTopics); err != nil {
		return model.TransferEventData{}, fmt.Errorf("parse topics: %w", err)
	}

	return model.TransferEventData{
		From:    indexed.From.Hex(),
		To:      indexed.To.Hex(),
		TokenID: indexed.TokenId.String(),
	}, nil
}
