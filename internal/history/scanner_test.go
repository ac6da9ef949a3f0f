package history

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"automanKit/internal/dex"
	"automanKit/internal/model"
)

var testNPM = common.HexToAddress("0xC36442b4a4522E871399CD717aBDD847Ab11FE88")

type fakeReader struct {
	logs       []types.Log
	latest     uint64
	filterErrs int
	tsCalls    map[uint64]int
}

func (f *fakeReader) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeReader) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeReader) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	if f.tsCalls == nil {
		f.tsCalls = make(map[uint64]int)
	}
	f.tsCalls[number]++
	return 1_700_000_000 + number*12, nil
}

func (f *fakeReader) FilterLogs(_ context.Context, from, to uint64, addresses []common.Address, topics [][]common.Hash) ([]types.Log, error) {
	if f.filterErrs > 0 {
		f.filterErrs--
		return nil, errors.New("rpc unavailable")
	}
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber < from || log.BlockNumber > to {
			continue
		}
		if len(addresses) > 0 && !containsAddress(addresses, log.Address) {
			continue
		}
		if matchTopics(log.Topics, topics) {
			out = append(out, log)
		}
	}
	return out, nil
}

func containsAddress(list []common.Address, addr common.Address) bool {
	for _, a := range list {
		if a == addr {
			return true
		}
	}
	return false
}

func matchTopics(have []common.Hash, filter [][]common.Hash) bool {
	for i, options := range filter {
		if len(options) == 0 {
			continue
		}
		if i >= len(have) {
			return false
		}
		matched := false
		for _, option := range options {
			if have[i] == option {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

type memorySink struct {
	events []model.PositionEvent
	errs   []model.DecodeError
}

func (m *memorySink) PutEvents(_ context.Context, events []model.PositionEvent) error {
	m.events = append(m.events, events...)
	return nil
}

func (m *memorySink) PutDecodeErrors(_ context.Context, errs []model.DecodeError) error {
	m.errs = append(m.errs, errs...)
	return nil
}

func positionLogs(t *testing.T, tokenID *big.Int) []types.Log {
	t.Helper()
	npmABI, err := dex.PositionManagerABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}
	tokenTopic := common.BigToHash(tokenID)
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")

	increase, err := npmABI.Events[dex.EventIncreaseLiquidity].Inputs.NonIndexed().Pack(big.NewInt(5000), big.NewInt(100), big.NewInt(200))
	if err != nil {
		t.Fatalf("pack increase: %v", err)
	}
	collect, err := npmABI.Events[dex.EventCollect].Inputs.NonIndexed().Pack(owner, big.NewInt(7), big.NewInt(9))
	if err != nil {
		t.Fatalf("pack collect: %v", err)
	}
	otherIncrease, err := npmABI.Events[dex.EventIncreaseLiquidity].Inputs.NonIndexed().Pack(big.NewInt(1), big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("pack other: %v", err)
	}

	return []types.Log{
		// Returned out of order on purpose.
		{
			Address:     testNPM,
			Topics:      []common.Hash{npmABI.Events[dex.EventCollect].ID, tokenTopic},
			Data:        collect,
			BlockNumber: 15,
			TxHash:      common.HexToHash("0xc0"),
			Index:       3,
		},
		{
			Address:     testNPM,
			Topics:      []common.Hash{npmABI.Events[dex.EventIncreaseLiquidity].ID, tokenTopic},
			Data:        increase,
			BlockNumber: 10,
			TxHash:      common.HexToHash("0xa0"),
			Index:       2,
		},
		{
			Address:     testNPM,
			Topics:      []common.Hash{npmABI.Events[dex.EventTransfer].ID, common.Hash{}, common.BytesToHash(owner.Bytes()), tokenTopic},
			BlockNumber: 10,
			TxHash:      common.HexToHash("0xa0"),
			Index:       1,
		},
		{
			Address:     testNPM,
			Topics:      []common.Hash{npmABI.Events[dex.EventIncreaseLiquidity].ID, common.BigToHash(big.NewInt(99))},
			Data:        otherIncrease,
			BlockNumber: 11,
			TxHash:      common.HexToHash("0xb0"),
		},
		{
			Address:     testNPM,
			Topics:      []common.Hash{npmABI.Events[dex.EventDecreaseLiquidity].ID, tokenTopic},
			BlockNumber: 20,
			TxHash:      common.HexToHash("0xd0"),
		},
	}
}

func TestScannerRun(t *testing.T) {
	tokenID := big.NewInt(4242)
	reader := &fakeReader{logs: positionLogs(t, tokenID), latest: 20, filterErrs: 1}
	sink := &memorySink{}
	cfg := ScanConfig{
		TokenID:         tokenID,
		PositionManager: testNPM,
		FromBlock:       10,
		BatchSize:       5,
		CheckpointPath:  filepath.Join(t.TempDir(), "checkpoint.json"),
		MaxRetries:      2,
		RetryBackoff:    1,
	}

	scanner, err := NewScanner(cfg, reader, sink, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	summary, err := scanner.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if summary.Batches != 3 || summary.Events != 3 || summary.DecodeErrors != 1 {
		t.Fatalf("summary mismatch: %+v", summary)
	}
	wantOrder := []string{dex.EventTransfer, dex.EventIncreaseLiquidity, dex.EventCollect}
	if len(sink.events) != len(wantOrder) {
		t.Fatalf("got %d events, want %d", len(sink.events), len(wantOrder))
	}
	for i, name := range wantOrder {
		if sink.events[i].EventName != name {
			t.Fatalf("event %d = %s, want %s", i, sink.events[i].EventName, name)
		}
		if sink.events[i].TokenID != "4242" {
			t.Fatalf("event %d token id = %s", i, sink.events[i].TokenID)
		}
	}
	if sink.events[0].Timestamp != 1_700_000_120 {
		t.Fatalf("timestamp = %d", sink.events[0].Timestamp)
	}
	if reader.tsCalls[10] != 1 {
		t.Fatalf("block 10 timestamp fetched %d times", reader.tsCalls[10])
	}
	if len(sink.errs) != 1 || sink.errs[0].BlockNumber != 20 || sink.errs[0].TokenID != "4242" {
		t.Fatalf("decode errors mismatch: %+v", sink.errs)
	}

	// A second run resumes past the checkpoint and has nothing left to do.
	again, err := NewScanner(cfg, reader, sink, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	summary, err = again.Run(context.Background())
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if summary.Batches != 0 || summary.FromBlock != 21 {
		t.Fatalf("resume summary mismatch: %+v", summary)
	}
}

func TestScannerRequiresTokenID(t *testing.T) {
	scanner, err := NewScanner(ScanConfig{BatchSize: 10}, &fakeReader{}, &memorySink{}, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	if _, err := scanner.Run(context.Background()); err == nil {
		t.Fatalf("expected error without token id")
	}
}

func TestScannerFilterFailure(t *testing.T) {
	reader := &fakeReader{latest: 5, filterErrs: 10}
	cfg := ScanConfig{TokenID: big.NewInt(1), PositionManager: testNPM, BatchSize: 10, RetryBackoff: 1}
	scanner, err := NewScanner(cfg, reader, &memorySink{}, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	if _, err := scanner.Run(context.Background()); err == nil {
		t.Fatalf("expected filter error")
	}
}
