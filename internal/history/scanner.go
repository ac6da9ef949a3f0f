package history

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"automanKit/internal/chain"
	"automanKit/internal/dex"
	"automanKit/internal/model"
	"automanKit/internal/storage"
)

// ScanConfig selects the position and block window to scan.
type ScanConfig struct {
	TokenID         *big.Int
	PositionManager common.Address
	FromBlock       uint64
	// ToBlock of zero scans up to the latest block.
	ToBlock        uint64
	BatchSize      uint64
	CheckpointPath string
	MaxRetries     int
	RetryBackoff   time.Duration
}

// Summary reports what a scan wrote.
type Summary struct {
	FromBlock    uint64
	ToBlock      uint64
	Batches      int
	Events       int
	DecodeErrors int
}

// Scanner walks position manager logs of one position and writes the decoded history to a sink.
type Scanner struct {
	cfg        ScanConfig
	chain      chain.LogReader
	sink       storage.EventSink
	decoder    *dex.PositionDecoder
	checkpoint *CheckpointStore
	logger     *zap.Logger
	seen       map[string]struct{}
}

// NewScanner builds a Scanner with its dependencies.
func NewScanner(cfg ScanConfig, reader chain.LogReader, sink storage.EventSink, logger *zap.Logger) (*Scanner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	decoder, err := dex.NewPositionDecoder()
	if err != nil {
		return nil, fmt.Errorf("position decoder: %w", err)
	}
	return &Scanner{
		cfg:        cfg,
		chain:      reader,
		sink:       sink,
		decoder:    decoder,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath),
		logger:     logger,
		seen:       make(map[string]struct{}),
	}, nil
}

// Run scans the configured window, resuming from the checkpoint when one matches.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	if s.chain == nil {
		return Summary{}, fmt.Errorf("chain client is nil")
	}
	if s.sink == nil {
		return Summary{}, fmt.Errorf("event sink is nil")
	}
	if s.cfg.TokenID == nil || s.cfg.TokenID.Sign() < 0 {
		return Summary{}, fmt.Errorf("token id is required")
	}
	if s.cfg.BatchSize == 0 {
		return Summary{}, fmt.Errorf("batch size must be greater than zero")
	}

	chainID, err := s.chain.GetChainID(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return Summary{}, fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}
	chainIDValue := chainID.Uint64()
	tokenID := s.cfg.TokenID.String()

	from, to := s.cfg.FromBlock, s.cfg.ToBlock
	if to == 0 {
		latest, err := s.chain.LatestBlockNumber(ctx)
		if err != nil {
			return Summary{}, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := s.checkpoint.Load(chainIDValue, tokenID)
	if err != nil {
		return Summary{}, err
	}
	if ok && cp.LastProcessedBlock >= from {
		from = cp.LastProcessedBlock + 1
		s.logger.Info("resume from checkpoint", zap.String("token_id", tokenID), zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
	}

	summary := Summary{FromBlock: from, ToBlock: to}
	if from > to {
		s.logger.Info("nothing to scan", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, s.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	for _, blockRange := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		logs, err := s.positionLogs(ctx, blockRange)
		if err != nil {
			return summary, fmt.Errorf("filter logs: %w", err)
		}

		events, decodeErrs, err := s.decode(ctx, chainIDValue, tokenID, logs)
		if err != nil {
			return summary, err
		}
		if err := s.sink.PutEvents(ctx, events); err != nil {
			return summary, fmt.Errorf("store events: %w", err)
		}
		if err := s.sink.PutDecodeErrors(ctx, decodeErrs); err != nil {
			return summary, fmt.Errorf("store decode errors: %w", err)
		}
		if err := s.checkpoint.Save(chainIDValue, tokenID, blockRange.To); err != nil {
			return summary, err
		}

		summary.Batches++
		summary.Events += len(events)
		summary.DecodeErrors += len(decodeErrs)
		s.logger.Info("batch complete",
			zap.String("token_id", tokenID),
			zap.Int("events", len(events)),
			zap.Int("decode_errors", len(decodeErrs)),
			zap.Uint64("from", blockRange.From),
			zap.Uint64("to", blockRange.To),
		)
	}
	return summary, nil
}

// positionLogs runs one query for the liquidity events, where the token id is topic1,
// and one for transfers, where it is topic3. Results are ordered by block and log index.
func (s *Scanner) positionLogs(ctx context.Context, blockRange BlockRange) ([]types.Log, error) {
	tokenTopic := common.BigToHash(s.cfg.TokenID)
	addresses := []common.Address{s.cfg.PositionManager}
	queries := [][][]common.Hash{
		{
			{
				s.decoder.EventTopic(dex.EventIncreaseLiquidity),
				s.decoder.EventTopic(dex.EventDecreaseLiquidity),
				s.decoder.EventTopic(dex.EventCollect),
			},
			{tokenTopic},
		},
		{
			{s.decoder.EventTopic(dex.EventTransfer)},
			nil,
			nil,
			{tokenTopic},
		},
	}

	var logs []types.Log
	for _, topics := range queries {
		var batch []types.Log
		err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
			var err error
			batch, err = s.chain.FilterLogs(ctx, blockRange.From, blockRange.To, addresses, topics)
			if err != nil {
				s.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		logs = append(logs, batch...)
	}

	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		return logs[i].Index < logs[j].Index
	})
	return logs, nil
}

func (s *Scanner) decode(ctx context.Context, chainID uint64, tokenID string, logs []types.Log) ([]model.PositionEvent, []model.DecodeError, error) {
	timestamps := make(map[uint64]uint64)
	events := make([]model.PositionEvent, 0, len(logs))
	var decodeErrs []model.DecodeError

	for _, log := range logs {
		if s.isDuplicate(log) {
			continue
		}
		ts, ok := timestamps[log.BlockNumber]
		if !ok {
			var err error
			ts, err = s.blockTimestampWithRetry(ctx, log.BlockNumber)
			if err != nil {
				return nil, nil, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
			}
			timestamps[log.BlockNumber] = ts
		}

		record := model.NewLogRecord(chainID, log, ts)
		event, err := s.decoder.Decode(record)
		if err != nil {
			topic0 := ""
			if len(record.Topics) > 0 {
				topic0 = record.Topics[0]
			}
			decodeErrs = append(decodeErrs, model.DecodeError{
				ChainID:     chainID,
				BlockNumber: record.BlockNumber,
				TxHash:      record.TxHash,
				LogIndex:    record.LogIndex,
				TokenID:     tokenID,
				Topic0:      topic0,
				Error:       err.Error(),
			})
			continue
		}
		events = append(events, *event)
	}
	return events, decodeErrs, nil
}

func (s *Scanner) blockTimestampWithRetry(ctx context.Context, blockNumber uint64) (uint64, error) {
	var ts uint64
	err := withRetry(ctx, s.cfg.MaxRetries, s.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		ts, err = s.chain.BlockTimestamp(ctx, blockNumber)
		if err != nil {
			s.logger.Warn("block timestamp fetch failed", zap.Error(err), zap.Uint64("block_number", blockNumber))
		}
		return err
	})
	return ts, err
}

func (s *Scanner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}
