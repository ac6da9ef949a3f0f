package main

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"automanKit/internal/dex"
	"automanKit/internal/history"
	"automanKit/internal/model"
	"automanKit/internal/storage"
	"automanKit/internal/storage/postgres"
)

func historyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Scan the event history of a position into JSONL or Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			tokenID, err := tokenIDFlag(cmd)
			if err != nil {
				return err
			}
			from, _ := cmd.Flags().GetUint64("from")
			to, _ := cmd.Flags().GetUint64("to")

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			var sink storage.EventSink
			if rt.cfg.PGDSN != "" {
				store, err := postgres.NewStore(rt.ctx, rt.cfg.PGDSN)
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.EnsureSchema(rt.ctx); err != nil {
					return err
				}
				sink = store
			} else {
				sink = storage.NewJSONL(rt.cfg.Out, rt.cfg.ErrorsOut)
			}

			scanner, err := history.NewScanner(history.ScanConfig{
				TokenID:         tokenID,
				PositionManager: rt.info.PositionManager,
				FromBlock:       from,
				ToBlock:         to,
				BatchSize:       rt.cfg.BatchSize,
				CheckpointPath:  rt.cfg.Checkpoint,
				MaxRetries:      rt.cfg.MaxRetries,
				RetryBackoff:    rt.cfg.RetryBackoff,
			}, client, sink, rt.logger)
			if err != nil {
				return err
			}

			rt.logger.Info("history start",
				zap.String("token_id", tokenID.String()),
				zap.Uint64("from", from),
				zap.Uint64("to", to),
				zap.Uint64("batch_size", rt.cfg.BatchSize),
				zap.Bool("postgres", rt.cfg.PGDSN != ""),
				zap.String("checkpoint", rt.cfg.Checkpoint),
			)
			summary, err := scanner.Run(rt.ctx)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().String("token-id", "", "position token id")
	cmd.Flags().Uint64("from", 0, "start block (inclusive), usually the mint block")
	cmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	cmd.Flags().Uint64("batch-size", 2000, "blocks per log query")
	cmd.Flags().String("out", "./data/position_events.jsonl", "events JSONL path")
	cmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL path, empty discards")
	cmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path, empty disables")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN; when set events go to Postgres")
	return cmd
}

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Store point-in-time snapshots of an owner's positions and their pools in Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if rt.cfg.PGDSN == "" {
				return fmt.Errorf("pg-dsn is required")
			}
			ownerValue, _ := cmd.Flags().GetString("owner")
			owner, err := parseAddress("owner", ownerValue)
			if err != nil {
				return err
			}

			client, err := rt.dial()
			if err != nil {
				return err
			}
			defer client.Close()

			// Pin every read to one block so pools and positions agree.
			blockNumber, err := client.LatestBlockNumber(rt.ctx)
			if err != nil {
				return fmt.Errorf("get latest block: %w", err)
			}
			block := new(big.Int).SetUint64(blockNumber)

			positions, err := dex.FetchAllPositions(rt.ctx, client, rt.info, owner, dex.NewPoolMetaCache(), dex.NewTokenMetaCache(), block)
			if err != nil {
				return err
			}

			now := time.Now()
			positionRows := make([]model.PositionSnapshot, 0, len(positions))
			pools := make(map[common.Address]model.PoolSnapshot)
			for _, p := range positions {
				positionRows = append(positionRows, p.Snapshot(rt.info.ChainID, blockNumber, now))
				pools[p.Pool.Address] = p.Pool.Snapshot(rt.info.ChainID, blockNumber, now)
			}
			poolRows := make([]model.PoolSnapshot, 0, len(pools))
			for _, row := range pools {
				poolRows = append(poolRows, row)
			}

			store, err := postgres.NewStore(rt.ctx, rt.cfg.PGDSN)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureSchema(rt.ctx); err != nil {
				return err
			}
			if err := store.UpsertPools(rt.ctx, poolRows); err != nil {
				return err
			}
			if err := store.UpsertPositionSnapshots(rt.ctx, positionRows); err != nil {
				return err
			}

			rt.logger.Info("snapshot stored",
				zap.String("owner", owner.Hex()),
				zap.Uint64("block", blockNumber),
				zap.Int("positions", len(positionRows)),
				zap.Int("pools", len(poolRows)),
			)
			return nil
		},
	}
	cmd.Flags().String("owner", "", "position owner")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN")
	return cmd
}
