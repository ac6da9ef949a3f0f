package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"automanKit/internal/model"
	"automanKit/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS pool_snapshots (
	chain_id        BIGINT      NOT NULL,
	pool_address    TEXT        NOT NULL,
	token0          TEXT        NOT NULL,
	token1          TEXT        NOT NULL,
	fee             INTEGER     NOT NULL,
	tick_spacing    INTEGER     NOT NULL,
	sqrt_price_x96  NUMERIC     NOT NULL,
	tick            INTEGER     NOT NULL,
	liquidity       NUMERIC     NOT NULL,
	block_number    BIGINT      NOT NULL,
	observed_at     TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (chain_id, pool_address)
);

CREATE TABLE IF NOT EXISTS position_snapshots (
	chain_id      BIGINT      NOT NULL,
	token_id      NUMERIC     NOT NULL,
	block_number  BIGINT      NOT NULL,
	owner         TEXT        NOT NULL,
	pool_address  TEXT        NOT NULL,
	token0        TEXT        NOT NULL,
	token1        TEXT        NOT NULL,
	fee           INTEGER     NOT NULL,
	tick_lower    INTEGER     NOT NULL,
	tick_upper    INTEGER     NOT NULL,
	liquidity     NUMERIC     NOT NULL,
	amount0       NUMERIC     NOT NULL,
	amount1       NUMERIC     NOT NULL,
	collectable0  NUMERIC     NOT NULL,
	collectable1  NUMERIC     NOT NULL,
	in_range      BOOLEAN     NOT NULL,
	observed_at   TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain_id, token_id, block_number)
);

CREATE TABLE IF NOT EXISTS position_events (
	chain_id      BIGINT  NOT NULL,
	tx_hash       TEXT    NOT NULL,
	log_index     BIGINT  NOT NULL,
	block_number  BIGINT  NOT NULL,
	block_hash    TEXT    NOT NULL,
	address       TEXT    NOT NULL,
	event_name    TEXT    NOT NULL,
	token_id      NUMERIC NOT NULL,
	ts            BIGINT  NOT NULL,
	decoded       JSONB   NOT NULL,
	PRIMARY KEY (chain_id, tx_hash, log_index)
);

CREATE TABLE IF NOT EXISTS position_decode_errors (
	chain_id      BIGINT NOT NULL,
	tx_hash       TEXT   NOT NULL,
	log_index     BIGINT NOT NULL,
	block_number  BIGINT NOT NULL,
	token_id      TEXT   NOT NULL,
	topic0        TEXT   NOT NULL,
	error         TEXT   NOT NULL,
	PRIMARY KEY (chain_id, tx_hash, log_index)
);
`

// Store persists pool and position snapshots and position history in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertPools stores the latest snapshot of each pool.
func (s *Store) UpsertPools(ctx context.Context, pools []model.PoolSnapshot) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO pool_snapshots (
				chain_id, pool_address, token0, token1, fee, tick_spacing,
				sqrt_price_x96, tick, liquidity, block_number, observed_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
			ON CONFLICT (chain_id, pool_address)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				tick = EXCLUDED.tick,
				liquidity = EXCLUDED.liquidity,
				block_number = EXCLUDED.block_number,
				observed_at = EXCLUDED.observed_at,
				updated_at = now()
			WHERE pool_snapshots.block_number <= EXCLUDED.block_number
		`,
			int64(pool.ChainID),
			pool.Address,
			pool.Token0,
			pool.Token1,
			pool.Fee,
			pool.TickSpacing,
			pool.SqrtPriceX96,
			pool.Tick,
			pool.Liquidity,
			int64(pool.BlockNumber),
			pool.ObservedAt,
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertPositionSnapshots stores one row per position and block.
func (s *Store) UpsertPositionSnapshots(ctx context.Context, snapshots []model.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range snapshots {
		batch.Queue(`
			INSERT INTO position_snapshots (
				chain_id, token_id, block_number, owner, pool_address, token0, token1, fee,
				tick_lower, tick_upper, liquidity, amount0, amount1, collectable0, collectable1,
				in_range, observed_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
			ON CONFLICT (chain_id, token_id, block_number)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				liquidity = EXCLUDED.liquidity,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				collectable0 = EXCLUDED.collectable0,
				collectable1 = EXCLUDED.collectable1,
				in_range = EXCLUDED.in_range,
				observed_at = EXCLUDED.observed_at
		`,
			int64(p.ChainID),
			p.TokenID,
			int64(p.BlockNumber),
			p.Owner,
			p.Pool,
			p.Token0,
			p.Token1,
			p.Fee,
			p.TickLower,
			p.TickUpper,
			p.Liquidity,
			p.Amount0,
			p.Amount1,
			p.Collectable0,
			p.Collectable1,
			p.InRange,
			p.ObservedAt,
		)
	}
	return s.sendBatch(ctx, batch)
}

// PutEvents inserts position events, ignoring ones already stored.
func (s *Store) PutEvents(ctx context.Context, events []model.PositionEvent) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		decoded, err := json.Marshal(e.Decoded)
		if err != nil {
			return fmt.Errorf("marshal decoded %s: %w", e.TxHash, err)
		}
		batch.Queue(`
			INSERT INTO position_events (
				chain_id, tx_hash, log_index, block_number, block_hash, address, event_name, token_id, ts, decoded
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(e.ChainID),
			e.TxHash,
			int64(e.LogIndex),
			int64(e.BlockNumber),
			e.BlockHash,
			e.Address,
			e.EventName,
			e.TokenID,
			int64(e.Timestamp),
			decoded,
		)
	}
	return s.sendBatch(ctx, batch)
}

// PutDecodeErrors records logs that could not be decoded.
func (s *Store) PutDecodeErrors(ctx context.Context, errs []model.DecodeError) error {
	if len(errs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range errs {
		batch.Queue(`
			INSERT INTO position_decode_errors (
				chain_id, tx_hash, log_index, block_number, token_id, topic0, error
			) VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (chain_id, tx_hash, log_index) DO UPDATE SET error = EXCLUDED.error
		`,
			int64(e.ChainID),
			e.TxHash,
			int64(e.LogIndex),
			int64(e.BlockNumber),
			e.TokenID,
			e.Topic0,
			e.Error,
		)
	}
	return s.sendBatch(ctx, batch)
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

var _ storage.EventSink = (*Store)(nil)
