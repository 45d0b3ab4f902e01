package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/etnz/pnl"
)

// schema creates the transfers table. Amounts are kept as received, they are
// only validated by the normalizer.
const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	signature      TEXT    NOT NULL,
	log_index      INTEGER NOT NULL,
	block_time     BIGINT  NOT NULL,
	mint           TEXT    NOT NULL,
	from_address   TEXT    NOT NULL,
	to_address     TEXT    NOT NULL,
	token_amount   TEXT    NOT NULL,
	quote_amount   TEXT    NOT NULL,
	decimals       INTEGER NOT NULL DEFAULT 0,
	quote_decimals INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (signature, log_index)
);
CREATE INDEX IF NOT EXISTS transfers_block_time ON transfers (block_time);
`

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pool on dsn and makes sure the schema exists.
func Connect(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if needed.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() { s.pool.Close() }

func (s *PostgresStore) Append(ctx context.Context, raws ...pnl.RawTransfer) (int, error) {
	if len(raws) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, r := range raws {
		batch.Queue(
			`INSERT INTO transfers (signature, log_index, block_time, mint, from_address, to_address,
			                        token_amount, quote_amount, decimals, quote_decimals)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			 ON CONFLICT (signature, log_index) DO NOTHING`,
			r.Signature, r.Index, r.Timestamp, r.Mint, r.From, r.To,
			r.TokenAmount, r.QuoteAmount, r.Decimals, r.QuoteDecimals,
		)
	}
	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	added := 0
	for _, r := range raws {
		tag, err := results.Exec()
		if err != nil {
			return added, fmt.Errorf("insert transfer %s#%d: %w", r.Signature, r.Index, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

func (s *PostgresStore) List(ctx context.Context, since time.Time) ([]pnl.RawTransfer, error) {
	var ms int64
	if !since.IsZero() {
		ms = since.UnixMilli()
	}
	rows, err := s.pool.Query(ctx,
		`SELECT signature, log_index, block_time, mint, from_address, to_address,
		        token_amount, quote_amount, decimals, quote_decimals
		 FROM transfers WHERE block_time >= $1
		 ORDER BY block_time, signature, log_index`, ms)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var raws []pnl.RawTransfer
	for rows.Next() {
		var r pnl.RawTransfer
		if err := rows.Scan(&r.Signature, &r.Index, &r.Timestamp, &r.Mint, &r.From, &r.To,
			&r.TokenAmount, &r.QuoteAmount, &r.Decimals, &r.QuoteDecimals); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		raws = append(raws, r)
	}
	return raws, rows.Err()
}
