package clickhouse

import (
	"context"
	"fmt"

	"solana-sniper/internal/storage"
)

// PnLSampleStore implements storage.PnLSampleStore using ClickHouse.
type PnLSampleStore struct {
	conn *Conn
}

// NewPnLSampleStore creates a new PnLSampleStore.
func NewPnLSampleStore(conn *Conn) *PnLSampleStore {
	return &PnLSampleStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PnLSampleStore = (*PnLSampleStore)(nil)

// InsertBulk adds multiple samples. Fails the entire batch on a duplicate
// (mint, timestamp_ms). MergeTree does not enforce uniqueness, so
// duplicates are rejected before the batch is sent.
func (s *PnLSampleStore) InsertBulk(ctx context.Context, samples []*storage.PnLSample) error {
	if len(samples) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		mint        string
		timestampMs int64
	}
	seen := make(map[key]struct{})
	for _, p := range samples {
		k := key{p.Mint, p.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range samples {
		exists, err := s.exists(ctx, p.Mint, p.TimestampMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pnl_samples (
			mint, pair, timestamp_ms, price, pnl_pct
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range samples {
		err = batch.Append(
			p.Mint, p.Pair, uint64(p.TimestampMs), p.Price, p.PnLPct,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByMint retrieves all samples for a mint, ordered by timestamp ASC.
func (s *PnLSampleStore) GetByMint(ctx context.Context, mint string) ([]*storage.PnLSample, error) {
	query := `
		SELECT mint, pair, timestamp_ms, price, pnl_pct
		FROM pnl_samples
		WHERE mint = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("query by mint: %w", err)
	}
	defer rows.Close()

	return scanPnLSamples(rows)
}

// exists checks if a sample with the given key exists.
func (s *PnLSampleStore) exists(ctx context.Context, mint string, timestampMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM pnl_samples
		WHERE mint = ? AND timestamp_ms = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, mint, uint64(timestampMs)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scan helpers need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanPnLSamples scans multiple rows.
func scanPnLSamples(rows chRows) ([]*storage.PnLSample, error) {
	var samples []*storage.PnLSample

	for rows.Next() {
		var p storage.PnLSample
		var timestampMs uint64

		if err := rows.Scan(&p.Mint, &p.Pair, &timestampMs, &p.Price, &p.PnLPct); err != nil {
			return nil, fmt.Errorf("scan pnl sample row: %w", err)
		}

		p.TimestampMs = int64(timestampMs)
		samples = append(samples, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pnl sample rows: %w", err)
	}

	return samples, nil
}
