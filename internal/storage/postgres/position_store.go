package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-sniper/internal/storage"
)

// PositionStore implements storage.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *Pool
}

// NewPositionStore creates a new PositionStore.
func NewPositionStore(pool *Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionStore = (*PositionStore)(nil)

const positionColumns = `
	signature, mint, pair, token_name, token_symbol,
	bought_price, token_amount, cost_sol, pnl_pct, reason,
	opened_at, closed_at
`

// Insert adds a closed position. Returns ErrDuplicateKey if the buy
// signature was already recorded.
func (s *PositionStore) Insert(ctx context.Context, p *storage.ClosedPosition) error {
	query := `
		INSERT INTO closed_positions (` + positionColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12
		)
	`

	_, err := s.pool.Exec(ctx, query,
		p.Signature, p.Mint, p.Pair, p.TokenName, p.TokenSymbol,
		p.BoughtPrice, p.TokenAmount, p.CostSOL, p.PnLPct, p.Reason,
		p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert closed position: %w", err)
	}
	return nil
}

// GetBySignature retrieves a position by its buy signature. Returns
// ErrNotFound if not exists.
func (s *PositionStore) GetBySignature(ctx context.Context, signature string) (*storage.ClosedPosition, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM closed_positions
		WHERE signature = $1
	`

	row := s.pool.QueryRow(ctx, query, signature)
	p, err := scanClosedPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get closed position by signature: %w", err)
	}
	return p, nil
}

// GetByMint retrieves all closed positions for a mint, ordered by close time ASC.
func (s *PositionStore) GetByMint(ctx context.Context, mint string) ([]*storage.ClosedPosition, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM closed_positions
		WHERE mint = $1
		ORDER BY closed_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get closed positions by mint: %w", err)
	}
	defer rows.Close()

	return scanClosedPositions(rows)
}

// GetAll retrieves all closed positions, ordered by close time ASC.
func (s *PositionStore) GetAll(ctx context.Context) ([]*storage.ClosedPosition, error) {
	query := `
		SELECT ` + positionColumns + `
		FROM closed_positions
		ORDER BY closed_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all closed positions: %w", err)
	}
	defer rows.Close()

	return scanClosedPositions(rows)
}

// scanClosedPosition scans a single row into a ClosedPosition.
func scanClosedPosition(row pgx.Row) (*storage.ClosedPosition, error) {
	var p storage.ClosedPosition

	err := row.Scan(
		&p.Signature, &p.Mint, &p.Pair, &p.TokenName, &p.TokenSymbol,
		&p.BoughtPrice, &p.TokenAmount, &p.CostSOL, &p.PnLPct, &p.Reason,
		&p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

// scanClosedPositions scans multiple rows into a slice of ClosedPosition.
func scanClosedPositions(rows pgx.Rows) ([]*storage.ClosedPosition, error) {
	var positions []*storage.ClosedPosition

	for rows.Next() {
		p, err := scanClosedPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan closed position row: %w", err)
		}
		positions = append(positions, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closed position rows: %w", err)
	}

	return positions, nil
}
