package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// snapshotPayload is the msgpack wire form of one holdings snapshot.
// Quantities keyed by symbol keep the blob compact.
type snapshotPayload struct {
	Quantities map[string]float64 `msgpack:"q"`
}

// SnapshotRepository stores msgpack-encoded holdings snapshots taken
// alongside each executed rebalance.
type SnapshotRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sql.DB, log zerolog.Logger) *SnapshotRepository {
	return &SnapshotRepository{
		db:  db,
		log: log.With().Str("repo", "snapshots").Logger(),
	}
}

// SaveSnapshot persists the holdings state at the given instant.
func (r *SnapshotRepository) SaveSnapshot(portfolioID string, at time.Time, holdings map[string]domain.Holding) error {
	payload := snapshotPayload{Quantities: make(map[string]float64, len(holdings))}
	for sym, h := range holdings {
		if h.Quantity > 0 {
			payload.Quantities[sym] = h.Quantity
		}
	}

	blob, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (portfolio_id, created_at, holdings)
		VALUES (?, ?, ?)
		ON CONFLICT(portfolio_id, created_at) DO UPDATE SET holdings = excluded.holdings
	`
	if _, err := r.db.Exec(query, portfolioID, at.Unix(), blob); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot returns the most recent holdings snapshot, or nil when
// none exists.
func (r *SnapshotRepository) LatestSnapshot(portfolioID string) (map[string]domain.Holding, *time.Time, error) {
	query := `
		SELECT created_at, holdings FROM snapshots
		WHERE portfolio_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	var createdAt int64
	var blob []byte
	err := r.db.QueryRow(query, portfolioID).Scan(&createdAt, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	var payload snapshotPayload
	if err := msgpack.Unmarshal(blob, &payload); err != nil {
		return nil, nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	holdings := make(map[string]domain.Holding, len(payload.Quantities))
	for sym, qty := range payload.Quantities {
		holdings[sym] = domain.Holding{Symbol: sym, Quantity: qty}
	}

	at := time.Unix(createdAt, 0).UTC()
	return holdings, &at, nil
}
