// Package history persists portfolio value history and holdings snapshots.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// Repository stores value history points. Implements domain.HistoryStore.
// The series is append-only and strictly ascending per portfolio.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// Append records a new history point. Out-of-order or duplicate timestamps
// are rejected to keep the series strictly ascending.
func (r *Repository) Append(portfolioID string, point domain.ValueHistoryPoint) error {
	last, err := r.Latest(portfolioID)
	if err != nil {
		return err
	}
	if last != nil && !point.Timestamp.After(last.Timestamp) {
		return fmt.Errorf("history point at %d not after latest %d for %s",
			point.Timestamp.Unix(), last.Timestamp.Unix(), portfolioID)
	}

	query := `
		INSERT INTO value_history (portfolio_id, timestamp, total_value)
		VALUES (?, ?, ?)
	`
	if _, err := r.db.Exec(query, portfolioID, point.Timestamp.Unix(), point.TotalValue); err != nil {
		return fmt.Errorf("failed to append history point: %w", err)
	}

	return nil
}

// Read returns the points inside the window, ascending by timestamp.
func (r *Repository) Read(portfolioID string, window domain.Window) ([]domain.ValueHistoryPoint, error) {
	query := `
		SELECT timestamp, total_value FROM value_history
		WHERE portfolio_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`

	cutoffUnix := int64(0)
	if cutoff, bounded := window.Cutoff(time.Now().UTC()); bounded {
		cutoffUnix = cutoff.Unix()
	}

	rows, err := r.db.Query(query, portfolioID, cutoffUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to read value history: %w", err)
	}
	defer rows.Close()

	var points []domain.ValueHistoryPoint
	for rows.Next() {
		var ts int64
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		points = append(points, domain.ValueHistoryPoint{
			Timestamp:  time.Unix(ts, 0).UTC(),
			TotalValue: value,
		})
	}

	return points, rows.Err()
}

// Latest returns the most recent point, or nil for an empty series.
func (r *Repository) Latest(portfolioID string) (*domain.ValueHistoryPoint, error) {
	query := `
		SELECT timestamp, total_value FROM value_history
		WHERE portfolio_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var ts int64
	var value float64
	err := r.db.QueryRow(query, portfolioID).Scan(&ts, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest history point: %w", err)
	}

	return &domain.ValueHistoryPoint{
		Timestamp:  time.Unix(ts, 0).UTC(),
		TotalValue: value,
	}, nil
}
