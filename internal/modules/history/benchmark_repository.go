package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// BenchmarkRepository stores ingested benchmark value series in the market
// database. Implements domain.BenchmarkSource.
type BenchmarkRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewBenchmarkRepository creates a new benchmark repository
func NewBenchmarkRepository(db *sql.DB, log zerolog.Logger) *BenchmarkRepository {
	return &BenchmarkRepository{
		db:  db,
		log: log.With().Str("repo", "benchmark").Logger(),
	}
}

// Upsert records one benchmark point; re-ingestion overwrites.
func (r *BenchmarkRepository) Upsert(benchmarkID string, point domain.ValueHistoryPoint) error {
	query := `
		INSERT INTO benchmark_series (benchmark_id, timestamp, value)
		VALUES (?, ?, ?)
		ON CONFLICT(benchmark_id, timestamp) DO UPDATE SET value = excluded.value
	`
	if _, err := r.db.Exec(query, benchmarkID, point.Timestamp.Unix(), point.TotalValue); err != nil {
		return fmt.Errorf("failed to upsert benchmark point: %w", err)
	}
	return nil
}

// Series returns the benchmark points inside the window, ascending.
func (r *BenchmarkRepository) Series(benchmarkID string, window domain.Window) ([]domain.ValueHistoryPoint, error) {
	cutoffUnix := int64(0)
	if cutoff, bounded := window.Cutoff(time.Now().UTC()); bounded {
		cutoffUnix = cutoff.Unix()
	}

	query := `
		SELECT timestamp, value FROM benchmark_series
		WHERE benchmark_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`
	rows, err := r.db.Query(query, benchmarkID, cutoffUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark series: %w", err)
	}
	defer rows.Close()

	var points []domain.ValueHistoryPoint
	for rows.Next() {
		var ts int64
		var value float64
		if err := rows.Scan(&ts, &value); err != nil {
			return nil, fmt.Errorf("failed to scan benchmark point: %w", err)
		}
		points = append(points, domain.ValueHistoryPoint{
			Timestamp:  time.Unix(ts, 0).UTC(),
			TotalValue: value,
		})
	}

	return points, rows.Err()
}
