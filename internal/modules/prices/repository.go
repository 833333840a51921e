// Package prices stores ingested market prices: spot quotes for valuation
// and daily closes for signal derivation.
package prices

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Repository reads and writes the market database. Implements
// domain.PriceSource via Price.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// Price returns the spot price for a symbol. The bool is false when no
// price has been ingested.
func (r *Repository) Price(symbol string) (float64, bool) {
	var price float64
	err := r.db.QueryRow(`SELECT price FROM spot_prices WHERE symbol = ?`, normalizeSymbol(symbol)).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false
	}
	if err != nil {
		r.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to read spot price")
		return 0, false
	}
	return price, true
}

// UpsertSpot ingests a spot price.
func (r *Repository) UpsertSpot(symbol string, price float64) error {
	if price <= 0 {
		return fmt.Errorf("spot price must be positive: %s %f", symbol, price)
	}

	query := `
		INSERT INTO spot_prices (symbol, price, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, normalizeSymbol(symbol), price, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert spot price: %w", err)
	}
	return nil
}

// UpsertDailyClose ingests one daily close. Date format is YYYY-MM-DD.
func (r *Repository) UpsertDailyClose(symbol, date string, close float64) error {
	if close <= 0 {
		return fmt.Errorf("daily close must be positive: %s %f", symbol, close)
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return fmt.Errorf("invalid date %q: %w", date, err)
	}

	query := `
		INSERT INTO daily_prices (symbol, date, close)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, date) DO UPDATE SET close = excluded.close
	`
	if _, err := r.db.Exec(query, normalizeSymbol(symbol), date, close); err != nil {
		return fmt.Errorf("failed to upsert daily close: %w", err)
	}
	return nil
}

// GetDailyCloses returns up to limit closes for a symbol, oldest first,
// ready for indicator math.
func (r *Repository) GetDailyCloses(symbol string, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 365
	}

	// Newest-first limit, then flipped to ascending.
	query := `
		SELECT close FROM daily_prices
		WHERE symbol = ?
		ORDER BY date DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, normalizeSymbol(symbol), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily closes: %w", err)
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan daily close: %w", err)
		}
		closes = append(closes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(closes)-1; i < j; i, j = i+1, j-1 {
		closes[i], closes[j] = closes[j], closes[i]
	}

	return closes, nil
}

// Symbols lists every symbol with at least one daily close.
func (r *Repository) Symbols() ([]string, error) {
	rows, err := r.db.Query(`SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
