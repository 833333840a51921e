package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Repository stores the reference scores behind liquidity and
// smart-contract risk. Lives in the portfolio database.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new risk repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "risk").Logger(),
	}
}

// UpsertLiquidityScore sets a symbol's liquidity score in [0,1].
func (r *Repository) UpsertLiquidityScore(symbol string, score float64) error {
	if score < 0 || score > 1 {
		return fmt.Errorf("liquidity score out of range: %f", score)
	}

	query := `
		INSERT INTO liquidity_scores (symbol, score, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, symbol, score, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert liquidity score: %w", err)
	}
	return nil
}

// GetLiquidityScores returns all known per-symbol liquidity scores.
func (r *Repository) GetLiquidityScores() (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT symbol, score FROM liquidity_scores`)
	if err != nil {
		return nil, fmt.Errorf("failed to get liquidity scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var score float64
		if err := rows.Scan(&symbol, &score); err != nil {
			return nil, fmt.Errorf("failed to scan liquidity score: %w", err)
		}
		scores[symbol] = score
	}
	return scores, rows.Err()
}

// UpsertProtocolScore sets a protocol's risk score in [0,1].
func (r *Repository) UpsertProtocolScore(protocol string, score float64) error {
	if score < 0 || score > 1 {
		return fmt.Errorf("protocol score out of range: %f", score)
	}

	query := `
		INSERT INTO protocol_scores (protocol, score, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(protocol) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, protocol, score, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert protocol score: %w", err)
	}
	return nil
}

// GetProtocolScores returns all known per-protocol risk scores.
func (r *Repository) GetProtocolScores() (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT protocol, score FROM protocol_scores`)
	if err != nil {
		return nil, fmt.Errorf("failed to get protocol scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var protocol string
		var score float64
		if err := rows.Scan(&protocol, &score); err != nil {
			return nil, fmt.Errorf("failed to scan protocol score: %w", err)
		}
		scores[protocol] = score
	}
	return scores, rows.Err()
}

// SetAssetProtocol maps a symbol to the protocol it belongs to.
func (r *Repository) SetAssetProtocol(symbol, protocol string) error {
	query := `
		INSERT INTO asset_protocols (symbol, protocol)
		VALUES (?, ?)
		ON CONFLICT(symbol) DO UPDATE SET protocol = excluded.protocol
	`
	if _, err := r.db.Exec(query, symbol, protocol); err != nil {
		return fmt.Errorf("failed to set asset protocol: %w", err)
	}
	return nil
}

// GetAssetProtocols returns the symbol to protocol mapping.
func (r *Repository) GetAssetProtocols() (map[string]string, error) {
	rows, err := r.db.Query(`SELECT symbol, protocol FROM asset_protocols`)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset protocols: %w", err)
	}
	defer rows.Close()

	protocols := make(map[string]string)
	for rows.Next() {
		var symbol, protocol string
		if err := rows.Scan(&symbol, &protocol); err != nil {
			return nil, fmt.Errorf("failed to scan asset protocol: %w", err)
		}
		protocols[symbol] = protocol
	}
	return protocols, rows.Err()
}
