// Package portfolio persists portfolios, holdings and target weights.
package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/database"
	"github.com/driftlabs/driftd/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// portfoliosColumns avoids SELECT * so schema changes fail loudly.
const portfoliosColumns = `id, name, quote_symbol, authoritative, created_at`

// Repository handles portfolio database operations
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new portfolio repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// Create inserts a new portfolio, generating an ID when absent.
func (r *Repository) Create(p *domain.Portfolio) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.QuoteSymbol == "" {
		return fmt.Errorf("portfolio quote symbol must not be empty")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO portfolios (id, name, quote_symbol, authoritative, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, p.ID, p.Name, p.QuoteSymbol, boolToInt(p.Authoritative), p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to create portfolio: %w", err)
	}

	r.log.Info().
		Str("portfolio_id", p.ID).
		Str("name", p.Name).
		Msg("Portfolio created")

	return nil
}

// Get retrieves a portfolio by ID.
func (r *Repository) Get(id string) (*domain.Portfolio, error) {
	query := "SELECT " + portfoliosColumns + " FROM portfolios WHERE id = ?"

	p, err := scanPortfolio(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("portfolio %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}

	return p, nil
}

// List returns all portfolios, oldest first.
func (r *Repository) List() ([]domain.Portfolio, error) {
	query := "SELECT " + portfoliosColumns + " FROM portfolios ORDER BY created_at ASC"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []domain.Portfolio
	for rows.Next() {
		p, err := scanPortfolioRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, *p)
	}

	return portfolios, rows.Err()
}

// GetHoldings returns the current holdings of a portfolio.
func (r *Repository) GetHoldings(id string) (map[string]domain.Holding, error) {
	query := `SELECT symbol, quantity FROM holdings WHERE portfolio_id = ?`

	rows, err := r.db.Query(query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}
	defer rows.Close()

	holdings := make(map[string]domain.Holding)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.Symbol, &h.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings[h.Symbol] = h
	}

	return holdings, rows.Err()
}

// UpsertHolding sets one position. A zero quantity deletes the row.
func (r *Repository) UpsertHolding(id string, h domain.Holding) error {
	if h.Quantity < 0 {
		return fmt.Errorf("holding quantity must not be negative: %s", h.Symbol)
	}

	if h.Quantity == 0 {
		_, err := r.db.Exec(`DELETE FROM holdings WHERE portfolio_id = ? AND symbol = ?`, id, h.Symbol)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO holdings (portfolio_id, symbol, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(portfolio_id, symbol) DO UPDATE SET quantity = excluded.quantity, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, id, h.Symbol, h.Quantity, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to upsert holding: %w", err)
	}

	return nil
}

// ReplaceHoldings swaps the full holdings set in one transaction. Zero
// quantities are dropped rather than stored.
func (r *Repository) ReplaceHoldings(id string, holdings map[string]domain.Holding) error {
	now := time.Now().Unix()

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM holdings WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear holdings: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO holdings (portfolio_id, symbol, quantity, updated_at)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare holdings insert: %w", err)
		}
		defer stmt.Close()

		for _, sym := range domain.SortedSymbols(holdings) {
			h := holdings[sym]
			if h.Quantity <= 0 {
				continue
			}
			if _, err := stmt.Exec(id, sym, h.Quantity, now); err != nil {
				return fmt.Errorf("failed to insert holding %s: %w", sym, err)
			}
		}

		return nil
	})
}

// SaveTargetWeights persists a fractional weight vector. For authoritative
// portfolios the vector must sum to 1 within tolerance; for simulated ones
// only the per-weight range is enforced.
func (r *Repository) SaveTargetWeights(id string, weights map[string]float64) error {
	p, err := r.Get(id)
	if err != nil {
		return err
	}

	if p.Authoritative {
		if err := domain.ValidateWeights(weights); err != nil {
			return fmt.Errorf("rejecting weights for authoritative portfolio %s: %w", id, err)
		}
	} else {
		for sym, w := range weights {
			if w < 0 || w > 1 {
				return fmt.Errorf("weight for %s out of range: %w", sym, domain.ErrInvalidWeights)
			}
		}
	}

	now := time.Now().Unix()

	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM target_weights WHERE portfolio_id = ?`, id); err != nil {
			return fmt.Errorf("failed to clear target weights: %w", err)
		}

		for _, sym := range domain.SortedSymbols(weights) {
			_, err := tx.Exec(`
				INSERT INTO target_weights (portfolio_id, symbol, weight, updated_at)
				VALUES (?, ?, ?, ?)
			`, id, sym, weights[sym], now)
			if err != nil {
				return fmt.Errorf("failed to insert target weight %s: %w", sym, err)
			}
		}

		return nil
	})
}

// GetTargetWeights returns the persisted weight vector.
func (r *Repository) GetTargetWeights(id string) (map[string]float64, error) {
	rows, err := r.db.Query(`SELECT symbol, weight FROM target_weights WHERE portfolio_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get target weights: %w", err)
	}
	defer rows.Close()

	weights := make(map[string]float64)
	for rows.Next() {
		var symbol string
		var weight float64
		if err := rows.Scan(&symbol, &weight); err != nil {
			return nil, fmt.Errorf("failed to scan target weight: %w", err)
		}
		weights[symbol] = weight
	}

	return weights, rows.Err()
}

func scanPortfolio(row *sql.Row) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var authoritative int
	var createdAt int64

	if err := row.Scan(&p.ID, &p.Name, &p.QuoteSymbol, &authoritative, &createdAt); err != nil {
		return nil, err
	}

	p.Authoritative = authoritative != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func scanPortfolioRows(rows *sql.Rows) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var authoritative int
	var createdAt int64

	if err := rows.Scan(&p.ID, &p.Name, &p.QuoteSymbol, &authoritative, &createdAt); err != nil {
		return nil, err
	}

	p.Authoritative = authoritative != 0
	p.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
