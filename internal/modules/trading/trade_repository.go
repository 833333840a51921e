// Package trading persists the immutable swap-trade ledger.
package trading

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/database"
	"github.com/driftlabs/driftd/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// tradesColumns is the column list for the trades table. Order must match
// the scan helpers below.
const tradesColumns = `id, portfolio_id, type, from_symbol, to_symbol, amount_from, amount_to, rate, executed_at`

// TradeRepository handles trade ledger operations. The ledger is
// append-only: no update or delete paths exist.
type TradeRepository struct {
	ledgerDB *sql.DB
	log      zerolog.Logger
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(ledgerDB *sql.DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		ledgerDB: ledgerDB,
		log:      log.With().Str("repo", "trade").Logger(),
	}
}

// validateTrade rejects malformed records before they reach the ledger.
func validateTrade(trade domain.Trade) error {
	if trade.PortfolioID == "" {
		return fmt.Errorf("trade portfolio_id must not be empty")
	}
	if trade.FromSymbol == "" || trade.ToSymbol == "" {
		return fmt.Errorf("trade symbols must not be empty")
	}
	if trade.FromSymbol == trade.ToSymbol {
		return fmt.Errorf("trade cannot swap %s into itself", trade.FromSymbol)
	}
	if trade.AmountFrom <= 0 || trade.AmountTo <= 0 {
		return fmt.Errorf("trade amounts must be positive")
	}
	if trade.Rate <= 0 {
		return fmt.Errorf("trade rate must be positive")
	}
	return nil
}

// Create appends a single trade.
func (r *TradeRepository) Create(trade domain.Trade) error {
	if err := validateTrade(trade); err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	if trade.ID == "" {
		trade.ID = uuid.New().String()
	}
	if trade.Type == "" {
		trade.Type = domain.TradeTypeSwap
	}

	query := `
		INSERT INTO trades
		(id, portfolio_id, type, from_symbol, to_symbol, amount_from, amount_to, rate, executed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.ledgerDB.Exec(query,
		trade.ID,
		trade.PortfolioID,
		trade.Type,
		trade.FromSymbol,
		trade.ToSymbol,
		trade.AmountFrom,
		trade.AmountTo,
		trade.Rate,
		trade.ExecutedAt.Unix(),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}

	r.log.Info().
		Str("portfolio_id", trade.PortfolioID).
		Str("from", trade.FromSymbol).
		Str("to", trade.ToSymbol).
		Float64("amount_from", trade.AmountFrom).
		Msg("Trade recorded")

	return nil
}

// CreateBatch appends all trades of one rebalance in a single transaction,
// so a rebalance is either fully in the ledger or not at all.
func (r *TradeRepository) CreateBatch(trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	for _, trade := range trades {
		if err := validateTrade(trade); err != nil {
			return fmt.Errorf("failed to create trade batch: %w", err)
		}
	}

	now := time.Now().Unix()

	return database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO trades
			(id, portfolio_id, type, from_symbol, to_symbol, amount_from, amount_to, rate, executed_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trade insert: %w", err)
		}
		defer stmt.Close()

		for _, trade := range trades {
			id := trade.ID
			if id == "" {
				id = uuid.New().String()
			}
			tradeType := trade.Type
			if tradeType == "" {
				tradeType = domain.TradeTypeSwap
			}

			_, err := stmt.Exec(
				id,
				trade.PortfolioID,
				tradeType,
				trade.FromSymbol,
				trade.ToSymbol,
				trade.AmountFrom,
				trade.AmountTo,
				trade.Rate,
				trade.ExecutedAt.Unix(),
				now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trade %s: %w", id, err)
			}
		}

		return nil
	})
}

// GetByPortfolio returns a portfolio's trades, most recent first.
func (r *TradeRepository) GetByPortfolio(portfolioID string, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE portfolio_id = ?
		ORDER BY executed_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.ledgerDB.Query(query, portfolioID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// GetInRange returns a portfolio's trades inside [from, to], ascending.
func (r *TradeRepository) GetInRange(portfolioID string, from, to time.Time) ([]domain.Trade, error) {
	query := `
		SELECT ` + tradesColumns + ` FROM trades
		WHERE portfolio_id = ? AND executed_at >= ? AND executed_at <= ?
		ORDER BY executed_at ASC, id ASC
	`
	rows, err := r.ledgerDB.Query(query, portfolioID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to get trades in range: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// Count returns the total number of recorded trades for a portfolio.
func (r *TradeRepository) Count(portfolioID string) (int, error) {
	var count int
	err := r.ledgerDB.QueryRow(`SELECT COUNT(*) FROM trades WHERE portfolio_id = ?`, portfolioID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

func scanTrades(rows *sql.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var executedAt int64
		err := rows.Scan(
			&t.ID,
			&t.PortfolioID,
			&t.Type,
			&t.FromSymbol,
			&t.ToSymbol,
			&t.AmountFrom,
			&t.AmountTo,
			&t.Rate,
			&executedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.ExecutedAt = time.Unix(executedAt, 0).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
