package scheduler

import (
	"fmt"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// PortfolioSource is the portfolio state the snapshot job reads.
type PortfolioSource interface {
	List() ([]domain.Portfolio, error)
	GetHoldings(id string) (map[string]domain.Holding, error)
}

// SnapshotJob values every portfolio at current spot prices and appends a
// point to its value history. Between rebalances this is what keeps the
// analytics series alive.
type SnapshotJob struct {
	portfolios PortfolioSource
	prices     domain.PriceSource
	history    domain.HistoryStore
	log        zerolog.Logger
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(portfolios PortfolioSource, prices domain.PriceSource, history domain.HistoryStore, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		portfolios: portfolios,
		prices:     prices,
		history:    history,
		log:        log.With().Str("job", "value_snapshot").Logger(),
	}
}

// Name implements Job.
func (j *SnapshotJob) Name() string {
	return "value_snapshot"
}

// Run values each portfolio and appends one history point per portfolio.
// One portfolio failing does not stop the others.
func (j *SnapshotJob) Run() error {
	portfolios, err := j.portfolios.List()
	if err != nil {
		return fmt.Errorf("failed to list portfolios: %w", err)
	}

	now := time.Now().UTC()
	var failed int
	for _, p := range portfolios {
		if err := j.snapshot(p, now); err != nil {
			j.log.Error().Err(err).Str("portfolio_id", p.ID).Msg("Snapshot failed")
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("snapshot failed for %d of %d portfolios", failed, len(portfolios))
	}
	return nil
}

func (j *SnapshotJob) snapshot(p domain.Portfolio, now time.Time) error {
	holdings, err := j.portfolios.GetHoldings(p.ID)
	if err != nil {
		return fmt.Errorf("failed to load holdings: %w", err)
	}

	total := 0.0
	for sym, h := range holdings {
		if sym == p.QuoteSymbol {
			price := 1.0
			if quoted, ok := j.prices.Price(sym); ok {
				price = quoted
			}
			total += h.Value(price)
			continue
		}

		price, ok := j.prices.Price(sym)
		if !ok {
			j.log.Warn().Str("portfolio_id", p.ID).Str("symbol", sym).Msg("No spot price, excluding from snapshot value")
			continue
		}
		total += h.Value(price)
	}

	return j.history.Append(p.ID, domain.ValueHistoryPoint{
		Timestamp:  now,
		TotalValue: total,
	})
}
