package rebalancing

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// PortfolioStore is the portfolio state the service reads and writes.
type PortfolioStore interface {
	Get(id string) (*domain.Portfolio, error)
	GetHoldings(id string) (map[string]domain.Holding, error)
	GetTargetWeights(id string) (map[string]float64, error)
	ReplaceHoldings(id string, holdings map[string]domain.Holding) error
}

// TradeRecorder appends executed trades to the ledger.
type TradeRecorder interface {
	CreateBatch(trades []domain.Trade) error
}

// SnapshotStore persists point-in-time holdings snapshots.
type SnapshotStore interface {
	SaveSnapshot(portfolioID string, at time.Time, holdings map[string]domain.Holding) error
}

// Service orchestrates rebalance execution: loads state, runs the executor,
// and persists the outcome. It enforces the single-writer rule with one
// mutex per portfolio ID.
type Service struct {
	executor   *Executor
	portfolios PortfolioStore
	trades     TradeRecorder
	history    domain.HistoryStore
	snapshots  SnapshotStore
	prices     domain.PriceSource
	log        zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new rebalancing service
func NewService(
	executor *Executor,
	portfolios PortfolioStore,
	trades TradeRecorder,
	history domain.HistoryStore,
	snapshots SnapshotStore,
	prices domain.PriceSource,
	log zerolog.Logger,
) *Service {
	return &Service{
		executor:   executor,
		portfolios: portfolios,
		trades:     trades,
		history:    history,
		snapshots:  snapshots,
		prices:     prices,
		log:        log.With().Str("service", "rebalancing").Logger(),
		locks:      make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex guarding a portfolio, creating it on first use.
func (s *Service) lockFor(portfolioID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[portfolioID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[portfolioID] = lock
	}
	return lock
}

// Rebalance runs the waterfall toward integer percent targets. A nil
// targetPct falls back to the portfolio's persisted weights. With dryRun
// set, nothing is persisted and the computed result is returned as a
// preview.
func (s *Service) Rebalance(portfolioID string, targetPct map[string]int, dryRun bool) (*Result, error) {
	lock := s.lockFor(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	portfolio, holdings, err := s.loadState(portfolioID)
	if err != nil {
		return nil, err
	}

	if targetPct == nil {
		weights, err := s.portfolios.GetTargetWeights(portfolioID)
		if err != nil {
			return nil, fmt.Errorf("failed to load target weights: %w", err)
		}
		targetPct = PercentsFromWeights(weights)
	}

	now := time.Now().UTC()
	prices := s.gatherPrices(holdings, targetPct)

	result, err := s.executor.Rebalance(portfolioID, holdings, prices, targetPct, portfolio.QuoteSymbol, now)
	if err != nil {
		return nil, err
	}

	if dryRun {
		return result, nil
	}

	if err := s.persist(portfolioID, result, now); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int("trades", len(result.Trades)).
		Float64("total_value", result.NewTotal).
		Msg("Rebalance executed")

	return result, nil
}

// Retarget runs strict mode against fractional weights. A nil weights map
// falls back to the portfolio's persisted weights.
func (s *Service) Retarget(portfolioID string, weights map[string]float64, dryRun bool) (*Result, error) {
	lock := s.lockFor(portfolioID)
	lock.Lock()
	defer lock.Unlock()

	portfolio, holdings, err := s.loadState(portfolioID)
	if err != nil {
		return nil, err
	}

	if weights == nil {
		weights, err = s.portfolios.GetTargetWeights(portfolioID)
		if err != nil {
			return nil, fmt.Errorf("failed to load target weights: %w", err)
		}
	}

	now := time.Now().UTC()
	prices := s.gatherPricesForWeights(holdings, weights)

	result, err := s.executor.Retarget(portfolioID, holdings, prices, weights, portfolio.QuoteSymbol, now)
	if err != nil {
		return nil, err
	}

	if dryRun {
		return result, nil
	}

	if err := s.persist(portfolioID, result, now); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("portfolio_id", portfolioID).
		Int("trades", len(result.Trades)).
		Float64("total_value", result.NewTotal).
		Msg("Retarget executed")

	return result, nil
}

// Drift reports the current maximum deviation from the persisted targets.
func (s *Service) Drift(portfolioID string) (float64, error) {
	portfolio, holdings, err := s.loadState(portfolioID)
	if err != nil {
		return 0, err
	}

	weights, err := s.portfolios.GetTargetWeights(portfolioID)
	if err != nil {
		return 0, fmt.Errorf("failed to load target weights: %w", err)
	}

	targetPct := PercentsFromWeights(weights)
	prices := s.gatherPrices(holdings, targetPct)
	return Drift(holdings, prices, targetPct, portfolio.QuoteSymbol), nil
}

func (s *Service) loadState(portfolioID string) (*domain.Portfolio, map[string]domain.Holding, error) {
	portfolio, err := s.portfolios.Get(portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	holdings, err := s.portfolios.GetHoldings(portfolioID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load holdings: %w", err)
	}

	return portfolio, holdings, nil
}

// persist writes the post-trade state. Trades go first so the ledger never
// claims a holding change it did not record; any failure surfaces to the
// caller.
func (s *Service) persist(portfolioID string, result *Result, now time.Time) error {
	if len(result.Trades) == 0 {
		return nil
	}

	if err := s.trades.CreateBatch(result.Trades); err != nil {
		return fmt.Errorf("failed to record trades: %w", err)
	}

	if err := s.portfolios.ReplaceHoldings(portfolioID, result.Holdings); err != nil {
		return fmt.Errorf("failed to persist holdings: %w", err)
	}

	if err := s.history.Append(portfolioID, domain.ValueHistoryPoint{
		Timestamp:  now,
		TotalValue: result.NewTotal,
	}); err != nil {
		return fmt.Errorf("failed to append history point: %w", err)
	}

	if s.snapshots != nil {
		if err := s.snapshots.SaveSnapshot(portfolioID, now, result.Holdings); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	return nil
}

// gatherPrices collects spot prices for every held and targeted symbol.
// Missing symbols are simply absent; the executor decides how to react.
func (s *Service) gatherPrices(holdings map[string]domain.Holding, targetPct map[string]int) map[string]float64 {
	prices := make(map[string]float64)
	for sym := range holdings {
		if p, ok := s.prices.Price(sym); ok {
			prices[sym] = p
		}
	}
	for sym := range targetPct {
		if _, have := prices[sym]; have {
			continue
		}
		if p, ok := s.prices.Price(sym); ok {
			prices[sym] = p
		}
	}
	return prices
}

func (s *Service) gatherPricesForWeights(holdings map[string]domain.Holding, weights map[string]float64) map[string]float64 {
	targetPct := make(map[string]int, len(weights))
	for sym := range weights {
		targetPct[sym] = 0
	}
	return s.gatherPrices(holdings, targetPct)
}

// PercentsFromWeights converts fractional weights into integer percents
// summing to 100, using the same remainder policy as weight targeting.
// Weights are normalized by their sum first, so a partial vector keeps
// its relative proportions instead of dumping the shortfall on one symbol.
func PercentsFromWeights(weights map[string]float64) map[string]int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return map[string]int{}
	}

	symbols := domain.SortedSymbols(weights)
	percents := make(map[string]int, len(symbols))
	sum := 0
	for _, sym := range symbols {
		p := int(math.Round(weights[sym] / total * 100))
		percents[sym] = p
		sum += p
	}

	remainder := 100 - sum
	for _, sym := range symbols {
		if percents[sym]+remainder >= 0 {
			percents[sym] += remainder
			break
		}
	}

	return percents
}
