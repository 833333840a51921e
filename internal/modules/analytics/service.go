package analytics

import (
	"fmt"
	"sync"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// cacheKey identifies one computed metric set. Including the series length
// and last timestamp means a new history point naturally misses the cache,
// so no explicit invalidation hook is needed.
type cacheKey struct {
	portfolioID string
	window      domain.Window
	count       int
	lastUnix    int64
}

// Service computes and caches performance metrics over stored history.
type Service struct {
	history domain.HistoryStore
	log     zerolog.Logger

	mu    sync.RWMutex
	cache map[cacheKey]Metrics
}

// NewService creates a new analytics service
func NewService(history domain.HistoryStore, log zerolog.Logger) *Service {
	return &Service{
		history: history,
		log:     log.With().Str("service", "analytics").Logger(),
		cache:   make(map[cacheKey]Metrics),
	}
}

// ForPortfolio computes metrics for a portfolio over the given window.
func (s *Service) ForPortfolio(portfolioID string, window domain.Window) (Metrics, error) {
	points, err := s.history.Read(portfolioID, window)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read value history: %w", err)
	}

	key := cacheKey{portfolioID: portfolioID, window: window, count: len(points)}
	if len(points) > 0 {
		key.lastUnix = points[len(points)-1].Timestamp.Unix()
	}

	s.mu.RLock()
	cached, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if len(points) < 2 {
		s.log.Debug().
			Err(domain.ErrInsufficientSample).
			Str("portfolio_id", portfolioID).
			Str("window", string(window)).
			Msg("Metrics default to zero")
	}

	start := time.Now()
	metrics := Compute(points)

	s.mu.Lock()
	s.cache[key] = metrics
	s.mu.Unlock()

	s.log.Debug().
		Str("portfolio_id", portfolioID).
		Str("window", string(window)).
		Int("points", len(points)).
		Dur("elapsed", time.Since(start)).
		Msg("Metrics computed")

	return metrics, nil
}

// Series returns the raw filtered history, for chart rendering.
func (s *Service) Series(portfolioID string, window domain.Window) ([]domain.ValueHistoryPoint, error) {
	points, err := s.history.Read(portfolioID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read value history: %w", err)
	}
	return points, nil
}
