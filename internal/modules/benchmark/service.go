// Package benchmark compares portfolio performance against benchmark series.
package benchmark

import (
	"fmt"

	"github.com/driftlabs/driftd/internal/modules/analytics"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
)

// Comparison relates one portfolio to one benchmark over a shared window.
// Returns are window total returns in percent.
type Comparison struct {
	PortfolioID     string            `json:"portfolio_id"`
	BenchmarkID     string            `json:"benchmark_id"`
	Window          domain.Window     `json:"window"`
	PortfolioReturn float64           `json:"portfolio_return"`
	BenchmarkReturn float64           `json:"benchmark_return"`
	Outperformance  float64           `json:"outperformance"`
	Beta            float64           `json:"beta"`
	Alpha           float64           `json:"alpha"`
	Correlation     float64           `json:"correlation"`
	Portfolio       analytics.Metrics `json:"portfolio"`
	Benchmark       analytics.Metrics `json:"benchmark"`
}

// Service composes the analytics engine over portfolio and benchmark series.
type Service struct {
	history    domain.HistoryStore
	benchmarks domain.BenchmarkSource
	log        zerolog.Logger
}

// NewService creates a new benchmark service
func NewService(history domain.HistoryStore, benchmarks domain.BenchmarkSource, log zerolog.Logger) *Service {
	return &Service{
		history:    history,
		benchmarks: benchmarks,
		log:        log.With().Str("service", "benchmark").Logger(),
	}
}

// Compare runs the analytics independently over both series and derives
// the relative figures.
func (s *Service) Compare(portfolioID, benchmarkID string, window domain.Window) (*Comparison, error) {
	portfolioSeries, err := s.history.Read(portfolioID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read portfolio history: %w", err)
	}

	benchmarkSeries, err := s.benchmarks.Series(benchmarkID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to read benchmark series: %w", err)
	}

	if len(portfolioSeries) != len(benchmarkSeries) {
		s.log.Warn().
			Err(domain.ErrDimensionMismatch).
			Str("portfolio_id", portfolioID).
			Str("benchmark_id", benchmarkID).
			Int("portfolio_points", len(portfolioSeries)).
			Int("benchmark_points", len(benchmarkSeries)).
			Msg("Series lengths differ, beta falls back to 1.0")
	}

	pm, bm, rel := analytics.ComputeRelative(portfolioSeries, benchmarkSeries)

	return &Comparison{
		PortfolioID:     portfolioID,
		BenchmarkID:     benchmarkID,
		Window:          window,
		PortfolioReturn: pm.TotalReturnPct,
		BenchmarkReturn: bm.TotalReturnPct,
		Outperformance:  pm.TotalReturnPct - bm.TotalReturnPct,
		Beta:            rel.Beta,
		Alpha:           rel.Alpha,
		// Inherited constant-factor approximation, not true Pearson
		// correlation. Kept for output compatibility.
		Correlation: rel.Beta * 0.8,
		Portfolio:   pm,
		Benchmark:   bm,
	}, nil
}
