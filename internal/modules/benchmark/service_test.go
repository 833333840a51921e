package benchmark

import (
	"testing"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	points []domain.ValueHistoryPoint
}

func (s *stubHistory) Append(string, domain.ValueHistoryPoint) error { return nil }

func (s *stubHistory) Read(string, domain.Window) ([]domain.ValueHistoryPoint, error) {
	return s.points, nil
}

type stubBenchmarks struct {
	points []domain.ValueHistoryPoint
}

func (s *stubBenchmarks) Series(string, domain.Window) ([]domain.ValueHistoryPoint, error) {
	return s.points, nil
}

func series(values ...float64) []domain.ValueHistoryPoint {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]domain.ValueHistoryPoint, len(values))
	for i, v := range values {
		points[i] = domain.ValueHistoryPoint{Timestamp: start.AddDate(0, 0, i), TotalValue: v}
	}
	return points
}

func TestCompareOutperformance(t *testing.T) {
	history := &stubHistory{points: series(100, 105, 112, 120)}
	benchmarks := &stubBenchmarks{points: series(100, 102, 104, 110)}

	s := NewService(history, benchmarks, zerolog.Nop())

	cmp, err := s.Compare("p1", "BTC", domain.Window30D)
	require.NoError(t, err)

	assert.InDelta(t, 20.0, cmp.PortfolioReturn, 1e-9)
	assert.InDelta(t, 10.0, cmp.BenchmarkReturn, 1e-9)
	assert.InDelta(t, 10.0, cmp.Outperformance, 1e-9)
	assert.Equal(t, "BTC", cmp.BenchmarkID)
}

func TestCorrelationIsScaledBeta(t *testing.T) {
	same := series(100, 103, 99, 108, 104)
	s := NewService(&stubHistory{points: same}, &stubBenchmarks{points: same}, zerolog.Nop())

	cmp, err := s.Compare("p1", "ETH", domain.WindowAll)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cmp.Beta, 1e-9)
	assert.InDelta(t, 0.8, cmp.Correlation, 1e-9)
}

func TestCompareSparseSeries(t *testing.T) {
	s := NewService(&stubHistory{points: series(100)}, &stubBenchmarks{points: nil}, zerolog.Nop())

	cmp, err := s.Compare("p1", "BTC", domain.Window7D)
	require.NoError(t, err)

	assert.Zero(t, cmp.PortfolioReturn)
	assert.Zero(t, cmp.BenchmarkReturn)
	assert.InDelta(t, 1.0, cmp.Beta, 1e-9, "sparse series fall back to neutral beta")
}

func TestCompareMismatchedLengthsFallsBackToNeutralBeta(t *testing.T) {
	history := &stubHistory{points: series(100, 105, 112, 120)}
	benchmarks := &stubBenchmarks{points: series(100, 102, 104)}

	s := NewService(history, benchmarks, zerolog.Nop())

	cmp, err := s.Compare("p1", "BTC", domain.Window30D)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, cmp.Beta, 1e-9, "misaligned series must not produce a fitted beta")
	assert.InDelta(t, 20.0, cmp.PortfolioReturn, 1e-9)
	assert.InDelta(t, 4.0, cmp.BenchmarkReturn, 1e-9)
}
