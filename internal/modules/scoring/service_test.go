package scoring

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCloses struct {
	series map[string][]float64
}

func (s *stubCloses) GetDailyCloses(symbol string, limit int) ([]float64, error) {
	return s.series[symbol], nil
}

func (s *stubCloses) Symbols() ([]string, error) {
	symbols := make([]string, 0, len(s.series))
	for sym := range s.series {
		symbols = append(symbols, sym)
	}
	return symbols, nil
}

type stubLiquidity struct {
	scores map[string]float64
}

func (s *stubLiquidity) GetLiquidityScores() (map[string]float64, error) {
	return s.scores, nil
}

func geometricSeries(start, dailyGrowth float64, n int) []float64 {
	closes := make([]float64, n)
	v := start
	for i := range closes {
		closes[i] = v
		v *= dailyGrowth
	}
	return closes
}

func newTestService(series map[string][]float64, liquidity map[string]float64) *Service {
	return NewService(&stubCloses{series: series}, &stubLiquidity{scores: liquidity}, zerolog.Nop())
}

func TestRisingSeriesScoresPositive(t *testing.T) {
	svc := newTestService(map[string][]float64{
		"ETH": geometricSeries(100, 1.01, 60),
	}, nil)

	signals, err := svc.Signals([]string{"ETH"})
	require.NoError(t, err)

	sig := signals["ETH"]
	assert.Greater(t, sig.TotalScore, 0.0)
	assert.Greater(t, sig.Momentum, 0.0)
	assert.LessOrEqual(t, sig.Momentum, 2.0)
	assert.Greater(t, sig.Volatility, 0.0)
}

func TestFallingSeriesScoresNegative(t *testing.T) {
	svc := newTestService(map[string][]float64{
		"DOGE": geometricSeries(100, 0.99, 60),
	}, nil)

	signals, err := svc.Signals([]string{"DOGE"})
	require.NoError(t, err)

	sig := signals["DOGE"]
	assert.Less(t, sig.TotalScore, 0.0)
	assert.Less(t, sig.Momentum, 0.0)
}

func TestMomentumSaturates(t *testing.T) {
	// +5% per day compounds far past the saturation point.
	svc := newTestService(map[string][]float64{
		"MOON": geometricSeries(100, 1.05, 60),
	}, nil)

	signals, err := svc.Signals([]string{"MOON"})
	require.NoError(t, err)

	sig := signals["MOON"]
	assert.InDelta(t, 2.0, sig.Momentum, 1e-9)
	assert.LessOrEqual(t, sig.TotalScore, 4.0)
}

func TestShortHistoryYieldsNeutralSignal(t *testing.T) {
	svc := newTestService(map[string][]float64{
		"NEWCOIN": {100, 101},
	}, nil)

	signals, err := svc.Signals([]string{"NEWCOIN"})
	require.NoError(t, err)

	sig := signals["NEWCOIN"]
	assert.InDelta(t, 0.0, sig.Momentum, 1e-9)
	assert.False(t, math.IsNaN(sig.TotalScore))
}

func TestLiquidityDefaultsWhenUnknown(t *testing.T) {
	svc := newTestService(map[string][]float64{
		"ETH": geometricSeries(100, 1.01, 60),
		"OBS": geometricSeries(100, 1.01, 60),
	}, map[string]float64{"ETH": 0.9})

	signals, err := svc.Signals([]string{"ETH", "OBS"})
	require.NoError(t, err)

	assert.InDelta(t, 0.9, signals["ETH"].Liquidity, 1e-9)
	assert.InDelta(t, 0.3, signals["OBS"].Liquidity, 1e-9)
}

func TestNilSymbolsScoresEverythingStored(t *testing.T) {
	svc := newTestService(map[string][]float64{
		"ETH": geometricSeries(100, 1.01, 60),
		"BTC": geometricSeries(100, 1.005, 60),
	}, nil)

	signals, err := svc.Signals(nil)
	require.NoError(t, err)
	assert.Len(t, signals, 2)
	assert.Contains(t, signals, "ETH")
	assert.Contains(t, signals, "BTC")
}
