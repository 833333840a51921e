package targeting

import (
	"testing"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumWeights(w map[string]int) int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

func TestEqualWeightThreeAssets(t *testing.T) {
	signals := map[string]domain.AssetSignal{
		"BTC": {},
		"ETH": {},
		"SOL": {},
	}

	weights := StrategyEqual.Weights(signals)

	require.Len(t, weights, 3)
	assert.Equal(t, 100, sumWeights(weights))
	// Remainder point lands on the first symbol in ascending order.
	assert.Equal(t, 34, weights["BTC"])
	assert.Equal(t, 33, weights["ETH"])
	assert.Equal(t, 33, weights["SOL"])
}

func TestWeightsSumToHundredForAllStrategies(t *testing.T) {
	signals := map[string]domain.AssetSignal{
		"BTC":  {TotalScore: 2.5, Momentum: 1.1, Volatility: 0.6},
		"ETH":  {TotalScore: -1.0, Momentum: 0.4, Volatility: 0.9},
		"SOL":  {TotalScore: 3.9, Momentum: -0.8, Volatility: 1.8},
		"AVAX": {TotalScore: 0.0, Momentum: -1.9, Volatility: 2.7},
		"LINK": {TotalScore: -3.7, Momentum: 1.9, Volatility: 0.2},
	}

	for _, strategy := range []Strategy{StrategySignal, StrategyMomentum, StrategyEqual, StrategyRiskParity} {
		weights := strategy.Weights(signals)
		assert.Equal(t, 100, sumWeights(weights), "strategy %s", strategy)
		for sym, w := range weights {
			assert.GreaterOrEqual(t, w, 0, "strategy %s symbol %s", strategy, sym)
		}
	}
}

func TestSignalStrategyFavorsHigherScores(t *testing.T) {
	signals := map[string]domain.AssetSignal{
		"BTC": {TotalScore: 3.0},
		"ETH": {TotalScore: -3.0},
	}

	weights := StrategySignal.Weights(signals)

	assert.Greater(t, weights["BTC"], weights["ETH"])
	assert.Equal(t, 100, sumWeights(weights))
}

func TestRiskParityFavorsLowVolatility(t *testing.T) {
	signals := map[string]domain.AssetSignal{
		"BTC": {Volatility: 0.5},
		"DOGE": {Volatility: 2.5},
	}

	weights := StrategyRiskParity.Weights(signals)

	assert.Greater(t, weights["BTC"], weights["DOGE"])
	assert.Equal(t, 100, sumWeights(weights))
}

func TestAllScoresClampedFallsBackToEqualWeight(t *testing.T) {
	// Volatility above 3 clamps every risk-parity score to zero.
	signals := map[string]domain.AssetSignal{
		"PEPE": {Volatility: 4.2},
		"WIF":  {Volatility: 5.0},
	}

	weights := StrategyRiskParity.Weights(signals)

	assert.Equal(t, 50, weights["PEPE"])
	assert.Equal(t, 50, weights["WIF"])
}

func TestNegativeScoreDropsOut(t *testing.T) {
	// TotalScore below -4 clamps to zero after the shift.
	signals := map[string]domain.AssetSignal{
		"BTC":  {TotalScore: 4.0},
		"LUNA": {TotalScore: -4.0},
	}

	weights := StrategySignal.Weights(signals)

	assert.Equal(t, 100, weights["BTC"])
	assert.Equal(t, 0, weights["LUNA"])
}

func TestEmptySignalsYieldEmptyWeights(t *testing.T) {
	weights := StrategySignal.Weights(map[string]domain.AssetSignal{})
	assert.Empty(t, weights)
}

func TestWeightsDeterministic(t *testing.T) {
	signals := map[string]domain.AssetSignal{
		"BTC": {TotalScore: 1.3},
		"ETH": {TotalScore: 1.3},
		"SOL": {TotalScore: 1.3},
	}

	first := StrategySignal.Weights(signals)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, StrategySignal.Weights(signals))
	}
}

func TestParseStrategy(t *testing.T) {
	s, ok := ParseStrategy("momentum")
	require.True(t, ok)
	assert.Equal(t, StrategyMomentum, s)

	s, ok = ParseStrategy("")
	require.True(t, ok)
	assert.Equal(t, StrategySignal, s)

	_, ok = ParseStrategy("martingale")
	assert.False(t, ok)
}
