package risk

import (
	"database/sql"
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE liquidity_scores (symbol TEXT PRIMARY KEY, score REAL NOT NULL, updated_at INTEGER NOT NULL);
		CREATE TABLE protocol_scores (protocol TEXT PRIMARY KEY, score REAL NOT NULL, updated_at INTEGER NOT NULL);
		CREATE TABLE asset_protocols (symbol TEXT PRIMARY KEY, protocol TEXT NOT NULL);
	`)
	require.NoError(t, err)

	repo := NewRepository(db, zerolog.Nop())
	return NewService(nil, nil, nil, repo, zerolog.Nop())
}

// alternating returns: half at -loss, half at +gain
func alternatingReturns(n int, loss, gain float64) []float64 {
	returns := make([]float64, n)
	for i := range returns {
		if i%2 == 0 {
			returns[i] = -loss
		} else {
			returns[i] = gain
		}
	}
	return returns
}

func TestVaRRequiresThirtySamples(t *testing.T) {
	returns := alternatingReturns(29, 0.5, 0.5)

	assert.Zero(t, ValueAtRisk(returns, DefaultConfidence, 100000))
	assert.Zero(t, ConditionalValueAtRisk(returns, DefaultConfidence, 100000))

	// One more sample crosses the threshold.
	returns = alternatingReturns(30, 0.5, 0.5)
	assert.Greater(t, ValueAtRisk(returns, DefaultConfidence, 100000), 0.0)
}

func TestVaRPicksTailQuantile(t *testing.T) {
	// 100 returns: -0.10, -0.09, ..., sorted ascending by construction.
	returns := make([]float64, 100)
	for i := range returns {
		returns[i] = -0.10 + float64(i)*0.001
	}

	// Index (1-0.95)*100 = 5 lands on -0.095.
	v := ValueAtRisk(returns, 0.95, 10000)
	assert.InDelta(t, 950.0, v, 1e-6)

	// CVaR averages the six worst returns: mean of -0.100..-0.095.
	cv := ConditionalValueAtRisk(returns, 0.95, 10000)
	assert.InDelta(t, 975.0, cv, 1e-6)
	assert.GreaterOrEqual(t, cv, v)
}

func TestConcentrationHerfindahl(t *testing.T) {
	// Single asset concentrates fully.
	assert.InDelta(t, 1.0, Concentration(map[string]float64{"BTC": 5000}), 1e-9)

	// Four equal assets: 4 * 0.25^2 = 0.25.
	even := map[string]float64{"BTC": 100, "ETH": 100, "SOL": 100, "USDC": 100}
	assert.InDelta(t, 0.25, Concentration(even), 1e-9)

	assert.Zero(t, Concentration(map[string]float64{}))
}

func TestLiquidityUsesDefaultForUnknownSymbols(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{
		Values: map[string]float64{"OBSCURECOIN": 1000},
	})

	// Unknown symbol scores 0.3 liquid, so risk is 0.7.
	assert.InDelta(t, 0.7, m.Liquidity, 1e-9)
}

func TestLiquidityValueWeighted(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{
		Values:          map[string]float64{"BTC": 750, "ALT": 250},
		LiquidityScores: map[string]float64{"BTC": 1.0, "ALT": 0.2},
	})

	// Weighted liquidity 0.75*1.0 + 0.25*0.2 = 0.8, risk 0.2.
	assert.InDelta(t, 0.2, m.Liquidity, 1e-9)
}

func TestLeverageRatio(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{
		Values:    map[string]float64{"ETH": 10000},
		TotalDebt: 2500,
	})
	assert.InDelta(t, 0.25, m.Leverage, 1e-9)

	m = s.Assess(Input{Values: map[string]float64{"ETH": 10000}})
	assert.Zero(t, m.Leverage)
}

func TestImpermanentLossAveragesPositions(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{
		Values: map[string]float64{"ETH": 1000},
		LPPositions: []LPPosition{
			{Pair: "ETH/USDC", Value: 500, ILPercent: 0.04},
			{Pair: "SOL/USDC", Value: 300, ILPercent: 0.10},
		},
	})
	assert.InDelta(t, 0.07, m.ImpermanentLoss, 1e-9)

	m = s.Assess(Input{Values: map[string]float64{"ETH": 1000}})
	assert.Zero(t, m.ImpermanentLoss)
}

func TestSmartContractRiskDefaultsToWorstCase(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{
		Values: map[string]float64{"MYSTERY": 1000},
	})
	assert.InDelta(t, 0.8, m.SmartContract, 1e-9)

	m = s.Assess(Input{
		Values:           map[string]float64{"STETH": 1000},
		ProtocolBySymbol: map[string]string{"STETH": "lido"},
		ProtocolScores:   map[string]float64{"lido": 0.1},
	})
	assert.InDelta(t, 0.1, m.SmartContract, 1e-9)
}

func TestRepositoryRoundTrip(t *testing.T) {
	s := newTestService(t)

	require.NoError(t, s.repo.UpsertLiquidityScore("BTC", 0.95))
	require.NoError(t, s.repo.UpsertLiquidityScore("BTC", 0.9)) // overwrite
	require.NoError(t, s.repo.UpsertProtocolScore("aave", 0.15))
	require.NoError(t, s.repo.SetAssetProtocol("AETH", "aave"))

	liquidity, err := s.repo.GetLiquidityScores()
	require.NoError(t, err)
	assert.InDelta(t, 0.9, liquidity["BTC"], 1e-9)

	protocols, err := s.repo.GetAssetProtocols()
	require.NoError(t, err)
	assert.Equal(t, "aave", protocols["AETH"])

	scores, err := s.repo.GetProtocolScores()
	require.NoError(t, err)
	assert.InDelta(t, 0.15, scores["aave"], 1e-9)

	assert.Error(t, s.repo.UpsertLiquidityScore("BTC", 1.5))
	assert.Error(t, s.repo.UpsertProtocolScore("aave", -0.1))
}

func TestAssessEmptyInput(t *testing.T) {
	s := newTestService(t)

	m := s.Assess(Input{})
	assert.Equal(t, Metrics{}, m)
	assert.False(t, math.IsNaN(m.Liquidity))
}
