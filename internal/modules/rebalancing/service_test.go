package rebalancing

import (
	"testing"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPortfolioStore struct {
	portfolio *domain.Portfolio
	holdings  map[string]domain.Holding
	weights   map[string]float64

	replaced map[string]domain.Holding
}

func (s *stubPortfolioStore) Get(id string) (*domain.Portfolio, error) {
	if s.portfolio == nil || s.portfolio.ID != id {
		return nil, domain.ErrNotFound
	}
	return s.portfolio, nil
}

func (s *stubPortfolioStore) GetHoldings(id string) (map[string]domain.Holding, error) {
	out := make(map[string]domain.Holding, len(s.holdings))
	for k, v := range s.holdings {
		out[k] = v
	}
	return out, nil
}

func (s *stubPortfolioStore) GetTargetWeights(id string) (map[string]float64, error) {
	return s.weights, nil
}

func (s *stubPortfolioStore) ReplaceHoldings(id string, holdings map[string]domain.Holding) error {
	s.replaced = holdings
	return nil
}

type stubTradeRecorder struct {
	batches [][]domain.Trade
}

func (s *stubTradeRecorder) CreateBatch(trades []domain.Trade) error {
	s.batches = append(s.batches, trades)
	return nil
}

type stubHistoryStore struct {
	appended []domain.ValueHistoryPoint
}

func (s *stubHistoryStore) Append(portfolioID string, point domain.ValueHistoryPoint) error {
	s.appended = append(s.appended, point)
	return nil
}

func (s *stubHistoryStore) Read(portfolioID string, window domain.Window) ([]domain.ValueHistoryPoint, error) {
	return s.appended, nil
}

type stubSnapshotStore struct {
	saved map[string]domain.Holding
}

func (s *stubSnapshotStore) SaveSnapshot(portfolioID string, at time.Time, holdings map[string]domain.Holding) error {
	s.saved = holdings
	return nil
}

type mapPrices map[string]float64

func (m mapPrices) Price(symbol string) (float64, bool) {
	p, ok := m[symbol]
	return p, ok
}

type serviceFixture struct {
	svc       *Service
	store     *stubPortfolioStore
	trades    *stubTradeRecorder
	history   *stubHistoryStore
	snapshots *stubSnapshotStore
}

func newServiceFixture(holdings map[string]domain.Holding, weights map[string]float64, prices mapPrices) *serviceFixture {
	store := &stubPortfolioStore{
		portfolio: &domain.Portfolio{ID: "p1", Name: "main", QuoteSymbol: "USDC"},
		holdings:  holdings,
		weights:   weights,
	}
	trades := &stubTradeRecorder{}
	history := &stubHistoryStore{}
	snapshots := &stubSnapshotStore{}

	svc := NewService(
		NewExecutor(zerolog.Nop()),
		store, trades, history, snapshots, prices,
		zerolog.Nop(),
	)
	return &serviceFixture{svc: svc, store: store, trades: trades, history: history, snapshots: snapshots}
}

func TestServiceRebalancePersistsOutcome(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 10},
			"USDC": {Symbol: "USDC", Quantity: 15000},
		},
		nil,
		mapPrices{"ETH": 2000},
	)

	result, err := f.svc.Rebalance("p1", map[string]int{"ETH": 50, "USDC": 50}, false)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	require.Len(t, f.trades.batches, 1, "trades must be recorded")
	require.NotNil(t, f.store.replaced, "holdings must be replaced")
	assert.InDelta(t, 8.75, f.store.replaced["ETH"].Quantity, 1e-9)

	require.Len(t, f.history.appended, 1, "a history point must be appended")
	assert.InDelta(t, 35000.0, f.history.appended[0].TotalValue, 1e-6)

	require.NotNil(t, f.snapshots.saved, "a snapshot must be taken")
	assert.InDelta(t, 8.75, f.snapshots.saved["ETH"].Quantity, 1e-9)
}

func TestServiceDryRunPersistsNothing(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 10},
			"USDC": {Symbol: "USDC", Quantity: 15000},
		},
		nil,
		mapPrices{"ETH": 2000},
	)

	result, err := f.svc.Rebalance("p1", map[string]int{"ETH": 50, "USDC": 50}, true)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)

	assert.Empty(t, f.trades.batches)
	assert.Nil(t, f.store.replaced)
	assert.Empty(t, f.history.appended)
	assert.Nil(t, f.snapshots.saved)

	// The stored holdings are untouched.
	assert.InDelta(t, 10.0, f.store.holdings["ETH"].Quantity, 1e-9)
}

func TestServiceRebalanceFallsBackToPersistedWeights(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 10},
			"USDC": {Symbol: "USDC", Quantity: 15000},
		},
		map[string]float64{"ETH": 0.5, "USDC": 0.5},
		mapPrices{"ETH": 2000},
	)

	result, err := f.svc.Rebalance("p1", nil, false)
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.InDelta(t, 8.75, result.Holdings["ETH"].Quantity, 1e-9)
}

func TestServiceSkipsPersistenceWhenNoTrades(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 8.75},
			"USDC": {Symbol: "USDC", Quantity: 17500},
		},
		nil,
		mapPrices{"ETH": 2000},
	)

	result, err := f.svc.Rebalance("p1", map[string]int{"ETH": 50, "USDC": 50}, false)
	require.NoError(t, err)
	assert.Empty(t, result.Trades)

	assert.Empty(t, f.trades.batches)
	assert.Nil(t, f.store.replaced)
	assert.Empty(t, f.history.appended)
}

func TestServiceRetargetPersists(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 10},
			"USDC": {Symbol: "USDC", Quantity: 15000},
		},
		nil,
		mapPrices{"ETH": 2000},
	)

	result, err := f.svc.Retarget("p1", map[string]float64{"ETH": 0.5, "USDC": 0.5}, false)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trades)
	assert.InDelta(t, 8.75, f.store.replaced["ETH"].Quantity, 1e-9)
	assert.InDelta(t, 17500.0, f.store.replaced["USDC"].Quantity, 1e-9)
}

func TestServiceRejectsUnknownPortfolio(t *testing.T) {
	f := newServiceFixture(nil, nil, mapPrices{})

	_, err := f.svc.Rebalance("ghost", map[string]int{"ETH": 100}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestServiceDrift(t *testing.T) {
	f := newServiceFixture(
		map[string]domain.Holding{
			"ETH":  {Symbol: "ETH", Quantity: 10},
			"USDC": {Symbol: "USDC", Quantity: 15000},
		},
		map[string]float64{"ETH": 0.5, "USDC": 0.5},
		mapPrices{"ETH": 2000},
	)

	drift, err := f.svc.Drift("p1")
	require.NoError(t, err)
	// ETH sits at 4/7 of value against a 50% target.
	assert.InDelta(t, 4.0/7.0-0.5, drift, 1e-9)
}

func TestPercentsFromWeightsRoundsToHundred(t *testing.T) {
	percents := PercentsFromWeights(map[string]float64{
		"A": 1.0 / 3.0,
		"B": 1.0 / 3.0,
		"C": 1.0 / 3.0,
	})
	assert.Equal(t, map[string]int{"A": 34, "B": 33, "C": 33}, percents)

	assert.Empty(t, PercentsFromWeights(nil))
}

func TestPercentsFromWeightsNormalizesPartialVector(t *testing.T) {
	// Simulated portfolios may persist weights that sum below 1. The
	// relative proportions must survive conversion; the gap must not land
	// on a single symbol.
	percents := PercentsFromWeights(map[string]float64{
		"BTC": 0.2,
		"ETH": 0.3,
	})
	assert.Equal(t, map[string]int{"BTC": 40, "ETH": 60}, percents)

	assert.Empty(t, PercentsFromWeights(map[string]float64{"BTC": 0}))
}
