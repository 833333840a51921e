package scheduler

import (
	"errors"
	"testing"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPortfolios struct {
	portfolios []domain.Portfolio
	holdings   map[string]map[string]domain.Holding
}

func (s *stubPortfolios) List() ([]domain.Portfolio, error) {
	return s.portfolios, nil
}

func (s *stubPortfolios) GetHoldings(id string) (map[string]domain.Holding, error) {
	h, ok := s.holdings[id]
	if !ok {
		return nil, errors.New("unknown portfolio")
	}
	return h, nil
}

type stubPrices map[string]float64

func (s stubPrices) Price(symbol string) (float64, bool) {
	p, ok := s[symbol]
	return p, ok
}

type recordingHistory struct {
	points map[string][]domain.ValueHistoryPoint
}

func (h *recordingHistory) Append(portfolioID string, point domain.ValueHistoryPoint) error {
	if h.points == nil {
		h.points = make(map[string][]domain.ValueHistoryPoint)
	}
	h.points[portfolioID] = append(h.points[portfolioID], point)
	return nil
}

func (h *recordingHistory) Read(portfolioID string, window domain.Window) ([]domain.ValueHistoryPoint, error) {
	return h.points[portfolioID], nil
}

func TestSnapshotJobAppendsValuePerPortfolio(t *testing.T) {
	store := &stubPortfolios{
		portfolios: []domain.Portfolio{
			{ID: "p1", QuoteSymbol: "USDC"},
			{ID: "p2", QuoteSymbol: "USDC"},
		},
		holdings: map[string]map[string]domain.Holding{
			"p1": {
				"ETH":  {Symbol: "ETH", Quantity: 10},
				"USDC": {Symbol: "USDC", Quantity: 15000},
			},
			"p2": {
				"BTC": {Symbol: "BTC", Quantity: 0.5},
			},
		},
	}
	history := &recordingHistory{}

	job := NewSnapshotJob(store, stubPrices{"ETH": 2000, "BTC": 50000}, history, zerolog.Nop())
	require.NoError(t, job.Run())

	require.Len(t, history.points["p1"], 1)
	assert.InDelta(t, 35000.0, history.points["p1"][0].TotalValue, 1e-6)
	require.Len(t, history.points["p2"], 1)
	assert.InDelta(t, 25000.0, history.points["p2"][0].TotalValue, 1e-6)
}

func TestSnapshotJobSkipsUnpricedSymbols(t *testing.T) {
	store := &stubPortfolios{
		portfolios: []domain.Portfolio{{ID: "p1", QuoteSymbol: "USDC"}},
		holdings: map[string]map[string]domain.Holding{
			"p1": {
				"ETH":     {Symbol: "ETH", Quantity: 10},
				"NEWCOIN": {Symbol: "NEWCOIN", Quantity: 1000},
				"USDC":    {Symbol: "USDC", Quantity: 500},
			},
		},
	}
	history := &recordingHistory{}

	job := NewSnapshotJob(store, stubPrices{"ETH": 2000}, history, zerolog.Nop())
	require.NoError(t, job.Run())

	require.Len(t, history.points["p1"], 1)
	// NEWCOIN has no price; the quote asset defaults to 1.0.
	assert.InDelta(t, 20500.0, history.points["p1"][0].TotalValue, 1e-6)
}

func TestSnapshotJobReportsPartialFailure(t *testing.T) {
	store := &stubPortfolios{
		portfolios: []domain.Portfolio{
			{ID: "p1", QuoteSymbol: "USDC"},
			{ID: "ghost", QuoteSymbol: "USDC"},
		},
		holdings: map[string]map[string]domain.Holding{
			"p1": {"USDC": {Symbol: "USDC", Quantity: 100}},
		},
	}
	history := &recordingHistory{}

	job := NewSnapshotJob(store, stubPrices{}, history, zerolog.Nop())
	err := job.Run()
	require.Error(t, err)

	// The healthy portfolio still got its point.
	assert.Len(t, history.points["p1"], 1)
	assert.Empty(t, history.points["ghost"])
}
