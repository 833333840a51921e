// Package risk scores portfolio risk: tail loss, concentration, liquidity,
// leverage, impermanent loss and smart-contract exposure.
package risk

import (
	"fmt"
	"math"
	"sort"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/pkg/formulas"
	"github.com/rs/zerolog"
)

// MinVaRSamples is the smallest return sample that yields a meaningful
// quantile estimate. Below it, VaR and CVaR report 0.
const MinVaRSamples = 30

// DefaultConfidence is the confidence level for VaR/CVaR.
const DefaultConfidence = 0.95

// Fallback scores for symbols and protocols missing from reference data.
const (
	unknownLiquidityScore = 0.3
	unknownProtocolRisk   = 0.8
)

// LPPosition describes one liquidity-pool position for IL scoring.
type LPPosition struct {
	Pair      string  `json:"pair"`
	Value     float64 `json:"value"`
	ILPercent float64 `json:"il_percent"` // current impermanent loss, [0,1]
}

// Input is a self-contained risk snapshot. All maps may be sparse; missing
// entries fall back to the documented defaults.
type Input struct {
	Values           map[string]float64 // per-symbol value in quote terms
	Returns          []float64          // daily portfolio returns
	TotalDebt        float64
	LPPositions      []LPPosition
	LiquidityScores  map[string]float64 // [0,1], 1 = most liquid
	ProtocolBySymbol map[string]string
	ProtocolScores   map[string]float64 // [0,1] risk, 1 = worst
}

// Metrics holds the scored output. VaR/CVaR are in quote currency; the
// rest are dimensionless scores in [0,1].
type Metrics struct {
	VaR95            float64 `json:"var_95"`
	CVaR95           float64 `json:"cvar_95"`
	Concentration    float64 `json:"concentration"`
	Liquidity        float64 `json:"liquidity"`
	Leverage         float64 `json:"leverage"`
	ImpermanentLoss  float64 `json:"impermanent_loss"`
	SmartContract    float64 `json:"smart_contract"`
	TotalValue       float64 `json:"total_value"`
	ReturnSampleSize int     `json:"return_sample_size"`
}

// Extras carries the request-supplied inputs that have no storage backing.
type Extras struct {
	TotalDebt   float64
	LPPositions []LPPosition
}

// HoldingsSource supplies current holdings for a portfolio.
type HoldingsSource interface {
	GetHoldings(id string) (map[string]domain.Holding, error)
}

// Service assembles risk inputs from storage and scores them.
type Service struct {
	holdings HoldingsSource
	prices   domain.PriceSource
	history  domain.HistoryStore
	repo     *Repository
	log      zerolog.Logger
}

// NewService creates a new risk service
func NewService(
	holdings HoldingsSource,
	prices domain.PriceSource,
	history domain.HistoryStore,
	repo *Repository,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdings: holdings,
		prices:   prices,
		history:  history,
		repo:     repo,
		log:      log.With().Str("service", "risk").Logger(),
	}
}

// AssessPortfolio loads state for a portfolio and scores it. Debt and LP
// positions come from the caller since the engine does not track them.
func (s *Service) AssessPortfolio(portfolioID string, window domain.Window, extras Extras) (Metrics, error) {
	holdings, err := s.holdings.GetHoldings(portfolioID)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load holdings: %w", err)
	}

	values := make(map[string]float64, len(holdings))
	for sym, h := range holdings {
		if price, ok := s.prices.Price(sym); ok {
			values[sym] = h.Value(price)
		}
	}

	points, err := s.history.Read(portfolioID, window)
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to read value history: %w", err)
	}
	series := make([]float64, len(points))
	for i, p := range points {
		series[i] = p.TotalValue
	}

	liquidity, err := s.repo.GetLiquidityScores()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load liquidity scores: %w", err)
	}
	protocols, err := s.repo.GetAssetProtocols()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load asset protocols: %w", err)
	}
	protocolScores, err := s.repo.GetProtocolScores()
	if err != nil {
		return Metrics{}, fmt.Errorf("failed to load protocol scores: %w", err)
	}

	return s.Assess(Input{
		Values:           values,
		Returns:          formulas.CalculateReturns(series),
		TotalDebt:        extras.TotalDebt,
		LPPositions:      extras.LPPositions,
		LiquidityScores:  liquidity,
		ProtocolBySymbol: protocols,
		ProtocolScores:   protocolScores,
	}), nil
}

// Assess scores a snapshot. Pure: sparse inputs resolve to fallback values,
// never errors.
func (s *Service) Assess(input Input) Metrics {
	total := 0.0
	for _, v := range input.Values {
		total += v
	}

	m := Metrics{
		TotalValue:       total,
		ReturnSampleSize: len(input.Returns),
	}

	m.VaR95 = ValueAtRisk(input.Returns, DefaultConfidence, total)
	m.CVaR95 = ConditionalValueAtRisk(input.Returns, DefaultConfidence, total)
	m.Concentration = Concentration(input.Values)

	if total > 0 {
		m.Liquidity = 1 - s.valueWeightedLiquidity(input, total)
		m.Leverage = input.TotalDebt / total
		m.SmartContract = s.valueWeightedProtocolRisk(input, total)
	}

	m.ImpermanentLoss = impermanentLoss(input.LPPositions)

	return m
}

// ValueAtRisk estimates the loss at the given confidence level in quote
// currency. Fewer than MinVaRSamples returns 0 regardless of data shape.
func ValueAtRisk(returns []float64, confidence float64, totalValue float64) float64 {
	if len(returns) < MinVaRSamples || totalValue <= 0 {
		return 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int((1 - confidence) * float64(len(sorted)))
	return math.Abs(sorted[idx]) * totalValue
}

// ConditionalValueAtRisk averages the tail at and below the VaR quantile.
func ConditionalValueAtRisk(returns []float64, confidence float64, totalValue float64) float64 {
	if len(returns) < MinVaRSamples || totalValue <= 0 {
		return 0
	}

	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	idx := int((1 - confidence) * float64(len(sorted)))
	return math.Abs(formulas.Mean(sorted[:idx+1])) * totalValue
}

// Concentration is the Herfindahl index over value shares: 1/n for an
// evenly spread portfolio, 1.0 for a single asset.
func Concentration(values map[string]float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return 0
	}

	hhi := 0.0
	for _, v := range values {
		share := v / total
		hhi += share * share
	}
	return hhi
}

func (s *Service) valueWeightedLiquidity(input Input, total float64) float64 {
	weighted := 0.0
	for sym, value := range input.Values {
		score, ok := input.LiquidityScores[sym]
		if !ok {
			score = unknownLiquidityScore
		}
		weighted += score * value / total
	}
	return weighted
}

func (s *Service) valueWeightedProtocolRisk(input Input, total float64) float64 {
	weighted := 0.0
	for sym, value := range input.Values {
		score := unknownProtocolRisk
		if protocol, ok := input.ProtocolBySymbol[sym]; ok {
			if ps, ok := input.ProtocolScores[protocol]; ok {
				score = ps
			}
		}
		weighted += score * value / total
	}
	return weighted
}

func impermanentLoss(positions []LPPosition) float64 {
	if len(positions) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range positions {
		sum += p.ILPercent
	}
	return sum / float64(len(positions))
}
