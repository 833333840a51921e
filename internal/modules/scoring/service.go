// Package scoring derives per-asset signals from stored price history.
package scoring

import (
	"fmt"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/pkg/formulas"
	"github.com/rs/zerolog"
)

const (
	rsiPeriod    = 14
	momentumDays = 30
	closesLimit  = 365

	defaultLiquidity = 0.3
)

// ClosesSource supplies daily close history per symbol.
type ClosesSource interface {
	GetDailyCloses(symbol string, limit int) ([]float64, error)
	Symbols() ([]string, error)
}

// LiquiditySource supplies per-symbol liquidity scores.
type LiquiditySource interface {
	GetLiquidityScores() (map[string]float64, error)
}

// Service computes targeting signals from ingested market data.
type Service struct {
	closes    ClosesSource
	liquidity LiquiditySource
	log       zerolog.Logger
}

// NewService creates a new scoring service
func NewService(closes ClosesSource, liquidity LiquiditySource, log zerolog.Logger) *Service {
	return &Service{
		closes:    closes,
		liquidity: liquidity,
		log:       log.With().Str("service", "scoring").Logger(),
	}
}

// Signals computes a signal for each requested symbol. A nil symbol list
// scores everything with stored history. Symbols with too little history
// get a neutral signal rather than an error.
func (s *Service) Signals(symbols []string) (map[string]domain.AssetSignal, error) {
	if symbols == nil {
		var err error
		symbols, err = s.closes.Symbols()
		if err != nil {
			return nil, fmt.Errorf("failed to list scored symbols: %w", err)
		}
	}

	liquidityScores, err := s.liquidity.GetLiquidityScores()
	if err != nil {
		return nil, fmt.Errorf("failed to load liquidity scores: %w", err)
	}

	signals := make(map[string]domain.AssetSignal, len(symbols))
	for _, sym := range symbols {
		closes, err := s.closes.GetDailyCloses(sym, closesLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to load closes for %s: %w", sym, err)
		}

		liquidity, ok := liquidityScores[sym]
		if !ok {
			liquidity = defaultLiquidity
		}

		signals[sym] = signalFromCloses(closes, liquidity)
	}

	return signals, nil
}

// signalFromCloses blends RSI, momentum and risk-adjusted return into one
// composite score. Score domains match what targeting expects: total in
// [-4,4], momentum in [-2,2].
func signalFromCloses(closes []float64, liquidity float64) domain.AssetSignal {
	signal := domain.AssetSignal{Liquidity: liquidity}

	if vol := formulas.CalculateVolatility(closes); vol != nil {
		signal.Volatility = *vol
	}

	momentumScore := 0.0
	if m := formulas.CalculateMomentum(closes, momentumDays); m != nil {
		// A 40% move over the window saturates the score.
		momentumScore = clamp(*m*5, -2, 2)
	}
	signal.Momentum = momentumScore

	rsiScore := 0.0
	if rsi := formulas.CalculateRSI(closes, rsiPeriod); rsi != nil {
		rsiScore = (*rsi - 50) / 25 // [-2, 2]
	}

	sharpeScore := 0.0
	if sharpe := formulas.CalculateSharpeRatio(formulas.CalculateReturns(closes), 0.02, formulas.PeriodsPerYear); sharpe != nil {
		sharpeScore = clamp(*sharpe/2, -1, 1)
	}

	signal.TotalScore = clamp(rsiScore+momentumScore+0.5*sharpeScore, -4, 4)
	return signal
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
