// Package targeting converts per-asset signals into integer target weights.
package targeting

import (
	"math"

	"github.com/driftlabs/driftd/internal/domain"
)

// Strategy selects how asset signals map to target weights.
type Strategy string

const (
	// StrategySignal weights by composite score.
	StrategySignal Strategy = "signal"
	// StrategyMomentum weights by momentum score.
	StrategyMomentum Strategy = "momentum"
	// StrategyEqual splits evenly across assets.
	StrategyEqual Strategy = "equal"
	// StrategyRiskParity weights inversely to volatility.
	StrategyRiskParity Strategy = "risk_parity"
)

// ParseStrategy validates a strategy name, defaulting empty input to signal.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategySignal, StrategyMomentum, StrategyEqual, StrategyRiskParity:
		return Strategy(s), true
	case "":
		return StrategySignal, true
	default:
		return "", false
	}
}

// Weights computes integer percentage targets for the given signals. The
// result always sums to exactly 100 for non-empty input; an empty input
// yields an empty map. Pure and deterministic.
func (s Strategy) Weights(signals map[string]domain.AssetSignal) map[string]int {
	if len(signals) == 0 {
		return map[string]int{}
	}

	symbols := domain.SortedSymbols(signals)

	// Shift raw scores into non-negative territory. Scores that remain
	// negative after the shift are clamped to zero and drop out of the
	// allocation.
	scores := make([]float64, len(symbols))
	total := 0.0
	for i, sym := range symbols {
		sig := signals[sym]
		var score float64
		switch s {
		case StrategyMomentum:
			score = sig.Momentum + 2
		case StrategyEqual:
			score = 1
		case StrategyRiskParity:
			score = 3 - sig.Volatility
		default: // StrategySignal
			score = sig.TotalScore + 4
		}
		if score < 0 {
			score = 0
		}
		scores[i] = score
		total += score
	}

	// Nothing survived clamping: fall back to equal weight.
	if total == 0 {
		for i := range scores {
			scores[i] = 1
		}
		total = float64(len(scores))
	}

	weights := make(map[string]int, len(symbols))
	sum := 0
	for i, sym := range symbols {
		w := int(math.Round(100 * scores[i] / total))
		weights[sym] = w
		sum += w
	}

	// Rounding leaves the sum a few points off 100. The correction goes to
	// the first symbol in ascending order that can absorb it without going
	// negative, so repeated runs produce identical output.
	remainder := 100 - sum
	for _, sym := range symbols {
		if weights[sym]+remainder >= 0 {
			weights[sym] += remainder
			break
		}
	}

	return weights
}
