// Package domain holds the core types shared across modules.
package domain

import (
	"math"
	"sort"
	"time"
)

// Holding is a position in a single asset.
type Holding struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"` // never negative
}

// Value returns the holding's value at the given price.
func (h Holding) Value(price float64) float64 {
	return h.Quantity * price
}

// Portfolio is a named set of holdings plus the quote asset used for swaps.
type Portfolio struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	QuoteSymbol   string    `json:"quote_symbol"`
	Authoritative bool      `json:"authoritative"`
	CreatedAt     time.Time `json:"created_at"`
}

// TradeTypeSwap is the only trade type the engine records: one asset
// converted into another at an explicit rate.
const TradeTypeSwap = "SWAP"

// Trade is an immutable record of a single asset conversion.
type Trade struct {
	ID          string    `json:"id"`
	PortfolioID string    `json:"portfolio_id"`
	Type        string    `json:"type"`
	FromSymbol  string    `json:"from_symbol"`
	ToSymbol    string    `json:"to_symbol"`
	AmountFrom  float64   `json:"amount_from"` // units of FromSymbol
	AmountTo    float64   `json:"amount_to"`   // units of ToSymbol
	Rate        float64   `json:"rate"`        // AmountTo per unit of AmountFrom
	ExecutedAt  time.Time `json:"executed_at"`
}

// ValueHistoryPoint is one sample of a portfolio's total value.
type ValueHistoryPoint struct {
	Timestamp  time.Time `json:"timestamp"`
	TotalValue float64   `json:"total_value"`
}

// AssetSignal carries the per-asset inputs to weight targeting.
type AssetSignal struct {
	TotalScore float64 `json:"total_score"` // composite score in [-4, 4]
	Momentum   float64 `json:"momentum"`    // momentum score in [-2, 2]
	Volatility float64 `json:"volatility"`  // annualized, as a fraction
	Liquidity  float64 `json:"liquidity"`   // [0, 1], 1 = most liquid
}

// Window is a named lookback period for history queries.
type Window string

const (
	Window7D  Window = "7d"
	Window30D Window = "30d"
	Window90D Window = "90d"
	Window1Y  Window = "1y"
	WindowAll Window = "all"
)

// Cutoff returns the inclusive start time for the window relative to now.
// The second return is false for WindowAll (no cutoff).
func (w Window) Cutoff(now time.Time) (time.Time, bool) {
	switch w {
	case Window7D:
		return now.AddDate(0, 0, -7), true
	case Window30D:
		return now.AddDate(0, 0, -30), true
	case Window90D:
		return now.AddDate(0, 0, -90), true
	case Window1Y:
		return now.AddDate(-1, 0, 0), true
	default:
		return time.Time{}, false
	}
}

// ParseWindow validates a window string, defaulting empty input to "all".
func ParseWindow(s string) (Window, bool) {
	switch Window(s) {
	case Window7D, Window30D, Window90D, Window1Y, WindowAll:
		return Window(s), true
	case "":
		return WindowAll, true
	default:
		return "", false
	}
}

// WeightSumTolerance is the allowed deviation of a fractional weight
// vector's sum from 1.0.
const WeightSumTolerance = 1e-4

// ValidateWeights checks a fractional target weight vector: every weight in
// [0, 1] and the sum within WeightSumTolerance of 1.0.
func ValidateWeights(weights map[string]float64) error {
	if len(weights) == 0 {
		return ErrInvalidWeights
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 || w > 1 || math.IsNaN(w) {
			return ErrInvalidWeights
		}
		sum += w
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return ErrInvalidWeights
	}
	return nil
}

// ValidatePercents checks an integer percent target vector: every entry in
// [0, 100] and the sum exactly 100.
func ValidatePercents(percents map[string]int) error {
	if len(percents) == 0 {
		return ErrInvalidWeights
	}
	sum := 0
	for _, p := range percents {
		if p < 0 || p > 100 {
			return ErrInvalidWeights
		}
		sum += p
	}
	if sum != 100 {
		return ErrInvalidWeights
	}
	return nil
}

// SortedSymbols returns the keys of a symbol-keyed map in ascending order.
// Deterministic iteration order is load-bearing for trade sequencing and
// remainder assignment.
func SortedSymbols[V any](m map[string]V) []string {
	symbols := make([]string, 0, len(m))
	for s := range m {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
