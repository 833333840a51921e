// Package rebalancing computes and executes swap sequences that move a
// portfolio toward its target allocation.
package rebalancing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DeadBandFraction is the drift tolerance: deviations smaller than this
// fraction of total portfolio value are left alone.
const DeadBandFraction = 0.02

// quantityEpsilon absorbs float rounding when comparing quantities.
const quantityEpsilon = 1e-9

// Warning records a symbol that was skipped during execution.
type Warning struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// Result is the outcome of a rebalance or retarget computation. Holdings is
// the post-trade copy; the input map is never mutated.
type Result struct {
	Trades   []domain.Trade            `json:"trades"`
	Holdings map[string]domain.Holding `json:"holdings"`
	OldTotal float64                   `json:"old_total"`
	NewTotal float64                   `json:"new_total"`
	Warnings []Warning                 `json:"warnings"`
}

// Executor computes swap sequences. It is pure: no I/O, no clock reads
// beyond the caller-supplied timestamp, deterministic output for identical
// input.
type Executor struct {
	log zerolog.Logger
}

// NewExecutor creates a new rebalance executor
func NewExecutor(log zerolog.Logger) *Executor {
	return &Executor{
		log: log.With().Str("service", "rebalance_executor").Logger(),
	}
}

// delta is one symbol's deviation from target, in quote-currency value.
type delta struct {
	symbol string
	amount float64 // positive value to move
}

// sortDeltas orders by descending amount, symbol ascending on ties.
func sortDeltas(deltas []delta) {
	sort.Slice(deltas, func(i, j int) bool {
		if deltas[i].amount != deltas[j].amount {
			return deltas[i].amount > deltas[j].amount
		}
		return deltas[i].symbol < deltas[j].symbol
	})
}

// Rebalance moves holdings toward integer percent targets using the
// sell-then-buy waterfall. Overweight excess beyond the dead band is sold
// into the quote asset; proceeds are then allocated to underweight symbols
// proportionally to their deficits.
func (e *Executor) Rebalance(
	portfolioID string,
	holdings map[string]domain.Holding,
	prices map[string]float64,
	targetPct map[string]int,
	quoteSymbol string,
	now time.Time,
) (*Result, error) {
	if err := domain.ValidatePercents(targetPct); err != nil {
		return nil, fmt.Errorf("rebalance targets: %w", err)
	}

	result := &Result{
		Trades:   []domain.Trade{},
		Holdings: copyHoldings(holdings),
		Warnings: []Warning{},
	}

	quotePrice := quotePriceOrUnit(prices, quoteSymbol)

	// Value every symbol we can price. Symbols without a price are excluded
	// from the total and reported as warnings.
	values, total := e.priceHoldings(result.Holdings, prices, quoteSymbol, quotePrice, result)
	result.OldTotal = total
	result.NewTotal = total

	if total <= 0 {
		return result, nil
	}

	deadBand := DeadBandFraction * total

	// Deviations are measured once, against the pre-trade state.
	var sells, buys []delta
	quoteDeficit := 0.0
	for _, sym := range unionSymbols(values, targetPct) {
		targetValue := float64(targetPct[sym]) / 100 * total
		diff := values[sym] - targetValue

		switch {
		case sym == quoteSymbol:
			// The quote asset is never swapped into itself; an underweight
			// quote simply retains its share of the proceeds.
			if -diff > deadBand {
				quoteDeficit = -diff
			}
		case diff > deadBand:
			if _, ok := prices[sym]; !ok {
				continue // already warned during pricing
			}
			sells = append(sells, delta{symbol: sym, amount: diff})
		case -diff > deadBand:
			if _, ok := prices[sym]; !ok {
				result.Warnings = append(result.Warnings, Warning{Symbol: sym, Reason: domain.ErrMissingPrice.Error()})
				continue
			}
			buys = append(buys, delta{symbol: sym, amount: -diff})
		}
	}

	sortDeltas(sells)
	sortDeltas(buys)

	// Sell pass: convert each overweight excess into the quote asset.
	proceeds := 0.0
	for _, s := range sells {
		price := prices[s.symbol]
		qty := s.amount / price

		held := result.Holdings[s.symbol].Quantity
		if qty > held+quantityEpsilon {
			e.log.Warn().
				Str("portfolio_id", portfolioID).
				Str("symbol", s.symbol).
				Float64("requested", qty).
				Float64("held", held).
				Msg("Sell leg exceeds held quantity, dropping leg")
			result.Warnings = append(result.Warnings, Warning{Symbol: s.symbol, Reason: domain.ErrInsufficientBalance.Error()})
			continue
		}

		quoteAmount := s.amount / quotePrice
		e.applySwap(result, portfolioID, s.symbol, quoteSymbol, qty, quoteAmount, now)
		proceeds += s.amount
	}

	if proceeds <= 0 {
		result.NewTotal = e.revalue(result.Holdings, prices, quoteSymbol, quotePrice)
		return result, nil
	}

	// Buy pass: allocate proceeds proportionally to deficits. The quote
	// deficit participates in the split but produces no trade.
	sumDeficit := quoteDeficit
	for _, b := range buys {
		sumDeficit += b.amount
	}

	for _, b := range buys {
		spendValue := b.amount / sumDeficit * proceeds
		quoteAmount := spendValue / quotePrice

		heldQuote := result.Holdings[quoteSymbol].Quantity
		if quoteAmount > heldQuote+quantityEpsilon {
			e.log.Warn().
				Str("portfolio_id", portfolioID).
				Str("symbol", b.symbol).
				Float64("requested", quoteAmount).
				Float64("held", heldQuote).
				Msg("Buy leg exceeds quote balance, dropping leg")
			result.Warnings = append(result.Warnings, Warning{Symbol: b.symbol, Reason: domain.ErrInsufficientBalance.Error()})
			continue
		}

		qty := spendValue / prices[b.symbol]
		e.applySwap(result, portfolioID, quoteSymbol, b.symbol, quoteAmount, qty, now)
	}

	result.NewTotal = e.revalue(result.Holdings, prices, quoteSymbol, quotePrice)
	return result, nil
}

// Retarget replaces the allocation outright: every weighted symbol is
// brought to exactly weight*total/price via quote-asset swaps, with no dead
// band. Held symbols absent from the weight vector are liquidated.
func (e *Executor) Retarget(
	portfolioID string,
	holdings map[string]domain.Holding,
	prices map[string]float64,
	weights map[string]float64,
	quoteSymbol string,
	now time.Time,
) (*Result, error) {
	if err := domain.ValidateWeights(weights); err != nil {
		return nil, fmt.Errorf("retarget weights: %w", err)
	}

	result := &Result{
		Trades:   []domain.Trade{},
		Holdings: copyHoldings(holdings),
		Warnings: []Warning{},
	}

	quotePrice := quotePriceOrUnit(prices, quoteSymbol)

	values, total := e.priceHoldings(result.Holdings, prices, quoteSymbol, quotePrice, result)
	result.OldTotal = total
	result.NewTotal = total

	if total <= 0 {
		return result, nil
	}

	// Quantity deltas for every symbol with a weight, plus liquidation of
	// held symbols that fell out of the target set.
	var sells, buys []delta
	for _, sym := range unionWeightSymbols(values, weights) {
		if sym == quoteSymbol {
			continue // residual quote balance is whatever remains after swaps
		}

		price, ok := prices[sym]
		if !ok {
			if weights[sym] > 0 {
				result.Warnings = append(result.Warnings, Warning{Symbol: sym, Reason: domain.ErrMissingPrice.Error()})
			}
			continue
		}

		targetQty := weights[sym] * total / price
		heldQty := result.Holdings[sym].Quantity
		diffValue := (heldQty - targetQty) * price

		if diffValue > quantityEpsilon {
			sells = append(sells, delta{symbol: sym, amount: diffValue})
		} else if -diffValue > quantityEpsilon {
			buys = append(buys, delta{symbol: sym, amount: -diffValue})
		}
	}

	sortDeltas(sells)
	sortDeltas(buys)

	for _, s := range sells {
		price := prices[s.symbol]
		qty := s.amount / price
		if held := result.Holdings[s.symbol].Quantity; qty > held {
			qty = held // guard rounding at full liquidation
		}
		e.applySwap(result, portfolioID, s.symbol, quoteSymbol, qty, qty*price/quotePrice, now)
	}

	for _, b := range buys {
		quoteAmount := b.amount / quotePrice

		heldQuote := result.Holdings[quoteSymbol].Quantity
		if quoteAmount > heldQuote+quantityEpsilon {
			e.log.Warn().
				Str("portfolio_id", portfolioID).
				Str("symbol", b.symbol).
				Float64("requested", quoteAmount).
				Float64("held", heldQuote).
				Msg("Retarget buy exceeds quote balance, dropping leg")
			result.Warnings = append(result.Warnings, Warning{Symbol: b.symbol, Reason: domain.ErrInsufficientBalance.Error()})
			continue
		}

		qty := b.amount / prices[b.symbol]
		e.applySwap(result, portfolioID, quoteSymbol, b.symbol, quoteAmount, qty, now)
	}

	result.NewTotal = e.revalue(result.Holdings, prices, quoteSymbol, quotePrice)
	return result, nil
}

// applySwap records one trade and moves both legs atomically on the
// in-memory holdings copy.
func (e *Executor) applySwap(result *Result, portfolioID, from, to string, amountFrom, amountTo float64, now time.Time) {
	if amountFrom <= 0 || amountTo <= 0 {
		return
	}

	fromHolding := result.Holdings[from]
	fromHolding.Symbol = from
	fromHolding.Quantity -= amountFrom
	if fromHolding.Quantity < quantityEpsilon {
		fromHolding.Quantity = 0
	}
	result.Holdings[from] = fromHolding

	toHolding := result.Holdings[to]
	toHolding.Symbol = to
	toHolding.Quantity += amountTo
	result.Holdings[to] = toHolding

	result.Trades = append(result.Trades, domain.Trade{
		ID:          uuid.New().String(),
		PortfolioID: portfolioID,
		Type:        domain.TradeTypeSwap,
		FromSymbol:  from,
		ToSymbol:    to,
		AmountFrom:  amountFrom,
		AmountTo:    amountTo,
		Rate:        amountTo / amountFrom,
		ExecutedAt:  now,
	})
}

// priceHoldings values each held symbol, warning about unpriced ones.
func (e *Executor) priceHoldings(
	holdings map[string]domain.Holding,
	prices map[string]float64,
	quoteSymbol string,
	quotePrice float64,
	result *Result,
) (map[string]float64, float64) {
	values := make(map[string]float64, len(holdings))
	total := 0.0
	for _, sym := range domain.SortedSymbols(holdings) {
		h := holdings[sym]
		if h.Quantity == 0 {
			continue
		}
		price, ok := prices[sym]
		if sym == quoteSymbol {
			price, ok = quotePrice, true
		}
		if !ok {
			result.Warnings = append(result.Warnings, Warning{Symbol: sym, Reason: domain.ErrMissingPrice.Error()})
			continue
		}
		values[sym] = h.Value(price)
		total += values[sym]
	}
	return values, total
}

// revalue computes the post-trade total over priced symbols.
func (e *Executor) revalue(holdings map[string]domain.Holding, prices map[string]float64, quoteSymbol string, quotePrice float64) float64 {
	total := 0.0
	for sym, h := range holdings {
		price, ok := prices[sym]
		if sym == quoteSymbol {
			price, ok = quotePrice, true
		}
		if ok {
			total += h.Value(price)
		}
	}
	return total
}

// quotePriceOrUnit resolves the quote asset's own price, defaulting to 1.0
// for quote currencies that are the pricing unit itself (e.g. USDC).
func quotePriceOrUnit(prices map[string]float64, quoteSymbol string) float64 {
	if p, ok := prices[quoteSymbol]; ok && p > 0 {
		return p
	}
	return 1.0
}

func copyHoldings(holdings map[string]domain.Holding) map[string]domain.Holding {
	out := make(map[string]domain.Holding, len(holdings))
	for sym, h := range holdings {
		h.Symbol = sym
		out[sym] = h
	}
	return out
}

// unionSymbols merges held and targeted symbols, ascending.
func unionSymbols(values map[string]float64, targetPct map[string]int) []string {
	set := make(map[string]struct{}, len(values)+len(targetPct))
	for s := range values {
		set[s] = struct{}{}
	}
	for s := range targetPct {
		set[s] = struct{}{}
	}
	return domain.SortedSymbols(set)
}

func unionWeightSymbols(values map[string]float64, weights map[string]float64) []string {
	set := make(map[string]struct{}, len(values)+len(weights))
	for s := range values {
		set[s] = struct{}{}
	}
	for s := range weights {
		set[s] = struct{}{}
	}
	return domain.SortedSymbols(set)
}

// Drift reports the largest absolute deviation from target, as a fraction
// of total value. Used by callers to decide whether a rebalance is due.
func Drift(holdings map[string]domain.Holding, prices map[string]float64, targetPct map[string]int, quoteSymbol string) float64 {
	quotePrice := quotePriceOrUnit(prices, quoteSymbol)

	values := make(map[string]float64, len(holdings))
	total := 0.0
	for sym, h := range holdings {
		price, ok := prices[sym]
		if sym == quoteSymbol {
			price, ok = quotePrice, true
		}
		if ok {
			values[sym] = h.Value(price)
			total += values[sym]
		}
	}
	if total <= 0 {
		return 0
	}

	maxDrift := 0.0
	for _, sym := range unionSymbols(values, targetPct) {
		target := float64(targetPct[sym]) / 100 * total
		drift := math.Abs(values[sym]-target) / total
		if drift > maxDrift {
			maxDrift = drift
		}
	}
	return maxDrift
}
