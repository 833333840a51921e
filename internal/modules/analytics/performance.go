package analytics

import (
	"math"
	"time"

	"github.com/driftlabs/driftd/internal/domain"
	"github.com/driftlabs/driftd/pkg/formulas"
)

// FilterWindow returns the points at or after the window cutoff, preserving
// order. WindowAll passes everything through.
func FilterWindow(points []domain.ValueHistoryPoint, window domain.Window, now time.Time) []domain.ValueHistoryPoint {
	cutoff, bounded := window.Cutoff(now)
	if !bounded {
		return points
	}

	filtered := make([]domain.ValueHistoryPoint, 0, len(points))
	for _, p := range points {
		if !p.Timestamp.Before(cutoff) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// Compute derives the full metric set from an ascending value series.
//
// Daily returns are taken over consecutive points without resampling to
// calendar days; annualization uses the actual first-to-last span in days
// (minimum one), so irregularly spaced samples skew per-step figures but
// not the time base.
func Compute(points []domain.ValueHistoryPoint) Metrics {
	m := Metrics{SampleCount: len(points)}
	if len(points) < 2 {
		return m
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.TotalValue
	}

	first, last := values[0], values[len(values)-1]
	if first == 0 {
		return m
	}

	m.TotalReturnPct = (last - first) / first * 100

	windowDays := points[len(points)-1].Timestamp.Sub(points[0].Timestamp).Hours() / 24
	if windowDays < 1 {
		windowDays = 1
	}
	m.WindowDays = windowDays
	m.AnnualizedReturn = math.Pow(1+m.TotalReturnPct/100, 365/windowDays) - 1

	returns := formulas.CalculateReturns(values)
	m.Volatility = formulas.AnnualizedVolatility(returns)

	if m.Volatility != 0 {
		m.Sharpe = (m.AnnualizedReturn - RiskFreeRate) / m.Volatility
	}

	if dd := formulas.CalculateMaxDrawdown(values); dd != nil {
		m.MaxDrawdownPct = *dd * 100
	}

	m.WinRatePct = winRate(returns)
	m.ProfitFactor = profitFactor(returns)
	m.Sortino = sortino(m.AnnualizedReturn, returns)
	m.Calmar = calmar(m.AnnualizedReturn, m.MaxDrawdownPct)

	return m
}

// ComputeRelative runs Compute over both series and adds the benchmark-
// relative figures. Misaligned return series fall back to a neutral beta
// of 1.0 rather than erroring.
func ComputeRelative(portfolio, benchmark []domain.ValueHistoryPoint) (Metrics, Metrics, RelativeMetrics) {
	pm := Compute(portfolio)
	bm := Compute(benchmark)

	rel := RelativeMetrics{Beta: 1.0}

	pReturns := pointReturns(portfolio)
	bReturns := pointReturns(benchmark)

	if len(pReturns) == len(bReturns) && len(bReturns) > 1 {
		if bVar := formulas.Variance(bReturns); bVar != 0 {
			rel.Beta = formulas.Covariance(pReturns, bReturns) / bVar
		}

		diffs := make([]float64, len(pReturns))
		for i := range pReturns {
			diffs[i] = pReturns[i] - bReturns[i]
		}
		rel.TrackingError = formulas.StdDev(diffs) * math.Sqrt(formulas.PeriodsPerYear)
		if rel.TrackingError != 0 {
			rel.InformationRatio = (pm.AnnualizedReturn - bm.AnnualizedReturn) / rel.TrackingError
		}
	}

	rel.Alpha = pm.AnnualizedReturn - (RiskFreeRate + rel.Beta*(bm.AnnualizedReturn-RiskFreeRate))

	return pm, bm, rel
}

func pointReturns(points []domain.ValueHistoryPoint) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.TotalValue
	}
	return formulas.CalculateReturns(values)
}

func winRate(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	wins := 0
	for _, r := range returns {
		if r > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(returns)) * 100
}

func profitFactor(returns []float64) float64 {
	gains, losses := 0.0, 0.0
	for _, r := range returns {
		if r > 0 {
			gains += r
		} else if r < 0 {
			losses += -r
		}
	}
	if losses == 0 {
		if gains == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return gains / losses
}

// sortino penalizes only returns below the daily risk-free rate. No
// downside periods yields +Inf.
func sortino(annualizedReturn float64, returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	dailyRiskFree := RiskFreeRate / 365

	var sumSquares float64
	count := 0
	for _, r := range returns {
		if r < dailyRiskFree {
			dev := r - dailyRiskFree
			sumSquares += dev * dev
			count++
		}
	}

	if count == 0 {
		return math.Inf(1)
	}

	downsideDeviation := math.Sqrt(sumSquares/float64(count)) * math.Sqrt(365)
	if downsideDeviation == 0 {
		return 0
	}

	return (annualizedReturn - RiskFreeRate) / downsideDeviation
}

func calmar(annualizedReturn, maxDrawdownPct float64) float64 {
	if maxDrawdownPct == 0 {
		if annualizedReturn > 0 {
			return math.Inf(1)
		}
		return 0
	}
	return annualizedReturn / (maxDrawdownPct / 100)
}
