package formulas

import (
	"math"
)

// CalculateSharpeRatio calculates the annualized Sharpe ratio from periodic
// returns. riskFreeRate is annual (e.g. 0.02 for 2%), periodsPerYear is the
// sampling frequency (365 for daily crypto data).
//
// Returns nil when there are fewer than two samples or when volatility is
// zero; callers decide what sentinel to substitute.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	meanReturn := Mean(returns)

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sharpe := (meanReturn - periodicRiskFree) / stdDev

	annualized := sharpe * math.Sqrt(float64(periodsPerYear))
	return &annualized
}

// CalculateSortinoRatio calculates the annualized Sortino ratio, penalizing
// only returns below the periodic target (minimum acceptable return).
//
// Returns nil when there are fewer than two samples or no returns fall below
// the target; callers decide what sentinel to substitute.
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, targetReturn float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	meanReturn := Mean(returns)
	periodicMAR := targetReturn / float64(periodsPerYear)

	var downsideSquaredSum float64
	downsideCount := 0
	for _, ret := range returns {
		if ret < periodicMAR {
			deviation := ret - periodicMAR
			downsideSquaredSum += deviation * deviation
			downsideCount++
		}
	}

	if downsideCount == 0 {
		return nil
	}

	downsideDeviation := math.Sqrt(downsideSquaredSum / float64(downsideCount))
	if downsideDeviation == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)
	sortino := (meanReturn - periodicRiskFree) / downsideDeviation

	annualized := sortino * math.Sqrt(float64(periodsPerYear))
	return &annualized
}
