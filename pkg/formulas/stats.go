// Package formulas provides the shared statistical primitives used by the
// analytics, risk and scoring modules.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// PeriodsPerYear is the annualization factor for daily crypto data.
// Crypto markets trade every calendar day, so 365 rather than the
// 252 trading days used for equities.
const PeriodsPerYear = 365

// Mean calculates the arithmetic mean of a slice of float64 values
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of a slice of float64
// values. Fewer than two samples yields 0: the n-1 correction would
// otherwise divide zero by zero.
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Variance calculates the sample variance of a slice of float64 values.
// Fewer than two samples yields 0 for the same reason as StdDev.
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.Variance(data, nil)
}

// Correlation calculates the Pearson correlation coefficient between two series
func Correlation(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Covariance calculates the sample covariance between two series
func Covariance(x, y []float64) float64 {
	if len(x) == 0 || len(y) == 0 || len(x) != len(y) {
		return 0
	}
	return stat.Covariance(x, y, nil)
}

// CalculateReturns converts a value series into simple periodic returns.
// Returns[i] = (Value[i+1] - Value[i]) / Value[i]; a zero denominator
// yields a zero return for that step.
func CalculateReturns(values []float64) []float64 {
	if len(values) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}

	return returns
}

// AnnualizedVolatility calculates annualized volatility from daily returns.
// A single return has no dispersion, so anything under two samples is 0.
func AnnualizedVolatility(dailyReturns []float64) float64 {
	if len(dailyReturns) < 2 {
		return 0
	}
	return StdDev(dailyReturns) * math.Sqrt(PeriodsPerYear)
}
