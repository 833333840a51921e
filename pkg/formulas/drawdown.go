package formulas

// CalculateMaxDrawdown calculates the maximum peak-to-trough drawdown of a
// value series, as a positive fraction (0.25 = 25% loss from peak).
//
// Returns nil when the series has fewer than two points.
func CalculateMaxDrawdown(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := values[0]

	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak > 0 {
			drawdown := (peak - v) / peak
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}

	return &maxDrawdown
}

// CalculateMomentum calculates the fractional price change over the last
// `days` steps of a daily close series. Returns nil with insufficient data.
func CalculateMomentum(closes []float64, days int) *float64 {
	if len(closes) < days+1 {
		return nil
	}

	startPrice := closes[len(closes)-days-1]
	endPrice := closes[len(closes)-1]

	if startPrice == 0 {
		return nil
	}

	momentum := (endPrice - startPrice) / startPrice
	return &momentum
}

// CalculateVolatility calculates annualized volatility from a daily close
// series. Returns nil with fewer than two closes.
func CalculateVolatility(closes []float64) *float64 {
	if len(closes) < 2 {
		return nil
	}

	volatility := AnnualizedVolatility(CalculateReturns(closes))
	return &volatility
}
