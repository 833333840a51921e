// Package analytics computes windowed performance metrics from portfolio
// value history.
package analytics

// RiskFreeRate is the annual risk-free rate used for Sharpe and Sortino.
const RiskFreeRate = 0.02

// Metrics is the full set of performance figures for one value series.
// Returns and volatility are fractions; fields suffixed Pct are percentages.
// Sparse input never errors: fewer than two points yields the zero value.
type Metrics struct {
	TotalReturnPct   float64 `json:"total_return_pct"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"` // +Inf when no downside periods
	Calmar           float64 `json:"calmar"`  // +Inf when no drawdown and positive return
	MaxDrawdownPct   float64 `json:"max_drawdown_pct"`
	WinRatePct       float64 `json:"win_rate_pct"`
	ProfitFactor     float64 `json:"profit_factor"` // +Inf when no losing periods
	SampleCount      int     `json:"sample_count"`
	WindowDays       float64 `json:"window_days"`
}

// RelativeMetrics relates a portfolio series to a benchmark series.
type RelativeMetrics struct {
	Beta             float64 `json:"beta"` // neutral 1.0 on misaligned series
	Alpha            float64 `json:"alpha"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
}
