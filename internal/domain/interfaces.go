package domain

// PriceSource supplies spot prices in quote-currency terms. Implementations
// never fetch live data inside a computation; prices are ingested ahead of
// time and read from storage.
type PriceSource interface {
	// Price returns the spot price for a symbol. The bool is false when no
	// price is known.
	Price(symbol string) (float64, bool)
}

// HistoryStore is the append-only value history of a portfolio.
type HistoryStore interface {
	// Append records a new history point. Points must arrive in ascending
	// timestamp order.
	Append(portfolioID string, point ValueHistoryPoint) error

	// Read returns the points inside the window, ascending by timestamp.
	Read(portfolioID string, window Window) ([]ValueHistoryPoint, error)
}

// BenchmarkSource supplies the value series of a benchmark for comparison.
type BenchmarkSource interface {
	Series(benchmarkID string, window Window) ([]ValueHistoryPoint, error)
}
