package prices

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE spot_prices (
			symbol TEXT PRIMARY KEY,
			price REAL NOT NULL CHECK (price > 0),
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE daily_prices (
			symbol TEXT NOT NULL,
			date TEXT NOT NULL,
			close REAL NOT NULL CHECK (close > 0),
			PRIMARY KEY (symbol, date)
		);
	`)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop())
}

func TestSpotPriceRoundTrip(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.UpsertSpot("eth", 2000))

	price, ok := repo.Price("ETH")
	require.True(t, ok)
	assert.InDelta(t, 2000.0, price, 1e-9)

	// Lookup normalizes the same way ingestion does.
	price, ok = repo.Price(" eth ")
	require.True(t, ok)
	assert.InDelta(t, 2000.0, price, 1e-9)

	require.NoError(t, repo.UpsertSpot("ETH", 2100))
	price, ok = repo.Price("ETH")
	require.True(t, ok)
	assert.InDelta(t, 2100.0, price, 1e-9)
}

func TestSpotPriceMissing(t *testing.T) {
	repo := setupTestRepo(t)

	_, ok := repo.Price("NEWCOIN")
	assert.False(t, ok)
}

func TestUpsertSpotRejectsNonPositive(t *testing.T) {
	repo := setupTestRepo(t)

	assert.Error(t, repo.UpsertSpot("ETH", 0))
	assert.Error(t, repo.UpsertSpot("ETH", -5))
}

func TestDailyClosesAscendingWithLimit(t *testing.T) {
	repo := setupTestRepo(t)
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		date := base.AddDate(0, 0, i).Format("2006-01-02")
		require.NoError(t, repo.UpsertDailyClose("BTC", date, float64(100+i)))
	}

	closes, err := repo.GetDailyCloses("BTC", 5)
	require.NoError(t, err)
	require.Len(t, closes, 5)
	// The most recent 5 closes, oldest first.
	assert.InDelta(t, 105.0, closes[0], 1e-9)
	assert.InDelta(t, 109.0, closes[4], 1e-9)

	closes, err = repo.GetDailyCloses("BTC", 0)
	require.NoError(t, err)
	assert.Len(t, closes, 10)
}

func TestUpsertDailyCloseValidation(t *testing.T) {
	repo := setupTestRepo(t)

	assert.Error(t, repo.UpsertDailyClose("BTC", "2026-08-01", 0))
	assert.Error(t, repo.UpsertDailyClose("BTC", "08/01/2026", 100))
	assert.Error(t, repo.UpsertDailyClose("BTC", "not-a-date", 100))

	require.NoError(t, repo.UpsertDailyClose("BTC", "2026-08-01", 100))
	require.NoError(t, repo.UpsertDailyClose("BTC", "2026-08-01", 101))

	closes, err := repo.GetDailyCloses("BTC", 0)
	require.NoError(t, err)
	require.Len(t, closes, 1)
	assert.InDelta(t, 101.0, closes[0], 1e-9)
}

func TestSymbols(t *testing.T) {
	repo := setupTestRepo(t)

	symbols, err := repo.Symbols()
	require.NoError(t, err)
	assert.Empty(t, symbols)

	for i, sym := range []string{"eth", "btc", "sol"} {
		date := fmt.Sprintf("2026-08-%02d", i+1)
		require.NoError(t, repo.UpsertDailyClose(sym, date, 100))
	}

	symbols, err = repo.Symbols()
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, symbols)
}
