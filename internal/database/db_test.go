package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateAllSchemas(t *testing.T) {
	cases := []struct {
		name    string
		profile DatabaseProfile
		table   string
	}{
		{"portfolio", ProfileStandard, "portfolios"},
		{"ledger", ProfileLedger, "trades"},
		{"history", ProfileStandard, "value_history"},
		{"market", ProfileCache, "spot_prices"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db := openTestDB(t, tc.name, tc.profile)
			require.NoError(t, db.Migrate())
			// Idempotent: schemas use IF NOT EXISTS.
			require.NoError(t, db.Migrate())

			var count int
			err := db.Conn().QueryRow(
				`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, tc.table,
			).Scan(&count)
			require.NoError(t, err)
			assert.Equal(t, 1, count)
		})
	}
}

func TestMigrateUnknownNameFails(t *testing.T) {
	db := openTestDB(t, "nonexistent", ProfileStandard)
	assert.Error(t, db.Migrate())
}

func TestHealthCheckAndCheckpoint(t *testing.T) {
	db := openTestDB(t, "portfolio", ProfileStandard)
	require.NoError(t, db.Migrate())

	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.WALCheckpoint(""))
	require.NoError(t, db.WALCheckpoint("TRUNCATE"))
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	db := openTestDB(t, "portfolio", ProfileStandard)
	require.NoError(t, db.Migrate())

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			`INSERT INTO portfolios (id, name, quote_symbol, created_at) VALUES ('p1', 'main', 'USDC', 0)`,
		); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.Conn().QueryRow(`SELECT COUNT(*) FROM portfolios`).Scan(&count))
	assert.Equal(t, 0, count, "failed transaction must leave no rows")
}
