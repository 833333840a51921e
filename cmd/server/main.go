// Package main is the entry point for the driftd portfolio rebalancing daemon.
// It wires storage, the rebalancing engine, analytics and the HTTP API, then
// runs until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/driftlabs/driftd/internal/config"
	"github.com/driftlabs/driftd/internal/database"
	"github.com/driftlabs/driftd/internal/modules/analytics"
	"github.com/driftlabs/driftd/internal/modules/benchmark"
	"github.com/driftlabs/driftd/internal/modules/history"
	"github.com/driftlabs/driftd/internal/modules/portfolio"
	"github.com/driftlabs/driftd/internal/modules/prices"
	"github.com/driftlabs/driftd/internal/modules/rebalancing"
	"github.com/driftlabs/driftd/internal/modules/risk"
	"github.com/driftlabs/driftd/internal/modules/scoring"
	"github.com/driftlabs/driftd/internal/modules/trading"
	"github.com/driftlabs/driftd/internal/scheduler"
	"github.com/driftlabs/driftd/internal/server"
	"github.com/driftlabs/driftd/pkg/logger"

	analyticshandlers "github.com/driftlabs/driftd/internal/modules/analytics/handlers"
	benchmarkhandlers "github.com/driftlabs/driftd/internal/modules/benchmark/handlers"
	portfoliohandlers "github.com/driftlabs/driftd/internal/modules/portfolio/handlers"
	priceshandlers "github.com/driftlabs/driftd/internal/modules/prices/handlers"
	rebalancinghandlers "github.com/driftlabs/driftd/internal/modules/rebalancing/handlers"
	riskhandlers "github.com/driftlabs/driftd/internal/modules/risk/handlers"
	targetinghandlers "github.com/driftlabs/driftd/internal/modules/targeting/handlers"
	tradinghandlers "github.com/driftlabs/driftd/internal/modules/trading/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet.
		panic(err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Str("data_dir", cfg.DataDir).
		Int("port", cfg.Port).
		Msg("Starting driftd")

	// Storage. Four databases with purpose-fit durability profiles: the
	// trade ledger gets full sync, market data is a rebuildable cache.
	portfolioDB, err := openDatabase(cfg, "portfolio", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open portfolio database")
	}
	defer portfolioDB.Close()

	ledgerDB, err := openDatabase(cfg, "ledger", database.ProfileLedger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	historyDB, err := openDatabase(cfg, "history", database.ProfileStandard)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	marketDB, err := openDatabase(cfg, "market", database.ProfileCache)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open market database")
	}
	defer marketDB.Close()

	// Repositories.
	portfolioRepo := portfolio.NewRepository(portfolioDB.Conn(), log)
	tradeRepo := trading.NewTradeRepository(ledgerDB.Conn(), log)
	historyRepo := history.NewRepository(historyDB.Conn(), log)
	snapshotRepo := history.NewSnapshotRepository(historyDB.Conn(), log)
	benchmarkRepo := history.NewBenchmarkRepository(marketDB.Conn(), log)
	priceRepo := prices.NewRepository(marketDB.Conn(), log)
	riskRepo := risk.NewRepository(portfolioDB.Conn(), log)

	// Services.
	executor := rebalancing.NewExecutor(log)
	rebalanceService := rebalancing.NewService(
		executor, portfolioRepo, tradeRepo, historyRepo, snapshotRepo, priceRepo, log)
	analyticsService := analytics.NewService(historyRepo, log)
	riskService := risk.NewService(portfolioRepo, priceRepo, historyRepo, riskRepo, log)
	benchmarkService := benchmark.NewService(historyRepo, benchmarkRepo, log)
	scoringService := scoring.NewService(priceRepo, riskRepo, log)

	// Background jobs.
	sched := scheduler.New(log)
	snapshotJob := scheduler.NewSnapshotJob(portfolioRepo, priceRepo, historyRepo, log)
	if err := sched.AddJob(cfg.SnapshotSchedule, snapshotJob); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SnapshotSchedule).Msg("Failed to register snapshot job")
	}
	sched.Start()

	systemHandlers := server.NewSystemHandlers(
		[]*database.DB{portfolioDB, ledgerDB, historyDB, marketDB}, sched, log)
	systemHandlers.SetJob(snapshotJob)

	srv := server.New(server.Config{
		Log:         log,
		Port:        cfg.Port,
		DevMode:     cfg.DevMode,
		Portfolio:   portfoliohandlers.NewHandler(portfolioRepo, log),
		Rebalancing: rebalancinghandlers.NewHandler(rebalanceService, log),
		Analytics:   analyticshandlers.NewHandler(analyticsService, log),
		Risk:        riskhandlers.NewHandler(riskService, riskRepo, log),
		Benchmark:   benchmarkhandlers.NewHandler(benchmarkService, benchmarkRepo, log),
		Prices:      priceshandlers.NewHandler(priceRepo, log),
		Trading:     tradinghandlers.NewHandler(tradeRepo, log),
		Targeting:   targetinghandlers.NewHandler(scoringService, log),
		System:      systemHandlers,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	sched.Stop()

	// Flush WAL files before closing so a restart starts clean.
	for _, db := range []*database.DB{portfolioDB, ledgerDB, historyDB, marketDB} {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// openDatabase opens and migrates one named database under the data dir.
func openDatabase(cfg *config.Config, name string, profile database.DatabaseProfile) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
