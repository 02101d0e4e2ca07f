package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/chizuquiz/internal/config"
	"github.com/playperu/chizuquiz/internal/database"
	"github.com/playperu/chizuquiz/internal/handler/health"
	"github.com/playperu/chizuquiz/internal/migrations"
	"github.com/playperu/chizuquiz/internal/quiz"
	"github.com/playperu/chizuquiz/internal/room"
	"github.com/playperu/chizuquiz/internal/server"
)

const sweepInterval = time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	// --- Region catalog ---
	store := server.NewSQLiteStore(db)
	if cfg.SeedRegions {
		if err := server.SeedRegions(ctx, logger, store); err != nil {
			return fmt.Errorf("seeding regions: %w", err)
		}
	}

	catalog := server.NewCatalog(nil)
	if err := catalog.Reload(ctx, store); err != nil {
		return err
	}
	if catalog.Len() == 0 {
		return quiz.ErrNoRegions
	}
	logger.Info("region catalog loaded", "regions", catalog.Len())

	// --- Rooms ---
	broker := server.NewBroker()
	rooms := room.NewManager(room.Options{
		Quiz: quiz.Config{
			Bounds:      cfg.Bounds(),
			ToleranceKm: cfg.ToleranceKm,
			SettleDelay: cfg.SettleDelay,
		},
		MoveStep: cfg.MoveStep,
		Publish:  broker.Publish,
		OnFinish: server.ResultRecorder(logger, store),
		Logger:   logger,
	}, catalog.Regions)
	defer rooms.Close()

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Rooms:   rooms,
		Broker:  broker,
		Store:   store,
		Catalog: catalog,
		Bounds:  cfg.Bounds(),
		Checks: map[string]health.Checker{
			"sqlite":  dbChecker{db},
			"catalog": catalogChecker{catalog},
		},
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		SPADir:            cfg.SPADir,
	})
	if cfg.AdminPasswordHash == "" {
		logger.Warn("ADMIN_PASSWORD_HASH not set, admin API disabled")
	}

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		return rooms.RunSweeper(gctx, sweepInterval, cfg.RoomIdleTTL)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

// dbChecker adapts *sql.DB to health.Checker.
type dbChecker struct{ db *sql.DB }

func (d dbChecker) Check(ctx context.Context) error { return d.db.PingContext(ctx) }

// catalogChecker fails while no region is available for new games.
type catalogChecker struct{ catalog *server.Catalog }

func (c catalogChecker) Check(context.Context) error {
	if c.catalog.Len() == 0 {
		return quiz.ErrNoRegions
	}
	return nil
}
