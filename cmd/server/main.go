package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vrp-solution-service/internal/adapters/cache"
	"vrp-solution-service/internal/adapters/repositories"
	"vrp-solution-service/internal/adapters/solver"
	"vrp-solution-service/internal/api"
	"vrp-solution-service/internal/platform/config"
	"vrp-solution-service/internal/platform/db"
	"vrp-solution-service/internal/platform/logger"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"
	"vrp-solution-service/internal/services"

	"go.uber.org/zap"
)

// main is the application composition root.
// It wires concrete adapters (SQL or memory store, Redis, solver engine)
// behind ports and runs the HTTP server until SIGINT/SIGTERM.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	obs.RegisterDefault()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Precomputed solutions are optional for local runs.
	if cfg.SeedPath != "" {
		n, err := repositories.SeedFromJSON(ctx, store, cfg.SeedPath)
		if err != nil {
			return err
		}
		log.Info("seeded solutions", zap.Int("count", n), zap.String("path", cfg.SeedPath))
	}

	engine, err := newSolver(cfg)
	if err != nil {
		return err
	}

	dispatcher := services.NewDispatcher(store, engine, services.DispatcherOptions{
		TimeBudget:   cfg.SolverTimeBudget,
		SingleFlight: cfg.SingleFlight,
	})

	router := api.NewRouter(dispatcher, api.RouterConfig{
		RateRPS:      cfg.RateRPS,
		RateBurst:    cfg.RateBurst,
		ReadyTimeout: cfg.StoreTimeout,
	})

	// Write timeout leaves room for a full solver budget plus retries.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SolverTimeBudget + 60*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("db_driver", cfg.DBDriver),
			zap.Bool("redis", cfg.RedisURL != ""),
			zap.Bool("remote_solver", cfg.SolverURL != ""),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

// openStore builds the configured solution store, wrapped in the Redis cache
// when REDIS_URL is set. The returned func releases every connection.
func openStore(ctx context.Context, cfg config.Config) (ports.SolutionStore, func(), error) {
	var (
		store   ports.SolutionStore
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.DBDriver {
	case config.DriverPostgres, config.DriverMySQL:
		open, dialect := db.Open, repositories.Postgres
		if cfg.DBDriver == config.DriverMySQL {
			open, dialect = db.OpenMySQL, repositories.MySQL
		}

		conn, err := open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = conn.Close() })

		// CREATE IF NOT EXISTS, safe on every start
		if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
			closeAll()
			return nil, nil, err
		}

		sqlStore, err := repositories.NewSQLSolutionStore(conn, dialect, cfg.StoreTimeout)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		store = sqlStore

	default:
		logger.L().Warn("no database configured, solutions are kept in memory")
		store = repositories.NewMemorySolutionStore()
	}

	if cfg.RedisURL != "" {
		rdb, err := db.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		store = cache.NewRedisSolutionCache(rdb, store, cfg.CacheTTL)
	}

	return store, closeAll, nil
}

func newSolver(cfg config.Config) (ports.Solver, error) {
	if cfg.SolverURL == "" {
		return solver.NewGreedySolver(), nil
	}
	return solver.NewHTTPSolver(cfg.SolverURL, solver.WithAPIKey(config.Get("SOLVER_API_KEY", "")))
}
