package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"vrp-solution-service/internal/adapters/repositories"
	"vrp-solution-service/internal/platform/config"
	"vrp-solution-service/internal/platform/db"
	"vrp-solution-service/internal/platform/logger"

	"go.uber.org/zap"
)

// dbtool creates the solutions table and optionally loads precomputed solutions.
func main() {
	seedPath := flag.String("seed", "", "JSON file with precomputed solutions (defaults to SEED_PATH)")
	flag.Parse()

	if err := run(*seedPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(seedPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.Init(cfg.LogLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var (
		conn    *sql.DB
		dialect repositories.Dialect
	)
	switch cfg.DBDriver {
	case config.DriverPostgres:
		conn, err = db.Open(ctx, cfg.DatabaseURL)
		dialect = repositories.Postgres
	case config.DriverMySQL:
		conn, err = db.OpenMySQL(ctx, cfg.DatabaseURL)
		dialect = repositories.MySQL
	default:
		return fmt.Errorf("dbtool: DATABASE_URL is required (db driver %q)", cfg.DBDriver)
	}
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Info("initializing database schema", zap.String("dialect", string(dialect)))
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		return fmt.Errorf("schema initialization failed: %w", err)
	}
	log.Info("schema ready")

	if seedPath == "" {
		seedPath = cfg.SeedPath
	}
	if seedPath == "" {
		return nil
	}

	store, err := repositories.NewSQLSolutionStore(conn, dialect, cfg.StoreTimeout)
	if err != nil {
		return err
	}

	log.Info("seeding solutions", zap.String("path", seedPath))
	n, err := repositories.SeedFromJSON(ctx, store, seedPath)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	log.Info("seeding complete", zap.Int("count", n))

	return nil
}
