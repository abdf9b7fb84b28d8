package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "DB_DRIVER", "DATABASE_URL", "REDIS_URL", "SOLVER_URL",
		"LOG_LEVEL", "LOG_FORMAT", "SEED_PATH", "CACHE_TTL", "SOLVER_TIME_BUDGET",
		"STORE_TIMEOUT", "SHUTDOWN_TIMEOUT", "SOLVE_SINGLE_FLIGHT", "RATE_RPS", "RATE_BURST",
	} {
		t.Setenv(k, "")
	}
	// godotenv reads .env from the working directory; run from an empty one.
	t.Chdir(t.TempDir())
}

func TestLoadDefaultsToMemoryStore(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBDriver != DriverMemory {
		t.Fatalf("driver = %q, want %q", cfg.DBDriver, DriverMemory)
	}
	if cfg.SolverTimeBudget != time.Second {
		t.Fatalf("solver budget = %v, want 1s", cfg.SolverTimeBudget)
	}
	if !cfg.SingleFlight {
		t.Fatal("single flight should default to true")
	}
}

func TestLoadDatabaseURLImpliesPostgres(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/solutions")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DBDriver != DriverPostgres {
		t.Fatalf("driver = %q, want %q", cfg.DBDriver, DriverPostgres)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("port: \"9090\"\ndb_driver: mysql\ndatabase_url: root:root@tcp(localhost:3306)/solutions_service\nsolver_time_budget: 3s\nrate_burst: 7\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Fatalf("port = %q, want env override 7070", cfg.Port)
	}
	if cfg.DBDriver != DriverMySQL {
		t.Fatalf("driver = %q, want mysql", cfg.DBDriver)
	}
	if cfg.SolverTimeBudget != 3*time.Second {
		t.Fatalf("solver budget = %v, want 3s", cfg.SolverTimeBudget)
	}
	if cfg.RateBurst != 7 {
		t.Fatalf("rate burst = %d, want 7", cfg.RateBurst)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"SOLVER_TIME_BUDGET":  "soon",
		"SOLVE_SINGLE_FLIGHT": "maybe",
		"DB_DRIVER":           "oracle",
		"RATE_RPS":            "fast",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, val)

			if _, err := Load(); err == nil {
				t.Fatalf("%s=%q: expected error", key, val)
			}
		})
	}
}

func TestLoadSQLDriverRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_DRIVER", "mysql")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is missing")
	}
}
