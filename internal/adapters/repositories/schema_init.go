package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/ports"
)

// Initialize the solutions table for the given dialect.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	q, err := dialect.queries()
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range q.createTable {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type SolutionSeed struct {
	SchemaID int64                  `json:"schema_id"`
	Solution domain.RouteAssignment `json:"solution"`
}

// Load precomputed solutions from a JSON file and store each as ACTUAL.
func SeedFromJSON(ctx context.Context, store ports.SolutionStore, jsonPath string) (int, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("seed solutions: read %q: %w", jsonPath, err)
	}

	var data []SolutionSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return 0, fmt.Errorf("seed solutions: parse json: %w", err)
	}

	payloads := make(map[int64][]byte, len(data))
	order := make([]int64, 0, len(data))
	for i, item := range data {
		if item.SchemaID <= 0 {
			return 0, fmt.Errorf("seed solutions: invalid schema_id at index %d: %d", i+1, item.SchemaID)
		}
		if item.Solution == nil {
			return 0, fmt.Errorf("seed solutions: item at index %d: solution cannot be empty", i+1)
		}

		payload, err := domain.EncodeRouteAssignment(item.Solution)
		if err != nil {
			return 0, fmt.Errorf("seed solutions: encode schema_id=%d: %w", item.SchemaID, err)
		}
		if _, dup := payloads[item.SchemaID]; !dup {
			order = append(order, item.SchemaID)
		}
		payloads[item.SchemaID] = payload
	}

	for _, id := range order {
		if err := store.SetSolution(ctx, id, payloads[id]); err != nil {
			return 0, fmt.Errorf("seed solutions: set schema_id=%d: %w", id, err)
		}
	}

	return len(order), nil
}
