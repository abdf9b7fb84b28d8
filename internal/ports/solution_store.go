package ports

import (
	"context"
	"vrp-solution-service/internal/domain"
)

// Port: versioned, persistent cache of solutions keyed by schema id.
//
// Implementations guarantee at most one ACTUAL record per schema id, also
// under concurrent writers. Not-found conditions wrap domain.ErrNotFound;
// persistence failures wrap domain.ErrStoreUnavailable.
type SolutionStore interface {
	// Report whether an ACTUAL record exists. No side effects.
	HasActualSolution(ctx context.Context, schemaID int64) (bool, error)
	// Return the ACTUAL payload. Obsolete-only ids are not found.
	GetSolution(ctx context.Context, schemaID int64) ([]byte, error)
	// Demote the existing record, whatever its status.
	MarkSolutionObsolete(ctx context.Context, schemaID int64) error
	// Promote the existing record. No-op on an ACTUAL record.
	MarkSolutionActual(ctx context.Context, schemaID int64) error
	// Upsert the payload as the single ACTUAL record, superseding the previous one.
	SetSolution(ctx context.Context, schemaID int64, payload []byte) error
	// Return the record in any status.
	SolutionRecord(ctx context.Context, schemaID int64) (domain.SolutionRecord, error)
	// Verify the store is reachable.
	Ping(ctx context.Context) error
}
