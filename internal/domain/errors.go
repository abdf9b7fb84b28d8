package domain

import "errors"

// Error taxonomy shared by the store, the solver boundary, and the orchestrator.
// Adapters wrap these with fmt.Errorf("...: %w", ...) so callers can match
// them with errors.Is.
var (
	// No record (Mark*) or no ACTUAL record (GetSolution) for a schema id.
	ErrNotFound = errors.New("solution not found")

	// Persistence layer unreachable or a statement failed.
	ErrStoreUnavailable = errors.New("solution store unavailable")

	// Schema describes an inconsistent graph.
	ErrEncoding = errors.New("schema encoding failed")

	// Solving engine failed, timed out, or broke its output contract.
	ErrExternalSolver = errors.New("external solver failed")
)
