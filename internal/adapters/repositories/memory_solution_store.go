package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"
)

// MemorySolutionStore keeps solutions in process memory. Used when no
// database is configured and as the reference store in tests.
type MemorySolutionStore struct {
	mu      sync.RWMutex
	records map[int64]domain.SolutionRecord

	now func() time.Time
}

func NewMemorySolutionStore() *MemorySolutionStore {
	return &MemorySolutionStore{
		records: make(map[int64]domain.SolutionRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemorySolutionStore) HasActualSolution(ctx context.Context, schemaID int64) (_ bool, err error) {
	defer obs.Time(ctx, "store.HasActualSolution")(&err)
	defer recordOp("has_actual", &err)
	if err := ctx.Err(); err != nil {
		return false, unavailable("has actual solution", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[schemaID]
	return ok && rec.Status == domain.StatusActual, nil
}

func (m *MemorySolutionStore) GetSolution(ctx context.Context, schemaID int64) (_ []byte, err error) {
	defer obs.Time(ctx, "store.GetSolution")(&err)
	defer recordOp("get", &err)
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get solution", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[schemaID]
	if !ok || rec.Status != domain.StatusActual {
		return nil, fmt.Errorf("get solution schema_id=%d: does not exist or is obsolete: %w", schemaID, domain.ErrNotFound)
	}
	return clone(rec.Payload), nil
}

func (m *MemorySolutionStore) MarkSolutionObsolete(ctx context.Context, schemaID int64) (err error) {
	defer obs.Time(ctx, "store.MarkSolutionObsolete")(&err)
	defer recordOp("mark_obsolete", &err)
	return m.setStatus(ctx, "mark solution obsolete", schemaID, domain.StatusObsolete)
}

func (m *MemorySolutionStore) MarkSolutionActual(ctx context.Context, schemaID int64) (err error) {
	defer obs.Time(ctx, "store.MarkSolutionActual")(&err)
	defer recordOp("mark_actual", &err)
	return m.setStatus(ctx, "mark solution actual", schemaID, domain.StatusActual)
}

func (m *MemorySolutionStore) setStatus(ctx context.Context, op string, schemaID int64, status domain.SolutionStatus) error {
	if err := ctx.Err(); err != nil {
		return unavailable(op, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[schemaID]
	if !ok {
		return fmt.Errorf("%s schema_id=%d: solution does not exist: %w", op, schemaID, domain.ErrNotFound)
	}
	rec.Status = status
	rec.UpdatedAt = m.now()
	m.records[schemaID] = rec
	return nil
}

func (m *MemorySolutionStore) SetSolution(ctx context.Context, schemaID int64, payload []byte) (err error) {
	defer obs.Time(ctx, "store.SetSolution")(&err)
	defer recordOp("set", &err)
	if err := ctx.Err(); err != nil {
		return unavailable("set solution", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("set solution schema_id=%d: payload must not be empty", schemaID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	next := domain.SolutionRecord{
		SchemaID:  schemaID,
		Payload:   clone(payload),
		Status:    domain.StatusActual,
		Version:   1,
		UpdatedAt: m.now(),
	}
	if prev, ok := m.records[schemaID]; ok {
		next.Version = prev.Version + 1
		next.PreviousPayload = prev.Payload
	}
	m.records[schemaID] = next
	return nil
}

func (m *MemorySolutionStore) SolutionRecord(ctx context.Context, schemaID int64) (_ domain.SolutionRecord, err error) {
	defer obs.Time(ctx, "store.SolutionRecord")(&err)
	defer recordOp("record", &err)
	if err := ctx.Err(); err != nil {
		return domain.SolutionRecord{}, unavailable("solution record", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[schemaID]
	if !ok {
		return domain.SolutionRecord{}, fmt.Errorf("solution record schema_id=%d: %w", schemaID, domain.ErrNotFound)
	}
	rec.Payload = clone(rec.Payload)
	rec.PreviousPayload = clone(rec.PreviousPayload)
	return rec, nil
}

func (m *MemorySolutionStore) Ping(ctx context.Context) (err error) {
	defer obs.Time(ctx, "store.Ping")(&err)
	if err := ctx.Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
