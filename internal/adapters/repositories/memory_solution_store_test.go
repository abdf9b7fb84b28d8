package repositories

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vrp-solution-service/internal/adapters/storetest"
	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/logger"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMemorySolutionStoreConformance(t *testing.T) {
	storetest.RunSolutionStoreConformance(t, func(t *testing.T) ports.SolutionStore {
		return NewMemorySolutionStore()
	})
}

func TestMemorySolutionStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySolutionStore()

	payload := []byte(`{"0":["A"]}`)
	if err := s.SetSolution(ctx, 1, payload); err != nil {
		t.Fatalf("set: %v", err)
	}
	payload[7] = 'Z'

	got, err := s.GetSolution(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"0":["A"]}` {
		t.Fatalf("stored payload was aliased: %s", got)
	}

	got[7] = 'Q'
	again, _ := s.GetSolution(ctx, 1)
	if string(again) != `{"0":["A"]}` {
		t.Fatalf("returned payload was aliased: %s", again)
	}
}

func TestMemorySolutionStoreUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySolutionStore()

	at := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return at }

	if err := s.SetSolution(ctx, 1, []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	at = at.Add(time.Hour)
	if err := s.MarkSolutionObsolete(ctx, 1); err != nil {
		t.Fatalf("mark obsolete: %v", err)
	}

	rec, err := s.SolutionRecord(ctx, 1)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if !rec.UpdatedAt.Equal(at) {
		t.Fatalf("updated_at = %v, want %v", rec.UpdatedAt, at)
	}
}

func TestMemorySolutionStoreCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewMemorySolutionStore()
	if err := s.SetSolution(ctx, 1, []byte(`{}`)); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
	if err := s.Ping(ctx); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("ping err = %v, want ErrStoreUnavailable", err)
	}
}

func TestMemorySolutionStoreTimesEveryStep(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	ctx := obs.WithRequestID(context.Background(), "req-7")
	s := NewMemorySolutionStore()

	if err := s.SetSolution(ctx, 1, []byte(`{"0":["A"]}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, _ = s.HasActualSolution(ctx, 1)
	_, _ = s.GetSolution(ctx, 1)
	_ = s.MarkSolutionObsolete(ctx, 1)
	_ = s.MarkSolutionActual(ctx, 1)
	_, _ = s.SolutionRecord(ctx, 1)
	_ = s.Ping(ctx)
	// failures are logged at warn
	_ = s.MarkSolutionObsolete(ctx, 404)

	var ops []string
	for _, e := range logs.AllUntimed() {
		if e.ContextMap()["req_id"] != "req-7" {
			t.Fatalf("entry without request id: %+v", e)
		}
		ops = append(ops, e.ContextMap()["op"].(string))
	}
	want := []string{
		"store.SetSolution",
		"store.HasActualSolution",
		"store.GetSolution",
		"store.MarkSolutionObsolete",
		"store.MarkSolutionActual",
		"store.SolutionRecord",
		"store.Ping",
		"store.MarkSolutionObsolete",
	}
	if diff := cmp.Diff(want, ops); diff != "" {
		t.Fatalf("timed ops mismatch (-want +got):\n%s", diff)
	}
	if last := logs.AllUntimed()[len(want)-1]; last.Level != zapcore.WarnLevel {
		t.Fatalf("unknown id logged at %v, want warn", last.Level)
	}
}

func TestSeedFromJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	path := filepath.Join(dir, "seed.json")
	data := `[
		{"schema_id": 1, "solution": {"0": ["A", "B"], "1": []}},
		{"schema_id": 2, "solution": {"0": ["C"]}},
		{"schema_id": 1, "solution": {"0": ["B", "A"]}}
	]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	s := NewMemorySolutionStore()
	n, err := SeedFromJSON(ctx, s, path)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 2 {
		t.Fatalf("seeded = %d, want 2", n)
	}

	got, err := s.GetSolution(ctx, 1)
	if err != nil {
		t.Fatalf("get 1: %v", err)
	}
	if string(got) != `{"0":["B","A"]}` {
		t.Fatalf("get 1 = %s, want last entry", got)
	}
	if got, _ := s.GetSolution(ctx, 2); string(got) != `{"0":["C"]}` {
		t.Fatalf("get 2 = %s", got)
	}
}

func TestSeedFromJSONRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad id":       `[{"schema_id": 0, "solution": {"0": []}}]`,
		"no solution":  `[{"schema_id": 1}]`,
		"negative key": `[{"schema_id": 1, "solution": {"-1": []}}]`,
		"not an array": `{"schema_id": 1}`,
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "seed.json")
			if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
				t.Fatalf("write seed: %v", err)
			}

			s := NewMemorySolutionStore()
			if _, err := SeedFromJSON(context.Background(), s, path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
