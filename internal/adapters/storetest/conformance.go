// Package storetest holds the behavior suite shared by every ports.SolutionStore
// implementation and decorator.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/ports"
)

// RunSolutionStoreConformance exercises the behavior every ports.SolutionStore
// must share. newStore returns an empty store.
func RunSolutionStoreConformance(t *testing.T, newStore func(t *testing.T) ports.SolutionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		s := newStore(t)

		has, err := s.HasActualSolution(ctx, 404)
		if err != nil {
			t.Fatalf("has: unexpected error: %v", err)
		}
		if has {
			t.Fatalf("has = true for unknown id")
		}
		if _, err := s.GetSolution(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get: err = %v, want ErrNotFound", err)
		}
		if err := s.MarkSolutionObsolete(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("mark obsolete: err = %v, want ErrNotFound", err)
		}
		if err := s.MarkSolutionActual(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("mark actual: err = %v, want ErrNotFound", err)
		}
		if _, err := s.SolutionRecord(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("record: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 1, []byte(`{"0":["A"]}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		has, err := s.HasActualSolution(ctx, 1)
		if err != nil || !has {
			t.Fatalf("has = %v, %v; want true, nil", has, err)
		}
		got, err := s.GetSolution(ctx, 1)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != `{"0":["A"]}` {
			t.Fatalf("get = %s", got)
		}
	})

	t.Run("last write wins and keeps one version back", func(t *testing.T) {
		s := newStore(t)

		for _, p := range []string{`{"0":["A"]}`, `{"0":["B"]}`, `{"0":["C"]}`} {
			if err := s.SetSolution(ctx, 7, []byte(p)); err != nil {
				t.Fatalf("set %s: %v", p, err)
			}
		}

		got, err := s.GetSolution(ctx, 7)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != `{"0":["C"]}` {
			t.Fatalf("get = %s, want last write", got)
		}

		rec, err := s.SolutionRecord(ctx, 7)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Status != domain.StatusActual {
			t.Fatalf("status = %q, want actual", rec.Status)
		}
		if rec.Version != 3 {
			t.Fatalf("version = %d, want 3", rec.Version)
		}
		if string(rec.PreviousPayload) != `{"0":["B"]}` {
			t.Fatalf("previous = %s, want second write", rec.PreviousPayload)
		}
	})

	t.Run("obsolete hides solution", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 2, []byte(`{"0":[]}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.MarkSolutionObsolete(ctx, 2); err != nil {
			t.Fatalf("mark obsolete: %v", err)
		}
		// idempotent
		if err := s.MarkSolutionObsolete(ctx, 2); err != nil {
			t.Fatalf("mark obsolete twice: %v", err)
		}

		has, err := s.HasActualSolution(ctx, 2)
		if err != nil || has {
			t.Fatalf("has = %v, %v; want false, nil", has, err)
		}
		if _, err := s.GetSolution(ctx, 2); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get after obsolete: err = %v, want ErrNotFound", err)
		}

		rec, err := s.SolutionRecord(ctx, 2)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Status != domain.StatusObsolete {
			t.Fatalf("status = %q, want obsolete", rec.Status)
		}
	})

	t.Run("mark actual restores", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 3, []byte(`{"0":["X"]}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.MarkSolutionObsolete(ctx, 3); err != nil {
			t.Fatalf("mark obsolete: %v", err)
		}
		if err := s.MarkSolutionActual(ctx, 3); err != nil {
			t.Fatalf("mark actual: %v", err)
		}
		if err := s.MarkSolutionActual(ctx, 3); err != nil {
			t.Fatalf("mark actual twice: %v", err)
		}

		got, err := s.GetSolution(ctx, 3)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != `{"0":["X"]}` {
			t.Fatalf("get = %s", got)
		}
	})

	t.Run("set after obsolete re-activates", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 4, []byte(`{"0":["old"]}`)); err != nil {
			t.Fatalf("set: %v", err)
		}
		if err := s.MarkSolutionObsolete(ctx, 4); err != nil {
			t.Fatalf("mark obsolete: %v", err)
		}
		if err := s.SetSolution(ctx, 4, []byte(`{"0":["new"]}`)); err != nil {
			t.Fatalf("set again: %v", err)
		}

		rec, err := s.SolutionRecord(ctx, 4)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Status != domain.StatusActual || string(rec.Payload) != `{"0":["new"]}` {
			t.Fatalf("record = %+v", rec)
		}
		if string(rec.PreviousPayload) != `{"0":["old"]}` {
			t.Fatalf("previous = %s", rec.PreviousPayload)
		}
	})

	t.Run("concurrent writers leave one actual", func(t *testing.T) {
		s := newStore(t)

		const writers = 16
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs <- s.SetSolution(ctx, 9, []byte(fmt.Sprintf(`{"0":["S%d"]}`, i)))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			if err != nil {
				t.Fatalf("concurrent set: %v", err)
			}
		}

		rec, err := s.SolutionRecord(ctx, 9)
		if err != nil {
			t.Fatalf("record: %v", err)
		}
		if rec.Status != domain.StatusActual {
			t.Fatalf("status = %q, want actual", rec.Status)
		}
		if rec.Version != writers {
			t.Fatalf("version = %d, want %d", rec.Version, writers)
		}
		got, err := s.GetSolution(ctx, 9)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if string(got) != string(rec.Payload) {
			t.Fatalf("get = %s, record = %s", got, rec.Payload)
		}
	})

	t.Run("ids are independent", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 10, []byte(`{"0":["A"]}`)); err != nil {
			t.Fatalf("set 10: %v", err)
		}
		if err := s.SetSolution(ctx, 11, []byte(`{"0":["B"]}`)); err != nil {
			t.Fatalf("set 11: %v", err)
		}
		if err := s.MarkSolutionObsolete(ctx, 10); err != nil {
			t.Fatalf("mark obsolete 10: %v", err)
		}

		has, err := s.HasActualSolution(ctx, 11)
		if err != nil || !has {
			t.Fatalf("has 11 = %v, %v; want true, nil", has, err)
		}
	})

	t.Run("empty payload rejected", func(t *testing.T) {
		s := newStore(t)

		if err := s.SetSolution(ctx, 12, nil); err == nil {
			t.Fatalf("expected error for empty payload")
		}
		if has, _ := s.HasActualSolution(ctx, 12); has {
			t.Fatalf("empty payload must not be stored")
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(ctx); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
