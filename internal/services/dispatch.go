package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"

	"golang.org/x/sync/singleflight"
)

type DispatcherOptions struct {
	// TimeBudget is handed to the solver with every problem.
	TimeBudget time.Duration
	// SingleFlight coalesces concurrent solves of the same schema id.
	SingleFlight bool
}

// Dispatcher answers solve requests from the solution store when it can and
// from the solver otherwise, persisting each fresh result as the ACTUAL
// solution of its schema.
type Dispatcher struct {
	store  ports.SolutionStore
	solver ports.Solver
	opts   DispatcherOptions
	group  singleflight.Group
}

func NewDispatcher(store ports.SolutionStore, solver ports.Solver, opts DispatcherOptions) *Dispatcher {
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = DefaultTimeBudget
	}
	return &Dispatcher{store: store, solver: solver, opts: opts}
}

// Solve returns the ACTUAL solution for schema.ID, computing and storing one
// on a miss. The returned assignment is owned by the caller.
func (d *Dispatcher) Solve(ctx context.Context, schema domain.Schema) (domain.RouteAssignment, error) {
	if !d.opts.SingleFlight {
		return d.solve(ctx, schema)
	}

	key := strconv.FormatInt(schema.ID, 10)
	ch := d.group.DoChan(key, func() (any, error) {
		// the shared run must outlive any single waiter
		return d.solve(context.WithoutCancel(ctx), schema)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(domain.RouteAssignment).Clone(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("solve schema %d: %w", schema.ID, ctx.Err())
	}
}

func (d *Dispatcher) solve(ctx context.Context, schema domain.Schema) (_ domain.RouteAssignment, err error) {
	defer obs.Time(ctx, "dispatch.Solve")(&err)
	defer func() {
		if err != nil {
			obs.SolveOutcomes.WithLabelValues("error").Inc()
		}
	}()

	cached, ok, err := d.cached(ctx, schema.ID)
	if err != nil {
		return nil, err
	}
	if ok {
		obs.SolveOutcomes.WithLabelValues("hit").Inc()
		return cached, nil
	}

	problem, names, err := EncodeSchema(schema, d.opts.TimeBudget)
	if err != nil {
		return nil, fmt.Errorf("solve schema %d: %w", schema.ID, err)
	}

	start := time.Now()
	routes, err := d.solver.Solve(ctx, problem)
	obs.SolverDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if !errors.Is(err, domain.ErrExternalSolver) {
			err = fmt.Errorf("%w: %w", domain.ErrExternalSolver, err)
		}
		return nil, fmt.Errorf("solve schema %d: %w", schema.ID, err)
	}

	assignment, err := DecodeRoutes(routes, names)
	if err != nil {
		return nil, fmt.Errorf("solve schema %d: %w", schema.ID, err)
	}

	payload, err := domain.EncodeRouteAssignment(assignment)
	if err != nil {
		return nil, fmt.Errorf("solve schema %d: serialize solution: %w", schema.ID, err)
	}

	if err := d.store.SetSolution(ctx, schema.ID, payload); err != nil {
		return nil, fmt.Errorf("solve schema %d: store solution: %w", schema.ID, err)
	}
	if err := d.store.MarkSolutionActual(ctx, schema.ID); err != nil {
		return nil, fmt.Errorf("solve schema %d: mark actual: %w", schema.ID, err)
	}

	obs.SolveOutcomes.WithLabelValues("miss").Inc()
	return assignment, nil
}

// cached returns the stored ACTUAL assignment, if any. A solution made
// obsolete between the check and the read counts as a miss.
func (d *Dispatcher) cached(ctx context.Context, schemaID int64) (domain.RouteAssignment, bool, error) {
	has, err := d.store.HasActualSolution(ctx, schemaID)
	if err != nil {
		return nil, false, fmt.Errorf("solve schema %d: check stored solution: %w", schemaID, err)
	}
	if !has {
		return nil, false, nil
	}

	payload, err := d.store.GetSolution(ctx, schemaID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("solve schema %d: read stored solution: %w", schemaID, err)
	}

	a, err := domain.DecodeRouteAssignment(payload)
	if err != nil {
		return nil, false, fmt.Errorf("solve schema %d: decode stored solution: %w", schemaID, err)
	}

	return a, true, nil
}

// ObsoleteSolution marks the ACTUAL solution of schemaID obsolete. It reports
// false, without writing, when there is no ACTUAL solution to demote.
func (d *Dispatcher) ObsoleteSolution(ctx context.Context, schemaID int64) (_ bool, err error) {
	defer obs.Time(ctx, "dispatch.ObsoleteSolution")(&err)

	has, err := d.store.HasActualSolution(ctx, schemaID)
	if err != nil {
		return false, fmt.Errorf("obsolete solution schema %d: %w", schemaID, err)
	}
	if !has {
		return false, nil
	}

	if err := d.store.MarkSolutionObsolete(ctx, schemaID); err != nil {
		return false, fmt.Errorf("obsolete solution schema %d: %w", schemaID, err)
	}

	return true, nil
}

func (d *Dispatcher) HasActualSolution(ctx context.Context, schemaID int64) (bool, error) {
	has, err := d.store.HasActualSolution(ctx, schemaID)
	if err != nil {
		return false, fmt.Errorf("has actual solution schema %d: %w", schemaID, err)
	}
	return has, nil
}

// Solution returns the stored record in any status.
func (d *Dispatcher) Solution(ctx context.Context, schemaID int64) (domain.SolutionRecord, error) {
	rec, err := d.store.SolutionRecord(ctx, schemaID)
	if err != nil {
		return domain.SolutionRecord{}, fmt.Errorf("solution schema %d: %w", schemaID, err)
	}
	return rec, nil
}

// Ping reports whether the store is reachable.
func (d *Dispatcher) Ping(ctx context.Context) error {
	return d.store.Ping(ctx)
}
