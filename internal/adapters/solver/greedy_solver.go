package solver

import (
	"context"
	"fmt"
	"math"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"
)

// GreedySolver is an in-process engine used when no remote solver is configured.
//
// It builds routes with a capacity-aware nearest-neighbor heuristic over the
// directed edges of the problem. It does not attempt global optimization; the
// result is deterministic for a given problem.
type GreedySolver struct{}

func NewGreedySolver() *GreedySolver {
	return &GreedySolver{}
}

func (GreedySolver) Solve(ctx context.Context, p ports.Problem) (_ []ports.Route, err error) {
	defer obs.Time(ctx, "solver.greedy.Solve")(&err)

	if p.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeBudget)
		defer cancel()
	}

	n := len(p.Clients)
	if n == 0 {
		return []ports.Route{}, nil
	}
	if p.VehicleCount <= 0 {
		return nil, fmt.Errorf("greedy solver: %d clients but no vehicles: %w", n, domain.ErrExternalSolver)
	}

	for i, c := range p.Clients {
		if c.Demand > p.VehicleCapacity {
			return nil, fmt.Errorf(
				"greedy solver: client %d (%q) demand %d exceeds vehicle capacity %d: %w",
				i+1, c.Name, c.Demand, p.VehicleCapacity, domain.ErrExternalSolver,
			)
		}
	}

	// dist[from][to]; the cheapest edge wins when a pair repeats
	dist := make([]map[int]int, n+1)
	for i := range dist {
		dist[i] = map[int]int{}
	}
	for _, e := range p.Edges {
		if e.From < 0 || e.From > n || e.To < 0 || e.To > n {
			return nil, fmt.Errorf("greedy solver: edge %d->%d outside node range 0..%d: %w", e.From, e.To, n, domain.ErrExternalSolver)
		}
		if d, ok := dist[e.From][e.To]; !ok || e.Distance < d {
			dist[e.From][e.To] = e.Distance
		}
	}

	served := make([]bool, n+1)
	remaining := n
	routes := []ports.Route{}

	for v := 0; v < p.VehicleCount && remaining > 0; v++ {
		current := 0
		load := 0
		route := ports.Route{}

		for {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("greedy solver: time budget exhausted: %w: %w", domain.ErrExternalSolver, err)
			}

			best := 0
			bestDist := math.MaxInt
			// ascending scan keeps the lower index on ties
			for j := 1; j <= n; j++ {
				if served[j] || load+p.Clients[j-1].Demand > p.VehicleCapacity {
					continue
				}
				d, ok := dist[current][j]
				if !ok {
					continue
				}
				if d < bestDist {
					best, bestDist = j, d
				}
			}

			if best == 0 {
				break
			}

			served[best] = true
			remaining--
			load += p.Clients[best-1].Demand
			route = append(route, best)
			current = best
		}

		if len(route) == 0 {
			break
		}
		routes = append(routes, route)
	}

	if remaining > 0 {
		return nil, fmt.Errorf("greedy solver: %d of %d clients cannot be served: %w", remaining, n, domain.ErrExternalSolver)
	}

	return routes, nil
}
