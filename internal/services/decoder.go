package services

import (
	"fmt"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/ports"
)

// DecodeRoutes maps solver routes back to station names. Route keys follow
// solver order; a route without visits is kept as an empty list.
func DecodeRoutes(routes []ports.Route, names []string) (domain.RouteAssignment, error) {
	out := make(domain.RouteAssignment, len(routes))

	for i, r := range routes {
		stops := make([]string, 0, len(r))
		for _, idx := range r {
			if idx < 1 || idx > len(names) {
				return nil, fmt.Errorf(
					"decode routes: route %d visits node %d outside 1..%d: %w",
					i, idx, len(names), domain.ErrExternalSolver,
				)
			}
			stops = append(stops, names[idx-1])
		}
		out[i] = stops
	}

	return out, nil
}
