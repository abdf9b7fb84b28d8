package services

import (
	"fmt"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/ports"
)

// DefaultTimeBudget bounds a solver run when no budget is configured.
const DefaultTimeBudget = time.Second

// EncodeSchema translates a schema into the solver's graph form.
//
// The depot sits at (0, 0) as node 0 and station i becomes node i+1. Every
// station is linked to and from the depot by its depot distance; each
// transport cost adds exactly one directed edge. Continuous values are
// truncated toward zero. Stations and transport costs are sets: exact
// repeats collapse into one, while two stations sharing a name with different
// fields are rejected.
//
// The returned names slice maps node index-1 back to the station name.
func EncodeSchema(schema domain.Schema, budget time.Duration) (ports.Problem, []string, error) {
	if budget <= 0 {
		budget = DefaultTimeBudget
	}

	index := make(map[string]int, len(schema.Stations))
	seen := make(map[string]domain.Station, len(schema.Stations))
	names := make([]string, 0, len(schema.Stations))
	clients := make([]ports.Client, 0, len(schema.Stations))
	edges := make([]ports.Edge, 0, 2*len(schema.Stations)+len(schema.TransportCosts))

	for _, st := range schema.Stations {
		if first, dup := seen[st.Name]; dup {
			if first == st {
				continue
			}
			return ports.Problem{}, nil, fmt.Errorf(
				"encode schema %d: conflicting stations named %q: %w",
				schema.ID, st.Name, domain.ErrEncoding,
			)
		}
		seen[st.Name] = st

		node := len(names) + 1
		index[st.Name] = node
		names = append(names, st.Name)

		clients = append(clients, ports.Client{
			Location: ports.Location{X: int(st.X), Y: int(st.Y)},
			Demand:   int(st.Demand),
			Name:     st.Name,
		})

		d := int(st.DepotDistance)
		edges = append(edges,
			ports.Edge{From: 0, To: node, Distance: d},
			ports.Edge{From: node, To: 0, Distance: d},
		)
	}

	costs := make(map[domain.TransportCost]struct{}, len(schema.TransportCosts))
	for _, tc := range schema.TransportCosts {
		if _, dup := costs[tc]; dup {
			continue
		}
		costs[tc] = struct{}{}

		from, ok := index[tc.From]
		if !ok {
			return ports.Problem{}, nil, fmt.Errorf(
				"encode schema %d: transport cost references unknown station %q: %w",
				schema.ID, tc.From, domain.ErrEncoding,
			)
		}
		to, ok := index[tc.To]
		if !ok {
			return ports.Problem{}, nil, fmt.Errorf(
				"encode schema %d: transport cost references unknown station %q: %w",
				schema.ID, tc.To, domain.ErrEncoding,
			)
		}

		edges = append(edges, ports.Edge{From: from, To: to, Distance: int(tc.Cost)})
	}

	p := ports.Problem{
		VehicleCount:    schema.Fleet.Quantity,
		VehicleCapacity: int(schema.Fleet.Capacity),
		Depot:           ports.Location{X: 0, Y: 0},
		Clients:         clients,
		Edges:           edges,
		TimeBudget:      budget,
	}

	return p, names, nil
}
