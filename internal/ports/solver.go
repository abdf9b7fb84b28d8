package ports

import (
	"context"
	"time"
)

// Location on the solver's integer plane.
type Location struct {
	X int
	Y int
}

// Client node handed to the solver. Its node index is its position in
// Problem.Clients plus one; index 0 is the depot.
type Client struct {
	Location
	Demand int
	Name   string
}

// Directed, weighted edge between node indices.
type Edge struct {
	From     int
	To       int
	Distance int
}

// Problem is the solver input graph. All quantities are whole units.
type Problem struct {
	VehicleCount    int
	VehicleCapacity int
	Depot           Location
	Clients         []Client
	Edges           []Edge
	TimeBudget      time.Duration
}

// Route is one vehicle's ordered visits as 1-based client indices.
type Route []int

// Contract for the external vehicle-routing engine.
type Solver interface {
	// Return one route per used vehicle. Must stop within p.TimeBudget.
	Solve(ctx context.Context, p Problem) ([]Route, error)
}
