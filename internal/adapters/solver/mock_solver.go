package solver

import (
	"context"
	"sync"

	"vrp-solution-service/internal/ports"
)

// MockSolver returns canned routes and counts calls.
type MockSolver struct {
	mu       sync.Mutex
	routes   []ports.Route
	err      error
	calls    int
	problems []ports.Problem

	// Block, when set, is waited on before answering.
	Block chan struct{}
}

func NewMockSolver(routes []ports.Route, err error) *MockSolver {
	return &MockSolver{routes: routes, err: err}
}

func (m *MockSolver) Solve(ctx context.Context, p ports.Problem) ([]ports.Route, error) {
	m.mu.Lock()
	m.calls++
	m.problems = append(m.problems, p)
	block := m.Block
	m.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.err != nil {
		return nil, m.err
	}

	out := make([]ports.Route, len(m.routes))
	for i, r := range m.routes {
		out[i] = append(ports.Route(nil), r...)
	}
	return out, nil
}

func (m *MockSolver) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastProblem returns the most recent input, or false if Solve was never called.
func (m *MockSolver) LastProblem() (ports.Problem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.problems) == 0 {
		return ports.Problem{}, false
	}
	return m.problems[len(m.problems)-1], true
}
