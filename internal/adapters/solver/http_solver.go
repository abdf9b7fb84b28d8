package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"
)

// HTTPSolver implements ports.Solver against a remote routing engine.
//
// Each Solve is bounded by the problem's time budget plus a grace period for
// transport. Transient failures are retried inside that bound. Every error
// wraps domain.ErrExternalSolver.
type HTTPSolver struct {
	session     *http.Client
	baseURL     string
	apiKey      string
	grace       time.Duration
	maxAttempts int
	backoff     time.Duration
}

type HTTPOption func(*HTTPSolver)

func WithAPIKey(key string) HTTPOption {
	return func(h *HTTPSolver) { h.apiKey = key }
}

func WithGrace(d time.Duration) HTTPOption {
	return func(h *HTTPSolver) { h.grace = d }
}

func WithRetry(maxAttempts int, backoff time.Duration) HTTPOption {
	return func(h *HTTPSolver) {
		if maxAttempts > 0 {
			h.maxAttempts = maxAttempts
		}
		if backoff > 0 {
			h.backoff = backoff
		}
	}
}

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPSolver) { h.session = c }
}

func NewHTTPSolver(baseURL string, opts ...HTTPOption) (*HTTPSolver, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("solver base url is empty")
	}

	h := &HTTPSolver{
		session:     &http.Client{Timeout: 60 * time.Second},
		baseURL:     baseURL,
		grace:       5 * time.Second,
		maxAttempts: 4,
		backoff:     200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h, nil
}

type wireLocation struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type wireClient struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Demand int    `json:"demand"`
	Name   string `json:"name"`
}

type wireEdge struct {
	From     int `json:"from"`
	To       int `json:"to"`
	Distance int `json:"distance"`
}

type solveRequest struct {
	VehicleCount    int          `json:"vehicle_count"`
	VehicleCapacity int          `json:"vehicle_capacity"`
	Depot           wireLocation `json:"depot"`
	Clients         []wireClient `json:"clients"`
	Edges           []wireEdge   `json:"edges"`
	TimeBudgetMS    int64        `json:"time_budget_ms"`
}

type solveResponse struct {
	Routes [][]int `json:"routes"`
}

func newSolveRequest(p ports.Problem) solveRequest {
	req := solveRequest{
		VehicleCount:    p.VehicleCount,
		VehicleCapacity: p.VehicleCapacity,
		Depot:           wireLocation{X: p.Depot.X, Y: p.Depot.Y},
		Clients:         make([]wireClient, 0, len(p.Clients)),
		Edges:           make([]wireEdge, 0, len(p.Edges)),
		TimeBudgetMS:    p.TimeBudget.Milliseconds(),
	}
	for _, c := range p.Clients {
		req.Clients = append(req.Clients, wireClient{X: c.X, Y: c.Y, Demand: c.Demand, Name: c.Name})
	}
	for _, e := range p.Edges {
		req.Edges = append(req.Edges, wireEdge(e))
	}
	return req
}

func (h *HTTPSolver) Solve(ctx context.Context, p ports.Problem) (_ []ports.Route, err error) {
	defer obs.Time(ctx, "solver.http.Solve")(&err)

	if p.TimeBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.TimeBudget+h.grace)
		defer cancel()
	}

	body, err := json.Marshal(newSolveRequest(p))
	if err != nil {
		return nil, fmt.Errorf("http solver: marshal request: %w: %w", domain.ErrExternalSolver, err)
	}

	url := h.baseURL + "/solve"
	resp, err := h.doWithRetry(ctx, func() (*http.Request, error) {
		return h.newRequest(ctx, http.MethodPost, url, bytes.NewReader(body))
	})
	if err != nil {
		return nil, fmt.Errorf("http solver: post %s: %w: %w", url, domain.ErrExternalSolver, err)
	}
	defer resp.Body.Close()

	var out solveResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("http solver: decode response: %w: %w", domain.ErrExternalSolver, err)
	}
	// an empty list decodes to a non-nil slice
	if out.Routes == nil {
		return nil, fmt.Errorf("http solver: response has no routes: %w", domain.ErrExternalSolver)
	}

	routes := make([]ports.Route, 0, len(out.Routes))
	for _, r := range out.Routes {
		routes = append(routes, ports.Route(r))
	}

	return routes, nil
}
