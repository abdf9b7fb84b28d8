package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vrp-solution-service/internal/adapters/repositories"
	"vrp-solution-service/internal/adapters/solver"
	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/logger"
	"vrp-solution-service/internal/platform/obs"
	"vrp-solution-service/internal/ports"
	"vrp-solution-service/internal/services"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const scenarioBody = `{
	"user_id": 1,
	"id": 7,
	"workstations": [
		{"name": "A", "demand": 2, "depot_distance": 5, "x": 0, "y": 0},
		{"name": "B", "demand": 3, "depot_distance": 8, "x": 1, "y": 1}
	],
	"transportation_costs": [
		{
			"from_station": {"name": "A", "demand": 2, "depot_distance": 5, "x": 0, "y": 0},
			"to_station": {"name": "B", "demand": 3, "depot_distance": 8, "x": 1, "y": 1},
			"cost": 4
		}
	],
	"amr_parameters": {"quantity": 1, "capacity": 10}
}`

type testServer struct {
	handler http.Handler
	store   *repositories.MemorySolutionStore
	solver  *solver.MockSolver
}

func newTestServer(t *testing.T, routes []ports.Route, solveErr error) *testServer {
	t.Helper()
	obs.RegisterDefault()

	store := repositories.NewMemorySolutionStore()
	mock := solver.NewMockSolver(routes, solveErr)
	d := services.NewDispatcher(store, mock, services.DispatcherOptions{TimeBudget: time.Second, SingleFlight: true})

	return &testServer{
		handler: NewRouter(d, RouterConfig{ReadyTimeout: time.Second}),
		store:   store,
		solver:  mock,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	}
	return rec, out
}

func TestSolveFlow(t *testing.T) {
	s := newTestServer(t, []ports.Route{{1, 2}}, nil)

	rec, out := s.do(t, http.MethodGet, "/has_actual_solution/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, out["has_actual_solution"])

	rec, _ = s.do(t, http.MethodPost, "/solve", scenarioBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"solution":{"0":["A","B"]}}`, rec.Body.String())
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, _ = s.do(t, http.MethodPost, "/solve", scenarioBody)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"solution":{"0":["A","B"]}}`, rec.Body.String())
	require.Equal(t, 1, s.solver.Calls())

	rec, out = s.do(t, http.MethodGet, "/has_actual_solution/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, out["has_actual_solution"])

	rec, out = s.do(t, http.MethodPut, "/mark_solution_obsolete/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Solution for schema 7 marked as obsolete", out["message"])

	rec, out = s.do(t, http.MethodPut, "/mark_solution_obsolete/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "No actual solution for schema 7", out["message"])

	rec, out = s.do(t, http.MethodGet, "/solution/7", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "obsolete", out["status"])
	require.EqualValues(t, 1, out["version"])
	require.Nil(t, out["previous_solution"])
	require.Equal(t, map[string]any{"0": []any{"A", "B"}}, out["solution"])
}

func TestMarkObsoleteUnknown(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, out := s.do(t, http.MethodPut, "/mark_solution_obsolete/99", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "No actual solution for schema 99", out["message"])
}

func TestSolveRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "malformed", body: `{`, code: http.StatusBadRequest},
		{name: "unknown field", body: `{"id":1,"user_id":1,"extra":true}`, code: http.StatusBadRequest},
		{name: "missing id", body: `{"user_id":1}`, code: http.StatusBadRequest},
		{name: "missing user id", body: `{"id":1}`, code: http.StatusBadRequest},
		{name: "nameless station", body: `{"id":1,"user_id":1,"workstations":[{"demand":1,"depot_distance":1,"x":0,"y":0}]}`, code: http.StatusBadRequest},
		{name: "two objects", body: `{"id":1,"user_id":1}{}`, code: http.StatusBadRequest},
		{
			name: "dangling transport cost",
			body: `{"id":1,"user_id":1,
				"workstations":[{"name":"A","demand":1,"depot_distance":1,"x":0,"y":0}],
				"transportation_costs":[{"from_station":{"name":"A","demand":1,"depot_distance":1,"x":0,"y":0},
					"to_station":{"name":"Z","demand":1,"depot_distance":1,"x":0,"y":0},"cost":1}],
				"amr_parameters":{"quantity":1,"capacity":5}}`,
			code: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, []ports.Route{{1}}, nil)

			rec, out := s.do(t, http.MethodPost, "/solve", tt.body)
			require.Equal(t, tt.code, rec.Code, rec.Body.String())
			require.NotEmpty(t, out["error"])
			require.Zero(t, s.solver.Calls())
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	s := newTestServer(t, nil, domain.ErrExternalSolver)

	rec, out := s.do(t, http.MethodPost, "/solve", scenarioBody)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.NotEmpty(t, out["error"])

	rec, _ = s.do(t, http.MethodGet, "/solution/7", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/has_actual_solution/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/solve", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type downStore struct {
	*repositories.MemorySolutionStore
}

func (downStore) Ping(context.Context) error { return domain.ErrStoreUnavailable }

func (downStore) HasActualSolution(context.Context, int64) (bool, error) {
	return false, domain.ErrStoreUnavailable
}

func TestStoreUnavailable(t *testing.T) {
	obs.RegisterDefault()
	store := downStore{repositories.NewMemorySolutionStore()}
	d := services.NewDispatcher(store, solver.NewMockSolver(nil, nil), services.DispatcherOptions{})
	h := NewRouter(d, RouterConfig{})

	for _, path := range []string{"/ready", "/has_actual_solution/1"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestHealthReadyMetrics(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec, out := s.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", out["status"])

	rec, out = s.do(t, http.MethodGet, "/ready", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ready", out["status"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRequestIDPropagates(t *testing.T) {
	s := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get("X-Request-Id"))
}

func TestRateLimit(t *testing.T) {
	obs.RegisterDefault()
	d := services.NewDispatcher(repositories.NewMemorySolutionStore(), solver.NewMockSolver(nil, nil), services.DispatcherOptions{})
	h := NewRouter(d, RouterConfig{RateRPS: 1, RateBurst: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		codes = append(codes, rec.Code)
	}
	require.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other clients keep their own budget
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "10.0.0.9:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitedRequestsAreLoggedAndCounted(t *testing.T) {
	obs.RegisterDefault()
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	d := services.NewDispatcher(repositories.NewMemorySolutionStore(), solver.NewMockSolver(nil, nil), services.DispatcherOptions{})
	h := NewRouter(d, RouterConfig{RateRPS: 1, RateBurst: 1})

	limited := obs.HTTPRequests.WithLabelValues(http.MethodGet, "unmatched", "429")
	before := testutil.ToFloat64(limited)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.42:5000"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Equal(t, before+1, testutil.ToFloat64(limited))

	var statuses []int64
	for _, e := range logs.FilterMessage("http request").AllUntimed() {
		statuses = append(statuses, e.ContextMap()["status"].(int64))
	}
	require.Equal(t, []int64{http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestIPLimiterSweepsIdleVisitors(t *testing.T) {
	l := newIPLimiter(1, 1)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	require.True(t, l.allow("a"))
	require.False(t, l.allow("a"))

	now = now.Add(11 * time.Minute)
	require.True(t, l.allow("b"))
	require.NotContains(t, l.visitors, "a")
}
