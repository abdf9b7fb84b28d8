package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"vrp-solution-service/internal/api/dto"
	"vrp-solution-service/internal/domain"
)

const maxSchemaBytes = 1 << 20

// SolutionService is the slice of services.Dispatcher the handlers need.
type SolutionService interface {
	Solve(ctx context.Context, schema domain.Schema) (domain.RouteAssignment, error)
	ObsoleteSolution(ctx context.Context, schemaID int64) (bool, error)
	HasActualSolution(ctx context.Context, schemaID int64) (bool, error)
	Solution(ctx context.Context, schemaID int64) (domain.SolutionRecord, error)
}

type SolutionHandler struct {
	Service SolutionService
}

func (h *SolutionHandler) MarkObsolete(w http.ResponseWriter, r *http.Request) {
	id, err := schemaIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	marked, err := h.Service.ObsoleteSolution(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "mark_solution_obsolete", err)
		return
	}

	msg := fmt.Sprintf("Solution for schema %d marked as obsolete", id)
	if !marked {
		msg = fmt.Sprintf("No actual solution for schema %d", id)
	}
	writeJSON(w, r, http.StatusOK, dto.MessageResponse{Message: msg})
}

func (h *SolutionHandler) HasActual(w http.ResponseWriter, r *http.Request) {
	id, err := schemaIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	has, err := h.Service.HasActualSolution(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "has_actual_solution", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.HasActualSolutionResponse{HasActualSolution: has})
}

// Solve returns the cached solution for the posted schema, computing it on a miss.
func (h *SolutionHandler) Solve(w http.ResponseWriter, r *http.Request) {
	var req dto.SchemaRequest

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSchemaBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return
	}

	schema, err := req.ToDomain()
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	solution, err := h.Service.Solve(r.Context(), schema)
	if err != nil {
		writeServiceError(w, r, "solve", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.SolveResponse{Solution: solution})
}

// Get returns the stored solution record for a schema in any status.
func (h *SolutionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := schemaIDParam(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.Service.Solution(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, "solution", err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSolutionResponse(rec))
}
