package dto

import (
	"time"

	"vrp-solution-service/internal/domain"
)

type SolveResponse struct {
	Solution domain.RouteAssignment `json:"solution"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HasActualSolutionResponse struct {
	HasActualSolution bool `json:"has_actual_solution"`
}

// SolutionResponse carries the stored payloads verbatim.
type SolutionResponse struct {
	SchemaID         int64     `json:"schema_id"`
	Status           string    `json:"status"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
	Solution         RawJSON   `json:"solution"`
	PreviousSolution RawJSON   `json:"previous_solution"`
}

// RawJSON embeds an already-encoded document; empty encodes as null.
type RawJSON []byte

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func NewSolutionResponse(rec domain.SolutionRecord) SolutionResponse {
	return SolutionResponse{
		SchemaID:         rec.SchemaID,
		Status:           string(rec.Status),
		Version:          rec.Version,
		UpdatedAt:        rec.UpdatedAt,
		Solution:         RawJSON(rec.Payload),
		PreviousSolution: RawJSON(rec.PreviousPayload),
	}
}
