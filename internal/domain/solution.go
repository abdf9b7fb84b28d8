package domain

import (
	"fmt"
	"time"
)

// Lifecycle status of a cached solution.
type SolutionStatus string

const (
	StatusActual   SolutionStatus = "actual"
	StatusObsolete SolutionStatus = "obsolete"
)

func ParseSolutionStatus(s string) (SolutionStatus, error) {
	switch SolutionStatus(s) {
	case StatusActual, StatusObsolete:
		return SolutionStatus(s), nil
	}
	return "", fmt.Errorf("parse solution status: unknown status %q", s)
}

// SolutionRecord is the persisted, versioned solution for one schema id.
// Version starts at 1 and grows by one on every SetSolution. PreviousPayload
// holds the payload superseded by the latest SetSolution, if any.
type SolutionRecord struct {
	SchemaID        int64
	Payload         []byte
	Status          SolutionStatus
	Version         int64
	PreviousPayload []byte
	UpdatedAt       time.Time
}
