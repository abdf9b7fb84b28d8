package repositories

import (
	"errors"
	"fmt"

	"vrp-solution-service/internal/domain"
	"vrp-solution-service/internal/platform/obs"
)

var errNilDB = fmt.Errorf("solution store: db is nil: %w", domain.ErrStoreUnavailable)

// unavailable tags a driver failure with domain.ErrStoreUnavailable while keeping the cause.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func recordOp(op string, errp *error) {
	result := "ok"
	if errp != nil && *errp != nil {
		result = "error"
		if errors.Is(*errp, domain.ErrNotFound) {
			result = "not_found"
		}
	}
	obs.StoreOps.WithLabelValues(op, result).Inc()
}
