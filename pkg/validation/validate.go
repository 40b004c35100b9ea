package validation

import (
	"errors"
	"fmt"

	"ingestd/pkg/models"
)

// ErrNotFound is returned by lookups for unknown ingestion ids.
var ErrNotFound = errors.New("ingestion not found")

// ValidationError describes a malformed admission request. It is raised
// before any state is created, so a rejected request never leaves a partial
// ingestion behind.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ValidateCreateRequest checks an admission request: ids must be non-empty
// with every id in [models.MinID, models.MaxID], and priority must be one of
// HIGH/MEDIUM/LOW. The core admission path assumes input that passed here.
func ValidateCreateRequest(ids []int64, priority models.Priority) error {
	if len(ids) == 0 {
		return &ValidationError{Field: "ids", Reason: "must be a non-empty list"}
	}
	for _, id := range ids {
		if id < models.MinID || id > models.MaxID {
			return &ValidationError{
				Field:  "ids",
				Reason: fmt.Sprintf("id %d out of range [%d, %d]", id, models.MinID, models.MaxID),
			}
		}
	}
	if !priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "must be one of HIGH, MEDIUM, LOW"}
	}
	return nil
}
