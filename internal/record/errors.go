package record

import (
	"errors"
	"fmt"
)

var (
	ErrMissingField     = errors.New("missing required field")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidPosition  = errors.New("invalid position")
	ErrCoordinateRange  = errors.New("coordinate out of range")
)

// ParseError reports why a single row was dropped.
// Row is the 1-based index of the row in its input batch.
type ParseError struct {
	Row   int
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("row %d: field %s: %v", e.Row, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Reason returns a short label for the failure class, used for metrics
func (e *ParseError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrMissingField):
		return "missing_field"
	case errors.Is(e.Err, ErrInvalidTimestamp):
		return "invalid_timestamp"
	case errors.Is(e.Err, ErrCoordinateRange):
		return "coordinate_range"
	case errors.Is(e.Err, ErrInvalidPosition):
		return "invalid_position"
	default:
		return "unknown"
	}
}
