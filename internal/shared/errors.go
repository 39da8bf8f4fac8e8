package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken indicates API token authentication failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoData indicates a report pass found no non-empty series at all.
	ErrNoData = errors.New("no report data")
)
