package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResults is returned when a lookup succeeds but matches nothing.
	ErrNoResults = errors.New("no results found")
	// ErrNoIsochrone is returned when the isochrone provider returns no features.
	ErrNoIsochrone = errors.New("no isochrone data returned")
	// ErrDatasetsNotReady is returned while centroid and census data are still loading.
	ErrDatasetsNotReady = errors.New("datasets not loaded")
	// ErrInvalidRequest wraps caller input validation failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrServiceDisabled is returned when an integration has no credentials configured.
	ErrServiceDisabled = errors.New("service disabled")
)

// UpstreamError reports a non-success response from a third-party API.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API error: status %d: %s", e.Service, e.StatusCode, e.Body)
}

// invalidf builds an ErrInvalidRequest with detail.
func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
