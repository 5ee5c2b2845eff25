// Package apperr defines the sentinel errors shared across the application.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrGateNotMet       = errors.New("not enough logged days for analysis")
	ErrStorageFull      = errors.New("storage full")
	ErrImportValidation = errors.New("invalid import format")
	ErrAnalysisInFlight = errors.New("analysis already in progress")

	ErrProviderAuth        = errors.New("provider authentication failed")
	ErrProviderRateLimited = errors.New("provider rate limit exceeded")
	ErrProviderMalformed   = errors.New("provider returned malformed response")
	ErrProviderTransport   = errors.New("provider request failed")
)
