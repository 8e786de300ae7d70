package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the requester lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUnsupportedBackend indicates the configured search backend is unknown.
	// It is a configuration error and is fatal at startup.
	ErrUnsupportedBackend = errors.New("unsupported search backend")

	// ErrEngineUnavailable indicates the index engine could not serve a request
	ErrEngineUnavailable = errors.New("index engine unavailable")

	// ErrEngineClosed indicates the engine registry has been shut down
	ErrEngineClosed = errors.New("index engine closed")

	// ErrQueueFull indicates the indexing queue cannot accept more jobs
	ErrQueueFull = errors.New("indexing queue full")

	// ErrJobNotFound indicates no job with the given ID is known
	ErrJobNotFound = errors.New("job not found")

	// ErrLockHeld indicates another process holds the requested lock
	ErrLockHeld = errors.New("lock held by another process")

	// ErrExtractionUnsupported indicates no text extractor handles a MIME type
	ErrExtractionUnsupported = errors.New("text extraction unsupported")

	// ErrExcludedProperty indicates a property is on the exclusion list
	ErrExcludedProperty = errors.New("property excluded from indexing")
)

// MappingError reports that a single content unit could not be turned into
// an index record. The unit is skipped; the job carries on.
type MappingError struct {
	Unit string
	Err  error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("map %s: %v", e.Unit, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// NewMappingError wraps err for the unit identified by ref.
func NewMappingError(ref ContentRef, err error) *MappingError {
	return &MappingError{Unit: ref.String(), Err: err}
}

// IsMappingError reports whether err is (or wraps) a MappingError.
func IsMappingError(err error) bool {
	var me *MappingError
	return errors.As(err, &me)
}
