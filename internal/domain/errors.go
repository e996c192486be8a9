package domain

import "errors"

// Domain errors
var (
	ErrMissingFields    = errors.New("name and score are required")
	ErrInvalidScore     = errors.New("score must be a valid number")
	ErrScoreOutOfRange  = errors.New("invalid score")
	ErrInvalidName      = errors.New("invalid name, avoid links or \"@\"")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInstanceNotFound = errors.New("game instance not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrInstanceNotFound)
}

// IsValidationError checks if an error is a rejected-input error that
// should surface to the caller as a bad request
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidScore) ||
		errors.Is(err, ErrScoreOutOfRange) ||
		errors.Is(err, ErrInvalidName) ||
		errors.Is(err, ErrInvalidTimeframe)
}
