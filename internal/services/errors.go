package services

import "errors"

// Reference errors: a stale client or bad link, not bad input.
var (
	ErrLeadNotFound  = errors.New("lead not found")
	ErrStageNotFound = errors.New("stage not found")
)

// ValidationError is a client-fixable rejection. It carries the full
// missing-field list when the checklist fails so the caller can prompt for
// every gap at once. These are never logged as system errors.
type ValidationError struct {
	Message       string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
