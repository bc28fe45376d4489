package utils

import (
	"errors"
	"fmt"
)

// Common application errors used across services.
var (
	ErrInvalidCredentials = errors.New("INVALID_CREDENTIALS")
	ErrAccountInactive    = errors.New("ACCOUNT_INACTIVE")
	ErrInvalidToken       = errors.New("INVALID_TOKEN")
	ErrAllSourcesFailed   = errors.New("ALL_SOURCES_FAILED")
)

// ExternalAPIError describes a failed call to an upstream data source.
// StatusCode is zero for transport-level failures.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
}

func (e *ExternalAPIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Source, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// NewExternalAPIError constructs an ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message}
}

// IsClientError reports whether err is an upstream 4xx rejection that should
// not be treated as a systemic source failure. Rate limiting (429) is systemic.
func IsClientError(err error) bool {
	var apiErr *ExternalAPIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.StatusCode {
	case 400, 401, 403:
		return true
	}
	return false
}
