package apperr

import (
	"fmt"
	"time"
)

// NetworkError reports a transport failure where no response was received.
type NetworkError struct {
	Base
}

func NewNetworkError(message string, cause error) *NetworkError {
	return &NetworkError{Base: newBase(message, "Network request failed", CodeNetwork, SeverityHigh, true, nil, cause)}
}

// TimeoutError is a NetworkError raised when a request exceeds its timeout.
// errors.As with a **NetworkError target matches it.
type TimeoutError struct {
	NetworkError
	Timeout time.Duration
}

// NewTimeoutError builds a TimeoutError. A zero timeout means the limit is
// unknown and is left out of the message and details.
func NewTimeoutError(message string, timeout time.Duration, cause error) *TimeoutError {
	var details Details
	if timeout > 0 {
		details = Details{DetailTimeout: timeout.String()}
	}
	if message == "" {
		message = "Request timed out"
		if timeout > 0 {
			message = fmt.Sprintf("Request timed out after %s", timeout)
		}
	}
	return &TimeoutError{
		NetworkError: NetworkError{Base: newBase(message, "", CodeTimeout, SeverityHigh, true, details, cause)},
		Timeout:      timeout,
	}
}

// As lets a TimeoutError be matched as its parent kind.
func (e *TimeoutError) As(target any) bool {
	if t, ok := target.(**NetworkError); ok {
		*t = &e.NetworkError
		return true
	}
	return false
}

// ValidationError reports input rejected by the server or by local checks.
type ValidationError struct {
	Base
	Field string
}

func NewValidationError(message, field string) *ValidationError {
	var d Details
	if field != "" {
		d = Details{DetailField: field}
	}
	return &ValidationError{
		Base:  newBase(message, "Validation failed", CodeValidation, SeverityMedium, false, d, nil),
		Field: field,
	}
}

// AuthenticationError reports a missing or invalid session.
type AuthenticationError struct {
	Base
}

func NewAuthenticationError(message string, cause error) *AuthenticationError {
	return &AuthenticationError{Base: newBase(message, "Authentication required", CodeAuthentication, SeverityHigh, false, nil, cause)}
}

// AuthorizationError reports that the session lacks permission.
type AuthorizationError struct {
	Base
}

func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Base: newBase(message, "Permission denied", CodeAuthorization, SeverityHigh, false, nil, nil)}
}

// APIError is the catch-all for failed HTTP calls. Retryable only for 5xx and
// 429.
type APIError struct {
	Base
	Status   int
	Endpoint string
}

// NewAPIError builds an APIError. An empty code defaults to API_ERROR.
func NewAPIError(message string, status int, endpoint string, code Code, details Details) *APIError {
	if code == "" {
		code = CodeAPI
	}
	d := Details{}
	for k, v := range details {
		d[k] = v
	}
	if status != 0 {
		d[DetailStatus] = status
	}
	if endpoint != "" {
		d[DetailEndpoint] = endpoint
	}
	fallback := "Request failed"
	if status != 0 {
		fallback = fmt.Sprintf("Request failed with status %d", status)
	}
	return &APIError{
		Base:     newBase(message, fallback, code, apiSeverity(status, code), apiRetryable(status), d, nil),
		Status:   status,
		Endpoint: endpoint,
	}
}

func apiSeverity(status int, code Code) Severity {
	switch {
	case status >= 500:
		return SeverityHigh
	case code == CodeNotFound, code == CodeRequestCancelled:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

func apiRetryable(status int) bool {
	return status >= 500 || status == 429
}
