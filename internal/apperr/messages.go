package apperr

import "errors"

// User-facing copy, one fixed message per error kind.
const (
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgForbidden      = "You don't have permission to perform this action."
	MsgConnection     = "Please check your connection and try again."
	MsgTimeout        = "The request took too long. Please check your connection and try again."
	MsgNotFound       = "The requested item could not be found."
	MsgConflict       = "This item was changed by someone else. Please refresh and try again."
	MsgRateLimit      = "Too many requests. Please wait a moment and try again."
	MsgServer         = "Something went wrong on our side. Please try again later."
	MsgCancelled      = "The request was cancelled."
	MsgGeneric        = "Something went wrong. Please try again."
	MsgInvalidInput   = "Please check the highlighted field and try again."
	MsgUnexpected     = "An unexpected error occurred."
)

// UserMessage maps err to the message shown to the user. Validation errors
// keep their own (field specific) message since it is shown inline.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		timeoutErr *TimeoutError
		netErr     *NetworkError
		valErr     *ValidationError
		authnErr   *AuthenticationError
		authzErr   *AuthorizationError
		apiErr     *APIError
	)

	switch {
	case errors.As(err, &timeoutErr):
		return MsgTimeout
	case errors.As(err, &netErr):
		return MsgConnection
	case errors.As(err, &valErr):
		if valErr.Error() != "" {
			return valErr.Error()
		}
		return MsgInvalidInput
	case errors.As(err, &authnErr):
		return MsgSessionExpired
	case errors.As(err, &authzErr):
		return MsgForbidden
	case errors.As(err, &apiErr):
		switch apiErr.Code() {
		case CodeNotFound:
			return MsgNotFound
		case CodeConflict:
			return MsgConflict
		case CodeRateLimit:
			return MsgRateLimit
		case CodeServer:
			return MsgServer
		case CodeRequestCancelled:
			return MsgCancelled
		}
		return MsgGeneric
	}
	return MsgUnexpected
}
