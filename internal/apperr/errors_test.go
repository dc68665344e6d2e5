package apperr

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKinds_FixedSeverityAndRetryability(t *testing.T) {
	tests := []struct {
		name      string
		err       AppError
		code      Code
		severity  Severity
		retryable bool
	}{
		{"network", NewNetworkError("down", nil), CodeNetwork, SeverityHigh, true},
		{"timeout", NewTimeoutError("", time.Second, nil), CodeTimeout, SeverityHigh, true},
		{"validation", NewValidationError("bad email", "email"), CodeValidation, SeverityMedium, false},
		{"authentication", NewAuthenticationError("", nil), CodeAuthentication, SeverityHigh, false},
		{"authorization", NewAuthorizationError(""), CodeAuthorization, SeverityHigh, false},
		{"not found", NewAPIError("", 404, "/x", CodeNotFound, nil), CodeNotFound, SeverityLow, false},
		{"rate limit", NewAPIError("", 429, "/x", CodeRateLimit, nil), CodeRateLimit, SeverityMedium, true},
		{"server", NewAPIError("", 503, "/x", CodeServer, nil), CodeServer, SeverityHigh, true},
		{"generic api", NewAPIError("", 418, "/x", "", nil), CodeAPI, SeverityMedium, false},
		{"unknown", Unknown(errors.New("boom")), CodeUnknown, SeverityMedium, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.severity, tt.err.Severity())
			assert.Equal(t, tt.retryable, tt.err.Retryable())
			assert.NotEmpty(t, tt.err.Error(), "every kind must carry a message")
		})
	}
}

func TestTimeoutError_MatchesAsNetworkError(t *testing.T) {
	var err error = fmt.Errorf("get trips: %w", NewTimeoutError("", 2*time.Second, nil))

	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Equal(t, CodeTimeout, netErr.Code())

	var timeoutErr *TimeoutError
	require.True(t, errors.As(err, &timeoutErr))
	assert.Equal(t, 2*time.Second, timeoutErr.Timeout)
	assert.Contains(t, timeoutErr.Error(), "2s")
}

func TestNetworkError_IsNotTimeout(t *testing.T) {
	var timeoutErr *TimeoutError
	assert.False(t, errors.As(NewNetworkError("", nil), &timeoutErr))
}

func TestDetails_ReturnsCopy(t *testing.T) {
	e := NewValidationError("", "email")
	d := e.Details()
	d[DetailField] = "mutated"

	assert.Equal(t, "email", e.Details()[DetailField])
	assert.Equal(t, "Validation failed", e.Error())
}

func TestDetail_SingleKey(t *testing.T) {
	e := NewAPIError("", 429, "/trips", CodeRateLimit, Details{DetailRetryAfter: "30"})

	v, ok := e.Detail(DetailRetryAfter)
	require.True(t, ok)
	assert.Equal(t, "30", v)

	_, ok = e.Detail(DetailField)
	assert.False(t, ok)
}

func TestTimeoutError_UnknownLimit(t *testing.T) {
	e := NewTimeoutError("", 0, nil)

	assert.Equal(t, "Request timed out", e.Error())
	_, ok := e.Detail(DetailTimeout)
	assert.False(t, ok)
}

func TestDetails_EmptyIsNil(t *testing.T) {
	assert.Nil(t, NewAuthorizationError("nope").Details())
	assert.Nil(t, NewValidationError("x", "").Details())
}

func TestAPIError_CarriesStatusAndEndpoint(t *testing.T) {
	e := NewAPIError("", 404, "/trips/my-trips", CodeNotFound, Details{"extra": 1})
	assert.Equal(t, 404, e.Status)
	assert.Equal(t, "/trips/my-trips", e.Endpoint)

	d := e.Details()
	assert.Equal(t, 404, d[DetailStatus])
	assert.Equal(t, "/trips/my-trips", d[DetailEndpoint])
	assert.Equal(t, 1, d["extra"])
	assert.Equal(t, "Request failed with status 404", e.Error())
}

func TestUnwrap_KeepsCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	e := NewNetworkError("", cause)
	assert.ErrorIs(t, e, cause)
}

func TestHelpers(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", NewAPIError("", 500, "/x", CodeServer, nil))

	appErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeServer, appErr.Code())

	assert.True(t, IsRetryable(wrapped))
	assert.True(t, HasCode(wrapped, CodeServer))
	assert.Equal(t, CodeServer, CodeOf(wrapped))

	plain := errors.New("plain")
	_, ok = As(plain)
	assert.False(t, ok)
	assert.False(t, IsRetryable(plain))
	assert.Equal(t, CodeUnknown, CodeOf(plain))
}

func TestNew_EmptyCodeFallsBackToUnknown(t *testing.T) {
	e := New("", "", nil)
	assert.Equal(t, CodeUnknown, e.Code())
	assert.Equal(t, "An unexpected error occurred", e.Error())
}
