// Package classify converts raw transport outcomes into exactly one
// apperr.AppError.
//
// Every transport (net/http, gRPC, local validation) is first adapted to the
// normalized Response shape, so there is a single mapping table:
//
//	400, 422            -> *apperr.ValidationError (field from the body)
//	401                 -> *apperr.AuthenticationError
//	403                 -> *apperr.AuthorizationError
//	404                 -> *apperr.APIError NOT_FOUND
//	409                 -> *apperr.APIError CONFLICT
//	429                 -> *apperr.APIError RATE_LIMIT (details.retryAfter)
//	500, 502, 503, 504  -> *apperr.APIError SERVER_ERROR
//	other non-2xx       -> *apperr.APIError API_ERROR
//
// Transport failures without a response go through Transport. Classification
// holds no state: the same input always yields an equivalent error.
package classify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/carpool/internal/apperr"
)

// Response is the normalized shape every transport is adapted to.
type Response struct {
	Status   int
	Body     []byte
	Header   http.Header
	Endpoint string
}

// Success reports whether the status is 2xx.
func (r Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Classify maps a non-2xx response to its AppError kind. Calling it with a
// 2xx response is a programming error and yields an UNKNOWN_ERROR.
func Classify(r Response) apperr.AppError {
	body := parseBody(r.Body)

	switch r.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.NewValidationError(body.message, body.field)

	case http.StatusUnauthorized:
		return apperr.NewAuthenticationError(body.message, nil)

	case http.StatusForbidden:
		return apperr.NewAuthorizationError(body.message)

	case http.StatusNotFound:
		return apperr.NewAPIError(body.orDefault("Resource not found"), r.Status, r.Endpoint, apperr.CodeNotFound, nil)

	case http.StatusConflict:
		return apperr.NewAPIError(body.orDefault("Resource conflict"), r.Status, r.Endpoint, apperr.CodeConflict, nil)

	case http.StatusTooManyRequests:
		var details apperr.Details
		if ra := r.Header.Get("Retry-After"); ra != "" {
			details = apperr.Details{apperr.DetailRetryAfter: ra}
		}
		return apperr.NewAPIError(body.orDefault("Too many requests"), r.Status, r.Endpoint, apperr.CodeRateLimit, details)

	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return apperr.NewAPIError(body.orDefault("Server error"), r.Status, r.Endpoint, apperr.CodeServer, nil)
	}

	if r.Success() {
		return apperr.New(apperr.CodeUnknown, fmt.Sprintf("unexpected classification of status %d", r.Status), nil)
	}
	return apperr.NewAPIError(body.message, r.Status, r.Endpoint, apperr.CodeAPI, nil)
}

type errorBody struct {
	message string
	field   string
}

func (b errorBody) orDefault(s string) string {
	if b.message != "" {
		return b.message
	}
	return s
}

// parseBody pulls a message and a field name out of the error envelopes the
// backend uses:
//
//	{"message": "...", "field": "email"}
//	{"success": false, "error": "..."}
//	{"error": {"message": "...", "field": "email"}}
//	{"message": "...", "details": {"field": "email"}}
//	{"errors": [{"field": "email", "message": "..."}]}
func parseBody(raw []byte) errorBody {
	var out errorBody
	if len(raw) == 0 {
		return out
	}

	var env struct {
		Message string          `json:"message"`
		Field   string          `json:"field"`
		Error   json.RawMessage `json:"error"`
		Details json.RawMessage `json:"details"`
		Errors  []struct {
			Field   string `json:"field"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		text := strings.TrimSpace(string(raw))
		if len(text) > 0 && len(text) <= 200 && !strings.HasPrefix(text, "<") {
			out.message = text
		}
		return out
	}

	out.message = env.Message
	out.field = env.Field

	if len(env.Error) > 0 {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			if out.message == "" {
				out.message = s
			}
		} else {
			var nested struct {
				Message string `json:"message"`
				Field   string `json:"field"`
			}
			if err := json.Unmarshal(env.Error, &nested); err == nil {
				if out.message == "" {
					out.message = nested.Message
				}
				if out.field == "" {
					out.field = nested.Field
				}
			}
		}
	}

	if out.field == "" && len(env.Details) > 0 {
		var d struct {
			Field string `json:"field"`
		}
		if err := json.Unmarshal(env.Details, &d); err == nil {
			out.field = d.Field
		}
	}
	if len(env.Errors) > 0 {
		if out.field == "" {
			out.field = env.Errors[0].Field
		}
		if out.message == "" {
			out.message = env.Errors[0].Message
		}
	}
	return out
}
