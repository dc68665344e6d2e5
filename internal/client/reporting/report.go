// Package reporting delivers structured error reports to pluggable sinks.
package reporting

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/google/uuid"
)

// Report is the structured description of one failure.
type Report struct {
	ID        string          `json:"id"`
	Message   string          `json:"message"`
	Stack     string          `json:"stack,omitempty"`
	Type      string          `json:"type"`
	Code      apperr.Code     `json:"code"`
	Severity  apperr.Severity `json:"severity"`
	Retryable bool            `json:"retryable"`
	Details   apperr.Details  `json:"details,omitempty"`
	Context   Context         `json:"context"`
}

// Context describes the request during which the failure happened.
type Context struct {
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"userAgent,omitempty"`
	URL       string    `json:"url,omitempty"`
	Method    string    `json:"method,omitempty"`
	Status    int       `json:"status,omitempty"`
	RequestID string    `json:"requestId,omitempty"`
}

// Reporter accepts reports. Implementations must be safe for concurrent use.
type Reporter interface {
	ReportError(ctx context.Context, r Report) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, r Report) error

func (f ReporterFunc) ReportError(ctx context.Context, r Report) error {
	return f(ctx, r)
}

// Nop discards every report.
var Nop Reporter = ReporterFunc(func(context.Context, Report) error { return nil })

// New builds a report for err. A non-AppError is reported as UNKNOWN_ERROR.
func New(err error, rc Context) Report {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Unknown(err)
	}
	if rc.Timestamp.IsZero() {
		rc.Timestamp = time.Now().UTC()
	}
	if rc.Status == 0 {
		var api *apperr.APIError
		if errors.As(err, &api) {
			rc.Status = api.Status
		}
	}

	return Report{
		ID:        uuid.NewString(),
		Message:   appErr.Error(),
		Stack:     string(debug.Stack()),
		Type:      typeName(appErr),
		Code:      appErr.Code(),
		Severity:  appErr.Severity(),
		Retryable: appErr.Retryable(),
		Details:   appErr.Details(),
		Context:   rc,
	}
}

func typeName(err apperr.AppError) string {
	switch err.(type) {
	case *apperr.TimeoutError:
		return "TimeoutError"
	case *apperr.NetworkError:
		return "NetworkError"
	case *apperr.ValidationError:
		return "ValidationError"
	case *apperr.AuthenticationError:
		return "AuthenticationError"
	case *apperr.AuthorizationError:
		return "AuthorizationError"
	case *apperr.APIError:
		return "APIError"
	case *apperr.Base:
		return "AppError"
	}
	return fmt.Sprintf("%T", err)
}
