package reporting

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/logging"
	"github.com/lmittmann/tint"
)

// Console prints reports in colour for local development.
type Console struct {
	log *slog.Logger
}

func NewConsole(w io.Writer) *Console {
	return &Console{log: slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))}
}

func (c *Console) ReportError(ctx context.Context, r Report) error {
	c.log.Log(ctx, level(r.Severity), r.Message,
		"id", r.ID,
		"type", r.Type,
		"code", r.Code,
		"severity", r.Severity,
		"retryable", r.Retryable,
		"method", r.Context.Method,
		"url", r.Context.URL,
		"status", r.Context.Status,
	)
	if r.Severity == apperr.SeverityCritical && r.Stack != "" {
		c.log.Log(ctx, slog.LevelDebug, "stack", "trace", r.Stack)
	}
	return nil
}

func level(s apperr.Severity) slog.Level {
	switch s {
	case apperr.SeverityLow:
		return slog.LevelInfo
	case apperr.SeverityMedium:
		return slog.LevelWarn
	}
	return slog.LevelError
}

// Log writes reports to the structured application log. It stands in for a
// telemetry backend in production builds.
type Log struct {
	log logging.Logger
}

func NewLog(l logging.Logger) *Log {
	return &Log{log: l.With("component", "error-report")}
}

func (l *Log) ReportError(ctx context.Context, r Report) error {
	l.log.Error(ctx, r.Message,
		"id", r.ID,
		"type", r.Type,
		"code", r.Code,
		"severity", r.Severity,
		"method", r.Context.Method,
		"url", r.Context.URL,
		"status", r.Context.Status,
		"request_id", r.Context.RequestID,
	)
	return nil
}

// Multi fans a report out to every sink. All sinks are tried; their errors
// are joined.
type Multi []Reporter

func (m Multi) ReportError(ctx context.Context, r Report) error {
	var errs []error
	for _, rep := range m {
		if err := rep.ReportError(ctx, r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
