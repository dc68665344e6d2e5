package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/buildinfo"
	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/classify"
	"github.com/dmitrijs2005/carpool/internal/client/metrics"
	"github.com/dmitrijs2005/carpool/internal/client/reporting"
	"github.com/dmitrijs2005/carpool/internal/logging"
	"github.com/dmitrijs2005/carpool/internal/retry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	DefaultReadTimeout  = 10 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	// DefaultReportTimeout bounds the delivery of one error report.
	DefaultReportTimeout = 5 * time.Second

	DefaultLoginPath  = "/auth/login"
	DefaultLogoutPath = "/auth/logout"

	RequestIDHeader = "X-Request-ID"
)

// Client is the net/http implementation of API.
type Client struct {
	baseURL      string
	http         *http.Client
	auth         *auth.Coordinator
	reporter     reporting.Reporter
	metrics      *metrics.Collector
	log          logging.Logger
	validate     *validator.Validate
	readTimeout  time.Duration
	writeTimeout time.Duration
	reportWait   time.Duration
	userAgent    string
	loginPath    string
	logoutPath   string
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithReporter(r reporting.Reporter) Option {
	return func(c *Client) { c.reporter = r }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithValidator replaces the request body validator. nil disables
// client-side validation.
func WithValidator(v *validator.Validate) Option {
	return func(c *Client) { c.validate = v }
}

// WithTimeouts sets the defaults for reads (GET) and writes (everything
// else). Non-positive values keep the current default.
func WithTimeouts(read, write time.Duration) Option {
	return func(c *Client) {
		if read > 0 {
			c.readTimeout = read
		}
		if write > 0 {
			c.writeTimeout = write
		}
	}
}

// WithReportTimeout bounds how long a failing call waits for its error
// report. Delivery itself goes on in the background up to the same limit.
// Non-positive values keep the default.
func WithReportTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.reportWait = d
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithAuthPaths overrides the login and logout endpoints.
func WithAuthPaths(login, logout string) Option {
	return func(c *Client) {
		if login != "" {
			c.loginPath = login
		}
		if logout != "" {
			c.logoutPath = logout
		}
	}
}

// New returns a Client for the API rooted at baseURL. coord owns the session
// and is shared with any other client talking to the same backend.
func New(baseURL string, coord *auth.Coordinator, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{},
		auth:         coord,
		reporter:     reporting.Nop,
		log:          logging.Nop(),
		validate:     NewValidator(),
		readTimeout:  DefaultReadTimeout,
		writeTimeout: DefaultWriteTimeout,
		reportWait:   DefaultReportTimeout,
		userAgent:    buildinfo.UserAgent(),
		loginPath:    DefaultLoginPath,
		logoutPath:   DefaultLogoutPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewValidator returns a validator reporting fields by their JSON names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodGet, path, nil, out, opts)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPost, path, body, out, opts)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPut, path, body, out, opts)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodPatch, path, body, out, opts)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...CallOption) error {
	return c.do(ctx, http.MethodDelete, path, nil, out, opts)
}

// GetPaginated fetches one page of a listing. page and limit are sent as
// query parameters next to params.
func (c *Client) GetPaginated(ctx context.Context, path string, page, limit int, params url.Values, out any, opts ...CallOption) error {
	q := url.Values{}
	for k, vs := range params {
		if k == "page" || k == "limit" {
			continue
		}
		q[k] = vs
	}
	paging := []CallOption{
		WithParams(q),
		WithQuery("page", strconv.Itoa(page)),
		WithQuery("limit", strconv.Itoa(limit)),
	}
	return c.do(ctx, http.MethodGet, path, nil, out, append(paging, opts...))
}

func (c *Client) newCallConfig(method string, opts []CallOption) *callConfig {
	cfg := &callConfig{
		header:  http.Header{},
		query:   url.Values{},
		timeout: c.writeTimeout,
	}
	if method == http.MethodGet {
		cfg.timeout = c.readTimeout
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.requestID == "" {
		cfg.requestID = uuid.NewString()
	}
	return cfg
}

// do runs the call and funnels every failure through report.
func (c *Client) do(ctx context.Context, method, path string, body, out any, opts []CallOption) error {
	cfg := c.newCallConfig(method, opts)
	start := time.Now()

	err := c.execute(ctx, method, path, body, out, cfg)

	c.observe(method, err, time.Since(start))
	if err != nil {
		c.report(ctx, err, method, path, cfg.requestID)
	}
	return err
}

func (c *Client) execute(ctx context.Context, method, path string, body, out any, cfg *callConfig) error {
	payload, err := c.encode(ctx, body)
	if err != nil {
		return err
	}

	if cfg.retry == nil {
		return c.send(ctx, method, path, payload, out, cfg, firstAttempt)
	}

	_, err = retry.Do(ctx, *cfg.retry, func(ctx context.Context, n int) (struct{}, error) {
		if n > 1 {
			c.log.Debug(ctx, "retrying request", "method", method, "path", path, "attempt", n)
			if c.metrics != nil {
				c.metrics.ObserveRetry("retryable")
			}
		}
		return struct{}{}, c.send(ctx, method, path, payload, out, cfg, firstAttempt)
	})
	return err
}

// encode validates and marshals the request body.
func (c *Client) encode(ctx context.Context, body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}

	if c.validate != nil {
		if err := c.validate.StructCtx(ctx, body); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				return nil, classify.FromValidation(err)
			}
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperr.NewValidationError(fmt.Sprintf("request body cannot be encoded: %v", err), "")
	}
	return payload, nil
}

// send performs one HTTP exchange. A 401 on the first attempt refreshes the
// session and sends once more.
func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any, cfg *callConfig, att attempt) error {
	var token string
	if !cfg.public {
		tok, err := c.auth.Authorize(ctx)
		if err != nil {
			return classify.Transport(err, path, 0)
		}
		token = tok
	}

	attemptCtx, cancel := context.WithTimeoutCause(ctx, cfg.timeout, classify.ErrTimeout)
	defer cancel()

	req, err := c.newRequest(attemptCtx, method, path, payload, cfg, token)
	if err != nil {
		return apperr.Unknown(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transportFailure(attemptCtx, err, path, cfg.timeout)
	}

	nr, err := classify.FromHTTP(resp, path)
	if err != nil {
		return transportFailure(attemptCtx, err, path, cfg.timeout)
	}

	if nr.Success() {
		return decode(nr, out)
	}

	appErr := classify.Classify(nr)
	if nr.Status != http.StatusUnauthorized || att != firstAttempt || cfg.public {
		return appErr
	}

	c.log.Debug(ctx, "access token rejected, refreshing", "method", method, "path", path)
	if _, err := c.auth.Refresh(ctx, token); err != nil {
		if errors.Is(err, auth.ErrNoRefreshToken) {
			return appErr
		}
		return classify.Transport(err, path, 0)
	}
	if c.metrics != nil {
		c.metrics.ObserveRetry("unauthorized")
	}
	return c.send(ctx, method, path, payload, out, cfg, retryAttempt)
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, cfg *callConfig, token string) (*http.Request, error) {
	u, err := c.url(path, cfg.query)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, cfg.requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, vs := range cfg.header {
		req.Header[k] = vs
	}
	return req, nil
}

func (c *Client) url(path string, query url.Values) (string, error) {
	u, err := url.Parse(c.baseURL + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// transportFailure prefers the cancellation cause of the attempt, so a fired
// timeout is told apart from a caller abort. The per-call timeout is only
// reported when it is the limit that fired.
func transportFailure(attemptCtx context.Context, err error, path string, timeout time.Duration) apperr.AppError {
	cause := context.Cause(attemptCtx)
	if cause == nil {
		return classify.Transport(err, path, 0)
	}
	if !errors.Is(cause, classify.ErrTimeout) {
		timeout = 0
	}
	return classify.Transport(cause, path, timeout)
}

func decode(r classify.Response, out any) error {
	if out == nil || r.Status == http.StatusNoContent || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return apperr.New(apperr.CodeAPI, "Malformed response from server", err)
	}
	return nil
}

func (c *Client) observe(method string, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	code := "OK"
	if err != nil {
		code = string(apperr.CodeOf(err))
	}
	c.metrics.ObserveRequest(method, code, elapsed)
}

func (c *Client) report(ctx context.Context, err error, method, path, requestID string) {
	appErr, _ := apperr.As(err)
	c.log.Warn(ctx, "request failed",
		"method", method,
		"path", path,
		"code", apperr.CodeOf(err),
		"retryable", appErr != nil && appErr.Retryable(),
		"request_id", requestID,
		"error", err,
	)

	r := reporting.New(err, reporting.Context{
		UserAgent: c.userAgent,
		URL:       c.baseURL + path,
		Method:    method,
		RequestID: requestID,
	})
	c.deliver(ctx, r)
}

// deliver hands r to the reporter on a detached context bounded by
// reportWait, so a cancelled caller still gets its failure reported. The
// caller waits for delivery no longer than reportWait or its own deadline.
func (c *Client) deliver(ctx context.Context, r reporting.Report) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.reportWait)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- c.reporter.ReportError(rctx, r)
	}()

	timer := time.NewTimer(c.reportWait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			c.log.Warn(ctx, "error report not delivered", "id", r.ID, "error", err)
		}
	case <-timer.C:
		c.log.Warn(ctx, "error report still pending", "id", r.ID, "waited", c.reportWait)
	case <-ctx.Done():
		c.log.Debug(ctx, "caller gone before error report was delivered", "id", r.ID)
	}
}
