// Package auth owns the session credentials of the client and serializes
// access-token refreshes.
//
// A Coordinator is an explicit object injected into each request client; it
// holds the token pair and an Idle/Refreshing state with a queue of waiters.
// At most one refresh call is in flight. Every caller that asks for a refresh
// while one is running waits for the same outcome.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/dmitrijs2005/carpool/internal/logging"
)

var (
	// ErrNoRefreshToken is returned when a refresh is requested without a
	// refresh token on hand.
	ErrNoRefreshToken = errors.New("no refresh token")
	// ErrSessionCleared is the cause of the fail-fast AuthenticationError
	// returned after logout or a failed refresh.
	ErrSessionCleared = errors.New("session cleared")
	// ErrEmptyAccessToken is returned when a refresh succeeds without
	// yielding an access token.
	ErrEmptyAccessToken = errors.New("refresh returned no access token")
)

// DefaultRefreshTimeout bounds a single refresh call.
const DefaultRefreshTimeout = 15 * time.Second

// TokenStore persists the session credentials between runs.
type TokenStore interface {
	// Load returns the stored pair, or a zero Tokens when nothing is stored.
	Load(ctx context.Context) (models.Tokens, error)
	Save(ctx context.Context, t models.Tokens) error
	Clear(ctx context.Context) error
}

// Refresher exchanges a refresh token for a new token pair. The returned
// refresh token may be empty, in which case the current one is kept.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (models.Tokens, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, refreshToken string) (models.Tokens, error)

func (f RefresherFunc) Refresh(ctx context.Context, refreshToken string) (models.Tokens, error) {
	return f(ctx, refreshToken)
}

// Observer receives the outcome of every refresh call.
type Observer interface {
	ObserveRefresh(ok bool, elapsed time.Duration)
}

// State of the coordinator.
type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

type result struct {
	token string
	err   error
}

// Coordinator holds the token pair and runs single-flight refreshes.
type Coordinator struct {
	mu      sync.Mutex
	tokens  models.Tokens
	cleared bool
	gen     uint64
	state   State
	waiters []chan result

	refresher Refresher
	store     TokenStore
	log       logging.Logger
	observer  Observer
	timeout   time.Duration
	skew      time.Duration
	now       func() time.Time
	onExpired []func(error)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithStore persists tokens in s.
func WithStore(s TokenStore) Option {
	return func(c *Coordinator) { c.store = s }
}

func WithLogger(l logging.Logger) Option {
	return func(c *Coordinator) { c.log = l }
}

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observer = o }
}

// WithRefreshTimeout bounds each refresh call. Non-positive values keep the
// default.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProactiveRefresh makes Authorize refresh ahead of time when the access
// token is a JWT that expires within skew. Zero disables it.
func WithProactiveRefresh(skew time.Duration) Option {
	return func(c *Coordinator) { c.skew = skew }
}

// WithSessionExpired registers fn to be called when a refresh fails and the
// session is dropped.
func WithSessionExpired(fn func(error)) Option {
	return func(c *Coordinator) { c.onExpired = append(c.onExpired, fn) }
}

func withClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// NewCoordinator returns an idle coordinator with no credentials.
func NewCoordinator(r Refresher, opts ...Option) *Coordinator {
	c := &Coordinator{
		refresher: r,
		store:     NewMemoryStore(),
		log:       logging.Nop(),
		timeout:   DefaultRefreshTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnSessionExpired registers an additional session-expired hook.
func (c *Coordinator) OnSessionExpired(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onExpired = append(c.onExpired, fn)
}

// Restore loads persisted credentials. It reports whether a session was
// found.
func (c *Coordinator) Restore(ctx context.Context) (bool, error) {
	t, err := c.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("restore session: %w", err)
	}
	if t.Empty() {
		return false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = t
	c.cleared = false
	c.gen++
	return true, nil
}

// SetTokens installs fresh credentials, typically after login. It lifts the
// fail-fast condition left by Clear or a failed refresh.
func (c *Coordinator) SetTokens(ctx context.Context, t models.Tokens) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tokens = t
	c.cleared = false
	c.gen++
	if err := c.store.Save(ctx, t); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// Clear drops the credentials in memory and in the store. Authenticated
// requests fail fast until SetTokens is called.
func (c *Coordinator) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearLocked(ctx)
}

func (c *Coordinator) clearLocked(ctx context.Context) error {
	c.tokens = models.Tokens{}
	c.cleared = true
	c.gen++
	if err := c.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

func (c *Coordinator) Tokens() models.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

func (c *Coordinator) AccessToken() string {
	return c.Tokens().AccessToken
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Cleared reports whether the session was dropped and not yet replaced.
func (c *Coordinator) Cleared() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cleared
}

// Authorize returns the access token to attach to an authenticated request.
// An empty token with a nil error means no session was ever established.
// After the session is cleared it fails fast with an AuthenticationError.
func (c *Coordinator) Authorize(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.cleared {
		c.mu.Unlock()
		return "", sessionCleared()
	}
	t := c.tokens
	c.mu.Unlock()

	if c.skew > 0 && t.AccessToken != "" && t.RefreshToken != "" && c.expiresSoon(t.AccessToken) {
		c.log.Debug(ctx, "access token about to expire, refreshing ahead")
		return c.Refresh(ctx, t.AccessToken)
	}
	return t.AccessToken, nil
}

func (c *Coordinator) expiresSoon(token string) bool {
	exp, err := ExpiresAt(token)
	if err != nil {
		return false
	}
	return !c.now().Add(c.skew).Before(exp)
}

// Refresh returns a fresh access token in place of stale, the token the
// rejected request was sent with. If the session already moved past stale,
// the current token is returned without a refresh call. Otherwise the first
// caller starts the refresh call and callers arriving while it runs wait for
// the same outcome. The call itself is detached from ctx, so a caller giving
// up does not affect the others.
//
// On failure the session is cleared, the session-expired hooks fire once and
// every waiter receives an AuthenticationError.
func (c *Coordinator) Refresh(ctx context.Context, stale string) (string, error) {
	c.mu.Lock()
	if c.cleared {
		c.mu.Unlock()
		return "", sessionCleared()
	}
	if c.state == Idle && c.tokens.AccessToken != "" && c.tokens.AccessToken != stale {
		// refreshed (or logged in) after the request was sent
		token := c.tokens.AccessToken
		c.mu.Unlock()
		return token, nil
	}
	if c.state == Idle {
		if c.tokens.RefreshToken == "" {
			c.mu.Unlock()
			return "", apperr.NewAuthenticationError("", ErrNoRefreshToken)
		}
		c.state = Refreshing
		go c.run(context.WithoutCancel(ctx), c.tokens.RefreshToken, c.gen)
	}
	ch := make(chan result, 1)
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	select {
	case r := <-ch:
		return r.token, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("wait for token refresh: %w", context.Cause(ctx))
	}
}

func (c *Coordinator) run(parent context.Context, refreshToken string, gen uint64) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	start := c.now()
	next, err := c.refresher.Refresh(ctx, refreshToken)
	if err == nil && next.AccessToken == "" {
		err = ErrEmptyAccessToken
	}
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	var (
		res     result
		expired error
	)
	switch {
	case c.gen != gen && c.cleared:
		// logged out while the call was running
		res.err = sessionCleared()
	case c.gen != gen:
		// new credentials were installed meanwhile; they win
		res.token = c.tokens.AccessToken
	case err != nil:
		if cerr := c.clearLocked(parent); cerr != nil {
			c.log.Warn(parent, "failed to clear stored tokens", "error", cerr)
		}
		expired = apperr.NewAuthenticationError(apperr.MsgSessionExpired, fmt.Errorf("refresh access token: %w", err))
		res.err = expired
	default:
		c.tokens = c.tokens.Merge(next)
		if serr := c.store.Save(parent, c.tokens); serr != nil {
			c.log.Warn(parent, "failed to persist refreshed tokens", "error", serr)
		}
		res.token = c.tokens.AccessToken
	}

	waiters := c.waiters
	c.waiters = nil
	c.state = Idle
	hooks := append([]func(error){}, c.onExpired...)
	c.mu.Unlock()

	if c.observer != nil {
		c.observer.ObserveRefresh(err == nil, elapsed)
	}
	if err != nil {
		c.log.Warn(parent, "token refresh failed", "error", err, "waiters", len(waiters))
	} else {
		c.log.Info(parent, "access token refreshed", "waiters", len(waiters), "elapsed", elapsed)
	}

	// hooks run before waiters resume, so callers observe their effect
	if expired != nil {
		for _, fn := range hooks {
			fn(expired)
		}
	}

	for _, ch := range waiters {
		ch <- res
	}
}

func sessionCleared() error {
	return apperr.NewAuthenticationError(apperr.MsgSessionExpired, ErrSessionCleared)
}
