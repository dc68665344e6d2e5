package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/client"
	"github.com/dmitrijs2005/carpool/internal/logging"
)

// Session is the read side of the token coordinator the shell reports on.
type Session interface {
	AccessToken() string
	Cleared() bool
	State() auth.State
}

// HealthChecker reports the serving status of the realtime backend.
type HealthChecker interface {
	Check(ctx context.Context) (string, error)
}

// getSimpleText and getPassword are indirections used to facilitate testing.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
)

type App struct {
	api     client.API
	session Session
	log     logging.Logger
	reader  *bufio.Reader
	out     io.Writer
	health  HealthChecker

	mu       sync.Mutex
	userName string
	expired  error
}

func NewApp(api client.API, session Session, in io.Reader, out io.Writer, l logging.Logger) *App {
	if l == nil {
		l = logging.Nop()
	}
	return &App{
		api:     api,
		session: session,
		log:     l,
		reader:  bufio.NewReader(in),
		out:     out,
	}
}

// SetHealth makes status also report the backend behind h.
func (a *App) SetHealth(h HealthChecker) {
	a.health = h
}

// SessionExpired is registered as the coordinator's session-expired hook.
// The shell picks it up before the next prompt.
func (a *App) SessionExpired(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.expired = err
	a.userName = ""
}

// takeExpired returns and resets the pending session-expired notice.
func (a *App) takeExpired() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	err := a.expired
	a.expired = nil
	return err
}

func (a *App) isLoggedIn() bool {
	return a.session.AccessToken() != ""
}

func (a *App) getStatus() string {
	a.mu.Lock()
	name := a.userName
	a.mu.Unlock()

	switch {
	case !a.isLoggedIn():
		return "(signed out)"
	case name != "":
		return fmt.Sprintf("(%s)", name)
	}
	return "(signed in)"
}

// Run starts the shell. It asks for credentials first unless a stored
// session was restored.
func (a *App) Run(ctx context.Context) {
	a.println("Welcome to the carpool CLI (type 'help' for commands)")
	if !a.isLoggedIn() {
		_ = a.Login(ctx)
	}
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// fail prints the user-facing message of err.
func (a *App) fail(ctx context.Context, err error) error {
	a.printError(err)
	a.log.Debug(ctx, "command failed", "code", apperr.CodeOf(err), "error", err)
	return err
}

// printError prints the user-facing message of err, with the server's
// retry hint when it sent one.
func (a *App) printError(err error) {
	a.println("Error:", apperr.UserMessage(err))

	var apiErr *apperr.APIError
	if !errors.As(err, &apiErr) {
		return
	}
	if after, ok := apiErr.Detail(apperr.DetailRetryAfter); ok {
		a.println("Retry after:", after, "seconds")
	}
}
