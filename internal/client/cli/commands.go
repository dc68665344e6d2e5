package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/dmitrijs2005/carpool/internal/cryptox"
	"golang.org/x/sync/errgroup"
)

// maxParallelGets bounds the concurrent requests of one get command.
const maxParallelGets = 4

const healthCheckTimeout = 3 * time.Second

// Login prompts for email and password and signs in.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer cryptox.Wipe(password)

	session, err := a.api.Login(ctx, models.Credentials{Email: email, Password: string(password)})
	if err != nil {
		var authn *apperr.AuthenticationError
		if errors.As(err, &authn) && authn.Error() != "" {
			a.println("Login failed:", authn.Error())
			return err
		}
		return a.fail(ctx, err)
	}

	name := email
	if session.User != nil && session.User.Name != "" {
		name = session.User.Name
	}
	a.mu.Lock()
	a.userName = name
	a.mu.Unlock()

	a.println("Signed in as", name)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.api.Logout(ctx); err != nil {
		return a.fail(ctx, err)
	}
	a.mu.Lock()
	a.userName = ""
	a.mu.Unlock()
	a.println("Signed out")
	return nil
}

func (a *App) Status(ctx context.Context) error {
	switch {
	case a.session.Cleared():
		a.println("Session: expired or signed out")
	case a.isLoggedIn():
		a.println("Session: active", a.getStatus())
	default:
		a.println("Session: none")
	}
	a.println("Token refresh:", a.session.State())

	if a.health == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	st, err := a.health.Check(ctx)
	if err != nil {
		a.println("Realtime service: unavailable,", apperr.UserMessage(err))
		return nil
	}
	a.println("Realtime service:", st)
	return nil
}

// Get fetches every path concurrently and prints the bodies in argument
// order. All paths are attempted; the first error is returned.
func (a *App) Get(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		a.println("Usage: get <path> [path...]")
		return nil
	}

	bodies := make([]json.RawMessage, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelGets)
	for i, p := range paths {
		g.Go(func() error {
			errs[i] = a.api.Get(gctx, p, &bodies[i])
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for i, p := range paths {
		if len(paths) > 1 {
			a.println("==>", p)
		}
		if errs[i] != nil {
			if first == nil {
				first = errs[i]
			}
			a.printError(errs[i])
			continue
		}
		a.printJSON(bodies[i])
	}
	return first
}

// Send issues a POST, PUT or PATCH with body taken verbatim as JSON.
func (a *App) Send(ctx context.Context, method, path, body string) error {
	if path == "" || body == "" {
		a.println(fmt.Sprintf("Usage: %s <path> <json>", strings.ToLower(method)))
		return nil
	}
	if !json.Valid([]byte(body)) {
		a.println("Body is not valid JSON")
		return nil
	}

	var out json.RawMessage
	var err error
	switch method {
	case http.MethodPost:
		err = a.api.Post(ctx, path, json.RawMessage(body), &out)
	case http.MethodPut:
		err = a.api.Put(ctx, path, json.RawMessage(body), &out)
	case http.MethodPatch:
		err = a.api.Patch(ctx, path, json.RawMessage(body), &out)
	default:
		return fmt.Errorf("unsupported method %s", method)
	}
	if err != nil {
		return a.fail(ctx, err)
	}
	a.printJSON(out)
	return nil
}

func (a *App) Delete(ctx context.Context, path string) error {
	if path == "" {
		a.println("Usage: delete <path>")
		return nil
	}
	var out json.RawMessage
	if err := a.api.Delete(ctx, path, &out); err != nil {
		return a.fail(ctx, err)
	}
	if len(out) == 0 {
		a.println("Deleted")
		return nil
	}
	a.printJSON(out)
	return nil
}

func (a *App) printJSON(raw json.RawMessage) {
	if len(bytes.TrimSpace(raw)) == 0 {
		a.println("(empty)")
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		a.println(string(raw))
		return
	}
	a.println(buf.String())
}
