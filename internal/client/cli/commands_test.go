package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/carpool/internal/apperr"
	"github.com/dmitrijs2005/carpool/internal/client/auth"
	"github.com/dmitrijs2005/carpool/internal/client/client"
	"github.com/dmitrijs2005/carpool/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI answers Get from a map of path to body or error.
type fakeAPI struct {
	mu      sync.Mutex
	bodies  map[string]string
	errs    map[string]error
	sent    []string
	session *models.Session
	loginE  error
	creds   models.Credentials
	logouts int
}

var _ client.API = (*fakeAPI)(nil)

func (f *fakeAPI) fill(path string, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[path]; err != nil {
		return err
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = json.RawMessage(f.bodies[path])
	}
	return nil
}

func (f *fakeAPI) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
}

func (f *fakeAPI) Get(_ context.Context, path string, out any, _ ...client.CallOption) error {
	return f.fill(path, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body, out any, _ ...client.CallOption) error {
	b, _ := json.Marshal(body)
	f.record("POST " + path + " " + string(b))
	return f.fill(path, out)
}

func (f *fakeAPI) Put(_ context.Context, path string, body, out any, _ ...client.CallOption) error {
	b, _ := json.Marshal(body)
	f.record("PUT " + path + " " + string(b))
	return f.fill(path, out)
}

func (f *fakeAPI) Patch(_ context.Context, path string, body, out any, _ ...client.CallOption) error {
	b, _ := json.Marshal(body)
	f.record("PATCH " + path + " " + string(b))
	return f.fill(path, out)
}

func (f *fakeAPI) Delete(_ context.Context, path string, out any, _ ...client.CallOption) error {
	f.record("DELETE " + path)
	return f.fill(path, out)
}

func (f *fakeAPI) GetPaginated(ctx context.Context, path string, _, _ int, _ url.Values, out any, opts ...client.CallOption) error {
	return f.Get(ctx, path, out, opts...)
}

func (f *fakeAPI) Login(_ context.Context, creds models.Credentials) (*models.Session, error) {
	f.creds = creds
	return f.session, f.loginE
}

func (f *fakeAPI) Logout(context.Context) error {
	f.logouts++
	return nil
}

type fakeSession struct {
	token   string
	cleared bool
}

func (s *fakeSession) AccessToken() string { return s.token }
func (s *fakeSession) Cleared() bool       { return s.cleared }
func (s *fakeSession) State() auth.State   { return auth.Idle }

func stubInputs(t *testing.T, email string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return email, nil }
	getPassword = func(io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func newApp(api client.API, s Session) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return NewApp(api, s, strings.NewReader(""), &out, nil), &out
}

func TestApp_Login(t *testing.T) {
	pw := []byte("secret1")
	stubInputs(t, "parent@school.org", pw)
	api := &fakeAPI{session: &models.Session{User: &models.User{Name: "Ana"}}}
	app, out := newApp(api, &fakeSession{})

	require.NoError(t, app.Login(context.Background()))

	assert.Equal(t, models.Credentials{Email: "parent@school.org", Password: "secret1"}, api.creds)
	assert.Contains(t, out.String(), "Signed in as Ana")
	assert.Equal(t, make([]byte, len(pw)), pw, "password wiped")
}

func TestApp_LoginRejected(t *testing.T) {
	stubInputs(t, "parent@school.org", []byte("wrong-one"))
	api := &fakeAPI{loginE: apperr.NewAuthenticationError("Invalid email or password", nil)}
	app, out := newApp(api, &fakeSession{})

	err := app.Login(context.Background())

	require.Error(t, err)
	assert.Contains(t, out.String(), "Login failed: Invalid email or password")
}

func TestApp_LoginValidation(t *testing.T) {
	stubInputs(t, "nope", []byte("secret1"))
	api := &fakeAPI{loginE: apperr.NewValidationError("email must be a valid email address", "email")}
	app, out := newApp(api, &fakeSession{})

	require.Error(t, app.Login(context.Background()))
	assert.Contains(t, out.String(), "Error: email must be a valid email address")
}

func TestApp_GetConcurrentInOrder(t *testing.T) {
	api := &fakeAPI{
		bodies: map[string]string{"/a": `{"id":"a"}`, "/c": `[]`},
		errs:   map[string]error{"/b": apperr.NewAPIError("", 404, "/b", apperr.CodeNotFound, nil)},
	}
	app, out := newApp(api, &fakeSession{token: "T"})

	err := app.Get(context.Background(), []string{"/a", "/b", "/c"})

	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
	s := out.String()
	ia, ib, ic := strings.Index(s, "==> /a"), strings.Index(s, "==> /b"), strings.Index(s, "==> /c")
	assert.True(t, ia >= 0 && ia < ib && ib < ic, s)
	assert.Contains(t, s, `"id": "a"`)
	assert.Contains(t, s, "Error: "+apperr.MsgNotFound)
}

func TestApp_GetUsage(t *testing.T) {
	app, out := newApp(&fakeAPI{}, &fakeSession{})
	require.NoError(t, app.Get(context.Background(), nil))
	assert.Contains(t, out.String(), "Usage: get")
}

func TestApp_Send(t *testing.T) {
	api := &fakeAPI{bodies: map[string]string{"/rides": `{"id":"r1"}`}}
	app, out := newApp(api, &fakeSession{token: "T"})
	ctx := context.Background()

	require.NoError(t, app.Send(ctx, http.MethodPost, "/rides", `{"seats": 3}`))
	require.NoError(t, app.Send(ctx, http.MethodPut, "/rides", `{"seats":4}`))
	require.NoError(t, app.Send(ctx, http.MethodPatch, "/rides", `{"seats":5}`))
	require.NoError(t, app.Send(ctx, http.MethodPost, "/rides", `{broken`))

	assert.Equal(t, []string{
		`POST /rides {"seats": 3}`,
		`PUT /rides {"seats":4}`,
		`PATCH /rides {"seats":5}`,
	}, api.sent)
	assert.Contains(t, out.String(), `"id": "r1"`)
	assert.Contains(t, out.String(), "Body is not valid JSON")
}

func TestApp_Delete(t *testing.T) {
	api := &fakeAPI{errs: map[string]error{"/rides/2": apperr.NewAuthorizationError("")}}
	app, out := newApp(api, &fakeSession{token: "T"})
	ctx := context.Background()

	require.NoError(t, app.Delete(ctx, "/rides/1"))
	assert.Error(t, app.Delete(ctx, "/rides/2"))

	assert.Contains(t, out.String(), "Deleted")
	assert.Contains(t, out.String(), apperr.MsgForbidden)
}

func TestApp_RateLimitShowsRetryAfter(t *testing.T) {
	limited := apperr.NewAPIError("", 429, "/rides", apperr.CodeRateLimit, apperr.Details{apperr.DetailRetryAfter: "30"})
	api := &fakeAPI{errs: map[string]error{"/rides/3": limited}}
	app, out := newApp(api, &fakeSession{token: "T"})

	require.Error(t, app.Delete(context.Background(), "/rides/3"))

	assert.Contains(t, out.String(), "Retry after: 30 seconds")
}

func TestApp_StatusAndLogout(t *testing.T) {
	api := &fakeAPI{}
	sess := &fakeSession{token: "T"}
	app, out := newApp(api, sess)
	ctx := context.Background()

	require.NoError(t, app.Status(ctx))
	assert.Contains(t, out.String(), "Session: active (signed in)")
	assert.Contains(t, out.String(), "Token refresh: idle")

	require.NoError(t, app.Logout(ctx))
	sess.token, sess.cleared = "", true
	require.NoError(t, app.Status(ctx))

	assert.Equal(t, 1, api.logouts)
	assert.Contains(t, out.String(), "Session: expired or signed out")
}

// End to end: a failed refresh fires the hook and the shell asks for
// credentials again before the next prompt.
type fakeHealth struct {
	status string
	err    error
}

func (h fakeHealth) Check(context.Context) (string, error) { return h.status, h.err }

func TestApp_StatusReportsHealth(t *testing.T) {
	app, out := newApp(&fakeAPI{}, &fakeSession{token: "T"})
	app.SetHealth(fakeHealth{status: "SERVING"})
	require.NoError(t, app.Status(context.Background()))
	assert.Contains(t, out.String(), "Realtime service: SERVING")

	app, out = newApp(&fakeAPI{}, &fakeSession{token: "T"})
	app.SetHealth(fakeHealth{err: apperr.NewNetworkError("", nil)})
	require.NoError(t, app.Status(context.Background()))
	assert.Contains(t, out.String(), "Realtime service: unavailable, "+apperr.MsgConnection)
}

func TestApp_SessionExpiredFlow(t *testing.T) {
	capturePrints(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case client.DefaultLoginPath:
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"accessToken":"A2","refreshToken":"R2"}`)
		default:
			if r.Header.Get("Authorization") == "Bearer A2" {
				_, _ = io.WriteString(w, `{"ok":true}`)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	coord := auth.NewCoordinator(auth.RefresherFunc(func(context.Context, string) (models.Tokens, error) {
		return models.Tokens{}, errors.New("refresh token revoked")
	}))
	require.NoError(t, coord.SetTokens(context.Background(), models.Tokens{AccessToken: "A1", RefreshToken: "R1"}))

	var out bytes.Buffer
	app := NewApp(client.New(srv.URL, coord), coord, strings.NewReader("get /rides\nget /rides\nexit\n"), &out, nil)
	coord.OnSessionExpired(app.SessionExpired)

	logins := 0
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { logins++; return "a@b.co", nil }
	getPassword = func(io.Writer) ([]byte, error) { return []byte("secret1"), nil }
	t.Cleanup(func() { getSimpleText, getPassword = origST, origGP })

	app.Run(context.Background())

	assert.Equal(t, 1, logins)
	assert.Equal(t, "A2", coord.AccessToken())
	assert.Contains(t, out.String(), `"ok": true`)
}
