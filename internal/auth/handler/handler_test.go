package handler

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/middleware"
	"github.com/Amitphadol/Babylon-login-app/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeBackend struct {
	mu      sync.Mutex
	signIn  error
	signOut error
}

func (b *fakeBackend) fail(signIn, signOut error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signIn = signIn
	b.signOut = signOut
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) SignUp(_ context.Context, email, _ string) (*provider.Account, error) {
	return &provider.Account{Identity: auth.Identity{UID: "uid-" + email, Email: email, Provider: "fake"}}, nil
}

func (b *fakeBackend) SignIn(_ context.Context, email, _ string) (*provider.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signIn != nil {
		return nil, b.signIn
	}
	return &provider.Account{Identity: auth.Identity{UID: "uid-" + email, Email: email, Provider: "fake"}}, nil
}

func (b *fakeBackend) UpdateProfile(_ context.Context, acct provider.Account, update auth.ProfileUpdate) (*auth.Identity, error) {
	id := acct.Identity
	id.DisplayName = update.DisplayName
	return &id, nil
}

func (b *fakeBackend) SignOut(context.Context, provider.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signOut
}

// stallingStore never answers reads, leaving observers in the loading state.
type stallingStore struct {
	session.Store
}

func (stallingStore) Get(ctx context.Context, _ string) (*session.Session, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type harness struct {
	t       *testing.T
	srv     *httptest.Server
	client  *http.Client
	backend *fakeBackend
	factory *provider.Factory
}

func newHarness(t *testing.T, wrap func(session.Store) session.Store, observeTimeout time.Duration) *harness {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var store session.Store = session.NewRedisStore(rdb)
	if wrap != nil {
		store = wrap(store)
	}

	backend := &fakeBackend{}
	factory := provider.NewFactory(backend, store, session.NewMemoryFeed(), time.Hour)

	if observeTimeout == 0 {
		observeTimeout = 2 * time.Second
	}
	h := NewHandler(factory, false, observeTimeout)
	h.heartbeat = time.Hour

	r := gin.New()
	r.Use(middleware.GinAttachDevice(middleware.NewDeviceMiddleware(session.CookieOptions{}, time.Hour)))
	h.RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		t:   t,
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		backend: backend,
		factory: factory,
	}
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	res, err := h.client.Get(h.srv.URL + path)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(body)
}

func (h *harness) post(path string, form url.Values) (*http.Response, string) {
	h.t.Helper()
	res, err := h.client.PostForm(h.srv.URL+path, form)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(body)
}

var csrfPattern = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

// csrf loads the entry page and returns the form token it carries.
func (h *harness) csrf() string {
	h.t.Helper()
	_, body := h.get("/")
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(h.t, m, 2, "csrf token not rendered")
	return m[1]
}

func (h *harness) deviceID() string {
	h.t.Helper()
	u, err := url.Parse(h.srv.URL)
	require.NoError(h.t, err)
	for _, ck := range h.client.Jar.Cookies(u) {
		if ck.Name == session.InsecureCookieName {
			return ck.Value
		}
	}
	h.t.Fatal("device cookie missing")
	return ""
}

func (h *harness) signIn(email string) {
	h.t.Helper()
	res, _ := h.post("/", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"signin"},
		"email":      {email},
		"password":   {"hunter22"},
	})
	require.Equal(h.t, http.StatusSeeOther, res.StatusCode)
}

func TestEntryRendersForm(t *testing.T) {
	h := newHarness(t, nil, 0)

	res, body := h.get("/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Welcome back")
	assert.NotContains(t, body, `name="full_name"`)

	res, body = h.get("/?mode=register")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Create your account")
	assert.Contains(t, body, `name="full_name"`)
}

func TestSubmitRequiresCSRF(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.csrf()

	res, _ := h.post("/", url.Values{
		"csrf_token": {"forged"},
		"email":      {"ada@example.com"},
		"password":   {"hunter22"},
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestSubmitShowsValidationError(t *testing.T) {
	h := newHarness(t, nil, 0)

	res, body := h.post("/", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"register"},
		"full_name":  {"   "},
		"email":      {"ada@example.com"},
		"password":   {"hunter22"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Full name is required.")
	assert.Contains(t, body, `value="ada@example.com"`)
	assert.NotContains(t, body, "hunter22")
}

func TestSubmitShowsProviderError(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.backend.fail(auth.NewError(auth.CodeInvalidCredential, nil), nil)

	res, body := h.post("/", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"signin"},
		"email":      {"ada@example.com"},
		"password":   {"hunter22"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "Invalid email or password.")
}

func TestSwitchModeDiscardsInput(t *testing.T) {
	h := newHarness(t, nil, 0)

	res, body := h.post("/mode", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"signin"},
		"next":       {"register"},
		"email":      {"typed@example.com"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `name="full_name"`)
	assert.NotContains(t, body, "typed@example.com")
}

func TestRegisterSignOutFlow(t *testing.T) {
	h := newHarness(t, nil, 0)

	res, _ := h.post("/", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"register"},
		"full_name":  {"  Ada Lovelace "},
		"email":      {"ada@example.com"},
		"password":   {"hunter22"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/home", res.Header.Get("Location"))

	res, body := h.get("/home")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Ada Lovelace")
	assert.Contains(t, body, ">AL<")
	assert.Contains(t, body, "ada@example.com")
	assert.Contains(t, body, "uid-ada@example.com")

	// Signed-in devices do not see the entry form.
	res, _ = h.get("/")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/home", res.Header.Get("Location"))

	m := csrfPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)
	res, _ = h.post("/home/logout", url.Values{"csrf_token": {m[1]}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))

	res, _ = h.get("/home")
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/", res.Header.Get("Location"))
}

func TestHomeFallsBackToUser(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.signIn("nameless@example.com")

	res, body := h.get("/home")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Hey, <span id=\"display-name\">User</span>!")
	assert.Contains(t, body, ">U<")
}

func TestLogoutFailureKeepsSession(t *testing.T) {
	h := newHarness(t, nil, 0)
	h.signIn("ada@example.com")
	h.backend.fail(nil, auth.NewError(auth.CodeNetworkRequestFailed, nil))

	_, body := h.get("/home")
	m := csrfPattern.FindStringSubmatch(body)
	require.Len(t, m, 2)

	res, _ := h.post("/home/logout", url.Values{"csrf_token": {m[1]}})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "/home", res.Header.Get("Location"))

	res, _ = h.get("/home")
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestHomeShowsLoadingPlaceholder(t *testing.T) {
	h := newHarness(t, func(s session.Store) session.Store { return stallingStore{Store: s} }, 50*time.Millisecond)

	res, body := h.get("/home")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `http-equiv="refresh"`)
	assert.Contains(t, body, `aria-label="Loading"`)
}

type sseEvent struct {
	name string
	data string
}

func readEvents(r io.Reader) <-chan sseEvent {
	out := make(chan sseEvent, 16)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		var ev sseEvent
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			case line == "" && ev.name != "":
				out <- ev
				ev = sseEvent{}
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func TestEventsStreamFollowsSession(t *testing.T) {
	h := newHarness(t, nil, 0)
	res, _ := h.post("/", url.Values{
		"csrf_token": {h.csrf()},
		"mode":       {"register"},
		"full_name":  {"Grace Hopper"},
		"email":      {"grace@example.com"},
		"password":   {"hunter22"},
	})
	require.Equal(t, http.StatusSeeOther, res.StatusCode)

	stream, err := h.client.Get(h.srv.URL + "/home/events")
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Contains(t, stream.Header.Get("Content-Type"), "text/event-stream")

	events := readEvents(stream.Body)

	ev := nextEvent(t, events)
	assert.Equal(t, "session", ev.name)
	assert.Contains(t, ev.data, `"status":"authenticated"`)
	assert.Contains(t, ev.data, `"display_name":"Grace Hopper"`)
	assert.Contains(t, ev.data, `"initials":"GH"`)

	// Another tab of the same device signs out.
	require.NoError(t, h.factory.Client(h.deviceID()).TerminateSession(context.Background()))

	ev = nextEvent(t, events)
	assert.Equal(t, "session", ev.name)
	assert.Contains(t, ev.data, `"status":"anonymous"`)

	ev = nextEvent(t, events)
	assert.Equal(t, sseEvent{name: "navigate", data: "/"}, ev)

	select {
	case _, ok := <-events:
		assert.False(t, ok, "stream should end after navigate")
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end")
	}
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"Ada Lovelace":          "AL",
		"grace brewster hopper": "GB",
		"User":                  "U",
		"  spaced   out ":       "SO",
		"émile zola":            "ÉZ",
	}
	for in, want := range cases {
		assert.Equal(t, want, initials(in), in)
	}
}
