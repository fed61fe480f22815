package authform

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
)

type fakeProvider struct {
	mu    sync.Mutex
	calls []string

	registerErr error
	loginErr    error
	profileErr  error

	// block, when set, holds every provider call until it is closed.
	block   chan struct{}
	entered chan struct{}

	profile auth.ProfileUpdate
	target  *auth.Identity
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProvider) RegisterWithPassword(_ context.Context, email, password string) (*auth.Identity, error) {
	f.record("register:" + email + ":" + password)
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &auth.Identity{UID: "uid-1", Email: email}, nil
}

func (f *fakeProvider) AuthenticateWithPassword(_ context.Context, email, password string) (*auth.Identity, error) {
	f.record("login:" + email + ":" + password)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &auth.Identity{UID: "uid-1", Email: email}, nil
}

func (f *fakeProvider) UpdateProfile(_ context.Context, identity *auth.Identity, update auth.ProfileUpdate) error {
	f.record("profile:" + update.DisplayName)
	f.mu.Lock()
	f.profile = update
	f.target = identity
	f.mu.Unlock()
	return f.profileErr
}

func newController(p Provider, mode Mode) (*Controller, *nav.Recorder) {
	rec := &nav.Recorder{}
	return New(p, rec, mode), rec
}

func TestValidateOrder(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		fullName string
		email    string
		password string
		want     string
	}{
		{"register empty everything", ModeRegister, "", "", "", MsgFullNameRequired},
		{"register blank name valid rest", ModeRegister, "   ", "ada@example.com", "secret1", MsgFullNameRequired},
		{"register name then email", ModeRegister, "Ada", " ", "", MsgEmailRequired},
		{"sign-in ignores full name", ModeSignIn, "", "", "x", MsgEmailRequired},
		{"password missing", ModeSignIn, "", "ada@example.com", "", MsgPasswordRequired},
		{"password short", ModeSignIn, "", "ada@example.com", "12345", MsgPasswordTooShort},
		{"password whitespace counts", ModeSignIn, "", "ada@example.com", "      ", ""},
		{"valid register", ModeRegister, "Ada Lovelace", "ada@example.com", "secret1", ""},
		{"valid sign-in", ModeSignIn, "", "ada@example.com", "secret", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newController(&fakeProvider{}, tt.mode)
			c.SetFullName(tt.fullName)
			c.SetEmail(tt.email)
			c.SetPassword(tt.password)

			ok := c.Validate()
			assert.Equal(t, tt.want == "", ok)
			assert.Equal(t, tt.want, c.State().ErrorMessage)
		})
	}
}

func TestValidateShortPasswords(t *testing.T) {
	for n := 0; n <= 5; n++ {
		c, _ := newController(&fakeProvider{}, ModeSignIn)
		c.SetEmail("ada@example.com")
		c.SetPassword(strings.Repeat("p", n))

		require.False(t, c.Validate(), "length %d", n)
		want := MsgPasswordTooShort
		if n == 0 {
			want = MsgPasswordRequired
		}
		assert.Equal(t, want, c.State().ErrorMessage, "length %d", n)
	}
}

func TestValidateClearsPreviousError(t *testing.T) {
	c, _ := newController(&fakeProvider{}, ModeSignIn)
	require.False(t, c.Validate())
	require.NotEmpty(t, c.State().ErrorMessage)

	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")
	require.True(t, c.Validate())
	assert.Empty(t, c.State().ErrorMessage)
}

func TestSubmitRegister(t *testing.T) {
	p := &fakeProvider{}
	c, rec := newController(p, ModeRegister)
	c.SetFullName("Ada Lovelace")
	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")

	c.Submit(context.Background())

	assert.Equal(t, []string{
		"register:ada@example.com:secret1",
		"profile:Ada Lovelace",
	}, p.Calls())
	assert.Equal(t, "Ada Lovelace", p.profile.DisplayName)
	require.NotNil(t, p.target)
	assert.Equal(t, "uid-1", p.target.UID)

	target, ok := rec.Target()
	require.True(t, ok)
	assert.Equal(t, nav.LandingPath, target)

	st := c.State()
	assert.Empty(t, st.ErrorMessage)
	assert.False(t, st.IsSubmitting)
}

func TestSubmitRegisterTrimsInput(t *testing.T) {
	p := &fakeProvider{}
	c, _ := newController(p, ModeRegister)
	c.SetFullName("  Ada Lovelace ")
	c.SetEmail(" ada@example.com ")
	c.SetPassword("secret1")

	c.Submit(context.Background())

	assert.Equal(t, []string{
		"register:ada@example.com:secret1",
		"profile:Ada Lovelace",
	}, p.Calls())
}

func TestSubmitSignIn(t *testing.T) {
	p := &fakeProvider{}
	c, rec := newController(p, ModeSignIn)
	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")

	c.Submit(context.Background())

	assert.Equal(t, []string{"login:ada@example.com:secret1"}, p.Calls())
	target, ok := rec.Target()
	require.True(t, ok)
	assert.Equal(t, nav.LandingPath, target)
}

func TestSubmitInvalidNeverReachesProvider(t *testing.T) {
	p := &fakeProvider{}
	c, rec := newController(p, ModeSignIn)
	c.SetEmail("")
	c.SetPassword("x")

	c.Submit(context.Background())

	assert.Empty(t, p.Calls())
	assert.Equal(t, "Email address is required.", c.State().ErrorMessage)
	_, navigated := rec.Target()
	assert.False(t, navigated)
	assert.False(t, c.State().IsSubmitting)
}

func TestSubmitMapsProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"weak password", auth.NewError(auth.CodeWeakPassword, nil), "Password must be at least 6 characters."},
		{"wrapped code", errors.Join(errors.New("ctx"), auth.NewError(auth.CodeInvalidCredential, nil)), "Invalid email or password."},
		{"unknown code", auth.NewError("auth/quota-exceeded", nil), auth.GenericErrorMessage},
		{"no code", errors.New("dial tcp: refused"), auth.GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{loginErr: tt.err}
			c, rec := newController(p, ModeSignIn)
			c.SetEmail("ada@example.com")
			c.SetPassword("secret1")

			c.Submit(context.Background())

			assert.Equal(t, tt.want, c.State().ErrorMessage)
			assert.False(t, c.State().IsSubmitting)
			_, navigated := rec.Target()
			assert.False(t, navigated)
			assert.Len(t, p.Calls(), 1)
		})
	}
}

func TestSubmitRegisterFailureSkipsProfile(t *testing.T) {
	p := &fakeProvider{registerErr: auth.NewError(auth.CodeEmailAlreadyInUse, nil)}
	c, rec := newController(p, ModeRegister)
	c.SetFullName("Ada")
	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")

	c.Submit(context.Background())

	assert.Equal(t, []string{"register:ada@example.com:secret1"}, p.Calls())
	assert.Equal(t, "An account with this email already exists.", c.State().ErrorMessage)
	_, navigated := rec.Target()
	assert.False(t, navigated)
}

func TestSubmitProfileFailureIsSurfaced(t *testing.T) {
	p := &fakeProvider{profileErr: auth.NewError(auth.CodeNetworkRequestFailed, nil)}
	c, rec := newController(p, ModeRegister)
	c.SetFullName("Ada")
	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")

	c.Submit(context.Background())

	assert.Len(t, p.Calls(), 2)
	assert.Equal(t, "Network error. Please check your connection.", c.State().ErrorMessage)
	_, navigated := rec.Target()
	assert.False(t, navigated)
}

func TestIsSubmittingDuringProviderCall(t *testing.T) {
	for _, mode := range []Mode{ModeSignIn, ModeRegister} {
		t.Run(string(mode), func(t *testing.T) {
			p := &fakeProvider{
				block:    make(chan struct{}),
				entered:  make(chan struct{}, 2),
				loginErr: auth.NewError(auth.CodeWrongPassword, nil),
			}
			c, _ := newController(p, mode)
			c.SetFullName("Ada")
			c.SetEmail("ada@example.com")
			c.SetPassword("secret1")

			assert.False(t, c.State().IsSubmitting)

			done := make(chan struct{})
			go func() {
				c.Submit(context.Background())
				close(done)
			}()

			select {
			case <-p.entered:
			case <-time.After(time.Second):
				t.Fatal("provider was not called")
			}
			assert.True(t, c.State().IsSubmitting)

			// A second submit while busy is ignored.
			c.Submit(context.Background())

			close(p.block)
			<-done

			assert.False(t, c.State().IsSubmitting)
			if mode == ModeSignIn {
				assert.Len(t, p.Calls(), 1)
			} else {
				assert.Len(t, p.Calls(), 2)
			}
		})
	}
}

func TestSwitchModeClearsFields(t *testing.T) {
	c, _ := newController(&fakeProvider{}, ModeSignIn)
	c.SetFullName("Ada")
	c.SetEmail("ada@example.com")
	c.SetPassword("secret1")
	c.Validate()
	c.SetPassword("x")
	c.Validate()
	require.NotEmpty(t, c.State().ErrorMessage)

	c.SwitchMode(ModeRegister)
	assertCleared(t, c.State(), ModeRegister)

	c.SetEmail("again@example.com")
	c.SwitchMode(ModeRegister)
	assertCleared(t, c.State(), ModeRegister)

	c.SwitchMode(ModeSignIn)
	c.SwitchMode(ModeSignIn)
	assertCleared(t, c.State(), ModeSignIn)
}

func assertCleared(t *testing.T, s State, mode Mode) {
	t.Helper()
	assert.Equal(t, mode, s.Mode)
	assert.Empty(t, s.FullName)
	assert.Empty(t, s.Email)
	assert.Empty(t, s.Password)
	assert.Empty(t, s.ErrorMessage)
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeRegister, ParseMode("register"))
	assert.Equal(t, ModeSignIn, ParseMode("signin"))
	assert.Equal(t, ModeSignIn, ParseMode(""))
	assert.Equal(t, ModeSignIn, ParseMode("admin"))
}
