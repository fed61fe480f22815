// Package authform implements the two-mode (sign-in / register) credential
// form: local validation, submission to the identity provider and mapping of
// provider failures to user-facing text.
package authform

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
)

const MinPasswordLength = 6

const (
	MsgFullNameRequired = "Full name is required."
	MsgEmailRequired    = "Email address is required."
	MsgPasswordRequired = "Password is required."
	MsgPasswordTooShort = "Password must be at least 6 characters."
)

type Mode string

const (
	ModeSignIn   Mode = "signin"
	ModeRegister Mode = "register"
)

// ParseMode maps a request value to a Mode, defaulting to sign-in.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRegister {
		return ModeRegister
	}
	return ModeSignIn
}

// Provider is the subset of the identity provider the form needs.
type Provider interface {
	RegisterWithPassword(ctx context.Context, email, password string) (*auth.Identity, error)
	AuthenticateWithPassword(ctx context.Context, email, password string) (*auth.Identity, error)
	UpdateProfile(ctx context.Context, identity *auth.Identity, update auth.ProfileUpdate) error
}

// State is a snapshot of the form.
type State struct {
	Mode         Mode
	FullName     string
	Email        string
	Password     string
	ErrorMessage string
	IsSubmitting bool
}

type Controller struct {
	provider Provider
	nav      nav.Navigator

	mu    sync.Mutex
	state State
}

func New(p Provider, n nav.Navigator, mode Mode) *Controller {
	return &Controller{
		provider: p,
		nav:      n,
		state:    State{Mode: mode},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) SetFullName(v string) { c.update(func(s *State) { s.FullName = v }) }
func (c *Controller) SetEmail(v string)    { c.update(func(s *State) { s.Email = v }) }
func (c *Controller) SetPassword(v string) { c.update(func(s *State) { s.Password = v }) }

// SwitchMode changes the form mode and discards all input and the current
// error, even when next equals the current mode.
func (c *Controller) SwitchMode(next Mode) {
	c.update(func(s *State) {
		s.Mode = next
		s.FullName = ""
		s.Email = ""
		s.Password = ""
		s.ErrorMessage = ""
	})
}

// Validate checks the fields in a fixed order and records the first failure
// as the error message.
func (c *Controller) Validate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := validate(c.state)
	c.state.ErrorMessage = msg
	return msg == ""
}

func validate(s State) string {
	switch {
	case s.Mode == ModeRegister && strings.TrimSpace(s.FullName) == "":
		return MsgFullNameRequired
	case strings.TrimSpace(s.Email) == "":
		return MsgEmailRequired
	case s.Password == "":
		return MsgPasswordRequired
	case utf8.RuneCountInString(s.Password) < MinPasswordLength:
		return MsgPasswordTooShort
	}
	return ""
}

// Submit validates the form and, when valid, performs the provider call for
// the current mode. On success it navigates to the landing view; on failure
// it sets the mapped error message. A submit while another is in flight is
// ignored.
func (c *Controller) Submit(ctx context.Context) {
	c.mu.Lock()
	if c.state.IsSubmitting {
		c.mu.Unlock()
		return
	}
	if msg := validate(c.state); msg != "" {
		c.state.ErrorMessage = msg
		c.mu.Unlock()
		return
	}
	c.state.ErrorMessage = ""
	c.state.IsSubmitting = true
	s := c.state
	c.mu.Unlock()

	defer c.update(func(s *State) { s.IsSubmitting = false })

	var err error
	if s.Mode == ModeRegister {
		err = c.register(ctx, s)
	} else {
		_, err = c.provider.AuthenticateWithPassword(ctx, strings.TrimSpace(s.Email), s.Password)
	}

	if err != nil {
		msg := auth.Message(auth.CodeOf(err))
		c.update(func(s *State) { s.ErrorMessage = msg })
		return
	}

	c.nav.Navigate(nav.LandingPath)
}

// register creates the account and then sets its display name. A failed
// profile update leaves the account in place and is reported like any other
// provider failure.
func (c *Controller) register(ctx context.Context, s State) error {
	identity, err := c.provider.RegisterWithPassword(ctx, strings.TrimSpace(s.Email), s.Password)
	if err != nil {
		return err
	}
	return c.provider.UpdateProfile(ctx, identity, auth.ProfileUpdate{
		DisplayName: strings.TrimSpace(s.FullName),
	})
}

func (c *Controller) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	c.mu.Unlock()
}
