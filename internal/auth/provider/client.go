package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/session"
)

// Factory opens provider clients for devices. It is created once per
// process and shared by all requests.
type Factory struct {
	backend Backend
	store   session.Store
	feed    session.Feed
	ttl     time.Duration
	now     func() time.Time
}

func NewFactory(backend Backend, store session.Store, feed session.Feed, ttl time.Duration) *Factory {
	return &Factory{
		backend: backend,
		store:   store,
		feed:    feed,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Client returns the provider client for deviceID.
func (f *Factory) Client(deviceID string) *Client {
	return &Client{factory: f, deviceID: deviceID}
}

// Client implements Provider for a single device on top of a Backend, the
// session store and the session feed.
type Client struct {
	factory  *Factory
	deviceID string
}

var _ Provider = (*Client)(nil)

func (c *Client) RegisterWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	acct, err := c.factory.backend.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, acct)
}

func (c *Client) AuthenticateWithPassword(ctx context.Context, email, password string) (*auth.Identity, error) {
	acct, err := c.factory.backend.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return c.establish(ctx, acct)
}

// establish makes acct the device's session and announces the transition.
func (c *Client) establish(ctx context.Context, acct *Account) (*auth.Identity, error) {
	prev, err := c.current(ctx)
	if err != nil {
		logger.Warn("could not read previous session", map[string]any{
			"device": c.deviceID,
			"error":  err,
		})
	}

	now := c.factory.now()
	s := session.Session{
		SessionID: c.deviceID,
		Identity:  acct.Identity,
		Token:     acct.Token,
		CreatedAt: now,
		ExpiresAt: now.Add(c.factory.ttl),
	}
	if err := c.factory.store.Create(ctx, s); err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}

	identity := acct.Identity
	if !auth.SameSession(prev, &identity) {
		c.publish(ctx, &identity)
	}

	logger.Info("session established", map[string]any{
		"backend": c.factory.backend.Name(),
		"uid":     identity.UID,
	})

	out := identity
	return &out, nil
}

// UpdateProfile updates the profile of identity, which must be the device's
// current user. Profile changes are not session transitions and are not
// announced on the feed.
func (c *Client) UpdateProfile(ctx context.Context, identity *auth.Identity, update auth.ProfileUpdate) error {
	if identity == nil {
		return auth.NewError(auth.CodeNoCurrentUser, nil)
	}

	s, err := c.factory.store.Get(ctx, c.deviceID)
	if err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}
	if s == nil || s.Identity.UID != identity.UID {
		return auth.NewError(auth.CodeNoCurrentUser, errors.New("identity is not signed in on this device"))
	}

	updated, err := c.factory.backend.UpdateProfile(ctx, Account{Identity: s.Identity, Token: s.Token}, update)
	if err != nil {
		return err
	}

	s.Identity = *updated
	if err := c.factory.store.Update(ctx, *s); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return auth.NewError(auth.CodeNoCurrentUser, err)
		}
		return auth.NewError(auth.CodeInternal, err)
	}
	return nil
}

// TerminateSession signs the device out. Signing out without a session is
// not an error.
func (c *Client) TerminateSession(ctx context.Context) error {
	s, err := c.factory.store.Get(ctx, c.deviceID)
	if err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}
	if s == nil {
		return nil
	}

	if err := c.factory.backend.SignOut(ctx, Account{Identity: s.Identity, Token: s.Token}); err != nil {
		return err
	}

	if err := c.factory.store.Delete(ctx, c.deviceID); err != nil {
		return auth.NewError(auth.CodeInternal, err)
	}

	c.publish(ctx, nil)

	logger.Info("session terminated", map[string]any{
		"backend": c.factory.backend.Name(),
		"uid":     s.Identity.UID,
	})
	return nil
}

func (c *Client) SubscribeToSessionChanges(fn func(*auth.Identity)) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go c.dispatch(ctx, fn)

	var once sync.Once
	return func() { once.Do(cancel) }
}

// dispatch delivers the current state and then every transition from the
// feed, in order and one at a time, until ctx is cancelled.
func (c *Client) dispatch(ctx context.Context, fn func(*auth.Identity)) {
	updates, err := c.factory.feed.Listen(ctx, c.deviceID)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("session feed unavailable", map[string]any{
			"device": c.deviceID,
			"error":  err,
		})
	}

	// Read the current state only after the feed is listening, so a
	// transition in between is seen at least once; duplicates are dropped.
	last, err := c.current(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("could not read session", map[string]any{
			"device": c.deviceID,
			"error":  err,
		})
	}

	if ctx.Err() != nil {
		return
	}
	fn(last)

	for {
		select {
		case <-ctx.Done():
			return
		case identity, ok := <-updates:
			if !ok {
				return
			}
			if auth.SameSession(last, identity) {
				continue
			}
			last = identity
			if ctx.Err() != nil {
				return
			}
			fn(identity)
		}
	}
}

func (c *Client) current(ctx context.Context) (*auth.Identity, error) {
	s, err := c.factory.store.Get(ctx, c.deviceID)
	if err != nil || s == nil {
		return nil, err
	}
	identity := s.Identity
	return &identity, nil
}

func (c *Client) publish(ctx context.Context, identity *auth.Identity) {
	if err := c.factory.feed.Publish(ctx, c.deviceID, identity); err != nil {
		logger.Error("failed to publish session transition", map[string]any{
			"device": c.deviceID,
			"error":  err,
		})
	}
}
