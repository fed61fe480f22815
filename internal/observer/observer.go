// Package observer keeps a view's notion of who is signed in consistent with
// the identity provider and enforces the boundary between the anonymous and
// the authenticated zone.
package observer

import (
	"context"
	"sync"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/logger"
	"github.com/Amitphadol/Babylon-login-app/internal/nav"
)

type Status int

const (
	StatusLoading Status = iota
	StatusAnonymous
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "loading"
	}
}

// Zone is the access rule of the view hosting the observer.
type Zone int

const (
	// ZoneAuthenticated sends anonymous users to the entry view.
	ZoneAuthenticated Zone = iota
	// ZoneAnonymous sends authenticated users to the landing view.
	ZoneAnonymous
)

// Provider is the subset of the identity provider the observer needs.
type Provider interface {
	TerminateSession(ctx context.Context) error
	SubscribeToSessionChanges(fn func(*auth.Identity)) (unsubscribe func())
}

// View is a snapshot of the observer state.
type View struct {
	Status   Status
	Identity *auth.Identity
	// Loading stays true until a populated session has been received.
	Loading bool
}

type Option func(*Observer)

// WithZone sets the access rule; the default is ZoneAuthenticated.
func WithZone(z Zone) Option {
	return func(o *Observer) { o.zone = z }
}

// WithOnChange registers a hook called with every new view, after the
// observer has applied the notification and before any navigation.
func WithOnChange(fn func(View)) Option {
	return func(o *Observer) { o.onChange = fn }
}

type Observer struct {
	provider Provider
	nav      nav.Navigator
	zone     Zone
	onChange func(View)

	mu          sync.Mutex
	view        View
	mounted     bool
	disposed    bool
	unsubscribe func()
	notified    bool
	// settled is closed once the first notification, including its
	// navigation, has been handled.
	settled chan struct{}
}

func New(p Provider, n nav.Navigator, opts ...Option) *Observer {
	o := &Observer{
		provider: p,
		nav:      n,
		zone:     ZoneAuthenticated,
		view:     View{Status: StatusLoading, Loading: true},
		settled:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Mount subscribes to session changes. Only the first call subscribes.
func (o *Observer) Mount() {
	o.mu.Lock()
	if o.mounted || o.disposed {
		o.mu.Unlock()
		return
	}
	o.mounted = true
	o.mu.Unlock()

	unsubscribe := o.provider.SubscribeToSessionChanges(o.handle)

	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		unsubscribe()
		return
	}
	o.unsubscribe = unsubscribe
	o.mu.Unlock()
}

// Unmount releases the subscription. It is safe to call more than once and
// from any goroutine; notifications still in flight are discarded.
func (o *Observer) Unmount() {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}
	o.disposed = true
	unsubscribe := o.unsubscribe
	o.unsubscribe = nil
	o.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (o *Observer) handle(identity *auth.Identity) {
	o.mu.Lock()
	if o.disposed {
		o.mu.Unlock()
		return
	}

	var target string
	if identity == nil {
		o.view.Status = StatusAnonymous
		o.view.Identity = nil
		if o.zone == ZoneAuthenticated {
			target = nav.EntryPath
		}
	} else {
		projection := *identity
		o.view.Status = StatusAuthenticated
		o.view.Identity = &projection
		o.view.Loading = false
		if o.zone == ZoneAnonymous {
			target = nav.LandingPath
		}
	}
	view := o.snapshot()
	first := !o.notified
	o.notified = true
	o.mu.Unlock()

	if o.onChange != nil {
		o.onChange(view)
	}
	if target != "" {
		o.nav.Navigate(target)
	}
	if first {
		close(o.settled)
	}
}

// Logout ends the provider session and returns to the entry view. Failures
// are logged and otherwise ignored; the next notification corrects the view.
func (o *Observer) Logout(ctx context.Context) {
	if err := o.provider.TerminateSession(ctx); err != nil {
		logger.Error("error logging out", map[string]any{
			"error": err,
		})
		return
	}
	o.nav.Navigate(nav.EntryPath)
}

func (o *Observer) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

// Wait blocks until the first notification has been applied, and any
// navigation it caused issued, or ctx is done. It returns the view at that
// point.
func (o *Observer) Wait(ctx context.Context) (View, error) {
	select {
	case <-o.settled:
		return o.View(), nil
	case <-ctx.Done():
		return o.View(), ctx.Err()
	}
}

func (o *Observer) snapshot() View {
	v := o.view
	if v.Identity != nil {
		projection := *v.Identity
		v.Identity = &projection
	}
	return v
}
