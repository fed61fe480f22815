package provider

import (
	"context"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
)

// Provider is the identity provider capability handed to the views. It is
// scoped to one device: sign-in state is shared by every view of that device.
type Provider interface {
	RegisterWithPassword(ctx context.Context, email, password string) (*auth.Identity, error)
	AuthenticateWithPassword(ctx context.Context, email, password string) (*auth.Identity, error)
	UpdateProfile(ctx context.Context, identity *auth.Identity, update auth.ProfileUpdate) error
	TerminateSession(ctx context.Context) error
	// SubscribeToSessionChanges delivers the current state and then every
	// transition to fn, one call at a time, until unsubscribe is called.
	SubscribeToSessionChanges(fn func(*auth.Identity)) (unsubscribe func())
}

// Account is what a backend returns for a successful credential operation.
type Account struct {
	Identity auth.Identity
	// Token is the backend credential used for later profile updates and
	// sign-out. It may be empty for backends that need none.
	Token string
}

// Backend defines the contract every identity backend must implement.
// Backends are stateless: they verify or create credentials and report
// identity facts. Session bookkeeping is done by Client.
//
// Failures must be *auth.Error values so the form can map them to text.
type Backend interface {
	// Name returns the backend identifier (e.g. "local", "firebase").
	Name() string

	SignUp(ctx context.Context, email, password string) (*Account, error)
	SignIn(ctx context.Context, email, password string) (*Account, error)

	// UpdateProfile changes the profile of the account behind acct and
	// returns the refreshed identity.
	UpdateProfile(ctx context.Context, acct Account, update auth.ProfileUpdate) (*auth.Identity, error)

	// SignOut releases backend-side state for acct, if the backend keeps any.
	SignOut(ctx context.Context, acct Account) error
}
