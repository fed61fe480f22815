package session

import (
	"context"
	"time"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
)

// Session is the provider's record of who is signed in on one device.
type Session struct {
	SessionID string        `json:"session_id"` // device identifier from the session cookie
	Identity  auth.Identity `json:"identity"`
	Token     string        `json:"token,omitempty"` // backend credential, opaque to callers
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"` // absolute expiry time
}

// Store defines how device sessions are stored and retrieved.
// Get returns (nil, nil) when no session exists.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
