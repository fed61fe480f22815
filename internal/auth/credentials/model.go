package credentials

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
)

// userRow is a users row joined with its credential.
type userRow struct {
	ID            uuid.UUID
	Email         string
	DisplayName   sql.NullString
	EmailVerified bool
	Status        string
	PasswordHash  string
}

func (u userRow) identity() auth.Identity {
	return auth.Identity{
		UID:           u.ID.String(),
		Email:         u.Email,
		DisplayName:   u.DisplayName.String,
		Provider:      backendName,
		EmailVerified: u.EmailVerified,
	}
}
