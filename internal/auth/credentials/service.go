// Package credentials is the local identity backend: email/password accounts
// stored in Postgres with bcrypt hashes.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/lib/pq"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
	"github.com/Amitphadol/Babylon-login-app/internal/auth/provider"
	"github.com/Amitphadol/Babylon-login-app/internal/db"
)

const (
	backendName = "local"

	statusActive = "active"

	pqUniqueViolation = "23505"
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

var _ provider.Backend = (*Service)(nil)

func (s *Service) Name() string {
	return backendName
}

func (s *Service) SignUp(
	ctx context.Context,
	email string,
	password string,
) (*provider.Account, error) {

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	hash, version, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}
	defer func() { _ = tx.Rollback() }()

	// 1. Reject emails that already have an account
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE LOWER(email) = LOWER($1)
		)
	`, email).Scan(&exists)
	if err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}
	if exists {
		return nil, auth.NewError(auth.CodeEmailAlreadyInUse, nil)
	}

	// 2. Create user
	row := userRow{Status: statusActive}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, email_verified)
		VALUES ($1, false)
		RETURNING id, email
	`, email).Scan(&row.ID, &row.Email)
	if err != nil {
		return nil, mapWriteError(err)
	}

	// 3. Insert credentials
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, row.ID, hash, version)
	if err != nil {
		return nil, mapWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}

	return &provider.Account{Identity: row.identity()}, nil
}

func (s *Service) SignIn(
	ctx context.Context,
	email string,
	password string,
) (*provider.Account, error) {

	var row userRow

	// 1. Find user + credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.email, u.display_name, u.email_verified, u.status, c.password_hash
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, strings.TrimSpace(email)).Scan(
		&row.ID,
		&row.Email,
		&row.DisplayName,
		&row.EmailVerified,
		&row.Status,
		&row.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		// hide whether user exists or not
		return nil, auth.NewError(auth.CodeInvalidCredential, nil)
	}
	if err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}

	// 2. Verify password
	if err := VerifyPassword(row.PasswordHash, password); err != nil {
		return nil, auth.NewError(auth.CodeInvalidCredential, nil)
	}

	if row.Status != statusActive {
		return nil, auth.NewError(auth.CodeUserDisabled, fmt.Errorf("status %q", row.Status))
	}

	return &provider.Account{Identity: row.identity()}, nil
}

func (s *Service) UpdateProfile(
	ctx context.Context,
	acct provider.Account,
	update auth.ProfileUpdate,
) (*auth.Identity, error) {

	row := userRow{Status: statusActive}
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET display_name = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id, email, display_name, email_verified
	`, update.DisplayName, acct.Identity.UID).Scan(
		&row.ID,
		&row.Email,
		&row.DisplayName,
		&row.EmailVerified,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.NewError(auth.CodeUserNotFound, nil)
	}
	if err != nil {
		return nil, auth.NewError(auth.CodeInternal, err)
	}

	identity := row.identity()
	return &identity, nil
}

// SignOut is a no-op: local sessions live only in the session store.
func (s *Service) SignOut(context.Context, provider.Account) error {
	return nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", auth.NewError(auth.CodeInvalidEmail, err)
	}
	return email, nil
}

func mapWriteError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
		return auth.NewError(auth.CodeEmailAlreadyInUse, err)
	}
	return auth.NewError(auth.CodeInternal, err)
}
