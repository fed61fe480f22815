package credentials

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/Amitphadol/Babylon-login-app/internal/auth"
)

const (
	HashVersionBcrypt = "bcrypt"

	MinPasswordLength = 6
)

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (hash string, version string, err error) {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "", "", auth.NewError(auth.CodeWeakPassword, errors.New("password too short"))
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		// bcrypt rejects passwords longer than 72 bytes
		return "", "", auth.NewError(auth.CodeWeakPassword, err)
	}

	return string(bytes), HashVersionBcrypt, nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}
