package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/models"
	"github.com/jharmon96/inkwell/pkg/crypto"
)

var (
	// ErrUserNotFound is returned when no account exists for the email.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrInvalidPassword is returned when the password hash does not match.
	ErrInvalidPassword = errors.New("auth: invalid password")
)

// CredentialVerifier checks email/password pairs against stored accounts.
// Activation state is deliberately not checked here; that is the
// orchestrator's concern.
type CredentialVerifier struct {
	db *gorm.DB
}

// NewCredentialVerifier constructs a CredentialVerifier.
func NewCredentialVerifier(db *gorm.DB) (*CredentialVerifier, error) {
	if db == nil {
		return nil, errors.New("credential verifier: db is required")
	}
	return &CredentialVerifier{db: db}, nil
}

// Verify looks up the user by case-insensitive email and compares the
// password against the stored bcrypt hash. OAuth-only accounts have no
// usable hash and always fail the comparison.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidPassword
	}

	var user models.User
	err := v.db.WithContext(ctx).
		Where("email = ?", email).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("credential verifier: query user: %w", err)
	}

	if !user.HasUsablePassword() || !crypto.VerifyPassword(*user.PasswordHash, password) {
		return nil, ErrInvalidPassword
	}

	return &user, nil
}
