package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jharmon96/inkwell/internal/models"
)

func TestCredentialVerifier_Verify(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	createActiveUser(t, db, "jane@example.com", "correct horse battery")

	user, err := verifier.Verify(context.Background(), "jane@example.com", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", user.Email)
}

func TestCredentialVerifier_EmailIsCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	createActiveUser(t, db, "jane@example.com", "correct horse battery")

	user, err := verifier.Verify(context.Background(), "  Jane@Example.COM ", "correct horse battery")
	require.NoError(t, err)
	require.Equal(t, "jane@example.com", user.Email)
}

func TestCredentialVerifier_WrongPassword(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	createActiveUser(t, db, "jane@example.com", "correct horse battery")

	_, err = verifier.Verify(context.Background(), "jane@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestCredentialVerifier_UnknownEmail(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestCredentialVerifier_OAuthAccountHasNoUsablePassword(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	user := &models.User{Email: "google@example.com", IsActive: true}
	require.NoError(t, db.Create(user).Error)

	_, err = verifier.Verify(context.Background(), "google@example.com", "anything")
	require.ErrorIs(t, err, ErrInvalidPassword)
}

func TestCredentialVerifier_EmptyInputs(t *testing.T) {
	db := openTestDB(t)
	verifier, err := NewCredentialVerifier(db)
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), "", "password")
	require.ErrorIs(t, err, ErrInvalidPassword)

	_, err = verifier.Verify(context.Background(), "jane@example.com", "")
	require.ErrorIs(t, err, ErrInvalidPassword)
}
