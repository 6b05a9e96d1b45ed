package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jharmon96/inkwell/internal/models"
)

func newTestTokenService(t *testing.T, clock *time.Time) *TokenService {
	t.Helper()

	svc, err := NewTokenService(TokenConfig{
		Secret: "test-secret",
		Issuer: "inkwell-test",
		Clock:  func() time.Time { return *clock },
	})
	require.NoError(t, err)
	return svc
}

func TestTokenService_MintAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	user := &models.User{FirstName: "Jane", IsStaff: true}
	user.ID = "user-1"

	pair, err := svc.Mint(user)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	claims, err := svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, TokenTypeAccess, claims.TokenType)
	require.True(t, claims.IsStaff)
	require.Equal(t, "inkwell-test", claims.Issuer)

	refreshClaims, err := svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, TokenTypeRefresh, refreshClaims.TokenType)
}

func TestTokenService_RejectsWrongType(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	user := &models.User{}
	user.ID = "user-1"

	pair, err := svc.Mint(user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.RefreshToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify(pair.AccessToken, TokenTypeRefresh)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_ExpiryBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	user := &models.User{}
	user.ID = "user-1"

	pair, err := svc.Mint(user)
	require.NoError(t, err)

	// Access token survives just under 3 hours.
	now = now.Add(3*time.Hour - time.Minute)
	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)

	// Past 3 hours it is expired, distinctly from other failures.
	now = now.Add(2 * time.Minute)
	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenExpired)

	// The refresh token lasts 7 days.
	_, err = svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)

	now = now.Add(7 * 24 * time.Hour)
	_, err = svc.Verify(pair.RefreshToken, TokenTypeRefresh)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_RejectsForeignSignature(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	other, err := NewTokenService(TokenConfig{
		Secret: "different-secret",
		Issuer: "inkwell-test",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	user := &models.User{}
	user.ID = "user-1"

	pair, err := other.Mint(user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsForeignIssuer(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	other, err := NewTokenService(TokenConfig{
		Secret: "test-secret",
		Issuer: "someone-else",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	user := &models.User{}
	user.ID = "user-1"

	pair, err := other.Mint(user)
	require.NoError(t, err)

	_, err = svc.Verify(pair.AccessToken, TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsGarbage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestTokenService(t, &now)

	_, err := svc.Verify("", TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)

	_, err = svc.Verify("not-a-token", TokenTypeAccess)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService(TokenConfig{})
	require.Error(t, err)
}
