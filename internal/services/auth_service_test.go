package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/auth"
	"github.com/jharmon96/inkwell/internal/models"
	apperrors "github.com/jharmon96/inkwell/pkg/errors"
	"github.com/jharmon96/inkwell/pkg/mail"
)

// stubIdentityVerifier returns a fixed identity or error.
type stubIdentityVerifier struct {
	identity *auth.ExternalIdentity
	err      error
}

func (s *stubIdentityVerifier) Verify(context.Context, string) (*auth.ExternalIdentity, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.identity, nil
}

// captureMailer records the last passcode email body.
type captureMailer struct {
	bodies []string
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.bodies = append(m.bodies, msg.Body)
	return nil
}

type authHarness struct {
	db      *gorm.DB
	svc     *AuthService
	otp     *auth.OTPService
	tokens  *auth.TokenService
	google  *stubIdentityVerifier
	mailer  *captureMailer
	now     time.Time
	advance func(time.Duration)
}

func newAuthHarness(t *testing.T) *authHarness {
	t.Helper()

	db := openTestDB(t)

	h := &authHarness{
		db:     db,
		google: &stubIdentityVerifier{},
		mailer: &captureMailer{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.advance = func(d time.Duration) { h.now = h.now.Add(d) }
	clock := func() time.Time { return h.now }

	otp, err := auth.NewOTPService(db, h.mailer,
		auth.WithOTPClock(clock),
		auth.WithSynchronousDispatch(),
	)
	require.NoError(t, err)
	h.otp = otp

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret: "test-secret",
		Issuer: "inkwell-test",
		Clock:  clock,
	})
	require.NoError(t, err)
	h.tokens = tokens

	verifier, err := auth.NewCredentialVerifier(db)
	require.NoError(t, err)

	reconciler, err := auth.NewReconciler(db)
	require.NoError(t, err)

	svc, err := NewAuthService(db, otp, tokens, verifier, h.google, reconciler)
	require.NoError(t, err)
	h.svc = svc

	return h
}

// issuedCode extracts the most recently emailed passcode.
func (h *authHarness) issuedCode(t *testing.T, userID string) string {
	t.Helper()

	var passcode models.OneTimePasscode
	require.NoError(t, h.db.Where("user_id = ?", userID).Take(&passcode).Error)
	return passcode.Code
}

func registerInput(email string) RegisterInput {
	return RegisterInput{
		Email:     email,
		FirstName: "Alice",
		LastName:  "Example",
		Password:  "correct horse battery",
	}
}

func TestAuthService_RegisterCreatesPendingAccount(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("Alice@Example.com"))
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", user.Email)
	require.False(t, user.IsActive)
	require.False(t, user.IsStaff)
	require.True(t, user.HasUsablePassword())

	// Registration issues and mails the first passcode.
	require.Len(t, h.mailer.bodies, 1)
	require.Contains(t, h.mailer.bodies[0], h.issuedCode(t, user.ID))
}

func TestAuthService_RegisterDuplicateEmail(t *testing.T) {
	h := newAuthHarness(t)

	_, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)

	_, err = h.svc.Register(context.Background(), registerInput("ALICE@example.com"))
	require.ErrorIs(t, err, apperrors.ErrEmailTaken)
}

func TestAuthService_ActivateHappyPath(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)

	activated, err := h.svc.Activate(context.Background(), "alice@example.com", h.issuedCode(t, user.ID))
	require.NoError(t, err)
	require.True(t, activated.IsActive)

	// Activation is one-way and repeat calls are rejected.
	_, err = h.svc.Activate(context.Background(), "alice@example.com", "000000")
	require.ErrorIs(t, err, apperrors.ErrAlreadyActive)
}

func TestAuthService_ActivateWrongCode(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)

	code := h.issuedCode(t, user.ID)
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	_, err = h.svc.Activate(context.Background(), "alice@example.com", wrong)
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)

	var stored models.User
	require.NoError(t, h.db.Take(&stored, "id = ?", user.ID).Error)
	require.False(t, stored.IsActive)
}

func TestAuthService_ActivateExpiredCode(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)
	code := h.issuedCode(t, user.ID)

	h.advance(6 * time.Minute)

	_, err = h.svc.Activate(context.Background(), "alice@example.com", code)
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)
}

func TestAuthService_ActivateUnknownEmail(t *testing.T) {
	h := newAuthHarness(t)

	_, err := h.svc.Activate(context.Background(), "ghost@example.com", "123456")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAuthService_ResendOTPInvalidatesPrevious(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)
	old := h.issuedCode(t, user.ID)

	require.NoError(t, h.svc.ResendOTP(context.Background(), "alice@example.com"))
	fresh := h.issuedCode(t, user.ID)

	if old != fresh {
		_, err = h.svc.Activate(context.Background(), "alice@example.com", old)
		require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)
	}

	activated, err := h.svc.Activate(context.Background(), "alice@example.com", fresh)
	require.NoError(t, err)
	require.True(t, activated.IsActive)

	require.ErrorIs(t,
		h.svc.ResendOTP(context.Background(), "alice@example.com"),
		apperrors.ErrAlreadyActive,
	)
}

func TestAuthService_ResendOTPUnknownEmail(t *testing.T) {
	h := newAuthHarness(t)

	require.ErrorIs(t,
		h.svc.ResendOTP(context.Background(), "ghost@example.com"),
		apperrors.ErrNotFound,
	)
}

// activateUser registers and activates an account, returning the user.
func (h *authHarness) activateUser(t *testing.T, email string) *models.User {
	t.Helper()

	user, err := h.svc.Register(context.Background(), registerInput(email))
	require.NoError(t, err)

	activated, err := h.svc.Activate(context.Background(), email, h.issuedCode(t, user.ID))
	require.NoError(t, err)
	return activated
}

func TestAuthService_LoginHappyPath(t *testing.T) {
	h := newAuthHarness(t)
	user := h.activateUser(t, "alice@example.com")

	// Activation consumed the registration passcode; a login needs a live one.
	_, err := h.otp.Issue(context.Background(), user)
	require.NoError(t, err)
	code := h.issuedCode(t, user.ID)

	pair, loggedIn, err := h.svc.Login(context.Background(), "alice@example.com", "correct horse battery", code)
	require.NoError(t, err)
	require.Equal(t, user.ID, loggedIn.ID)

	claims, err := h.tokens.Verify(pair.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	refreshClaims, err := h.tokens.Verify(pair.RefreshToken, auth.TokenTypeRefresh)
	require.NoError(t, err)
	require.Equal(t, user.ID, refreshClaims.UserID)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	h := newAuthHarness(t)
	user := h.activateUser(t, "alice@example.com")

	_, err := h.otp.Issue(context.Background(), user)
	require.NoError(t, err)
	code := h.issuedCode(t, user.ID)

	_, _, err = h.svc.Login(context.Background(), "alice@example.com", "wrong password", code)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	// A correct password with a wrong passcode issues no token either.
	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	_, _, err = h.svc.Login(context.Background(), "alice@example.com", "correct horse battery", wrong)
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)
}

func TestAuthService_LoginUnknownEmailIsIndistinguishable(t *testing.T) {
	h := newAuthHarness(t)

	_, _, err := h.svc.Login(context.Background(), "ghost@example.com", "whatever", "123456")
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestAuthService_LoginInactiveAccount(t *testing.T) {
	h := newAuthHarness(t)

	user, err := h.svc.Register(context.Background(), registerInput("alice@example.com"))
	require.NoError(t, err)

	// Even a correct password plus the live passcode is rejected pre-activation.
	code := h.issuedCode(t, user.ID)
	_, _, err = h.svc.Login(context.Background(), "alice@example.com", "correct horse battery", code)
	require.ErrorIs(t, err, apperrors.ErrInactiveAccount)
}

func TestAuthService_LoginExhaustedAttempts(t *testing.T) {
	h := newAuthHarness(t)
	user := h.activateUser(t, "alice@example.com")

	_, err := h.otp.Issue(context.Background(), user)
	require.NoError(t, err)
	code := h.issuedCode(t, user.ID)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	for i := 0; i < 3; i++ {
		_, _, err := h.svc.Login(context.Background(), "alice@example.com", "correct horse battery", wrong)
		require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)
	}

	// Fourth attempt with the right code is still rejected.
	_, _, err = h.svc.Login(context.Background(), "alice@example.com", "correct horse battery", code)
	require.ErrorIs(t, err, apperrors.ErrInvalidOrExpiredOTP)
}

func TestAuthService_GoogleLoginCreatesAccount(t *testing.T) {
	h := newAuthHarness(t)
	h.google.identity = &auth.ExternalIdentity{
		Subject:    "google-sub-1",
		Email:      "new@example.com",
		GivenName:  "New",
		FamilyName: "Person",
	}

	pair, user, err := h.svc.GoogleLogin(context.Background(), "opaque-access-token")
	require.NoError(t, err)
	require.True(t, user.IsActive)
	require.False(t, user.HasUsablePassword())

	claims, err := h.tokens.Verify(pair.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
}

func TestAuthService_GoogleLoginLinksExistingAccount(t *testing.T) {
	h := newAuthHarness(t)
	existing := h.activateUser(t, "alice@example.com")

	h.google.identity = &auth.ExternalIdentity{Email: "alice@example.com"}

	_, user, err := h.svc.GoogleLogin(context.Background(), "opaque-access-token")
	require.NoError(t, err)
	require.Equal(t, existing.ID, user.ID)
	require.True(t, user.HasUsablePassword())
}

func TestAuthService_GoogleLoginErrorMapping(t *testing.T) {
	h := newAuthHarness(t)

	h.google.err = auth.ErrNoEmail
	_, _, err := h.svc.GoogleLogin(context.Background(), "token")
	require.ErrorIs(t, err, apperrors.ErrGoogleNoEmail)

	h.google.err = auth.ErrProviderUnavailable
	_, _, err = h.svc.GoogleLogin(context.Background(), "token")
	requireAppErrorCode(t, err, apperrors.ErrProviderUnavailable.Code)

	h.google.err = auth.ErrInvalidToken
	_, _, err = h.svc.GoogleLogin(context.Background(), "token")
	requireAppErrorCode(t, err, apperrors.ErrGoogleTokenInvalid.Code)
}

func TestAuthService_GoogleLoginDisabled(t *testing.T) {
	h := newAuthHarness(t)

	verifier, err := auth.NewCredentialVerifier(h.db)
	require.NoError(t, err)
	reconciler, err := auth.NewReconciler(h.db)
	require.NoError(t, err)

	svc, err := NewAuthService(h.db, h.otp, h.tokens, verifier, nil, reconciler)
	require.NoError(t, err)

	_, _, err = svc.GoogleLogin(context.Background(), "token")
	require.ErrorIs(t, err, apperrors.ErrProviderUnavailable)
}

func TestAuthService_Refresh(t *testing.T) {
	h := newAuthHarness(t)
	user := h.activateUser(t, "alice@example.com")

	pair, err := h.tokens.Mint(user)
	require.NoError(t, err)

	fresh, err := h.svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)

	claims, err := h.tokens.Verify(fresh.AccessToken, auth.TokenTypeAccess)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)

	// Access tokens cannot be used as refresh tokens.
	_, err = h.svc.Refresh(context.Background(), pair.AccessToken)
	requireAppErrorCode(t, err, apperrors.ErrUnauthorized.Code)

	_, err = h.svc.Refresh(context.Background(), "garbage")
	requireAppErrorCode(t, err, apperrors.ErrUnauthorized.Code)
}

func requireAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	require.Equal(t, code, appErr.Code)
}
