package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/auth"
	"github.com/jharmon96/inkwell/internal/database"
	"github.com/jharmon96/inkwell/internal/models"
	"github.com/jharmon96/inkwell/pkg/crypto"
	apperrors "github.com/jharmon96/inkwell/pkg/errors"
	"github.com/jharmon96/inkwell/pkg/logger"
	"github.com/jharmon96/inkwell/pkg/metrics"
)

// RegisterInput captures the fields accepted at registration.
type RegisterInput struct {
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// AuthService drives the account lifecycle: Unregistered ->
// PendingActivation -> Active, and the dual-factor login transaction. It is
// the only component that calls its peers; none of them call each other.
type AuthService struct {
	db         *gorm.DB
	otp        *auth.OTPService
	tokens     *auth.TokenService
	verifier   *auth.CredentialVerifier
	google     auth.IdentityVerifier
	reconciler *auth.Reconciler
	log        *zap.Logger
}

// NewAuthService constructs the orchestrator from its collaborators. The
// Google verifier may be nil when the Google flow is disabled.
func NewAuthService(
	db *gorm.DB,
	otp *auth.OTPService,
	tokens *auth.TokenService,
	verifier *auth.CredentialVerifier,
	google auth.IdentityVerifier,
	reconciler *auth.Reconciler,
) (*AuthService, error) {
	if db == nil {
		return nil, errors.New("auth service: db is required")
	}
	if otp == nil {
		return nil, errors.New("auth service: otp service is required")
	}
	if tokens == nil {
		return nil, errors.New("auth service: token service is required")
	}
	if verifier == nil {
		return nil, errors.New("auth service: credential verifier is required")
	}
	if reconciler == nil {
		return nil, errors.New("auth service: reconciler is required")
	}

	return &AuthService{
		db:         db,
		otp:        otp,
		tokens:     tokens,
		verifier:   verifier,
		google:     google,
		reconciler: reconciler,
		log:        logger.WithModule("auth"),
	}, nil
}

// Register creates a pending-activation account and issues its first
// passcode. The email must be free; the unique index backs up the pre-check
// under concurrent registrations.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))

	var existing models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&existing).Error
	if err == nil {
		return nil, apperrors.ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("auth service: check email: %w", err)
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth service: hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: &hashed,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		IsActive:     false,
		IsStaff:      false,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueConstraintError(err) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, fmt.Errorf("auth service: create user: %w", err)
	}

	metrics.Registrations.WithLabelValues("local").Inc()

	// Issuance failure is not fatal to registration; the account exists and
	// the user can request a resend.
	if _, err := s.otp.Issue(ctx, user); err != nil {
		s.log.Warn("initial passcode issuance failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	return user, nil
}

// Activate validates the submitted passcode and flips the account to active.
// Only the Valid outcome activates; every other outcome is reported to the
// caller as the same coarse failure.
func (s *AuthService) Activate(ctx context.Context, email, otpCode string) (*models.User, error) {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if user.IsActive {
		return nil, apperrors.ErrAlreadyActive
	}

	outcome, err := s.otp.Validate(ctx, user.ID, otpCode)
	if err != nil {
		return nil, fmt.Errorf("auth service: validate passcode: %w", err)
	}
	if outcome != auth.OutcomeValid {
		s.log.Debug("activation passcode rejected",
			zap.String("user_id", user.ID),
			zap.String("outcome", outcome.String()),
		)
		return nil, apperrors.ErrInvalidOrExpiredOTP
	}

	if err := s.db.WithContext(ctx).
		Model(user).
		Update("is_active", true).Error; err != nil {
		return nil, fmt.Errorf("auth service: activate user: %w", err)
	}

	user.IsActive = true
	return user, nil
}

// ResendOTP issues a fresh passcode, invalidating any live one.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	user, err := s.findByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.IsActive {
		return apperrors.ErrAlreadyActive
	}

	if _, err := s.otp.Issue(ctx, user); err != nil {
		return fmt.Errorf("auth service: reissue passcode: %w", err)
	}

	return nil
}

// Login runs the dual-factor transaction: password first, then passcode.
// Both must pass before any token is minted, and failures never reveal
// whether the email exists or which factor was wrong.
func (s *AuthService) Login(ctx context.Context, email, password, otpCode string) (auth.TokenPair, *models.User, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
			metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
			return auth.TokenPair{}, nil, apperrors.ErrInvalidCredentials
		}
		return auth.TokenPair{}, nil, fmt.Errorf("auth service: verify credentials: %w", err)
	}

	if !user.IsActive {
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return auth.TokenPair{}, nil, apperrors.ErrInactiveAccount
	}

	outcome, err := s.otp.Validate(ctx, user.ID, otpCode)
	if err != nil {
		return auth.TokenPair{}, nil, fmt.Errorf("auth service: validate passcode: %w", err)
	}
	if outcome != auth.OutcomeValid {
		s.log.Debug("login passcode rejected",
			zap.String("user_id", user.ID),
			zap.String("outcome", outcome.String()),
		)
		metrics.AuthAttempts.WithLabelValues("password", "failure").Inc()
		return auth.TokenPair{}, nil, apperrors.ErrInvalidOrExpiredOTP
	}

	pair, err := s.tokens.Mint(user)
	if err != nil {
		return auth.TokenPair{}, nil, fmt.Errorf("auth service: mint tokens: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("password", "success").Inc()
	return pair, user, nil
}

// GoogleLogin verifies the third-party access token, reconciles the identity
// to a local account and mints tokens. No passcode step: activation is
// implicit for this path.
func (s *AuthService) GoogleLogin(ctx context.Context, accessToken string) (auth.TokenPair, *models.User, error) {
	if s.google == nil {
		return auth.TokenPair{}, nil, apperrors.ErrProviderUnavailable
	}

	identity, err := s.google.Verify(ctx, accessToken)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("google", "failure").Inc()
		switch {
		case errors.Is(err, auth.ErrNoEmail):
			return auth.TokenPair{}, nil, apperrors.ErrGoogleNoEmail
		case errors.Is(err, auth.ErrProviderUnavailable):
			return auth.TokenPair{}, nil, apperrors.ErrProviderUnavailable.WithInternal(err)
		default:
			return auth.TokenPair{}, nil, apperrors.ErrGoogleTokenInvalid.WithInternal(err)
		}
	}

	user, created, err := s.reconciler.Reconcile(ctx, identity)
	if err != nil {
		return auth.TokenPair{}, nil, fmt.Errorf("auth service: reconcile identity: %w", err)
	}
	if created {
		metrics.Registrations.WithLabelValues("google").Inc()
	}

	pair, err := s.tokens.Mint(user)
	if err != nil {
		return auth.TokenPair{}, nil, fmt.Errorf("auth service: mint tokens: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("google", "success").Inc()
	return pair, user, nil
}

// Refresh exchanges a valid refresh token for a fresh token pair.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken, auth.TokenTypeRefresh)
	if err != nil {
		return auth.TokenPair{}, apperrors.ErrUnauthorized.WithInternal(err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).Take(&user, "id = ?", claims.UserID).Error; err != nil {
		return auth.TokenPair{}, apperrors.ErrUnauthorized.WithInternal(err)
	}

	pair, err := s.tokens.Mint(&user)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("auth service: mint tokens: %w", err)
	}

	return pair, nil
}

// GetUser loads a user by id, used by the authenticated profile endpoint.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: load user: %w", err)
	}
	return &user, nil
}

func (s *AuthService) findByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth service: find user: %w", err)
	}

	return &user, nil
}
