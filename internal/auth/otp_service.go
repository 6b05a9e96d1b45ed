package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jharmon96/inkwell/internal/models"
	"github.com/jharmon96/inkwell/pkg/crypto"
	"github.com/jharmon96/inkwell/pkg/logger"
	"github.com/jharmon96/inkwell/pkg/mail"
	"github.com/jharmon96/inkwell/pkg/metrics"
)

const (
	defaultOTPTTL      = 5 * time.Minute
	defaultOTPAttempts = 3
	defaultOTPDigits   = 6

	// Bound on CAS retries when concurrent validations race on the same row.
	// Each retry re-reads the row, so the loop terminates as soon as the row
	// is consumed, exhausted, or expired.
	maxValidateRetries = 4

	dispatchTimeout = 10 * time.Second
)

// Outcome classifies the result of a passcode validation.
type Outcome int

const (
	OutcomeValid Outcome = iota
	OutcomeInvalid
	OutcomeExpired
	OutcomeExhausted
	OutcomeNotFound
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeExpired:
		return "expired"
	case OutcomeExhausted:
		return "exhausted"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// OTPOption customises the OTPService.
type OTPOption func(*OTPService)

// WithOTPClock injects a custom time source.
func WithOTPClock(clock func() time.Time) OTPOption {
	return func(s *OTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithOTPTTL overrides the passcode lifetime.
func WithOTPTTL(d time.Duration) OTPOption {
	return func(s *OTPService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// WithOTPAttempts overrides the number of permitted validation attempts.
func WithOTPAttempts(n int) OTPOption {
	return func(s *OTPService) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithSynchronousDispatch makes Issue wait for the email send, used in tests.
func WithSynchronousDispatch() OTPOption {
	return func(s *OTPService) {
		s.syncDispatch = true
	}
}

// OTPService generates, stores, validates and expires one-time passcodes.
// Each user has at most one live passcode; issuing replaces it outright.
type OTPService struct {
	db           *gorm.DB
	mailer       mail.Mailer
	now          func() time.Time
	ttl          time.Duration
	attempts     int
	digits       int
	syncDispatch bool
	log          *zap.Logger
}

// NewOTPService constructs an OTPService. The mailer may be nil, in which
// case issuance still succeeds and delivery is skipped.
func NewOTPService(db *gorm.DB, mailer mail.Mailer, opts ...OTPOption) (*OTPService, error) {
	if db == nil {
		return nil, errors.New("otp service: db is required")
	}

	service := &OTPService{
		db:       db,
		mailer:   mailer,
		now:      time.Now,
		ttl:      defaultOTPTTL,
		attempts: defaultOTPAttempts,
		digits:   defaultOTPDigits,
		log:      logger.WithModule("otp"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// Issue generates a fresh passcode for the user and persists it as the sole
// live passcode, invalidating any previous one. Delivery is best-effort: a
// failed send never rolls back issuance, the user can request a resend.
func (s *OTPService) Issue(ctx context.Context, user *models.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", errors.New("otp service: user is required")
	}

	code, err := crypto.RandomDigits(s.digits)
	if err != nil {
		return "", fmt.Errorf("otp service: generate code: %w", err)
	}

	now := s.now()
	passcode := models.OneTimePasscode{
		UserID:            user.ID,
		Code:              code,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.ttl),
		RemainingAttempts: s.attempts,
		Consumed:          false,
	}

	// Single-row-per-user upsert: concurrent issues interleave, last write wins.
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"code", "issued_at", "expires_at", "remaining_attempts", "consumed", "updated_at",
			}),
		}).
		Create(&passcode).Error
	if err != nil {
		return "", fmt.Errorf("otp service: store passcode: %w", err)
	}

	s.dispatch(user.Email, user.FullName(), code)

	return code, nil
}

// Validate checks a submitted code against the user's live passcode.
// Mismatches decrement the attempt counter and a match consumes the passcode,
// both through conditional updates keyed on the observed row state so that
// two concurrent validations can never both succeed and the counter is never
// decremented twice for one attempt.
func (s *OTPService) Validate(ctx context.Context, userID, submitted string) (Outcome, error) {
	if userID == "" {
		return OutcomeNotFound, nil
	}

	outcome, err := s.validate(ctx, userID, submitted)
	if err != nil {
		return outcome, err
	}

	metrics.OTPValidations.WithLabelValues(outcome.String()).Inc()
	return outcome, nil
}

func (s *OTPService) validate(ctx context.Context, userID, submitted string) (Outcome, error) {
	for attempt := 0; attempt < maxValidateRetries; attempt++ {
		var passcode models.OneTimePasscode
		err := s.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Take(&passcode).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeNotFound, nil
		}
		if err != nil {
			return OutcomeInvalid, fmt.Errorf("otp service: load passcode: %w", err)
		}

		if passcode.Consumed {
			return OutcomeNotFound, nil
		}

		now := s.now()
		if !now.Before(passcode.ExpiresAt) {
			// Dead record; expiry never costs an attempt.
			return OutcomeExpired, nil
		}

		if passcode.RemainingAttempts <= 0 {
			return OutcomeExhausted, nil
		}

		if subtle.ConstantTimeCompare([]byte(passcode.Code), []byte(submitted)) == 1 {
			res := s.db.WithContext(ctx).
				Model(&models.OneTimePasscode{}).
				Where("id = ? AND consumed = ? AND remaining_attempts > 0 AND expires_at > ?",
					passcode.ID, false, now).
				Update("consumed", true)
			if res.Error != nil {
				return OutcomeInvalid, fmt.Errorf("otp service: consume passcode: %w", res.Error)
			}
			if res.RowsAffected == 1 {
				return OutcomeValid, nil
			}
			// A concurrent validation changed the row; re-read and re-evaluate.
			continue
		}

		res := s.db.WithContext(ctx).
			Model(&models.OneTimePasscode{}).
			Where("id = ? AND consumed = ? AND remaining_attempts = ?",
				passcode.ID, false, passcode.RemainingAttempts).
			Update("remaining_attempts", passcode.RemainingAttempts-1)
		if res.Error != nil {
			return OutcomeInvalid, fmt.Errorf("otp service: record attempt: %w", res.Error)
		}
		if res.RowsAffected == 1 {
			return OutcomeInvalid, nil
		}
		// Lost the race on the counter; retry against the fresh row state.
	}

	return OutcomeInvalid, nil
}

func (s *OTPService) dispatch(email, name, code string) {
	if s.mailer == nil {
		return
	}

	send := func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		err := s.mailer.Send(ctx, mail.OTPMessage(email, name, code))
		if err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
			s.log.Warn("passcode email delivery failed",
				zap.String("email", email),
				zap.Error(err),
			)
		}
	}

	if s.syncDispatch {
		send()
		return
	}
	go send()
}
