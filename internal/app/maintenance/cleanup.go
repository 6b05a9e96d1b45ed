package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jharmon96/inkwell/internal/models"
	"github.com/jharmon96/inkwell/pkg/logger"
)

const (
	// Expired passcodes are kept briefly so validation can still report
	// "expired" rather than "not found" to recent submitters.
	defaultPasscodeRetention = time.Hour

	defaultPasscodeSpec = "@hourly"
	defaultCommentSpec  = "@daily"
)

// Cleaner runs background maintenance: purging dead one-time passcodes and
// pruning comments orphaned by post deletions.
type Cleaner struct {
	db        *gorm.DB
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	retention time.Duration

	passcodeSchedule string
	commentSchedule  string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithPasscodeRetention adjusts how long expired passcodes are kept before removal.
func WithPasscodeRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithPasscodeSchedule overrides the cron specification for passcode cleanup.
func WithPasscodeSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.passcodeSchedule = spec
		}
	}
}

// WithCommentSchedule overrides the cron specification for orphaned comment cleanup.
func WithCommentSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.commentSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:               db,
		now:              time.Now,
		retention:        defaultPasscodeRetention,
		passcodeSchedule: defaultPasscodeSpec,
		commentSchedule:  defaultCommentSpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.passcodeSchedule, func() {
		if _, err := CleanupPasscodes(context.Background(), c.db, c.now(), c.retention); err != nil {
			c.log.Warn("passcode cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := c.cron.AddFunc(c.commentSchedule, func() {
		if _, err := CleanupOrphanedComments(context.Background(), c.db); err != nil {
			c.log.Warn("comment cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.db == nil {
		return nil
	}

	var errs error

	if _, err := CleanupPasscodes(ctx, c.db, c.now(), c.retention); err != nil {
		errs = multierr.Append(errs, err)
	}

	if _, err := CleanupOrphanedComments(ctx, c.db); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// CleanupPasscodes removes consumed passcodes and those expired for longer
// than the retention window. Live passcodes are never touched.
func CleanupPasscodes(ctx context.Context, db *gorm.DB, now time.Time, retention time.Duration) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup passcodes: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := now.Add(-retention)
	result := db.WithContext(ctx).
		Where("consumed = ? OR expires_at < ?", true, cutoff).
		Delete(&models.OneTimePasscode{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup passcodes: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// CleanupOrphanedComments removes comments whose post no longer exists.
func CleanupOrphanedComments(ctx context.Context, db *gorm.DB) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup comments: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("post_id NOT IN (?)", db.Model(&models.Post{}).Select("id")).
		Delete(&models.Comment{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup comments: %w", result.Error)
	}

	return result.RowsAffected, nil
}
