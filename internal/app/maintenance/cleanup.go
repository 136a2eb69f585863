package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/akovalyov/currex/internal/models"
	"github.com/akovalyov/currex/pkg/logger"
)

const (
	defaultSchedule        = "@daily"
	defaultPruneAfter      = 7 * 24 * time.Hour
	defaultVerificationTTL = time.Hour
)

// Cleaner removes account rows and token material that can no longer serve
// any purpose: unverified accounts past their retention window, and stored
// token digests whose tokens expired long ago.
type Cleaner struct {
	db   *gorm.DB
	cron *cron.Cron
	now  func() time.Time
	log  *zap.Logger

	schedule        string
	pruneAfter      time.Duration
	verificationTTL time.Duration
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

// WithSchedule overrides the cron specification.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithPruneAfter adjusts how long unverified accounts are retained.
func WithPruneAfter(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.pruneAfter = d
		}
	}
}

// WithVerificationTTL aligns digest cleanup with the confirmation-token window.
func WithVerificationTTL(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.verificationTTL = d
		}
	}
}

// NewCleaner constructs a Cleaner bound to the shared persistence handle.
func NewCleaner(db *gorm.DB, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:              db,
		cron:            cron.New(),
		now:             time.Now,
		log:             logger.WithModule("maintenance"),
		schedule:        defaultSchedule,
		pruneAfter:      defaultPruneAfter,
		verificationTTL: defaultVerificationTTL,
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	return cleaner
}

// Start registers the cleanup schedule and launches the cron runner.
func (c *Cleaner) Start() error {
	_, err := c.cron.AddFunc(c.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		if err := c.RunOnce(ctx); err != nil {
			c.log.Warn("cleanup run failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("maintenance: register schedule: %w", err)
	}

	c.cron.Start()
	return nil
}

// Stop halts the cron runner and returns a context covering in-flight jobs.
func (c *Cleaner) Stop() context.Context {
	return c.cron.Stop()
}

// RunOnce executes every cleanup task a single time.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	var errs error

	if err := c.pruneStaleUnverified(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := c.clearExpiredTokenDigests(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}

// pruneStaleUnverified deletes unverified accounts whose retention window has
// passed. Their emails become free for a fresh registration.
func (c *Cleaner) pruneStaleUnverified(ctx context.Context) error {
	cutoff := c.now().Add(-c.pruneAfter)

	result := c.db.WithContext(ctx).
		Where("verified = ? AND registered_at < ?", false, cutoff).
		Delete(&models.User{})
	if result.Error != nil {
		return fmt.Errorf("maintenance: prune unverified accounts: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		c.log.Info("pruned stale unverified accounts", zap.Int64("count", result.RowsAffected))
	}
	return nil
}

// clearExpiredTokenDigests nulls out stored confirmation-token digests that
// can no longer validate, so expired material does not linger in the table.
func (c *Cleaner) clearExpiredTokenDigests(ctx context.Context) error {
	cutoff := c.now().Add(-c.verificationTTL)

	// updated_at moves on every registration attempt, so it tracks the issue
	// time of the most recent token closely enough for cleanup purposes.
	result := c.db.WithContext(ctx).
		Model(&models.User{}).
		Where("verification_token IS NOT NULL AND updated_at < ? AND verified = ?", cutoff, false).
		Update("verification_token", nil)
	if result.Error != nil {
		return fmt.Errorf("maintenance: clear expired token digests: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		c.log.Info("cleared expired confirmation token digests", zap.Int64("count", result.RowsAffected))
	}
	return nil
}
