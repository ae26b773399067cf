package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/pkg/logger"
)

const (
	defaultReencryptSpec = "@hourly"
	defaultBatchSize     = 200
)

// Scheduler runs background maintenance such as migrating encrypted columns
// onto the current key.
type Scheduler struct {
	db     *gorm.DB
	cipher Resealer
	cron   *cron.Cron
	log    *zap.Logger

	reencryptSchedule string
	batchSize         int
}

// Option customises the Scheduler.
type Option func(*Scheduler)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithReencryptSchedule overrides the cron specification for the re-encryption sweep.
func WithReencryptSchedule(spec string) Option {
	return func(s *Scheduler) {
		if spec != "" {
			s.reencryptSchedule = spec
		}
	}
}

// WithBatchSize sets how many rows the sweep loads per query.
func WithBatchSize(size int) Option {
	return func(s *Scheduler) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// NewScheduler constructs a Scheduler. A nil db or cipher disables the sweep.
func NewScheduler(db *gorm.DB, cipher Resealer, opts ...Option) *Scheduler {
	s := &Scheduler{
		db:                db,
		cipher:            cipher,
		reencryptSchedule: defaultReencryptSpec,
		batchSize:         defaultBatchSize,
		log:               logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cron == nil {
		s.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return s
}

func (s *Scheduler) enabled() bool {
	return s.db != nil && s.cipher != nil
}

// Start registers jobs with the cron scheduler and launches it.
func (s *Scheduler) Start() error {
	if !s.enabled() {
		return nil
	}

	if _, err := s.cron.AddFunc(s.reencryptSchedule, func() {
		stats, err := ReencryptInvitations(context.Background(), s.db, s.cipher, s.batchSize)
		if err != nil {
			s.log.Warn("invitation re-encryption finished with errors", zap.Error(err), zap.Int("failed", stats.Failed))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler. The returned context is done once
// running jobs have completed.
func (s *Scheduler) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes every configured job sequentially. Used in tests and
// during graceful shutdown.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if s.enabled() {
		if _, err := ReencryptInvitations(ctx, s.db, s.cipher, s.batchSize); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
