package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/authcore/pkg/logger"
	"github.com/charlesng35/authcore/pkg/metrics"
)

const (
	defaultAuditRetention   = 90 * 24 * time.Hour
	defaultSessionSpec      = "@daily"
	defaultVerificationSpec = "@daily"
	defaultAuditSpec        = "@daily"
	defaultCacheSpec        = "@hourly"
)

// Sweeper deletes expired rows and reports how many were removed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// AuditPruner deletes audit events older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// CachePurger deletes expired cache entries.
type CachePurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// RunRecorder observes the outcome of every job run.
type RunRecorder interface {
	RecordRun(job string, affected int64, err error)
}

// Deps lists the cleanup targets. A nil target skips its job.
type Deps struct {
	Sessions     Sweeper
	Verification Sweeper
	Audit        AuditPruner
	Cache        CachePurger
}

// Cleaner coordinates background maintenance tasks such as purging expired sessions,
// sweeping consumed verification codes, and pruning stale audit logs.
type Cleaner struct {
	jobs      []job
	cron      *cron.Cron
	log       *zap.Logger
	recorder  RunRecorder
	retention time.Duration

	sessionSchedule      string
	verificationSchedule string
	auditSchedule        string
	cacheSchedule        string
}

type job struct {
	name     string
	schedule func(*Cleaner) string
	run      func(context.Context) (int64, error)
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

// WithRecorder reports every job run to r.
func WithRecorder(r RunRecorder) Option {
	return func(cleaner *Cleaner) {
		cleaner.recorder = r
	}
}

// WithAuditRetention adjusts how long audit logs are retained before cleanup.
func WithAuditRetention(d time.Duration) Option {
	return func(cleaner *Cleaner) {
		if d > 0 {
			cleaner.retention = d
		}
	}
}

// WithSessionSchedule overrides the cron specification for session cleanup.
func WithSessionSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.sessionSchedule = spec
		}
	}
}

// WithVerificationSchedule overrides the cron specification for verification code cleanup.
func WithVerificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.verificationSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// WithCacheSchedule overrides the cron specification for cache purging.
func WithCacheSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.cacheSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with daily defaults.
func NewCleaner(deps Deps, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		retention:            defaultAuditRetention,
		sessionSchedule:      defaultSessionSpec,
		verificationSchedule: defaultVerificationSpec,
		auditSchedule:        defaultAuditSpec,
		cacheSchedule:        defaultCacheSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	if deps.Sessions != nil {
		cleaner.jobs = append(cleaner.jobs, job{
			name:     "refresh_tokens",
			schedule: func(c *Cleaner) string { return c.sessionSchedule },
			run:      deps.Sessions.SweepExpired,
		})
	}
	if deps.Verification != nil {
		cleaner.jobs = append(cleaner.jobs, job{
			name:     "verification_tokens",
			schedule: func(c *Cleaner) string { return c.verificationSchedule },
			run:      deps.Verification.SweepExpired,
		})
	}
	if deps.Audit != nil {
		audit := deps.Audit
		cleaner.jobs = append(cleaner.jobs, job{
			name:     "audit_logs",
			schedule: func(c *Cleaner) string { return c.auditSchedule },
			run: func(ctx context.Context) (int64, error) {
				return audit.CleanupOlderThan(ctx, cleaner.retention)
			},
		})
	}
	if deps.Cache != nil {
		cleaner.jobs = append(cleaner.jobs, job{
			name:     "cache_entries",
			schedule: func(c *Cleaner) string { return c.cacheSchedule },
			run:      deps.Cache.PurgeExpired,
		})
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if len(c.jobs) == 0 {
		return nil
	}

	for _, j := range c.jobs {
		j := j
		if _, err := c.cron.AddFunc(j.schedule(c), func() {
			if _, err := c.runJob(context.Background(), j); err != nil {
				c.log.Warn("cleanup failed", zap.String("job", j.name), zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("maintenance: schedule %s: %w", j.name, err)
		}
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

// RunOnce executes all configured cleanup routines sequentially. Used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	for _, j := range c.jobs {
		if _, err := c.runJob(ctx, j); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", j.name, err))
		}
	}
	return errs
}

func (c *Cleaner) runJob(ctx context.Context, j job) (int64, error) {
	deleted, err := j.run(ctx)
	if c.recorder != nil {
		c.recorder.RecordRun(j.name, deleted, err)
	}
	if err != nil {
		return 0, err
	}
	metrics.SweptRows.WithLabelValues(j.name).Add(float64(deleted))
	if deleted > 0 {
		c.log.Info("cleanup completed", zap.String("job", j.name), zap.Int64("deleted", deleted))
	}
	return deleted, nil
}
