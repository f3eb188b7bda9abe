// Package scheduler runs the periodic directory sync and maintenance jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mrlokans/phonedir/internal/services"
	"github.com/mrlokans/phonedir/internal/settingsstore"
)

// MaintenanceSchedule runs housekeeping once a day.
const MaintenanceSchedule = "0 4 * * *"

// Syncer performs one full directory sync.
type Syncer interface {
	Run(ctx context.Context) (services.SyncResult, error)
}

// SyncConfigSource provides the current schedule settings.
type SyncConfigSource interface {
	GetLDAPSyncConfig() settingsstore.LDAPSyncConfig
}

// Option configures an LDAPSyncScheduler.
type Option func(*LDAPSyncScheduler)

// WithMaxRetries sets how often a failed sync is retried. Zero disables
// retries.
func WithMaxRetries(n int) Option {
	return func(s *LDAPSyncScheduler) { s.maxRetries = n }
}

// WithBackOff replaces the exponential retry policy.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(s *LDAPSyncScheduler) { s.newBackOff = newBackOff }
}

// WithMaintenance registers a job that runs on MaintenanceSchedule while
// the scheduler is started, whether or not the sync is enabled.
func WithMaintenance(job func(ctx context.Context) error) Option {
	return func(s *LDAPSyncScheduler) { s.maintenance = job }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *LDAPSyncScheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// LDAPSyncScheduler runs the directory sync on the configured cron
// schedule, retrying failed runs with exponential backoff.
type LDAPSyncScheduler struct {
	syncer      Syncer
	settings    SyncConfigSource
	maintenance func(ctx context.Context) error
	maxRetries  int
	newBackOff  func() backoff.BackOff
	logger      *zap.Logger

	cron       *cron.Cron
	syncEntry  cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	parent     context.Context
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func NewLDAPSyncScheduler(syncer Syncer, settings SyncConfigSource, opts ...Option) *LDAPSyncScheduler {
	s := &LDAPSyncScheduler{
		syncer:     syncer,
		settings:   settings,
		maxRetries: 3,
		logger:     zap.NewNop(),
	}
	s.newBackOff = s.defaultBackOff
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("scheduler")
	return s
}

func (s *LDAPSyncScheduler) defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 30 * time.Second
	b.MaxInterval = 10 * time.Minute
	b.MaxElapsedTime = time.Hour
	return b
}

// Start registers the jobs and starts the cron runner. An invalid schedule
// is an error; a disabled sync only runs maintenance.
func (s *LDAPSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	c := cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
	config := s.settings.GetLDAPSyncConfig()
	runCtx, cancel := context.WithCancel(ctx)

	s.syncEntry = 0
	if config.Enabled {
		if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
			cancel()
			return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
		}
		entryID, err := c.AddFunc(config.Schedule, func() { s.runSync(runCtx) })
		if err != nil {
			cancel()
			return fmt.Errorf("failed to schedule sync job: %w", err)
		}
		s.syncEntry = entryID
	} else {
		s.logger.Info("LDAP sync disabled")
	}

	if s.maintenance != nil {
		if _, err := c.AddFunc(MaintenanceSchedule, func() { s.runMaintenance(runCtx) }); err != nil {
			cancel()
			return fmt.Errorf("failed to schedule maintenance job: %w", err)
		}
	}

	s.cron = c
	s.parent = ctx
	s.ctx, s.cancelFunc = runCtx, cancel
	s.cron.Start()
	s.isRunning = true

	if config.Enabled {
		nextRun, _ := settingsstore.GetNextRunTime(config.Schedule, time.Now())
		s.logger.Info("LDAP sync scheduled",
			zap.String("schedule", config.Schedule),
			zap.String("description", config.Description),
			zap.Timep("next_run", nextRun))
	}

	go func() {
		<-runCtx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		// A later Start replaces the runner; leave that one alone.
		if s.cron == c {
			s.stopLocked()
		}
	}()

	return nil
}

// Stop stops accepting new jobs and waits for running ones.
func (s *LDAPSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *LDAPSyncScheduler) stopLocked() {
	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()

	s.isRunning = false
	s.logger.Info("scheduler stopped")
}

// Reschedule applies changed settings. The jobs keep the context the
// scheduler was first started with.
func (s *LDAPSyncScheduler) Reschedule() error {
	s.mu.RLock()
	parent := s.parent
	s.mu.RUnlock()
	if parent == nil {
		parent = context.Background()
	}

	s.Stop()
	return s.Start(parent)
}

func (s *LDAPSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the next sync will occur, or nil when the sync
// is not scheduled.
func (s *LDAPSyncScheduler) NextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning || s.syncEntry == 0 {
		return nil
	}
	entry := s.cron.Entry(s.syncEntry)
	if !entry.Valid() {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *LDAPSyncScheduler) runContext() context.Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ctx == nil {
		return context.Background()
	}
	return s.ctx
}

// runSync performs one scheduled sync. A sync already in progress is not
// retried.
func (s *LDAPSyncScheduler) runSync(ctx context.Context) {
	if !s.settings.GetLDAPSyncConfig().Enabled {
		s.logger.Info("scheduled LDAP sync skipped, sync disabled")
		return
	}

	attempt := 0
	operation := func() error {
		attempt++
		result, err := s.syncer.Run(ctx)
		switch {
		case errors.Is(err, services.ErrSyncRunning), errors.Is(err, context.Canceled):
			return backoff.Permanent(err)
		case err != nil:
			s.logger.Warn("scheduled LDAP sync failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		s.logger.Info("scheduled LDAP sync finished", zap.String("result", result.String()))
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(s.newBackOff(), uint64(max(s.maxRetries, 0))), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		s.logger.Error("scheduled LDAP sync gave up", zap.Int("attempts", attempt), zap.Error(err))
	}
}

func (s *LDAPSyncScheduler) runMaintenance(ctx context.Context) {
	if err := s.maintenance(ctx); err != nil {
		s.logger.Error("maintenance job failed", zap.Error(err))
	}
}

// RunNow triggers a sync outside the schedule.
func (s *LDAPSyncScheduler) RunNow() {
	go s.runSync(s.runContext())
}
