// Package job provides background job schedulers.
package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dlock-service/internal/domain"
	"dlock-service/pkg/dlock"
)

// retentionLock is the lock name that serializes purges across instances.
const retentionLock = "job:event-retention"

// RetentionScheduler periodically deletes old lock events. Every instance
// runs the scheduler; the purge itself runs under a distributed lock so only
// one instance purges at a time.
type RetentionScheduler struct {
	events  domain.EventRepository
	locks   *dlock.Factory
	maxAge  time.Duration
	every   time.Duration
	timeout time.Duration
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// RetentionConfig holds retention scheduler configuration.
type RetentionConfig struct {
	Interval time.Duration
	MaxAge   time.Duration
	Timeout  time.Duration
}

// NewRetentionScheduler creates a RetentionScheduler.
func NewRetentionScheduler(
	events domain.EventRepository,
	locks *dlock.Factory,
	cfg RetentionConfig,
	logger *zap.Logger,
) *RetentionScheduler {
	return &RetentionScheduler{
		events:  events,
		locks:   locks,
		maxAge:  cfg.MaxAge,
		every:   cfg.Interval,
		timeout: cfg.Timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the background purge loop.
func (s *RetentionScheduler) Start(runOnStartup bool) {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.logger.Info("starting retention scheduler",
		zap.Duration("interval", s.every),
		zap.Duration("max_age", s.maxAge),
		zap.Bool("run_on_startup", runOnStartup),
	)

	s.wg.Add(1)
	go s.run(runOnStartup)
}

// Stop cancels the loop and waits for a running purge to finish.
func (s *RetentionScheduler) Stop() {
	s.logger.Info("stopping retention scheduler")
	s.cancel()
	s.wg.Wait()
	s.logger.Info("retention scheduler stopped")
}

func (s *RetentionScheduler) run(runOnStartup bool) {
	defer s.wg.Done()

	if runOnStartup {
		_, _ = s.Purge(s.ctx)
	}

	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.Purge(s.ctx)
		}
	}
}

// Purge deletes events older than the configured max age while holding the
// retention lock. When another instance holds the lock it skips and returns
// 0, nil.
//
// The lease equals the timeout; the renewal task keeps it alive if the
// delete runs long.
func (s *RetentionScheduler) Purge(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.maxAge)

	purged, err := dlock.Do(ctx, s.locks, retentionLock, 0, s.timeout, func(ctx context.Context) (int64, error) {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		return s.events.PurgeBefore(ctx, cutoff)
	})
	if errors.Is(err, dlock.ErrTimeout) {
		s.logger.Debug("another instance is purging events, skipping")

		return 0, nil
	}
	if err != nil {
		s.logger.Error("event purge failed", zap.Error(err))

		return 0, err
	}

	s.logger.Info("event purge completed",
		zap.Int64("purged", purged),
		zap.Time("cutoff", cutoff),
	)

	return purged, nil
}
