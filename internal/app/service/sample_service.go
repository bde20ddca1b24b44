package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dlock-service/pkg/dlock"
)

// SampleConfig holds the durations of the demonstration runs.
type SampleConfig struct {
	// Sample: plain run-under-lock.
	SampleLease time.Duration
	SampleWork  time.Duration
	// Renewals: work nearly as long as the lease, kept alive by renewal.
	RenewalsLease time.Duration
	RenewalsWork  time.Duration
	// Reentrant: the same lock acquired twice around the work.
	ReentrantLease time.Duration
	ReentrantWork  time.Duration
}

// DefaultSampleConfig returns the stock demonstration durations.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		SampleLease:    60 * time.Second,
		SampleWork:     15 * time.Second,
		RenewalsLease:  30 * time.Second,
		RenewalsWork:   29 * time.Second,
		ReentrantLease: 60 * time.Second,
		ReentrantWork:  20 * time.Second,
	}
}

// SampleResult describes one completed demonstration run.
type SampleResult struct {
	Name    string        `json:"name"`
	Key     string        `json:"key"`
	Holder  string        `json:"holder"`
	Depth   int           `json:"depth"` // Highest reentrancy count observed
	Elapsed time.Duration `json:"elapsed"`
}

// RunSample holds the "sample" lock while simulated work runs.
func (s *LockService) RunSample(ctx context.Context) (*SampleResult, error) {
	return s.runUnderLock(ctx, "sample", s.samples.SampleLease, s.samples.SampleWork)
}

// RunRenewals holds the "renewals" lock for almost its whole lease, relying
// on the renewal task to keep it.
func (s *LockService) RunRenewals(ctx context.Context) (*SampleResult, error) {
	return s.runUnderLock(ctx, "renewals", s.samples.RenewalsLease, s.samples.RenewalsWork)
}

func (s *LockService) runUnderLock(ctx context.Context, name string, lease, work time.Duration) (*SampleResult, error) {
	ctx = s.locks.Scope(ctx)
	holder, _ := dlock.TokenFrom(ctx)
	start := time.Now()

	s.logger.Info("sample begin", zap.String("sample", name))

	depth, err := dlock.Do(ctx, s.locks, name, -1, lease, func(ctx context.Context) (int, error) {
		s.logger.Info("sample handling work", zap.String("sample", name), zap.Duration("work", work))
		if err := sleep(ctx, work); err != nil {
			return 0, err
		}

		return s.locks.Produce(ctx, name).HoldCount(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("sample end", zap.String("sample", name))

	return &SampleResult{
		Name:    name,
		Key:     s.locks.Key(name),
		Holder:  holder,
		Depth:   depth,
		Elapsed: time.Since(start),
	}, nil
}

// RunReentrant acquires the "reentrant" lock twice through one Lock, does
// the work, then releases both holds.
func (s *LockService) RunReentrant(ctx context.Context) (*SampleResult, error) {
	const name = "reentrant"

	start := time.Now()
	lock := s.locks.Produce(ctx, name)

	s.logger.Info("sample begin", zap.String("sample", name))

	if err := s.tryLockDefault(ctx, lock, s.samples.ReentrantLease); err != nil {
		return nil, err
	}
	defer s.unlock(ctx, lock)

	if err := s.tryLockDefault(ctx, lock, s.samples.ReentrantLease); err != nil {
		return nil, err
	}
	defer s.unlock(ctx, lock)

	depth, err := lock.HoldCount(ctx)
	if err != nil {
		return nil, err
	}
	if err := sleep(ctx, s.samples.ReentrantWork); err != nil {
		return nil, err
	}

	s.logger.Info("sample end", zap.String("sample", name))

	return &SampleResult{
		Name:    name,
		Key:     lock.Key(),
		Holder:  lock.Token(),
		Depth:   depth,
		Elapsed: time.Since(start),
	}, nil
}

func (s *LockService) tryLockDefault(ctx context.Context, lock *dlock.Lock, lease time.Duration) error {
	ok, err := lock.TryLockDefault(ctx, lease)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", dlock.ErrTimeout, lock.Key())
	}

	return nil
}

func (s *LockService) unlock(ctx context.Context, lock *dlock.Lock) {
	if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
		s.logger.Error("unlock error", zap.String("key", lock.Key()), zap.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
