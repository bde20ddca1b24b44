package dlock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Lock is one holder's handle on a named distributed lock. It is bound to a
// single store key and a single holder token for its whole lifetime.
//
// A Lock may be acquired several times (each TryLock/Lock needs a matching
// Unlock). Locks produced with the same token for the same key share the
// store record's reentrancy count, but each keeps its own local state.
type Lock struct {
	key    string
	token  string
	store  *Store
	cfg    Config
	renew  bool
	logger *zap.Logger

	locked  atomic.Bool
	holds   atomic.Int32
	lease   atomic.Int64
	renewal atomic.Pointer[renewal]
}

// LockOption configures a Lock produced by a Factory.
type LockOption func(*Lock)

// WithoutRenewal disables the renewal task for this lock regardless of
// Config.RenewalEnabled.
func WithoutRenewal() LockOption {
	return func(l *Lock) {
		l.renew = false
	}
}

func newLock(store *Store, cfg Config, key, token string, logger *zap.Logger, opts ...LockOption) *Lock {
	l := &Lock{
		key:    key,
		token:  token,
		store:  store,
		cfg:    cfg,
		renew:  cfg.RenewalEnabled,
		logger: logger,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Key returns the store key of the lock.
func (l *Lock) Key() string {
	return l.key
}

// Token returns the holder token.
func (l *Lock) Token() string {
	return l.token
}

// TryLock attempts to acquire the lock, polling every Config.PollInterval
// until wait has elapsed. A wait of zero or less makes exactly one attempt.
//
// It returns false, nil when the lock stayed held by someone else. Store
// faults and context cancellation are returned as errors and end the wait
// immediately.
func (l *Lock) TryLock(ctx context.Context, wait, lease time.Duration) (bool, error) {
	if wait < 0 {
		wait = 0
	}

	return l.acquire(ctx, wait, lease, false)
}

// TryLockDefault is TryLock with Config.DefaultWait.
func (l *Lock) TryLockDefault(ctx context.Context, lease time.Duration) (bool, error) {
	return l.acquire(ctx, l.cfg.DefaultWait, lease, false)
}

// Lock blocks until the lock is acquired, ctx is done or the store fails.
func (l *Lock) Lock(ctx context.Context, lease time.Duration) error {
	_, err := l.acquire(ctx, 0, lease, true)

	return err
}

func (l *Lock) acquire(ctx context.Context, wait, lease time.Duration, forever bool) (bool, error) {
	if lease.Milliseconds() < 1 {
		return false, ErrInvalidLease
	}

	start := time.Now()
	defer func() { l.store.metrics.observeWait(time.Since(start)) }()

	for {
		count, err := l.store.Acquire(ctx, l.key, l.token, lease)
		if err != nil {
			return false, err
		}
		if count > 0 {
			l.onAcquired(count, lease)

			return true, nil
		}

		if !forever && time.Since(start) >= wait {
			l.logger.Debug("lock wait expired",
				zap.String("key", l.key),
				zap.Duration("wait", wait),
			)

			return false, nil
		}

		timer := time.NewTimer(l.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()

			return false, ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Lock) onAcquired(count int, lease time.Duration) {
	l.lease.Store(int64(lease))
	l.holds.Add(1)
	if !l.locked.Swap(true) {
		l.store.metrics.heldInc()
	}
	if l.renew {
		l.startRenewal(lease)
	}

	l.logger.Debug("lock acquired",
		zap.String("key", l.key),
		zap.Int("count", count),
		zap.Duration("lease", lease),
	)
}

// Unlock releases one hold. It is a no-op when this Lock does not believe it
// holds the lock.
//
// When the store record belongs to another holder, Unlock returns an error
// wrapping ErrNotOwner and the Lock resets to unlocked.
func (l *Lock) Unlock(ctx context.Context) error {
	if !l.locked.Load() {
		return nil
	}

	last := l.holds.Load() <= 1
	if last {
		l.stopRenewal()
	}

	ok, err := l.store.Release(ctx, l.key, l.token)
	if err != nil {
		// Still ours as far as we know; keep the lease alive.
		if last && l.renew && l.locked.Load() {
			l.startRenewal(time.Duration(l.lease.Load()))
		}

		return err
	}
	if !ok {
		l.stopRenewal()
		l.markUnlocked()

		return fmt.Errorf("release %s: %w", l.key, ErrNotOwner)
	}

	if l.holds.Add(-1) <= 0 {
		l.stopRenewal()
		l.markUnlocked()
	}

	l.logger.Debug("lock released",
		zap.String("key", l.key),
		zap.Bool("final", last),
	)

	return nil
}

// markUnlocked resets local state. It reports whether the Lock was locked.
func (l *Lock) markUnlocked() bool {
	l.holds.Store(0)
	if l.locked.Swap(false) {
		l.store.metrics.heldDec()
		return true
	}

	return false
}

// IsLocked reports whether this Lock believes it holds the lock. It does not
// consult the store.
func (l *Lock) IsLocked() bool {
	return l.locked.Load()
}

// HoldCount reads the store record and returns its reentrancy count, or 0
// when the key is unlocked.
func (l *Lock) HoldCount(ctx context.Context) (int, error) {
	rec, err := l.store.Record(ctx, l.key)
	if err != nil {
		return 0, err
	}
	if rec == nil {
		return 0, nil
	}

	return rec.Count, nil
}
