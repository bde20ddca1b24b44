package dlock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// renewal is the handle of one running renewal task. Cancelling it stops
// future ticks immediately; a tick already talking to the store may finish.
type renewal struct {
	lease    time.Duration
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (r *renewal) cancel() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// startRenewal replaces any running renewal task with a new one for lease.
func (l *Lock) startRenewal(lease time.Duration) {
	r := &renewal{
		lease:    lease,
		interval: l.cfg.renewalInterval(lease),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if prev := l.renewal.Swap(r); prev != nil {
		prev.cancel()
	}

	go l.runRenewal(r)
}

// stopRenewal cancels the running renewal task, if any.
func (l *Lock) stopRenewal() {
	if r := l.renewal.Swap(nil); r != nil {
		r.cancel()
	}
}

func (l *Lock) runRenewal(r *renewal) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}

		// Both channels may be ready; cancellation wins.
		select {
		case <-r.stop:
			return
		default:
		}

		if !l.renewOnce(r) {
			return
		}
	}
}

// renewOnce performs one tick. It returns false once ownership is lost and
// the task must end.
func (l *Lock) renewOnce(r *renewal) bool {
	if !l.locked.Load() {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.interval)
	defer cancel()

	ok, err := l.store.Renew(ctx, l.key, l.token, r.lease)
	if err != nil {
		// Transient store faults are retried on the next tick; the lease
		// may still be alive.
		l.logger.Error("lock renewal failed",
			zap.String("key", l.key),
			zap.Error(err),
		)

		return true
	}
	if ok {
		l.logger.Debug("lock lease renewed",
			zap.String("key", l.key),
			zap.Duration("lease", r.lease),
		)

		return true
	}

	// Only the task that is still current may flip local state; a stale
	// task racing with Unlock or a re-acquire must not.
	if l.renewal.CompareAndSwap(r, nil) {
		r.cancel()
		if l.markUnlocked() {
			l.logger.Warn("lock ownership lost, critical section is no longer protected",
				zap.String("key", l.key),
				zap.String("token", l.token),
			)
		}
	}

	return false
}
