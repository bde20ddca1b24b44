package dlock

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Do acquires the lock named name, runs fn and always releases the lock
// afterwards, even when fn fails or panics. A negative wait uses the
// factory's DefaultWait.
//
// When the lock cannot be acquired in time Do returns an error wrapping
// ErrTimeout and fn is not called. Release failures are logged and never
// replace fn's result.
func Do[T any](ctx context.Context, f *Factory, name string, wait, lease time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if wait < 0 {
		wait = f.cfg.DefaultWait
	}

	lock := f.Produce(ctx, name)
	ok, err := lock.TryLock(ctx, wait, lease)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrTimeout, lock.Key())
	}

	defer func() {
		// Release even if the caller's context is already cancelled.
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			f.logger.Error("unlock failed",
				zap.String("key", lock.Key()),
				zap.Error(err),
			)
		}
	}()

	return fn(ctx)
}

// Run is Do for work that returns no value.
func Run(ctx context.Context, f *Factory, name string, wait, lease time.Duration, fn func(context.Context) error) error {
	_, err := Do(ctx, f, name, wait, lease, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})

	return err
}
