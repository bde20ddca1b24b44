package dlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_ReleasesAfterWork(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)

	called := false
	err := Run(context.Background(), factory, testLockKey, 0, time.Second, func(ctx context.Context) error {
		called = true
		assert.True(t, mr.Exists(testLockKey), "lock is held during the work")
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, mr.Exists(testLockKey))
}

func TestRun_ReleasesWhenWorkFails(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)
	workErr := errors.New("boom")

	err := Run(context.Background(), factory, testLockKey, 0, time.Second, func(ctx context.Context) error {
		return workErr
	})

	assert.ErrorIs(t, err, workErr)
	assert.False(t, mr.Exists(testLockKey))
}

func TestRun_ReleasesWhenWorkPanics(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)

	assert.Panics(t, func() {
		_ = Run(context.Background(), factory, testLockKey, 0, time.Second, func(ctx context.Context) error {
			panic("unexpected")
		})
	})
	assert.False(t, mr.Exists(testLockKey))
}

func TestRun_Timeout(t *testing.T) {
	_, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)
	ctx := context.Background()

	holder := factory.Produce(ctx, testLockKey)
	require.NoError(t, holder.Lock(ctx, time.Minute))
	defer func() { _ = holder.Unlock(ctx) }()

	called := false
	err := Run(ctx, factory, testLockKey, 50*time.Millisecond, time.Second, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), testLockKey)
	assert.False(t, called)
}

func TestRun_ReleasesWithCancelledContext(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)

	ctx, cancel := context.WithCancel(context.Background())
	err := Run(ctx, factory, testLockKey, 0, time.Second, func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, mr.Exists(testLockKey))
}

func TestDo_ReturnsValue(t *testing.T) {
	_, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)

	got, err := Do(context.Background(), factory, testLockKey, -1, time.Second, func(ctx context.Context) (int, error) {
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestDo_NestedInScopeIsReentrant(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)
	ctx := factory.Scope(context.Background())

	depth, err := Do(ctx, factory, testLockKey, 0, time.Second, func(ctx context.Context) (int, error) {
		return Do(ctx, factory, testLockKey, 0, time.Second, func(ctx context.Context) (int, error) {
			return readRecord(t, mr, testLockKey).Count, nil
		})
	})

	require.NoError(t, err)
	assert.Equal(t, 2, depth)
	assert.False(t, mr.Exists(testLockKey))
}
