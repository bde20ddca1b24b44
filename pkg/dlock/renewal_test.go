package dlock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenewal_KeepsLongCriticalSectionAlive(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalEnabled = true
		c.RenewalPeriod = 900 * time.Millisecond
	})
	ctx := context.Background()

	holder := factory.Produce(ctx, testLockKey)
	ok, err := holder.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// miniredis only expires keys when told to; advance its clock in step
	// with the wall clock so the lease really runs out without renewal.
	const step = 250 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < 2500*time.Millisecond; elapsed += step {
		time.Sleep(step)
		mr.FastForward(step)

		competitor := factory.Produce(ctx, testLockKey, WithoutRenewal())
		ok, err := competitor.TryLock(ctx, 0, time.Second)
		require.NoError(t, err)
		require.False(t, ok, "competitor acquired after %s", elapsed+step)
	}

	require.True(t, holder.IsLocked())
	require.NoError(t, holder.Unlock(ctx))

	competitor := factory.Produce(ctx, testLockKey, WithoutRenewal())
	ok, err = competitor.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "competitor acquires immediately after unlock")
}

func TestRenewal_SlidesTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalPeriod = 300 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = lock.Unlock(ctx) }()

	mr.FastForward(500 * time.Millisecond)
	require.LessOrEqual(t, mr.TTL(testLockKey), 500*time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.TTL(testLockKey) > 900*time.Millisecond
	}, time.Second, 20*time.Millisecond, "renewal should re-arm the full lease")
}

func TestRenewal_DetectsDeletedRecord(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalPeriod = 150 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	r := lock.renewal.Load()
	require.NotNil(t, r)

	mr.Del(testLockKey)

	assert.Eventually(t, func() bool { return !lock.IsLocked() }, time.Second, 10*time.Millisecond)
	assert.Nil(t, lock.renewal.Load())
	assert.Eventually(t, func() bool {
		select {
		case <-r.done:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond, "renewal task should exit")

	// Nothing to release any more
	require.NoError(t, lock.Unlock(ctx))
}

func TestRenewal_DetectsForeignHolder(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalPeriod = 150 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	foreign := fmt.Sprintf(`{"token":"intruder","count":1,"expireAt":%d}`, time.Now().Add(time.Minute).UnixMilli())
	require.NoError(t, mr.Set(testLockKey, foreign))

	assert.Eventually(t, func() bool { return !lock.IsLocked() }, time.Second, 10*time.Millisecond)

	raw, err := mr.Get(testLockKey)
	require.NoError(t, err)
	assert.Equal(t, foreign, raw, "the new holder's record is untouched")
}

func TestRenewal_Disabled(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalEnabled = false
		c.RenewalPeriod = 150 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, 500*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, lock.renewal.Load())

	time.Sleep(200 * time.Millisecond)
	mr.FastForward(600 * time.Millisecond)
	assert.False(t, mr.Exists(testLockKey), "lease is never extended")
}

func TestRenewal_WithoutRenewalOption(t *testing.T) {
	_, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey, WithoutRenewal())
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Nil(t, lock.renewal.Load())
	require.NoError(t, lock.Unlock(ctx))
}

func TestRenewal_StoppedOnUnlock(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalPeriod = 90 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	r := lock.renewal.Load()
	require.NotNil(t, r)

	require.NoError(t, lock.Unlock(ctx))
	assert.Nil(t, lock.renewal.Load())

	select {
	case <-r.done:
	case <-time.After(time.Second):
		t.Fatal("renewal task still running after unlock")
	}
	assert.False(t, mr.Exists(testLockKey), "no tick may recreate the record")
}

func TestRenewal_ReacquireReplacesTask(t *testing.T) {
	_, client := setupTestRedis(t)
	factory := newTestFactory(t, client, nil)
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	first := lock.renewal.Load()

	ok, err = lock.TryLock(ctx, 0, 2*time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	second := lock.renewal.Load()

	require.NotSame(t, first, second)
	assert.Equal(t, 2*time.Second, second.lease)
	select {
	case <-first.done:
	case <-time.After(time.Second):
		t.Fatal("previous renewal task not stopped")
	}

	require.NoError(t, lock.Unlock(ctx))
	require.NoError(t, lock.Unlock(ctx))
}

func TestConfig_RenewalInterval(t *testing.T) {
	tests := []struct {
		name     string
		period   time.Duration
		lease    time.Duration
		expected time.Duration
	}{
		{"configured period", 900 * time.Millisecond, time.Second, 300 * time.Millisecond},
		{"default period", DefaultRenewalPeriod, 30 * time.Second, time.Second},
		{"derived from lease", 0, 3 * time.Second, time.Second},
		{"floor at one millisecond", 0, time.Millisecond, time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{RenewalPeriod: tt.period}
			assert.Equal(t, tt.expected, cfg.renewalInterval(tt.lease))
		})
	}
}

func TestConfig_Normalize(t *testing.T) {
	cfg := Config{PollInterval: -1, DefaultWait: -5, RenewalPeriod: -1}.normalize()

	assert.Equal(t, DefaultPollInterval, cfg.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.DefaultWait)
	assert.Equal(t, time.Duration(0), cfg.RenewalPeriod)
	assert.Equal(t, TokenUUID, cfg.TokenStrategy)
}

func TestRenewal_StoreFaultKeepsTaskRunning(t *testing.T) {
	mr, client := setupTestRedis(t)
	factory := newTestFactory(t, client, func(c *Config) {
		c.RenewalPeriod = 90 * time.Millisecond
	})
	ctx := context.Background()

	lock := factory.Produce(ctx, testLockKey)
	ok, err := lock.TryLock(ctx, 0, time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	defer func() { _ = lock.Unlock(ctx) }()
	r := lock.renewal.Load()
	require.NotNil(t, r)

	// Several ticks fail while the store is erroring.
	mr.SetError("ERR injected outage")
	time.Sleep(200 * time.Millisecond)

	assert.True(t, lock.IsLocked(), "a failed tick is not lost ownership")
	assert.Same(t, r, lock.renewal.Load())
	select {
	case <-r.done:
		t.Fatal("renewal task ended on a store fault")
	default:
	}

	mr.SetError("")
	mr.FastForward(500 * time.Millisecond)

	assert.Eventually(t, func() bool {
		return mr.TTL(testLockKey) > 900*time.Millisecond
	}, time.Second, 10*time.Millisecond, "renewal resumes once the store recovers")
	assert.True(t, lock.IsLocked())
}
