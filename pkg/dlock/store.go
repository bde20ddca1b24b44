package dlock

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the subset of go-redis the store needs. *redis.Client,
// *redis.ClusterClient and *redis.Ring all satisfy it.
type Client interface {
	redis.Scripter
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Store executes the atomic lock scripts against Redis. It holds no
// per-lock state and is safe for concurrent use.
type Store struct {
	client  Client
	metrics *Metrics
}

// NewStore creates a Store. metrics may be nil.
func NewStore(client Client, metrics *Metrics) *Store {
	return &Store{
		client:  client,
		metrics: metrics,
	}
}

// Acquire runs ACQUIRE for token on key. It returns the reentrancy count
// after the call, or 0 when another holder owns the key.
func (s *Store) Acquire(ctx context.Context, key, token string, lease time.Duration) (int, error) {
	ms, err := leaseMillis(lease)
	if err != nil {
		return 0, err
	}
	candidate, err := encodeCandidate(token)
	if err != nil {
		return 0, err
	}

	count, err := acquireScript.Run(ctx, s.client, []string{key}, candidate, ms).Int()
	if err != nil {
		s.metrics.observeAcquire(resultError)
		return 0, storeError("acquire", key, err)
	}
	if count > 0 {
		s.metrics.observeAcquire(resultAcquired)
	} else {
		s.metrics.observeAcquire(resultContended)
	}

	return count, nil
}

// Release runs RELEASE for token on key. It returns false when another
// holder owns the key. An absent key counts as released.
func (s *Store) Release(ctx context.Context, key, token string) (bool, error) {
	candidate, err := encodeCandidate(token)
	if err != nil {
		return false, err
	}

	res, err := releaseScript.Run(ctx, s.client, []string{key}, candidate).Int()
	if err != nil {
		s.metrics.observeRelease(resultError)
		return false, storeError("release", key, err)
	}
	if res == 1 {
		s.metrics.observeRelease(resultReleased)
		return true, nil
	}
	s.metrics.observeRelease(resultNotOwner)

	return false, nil
}

// Renew re-arms the key's TTL to lease if token still owns it. It returns
// false when the record is gone or held by someone else.
func (s *Store) Renew(ctx context.Context, key, token string, lease time.Duration) (bool, error) {
	ms, err := leaseMillis(lease)
	if err != nil {
		return false, err
	}
	candidate, err := encodeCandidate(token)
	if err != nil {
		return false, err
	}

	res, err := renewScript.Run(ctx, s.client, []string{key}, candidate, ms).Int()
	if err != nil {
		s.metrics.observeRenewal(resultError)
		return false, storeError("renew", key, err)
	}
	if res == 1 {
		s.metrics.observeRenewal(resultRenewed)
		return true, nil
	}
	s.metrics.observeRenewal(resultLost)

	return false, nil
}

// Record reads the current record for key. It returns nil when the key is
// absent.
func (s *Store) Record(ctx context.Context, key string) (*Record, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("read", key, err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, storeError("read", key, err)
	}

	return rec, nil
}

func leaseMillis(lease time.Duration) (string, error) {
	ms := lease.Milliseconds()
	if ms < 1 {
		return "", ErrInvalidLease
	}

	return strconv.FormatInt(ms, 10), nil
}
