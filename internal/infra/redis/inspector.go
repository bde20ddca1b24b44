// Package redis reads lock records from Redis for inspection endpoints.
package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"dlock-service/internal/domain"
	"dlock-service/pkg/dlock"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 100

// Inspector implements domain.LockInspector on top of the lock store.
// It only reads; ownership changes go through pkg/dlock.
type Inspector struct {
	client *redis.Client
	locks  *dlock.Factory
	logger *zap.Logger
}

// NewInspector creates an Inspector. Names are mapped to keys with the
// factory's key prefix.
func NewInspector(client *redis.Client, locks *dlock.Factory, logger *zap.Logger) *Inspector {
	return &Inspector{
		client: client,
		locks:  locks,
		logger: logger,
	}
}

// Get returns the state of the lock called name.
func (i *Inspector) Get(ctx context.Context, name string) (*domain.LockState, error) {
	state, err := i.read(ctx, i.locks.Key(name))
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, domain.ErrLockNotFound
	}

	return state, nil
}

// List returns every lock record under the prefix, sorted by key.
// Uses SCAN, so it never blocks Redis on a large keyspace.
func (i *Inspector) List(ctx context.Context) ([]*domain.LockState, error) {
	pattern := i.pattern()
	iter := i.client.Scan(ctx, 0, pattern, scanCount).Iterator()

	states := []*domain.LockState{}
	for iter.Next(ctx) {
		key := iter.Val()

		state, err := i.read(ctx, key)
		if err != nil {
			if errors.Is(err, dlock.ErrMalformedRecord) || isWrongType(err) {
				// Not a lock record; something else shares the prefix.
				i.logger.Debug("skipping non-lock key",
					zap.String("key", key),
				)
				continue
			}
			return nil, err
		}
		if state == nil {
			// Released or expired between SCAN and GET
			continue
		}
		states = append(states, state)
	}

	if err := iter.Err(); err != nil {
		i.logger.Error("lock scan failed",
			zap.String("pattern", pattern),
			zap.Error(err),
		)

		return nil, err
	}

	slices.SortFunc(states, func(a, b *domain.LockState) int {
		return strings.Compare(a.Key, b.Key)
	})

	return states, nil
}

// Ping verifies Redis is reachable.
func (i *Inspector) Ping(ctx context.Context) error {
	return i.client.Ping(ctx).Err()
}

// read returns nil, nil when key does not exist.
func (i *Inspector) read(ctx context.Context, key string) (*domain.LockState, error) {
	rec, err := i.locks.Store().Record(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	ttl, err := i.client.PTTL(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if ttl < 0 {
		// -2: gone since GET; -1: no expiry, which a lock record never has
		ttl = 0
	}

	return &domain.LockState{
		Key:      key,
		Name:     i.name(key),
		Holder:   rec.Token,
		Count:    rec.Count,
		ExpireAt: rec.ExpiresAt().UTC(),
		TTL:      ttl.Round(time.Millisecond),
	}, nil
}

func (i *Inspector) pattern() string {
	prefix := i.locks.Config().KeyPrefix
	if prefix == "" {
		return "*"
	}

	return prefix + ":*"
}

func (i *Inspector) name(key string) string {
	prefix := i.locks.Config().KeyPrefix
	if prefix == "" {
		return key
	}

	return strings.TrimPrefix(key, prefix+":")
}

// isWrongType reports whether err is a Redis WRONGTYPE reply. Transport
// errors never match, even if their text mentions a key with that word.
func isWrongType(err error) bool {
	var rerr redis.Error
	if !errors.As(err, &rerr) {
		return false
	}

	return strings.HasPrefix(rerr.Error(), "WRONGTYPE")
}
