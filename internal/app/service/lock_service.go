// Package service provides application use cases.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dlock-service/internal/domain"
	"dlock-service/pkg/dlock"
)

var (
	// ErrLeaseLost is returned by Renew when the holder no longer owns the lock.
	ErrLeaseLost = errors.New("lease lost")

	// ErrAuditDisabled is returned by Events when no event repository is set.
	ErrAuditDisabled = errors.New("audit log disabled")
)

// auditTimeout bounds a single best-effort audit write.
const auditTimeout = 2 * time.Second

// LockService acquires, releases and renews locks on behalf of remote
// holders, and exposes lock state and history.
//
// Remote holders identify themselves with an explicit holder token and
// keep their leases alive with Renew; the service runs no renewal task for
// them.
type LockService struct {
	locks     *dlock.Factory
	inspector domain.LockInspector
	events    domain.EventRepository
	samples   SampleConfig
	logger    *zap.Logger
}

// NewLockService creates a LockService. events may be nil to disable the
// audit log.
func NewLockService(
	locks *dlock.Factory,
	inspector domain.LockInspector,
	events domain.EventRepository,
	samples SampleConfig,
	logger *zap.Logger,
) *LockService {
	return &LockService{
		locks:     locks,
		inspector: inspector,
		events:    events,
		samples:   samples,
		logger:    logger,
	}
}

// AuditEnabled reports whether lock events are recorded.
func (s *LockService) AuditEnabled() bool {
	return s.events != nil
}

// Acquire polls for the lock name on behalf of holder for up to wait. A
// holder that already owns the lock re-enters it.
//
// Returns an error wrapping dlock.ErrTimeout when the lock stayed held by
// someone else.
func (s *LockService) Acquire(ctx context.Context, name, holder string, wait, lease time.Duration) (*domain.LockState, error) {
	lock := s.locks.Produce(dlock.WithToken(ctx, holder), name, dlock.WithoutRenewal())

	start := time.Now()
	ok, err := lock.TryLock(ctx, wait, lease)
	waited := time.Since(start)
	if err != nil {
		s.logger.Error("remote acquire failed",
			zap.String("key", lock.Key()),
			zap.String("holder", holder),
			zap.Error(err),
		)

		return nil, err
	}
	if !ok {
		s.audit(ctx, lock.Key(), holder, domain.EventTimeout, func(e *domain.LockEvent) {
			e.Lease = lease
			e.Wait = waited
		})

		return nil, fmt.Errorf("%w: %s", dlock.ErrTimeout, lock.Key())
	}

	state, err := s.inspector.Get(ctx, name)
	if err != nil {
		// Acquired but unreadable: the lease may already be gone. Report what
		// we know rather than fail an acquisition that happened.
		s.logger.Warn("reading acquired lock failed",
			zap.String("key", lock.Key()),
			zap.Error(err),
		)
		state = &domain.LockState{Key: lock.Key(), Name: name, Holder: holder, Count: 1, TTL: lease}
	}

	s.audit(ctx, lock.Key(), holder, domain.EventAcquired, func(e *domain.LockEvent) {
		e.Count = state.Count
		e.Lease = lease
		e.Wait = waited
	})

	s.logger.Info("lock acquired for remote holder",
		zap.String("key", lock.Key()),
		zap.String("holder", holder),
		zap.Int("count", state.Count),
		zap.Duration("wait", waited),
	)

	return state, nil
}

// Release releases one hold of name for holder. Returns an error wrapping
// dlock.ErrNotOwner when the record belongs to someone else. Releasing a
// lock that no longer exists succeeds.
func (s *LockService) Release(ctx context.Context, name, holder string) error {
	key := s.locks.Key(name)

	ok, err := s.locks.Store().Release(ctx, key, holder)
	if err != nil {
		s.logger.Error("remote release failed",
			zap.String("key", key),
			zap.String("holder", holder),
			zap.Error(err),
		)

		return err
	}
	if !ok {
		s.audit(ctx, key, holder, domain.EventNotOwner, nil)
		s.logger.Warn("release by non-owner",
			zap.String("key", key),
			zap.String("holder", holder),
		)

		return fmt.Errorf("release %s: %w", key, dlock.ErrNotOwner)
	}

	s.audit(ctx, key, holder, domain.EventReleased, nil)

	return nil
}

// Renew re-arms the lease of name to lease for holder. Returns ErrLeaseLost
// when the lock expired or belongs to someone else.
func (s *LockService) Renew(ctx context.Context, name, holder string, lease time.Duration) (*domain.LockState, error) {
	key := s.locks.Key(name)

	ok, err := s.locks.Store().Renew(ctx, key, holder, lease)
	if err != nil {
		s.logger.Error("remote renew failed",
			zap.String("key", key),
			zap.String("holder", holder),
			zap.Error(err),
		)

		return nil, err
	}
	if !ok {
		s.audit(ctx, key, holder, domain.EventLeaseLost, func(e *domain.LockEvent) { e.Lease = lease })

		return nil, fmt.Errorf("renew %s: %w", key, ErrLeaseLost)
	}

	s.audit(ctx, key, holder, domain.EventRenewed, func(e *domain.LockEvent) { e.Lease = lease })

	state, err := s.inspector.Get(ctx, name)
	if err != nil {
		// The renewal happened; don't report it as failed.
		s.logger.Warn("reading renewed lock failed",
			zap.String("key", key),
			zap.Error(err),
		)
		state = &domain.LockState{Key: key, Name: name, Holder: holder, Count: 1, TTL: lease}
	}

	return state, nil
}

// Get returns the state of the lock called name, or domain.ErrLockNotFound.
func (s *LockService) Get(ctx context.Context, name string) (*domain.LockState, error) {
	return s.inspector.Get(ctx, name)
}

// List returns every held lock.
func (s *LockService) List(ctx context.Context) ([]*domain.LockState, error) {
	locks, err := s.inspector.List(ctx)
	if err != nil {
		s.logger.Error("listing locks failed", zap.Error(err))
		return nil, err
	}

	return locks, nil
}

// Events returns the newest audit events for name.
func (s *LockService) Events(ctx context.Context, name string, limit int) ([]*domain.LockEvent, error) {
	if s.events == nil {
		return nil, ErrAuditDisabled
	}

	return s.events.ListByKey(ctx, s.locks.Key(name), limit)
}

// audit records an event without failing the caller. Write errors are logged.
func (s *LockService) audit(ctx context.Context, key, holder string, typ domain.EventType, fill func(*domain.LockEvent)) {
	if s.events == nil {
		return
	}

	event, err := domain.NewLockEvent(key, holder, typ)
	if err != nil {
		s.logger.Error("building lock event failed", zap.Error(err))
		return
	}
	if fill != nil {
		fill(event)
	}

	// The lock operation already happened; record it even if the request
	// was cancelled meanwhile.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := s.events.Record(ctx, event); err != nil {
		s.logger.Warn("recording lock event failed",
			zap.String("key", key),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}
