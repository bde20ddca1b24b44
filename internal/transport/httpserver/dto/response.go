package dto

import (
	"time"

	"dlock-service/internal/app/service"
	"dlock-service/internal/domain"
)

// LockResponse represents one lock record.
type LockResponse struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Holder   string `json:"holder"`
	Count    int    `json:"count"`
	ExpireAt string `json:"expire_at"`
	TTLMs    int64  `json:"ttl_ms"`
}

// FromLockState converts domain.LockState to LockResponse.
func FromLockState(s *domain.LockState) LockResponse {
	return LockResponse{
		Key:      s.Key,
		Name:     s.Name,
		Holder:   s.Holder,
		Count:    s.Count,
		ExpireAt: s.ExpireAt.Format(time.RFC3339Nano),
		TTLMs:    s.TTL.Milliseconds(),
	}
}

// LockListResponse represents the held locks.
type LockListResponse struct {
	Locks []LockResponse `json:"locks"`
	Total int            `json:"total"`
}

// FromLockStates converts a slice of domain.LockState to LockListResponse.
func FromLockStates(states []*domain.LockState) LockListResponse {
	locks := make([]LockResponse, len(states))
	for i, s := range states {
		locks[i] = FromLockState(s)
	}

	return LockListResponse{Locks: locks, Total: len(locks)}
}

// ReleaseResponse confirms a release.
type ReleaseResponse struct {
	Key      string `json:"key"`
	Released bool   `json:"released"`
}

// EventResponse represents one audit log entry.
type EventResponse struct {
	ID        int64  `json:"id"`
	Key       string `json:"key"`
	Holder    string `json:"holder"`
	Type      string `json:"type"`
	Count     int    `json:"count,omitempty"`
	LeaseMs   int64  `json:"lease_ms,omitempty"`
	WaitMs    int64  `json:"wait_ms,omitempty"`
	CreatedAt string `json:"created_at"`
}

// EventListResponse represents a lock's audit history.
type EventListResponse struct {
	Events []EventResponse `json:"events"`
}

// FromLockEvents converts a slice of domain.LockEvent to EventListResponse.
func FromLockEvents(events []*domain.LockEvent) EventListResponse {
	out := make([]EventResponse, len(events))
	for i, e := range events {
		out[i] = EventResponse{
			ID:        e.ID,
			Key:       e.Key,
			Holder:    e.Holder,
			Type:      string(e.Type),
			Count:     e.Count,
			LeaseMs:   e.Lease.Milliseconds(),
			WaitMs:    e.Wait.Milliseconds(),
			CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		}
	}

	return EventListResponse{Events: out}
}

// SampleResponse represents a finished demonstration run.
type SampleResponse struct {
	Message   string `json:"message"`
	Key       string `json:"key"`
	Holder    string `json:"holder"`
	Depth     int    `json:"depth"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

// FromSampleResult converts service.SampleResult to SampleResponse.
func FromSampleResult(r *service.SampleResult) SampleResponse {
	return SampleResponse{
		Message:   r.Name + " end",
		Key:       r.Key,
		Holder:    r.Holder,
		Depth:     r.Depth,
		ElapsedMs: r.Elapsed.Milliseconds(),
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes returned by the lock API.
const (
	CodeLockTimeout    = "LOCK_TIMEOUT"
	CodeNotOwner       = "NOT_OWNER"
	CodeLeaseLost      = "LEASE_LOST"
	CodeLockNotFound   = "LOCK_NOT_FOUND"
	CodeAuditDisabled  = "AUDIT_DISABLED"
	CodeInvalidBody    = "INVALID_BODY"
	CodeInvalidParams  = "INVALID_PARAMS"
	CodeInvalidKey     = "INVALID_KEY"
	CodeValidation     = "VALIDATION_ERROR"
	CodeStoreError     = "STORE_UNAVAILABLE"
	CodeInternalError  = "INTERNAL_ERROR"
	CodeRequestTimeout = "REQUEST_CANCELLED"
)
