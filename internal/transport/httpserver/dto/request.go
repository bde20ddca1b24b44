// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

import "time"

// Bounds on client-supplied durations, in milliseconds. Struct tags cannot
// reference constants, so the lte= values in the validate tags below repeat
// these; keep them in step.
const (
	MaxWaitMs  = 5 * 60 * 1000
	MaxLeaseMs = 24 * 60 * 60 * 1000
)

// AcquireRequest is the body of POST /api/v1/locks/:key/acquire.
type AcquireRequest struct {
	Holder  string `json:"holder" validate:"required,lockkey"`
	WaitMs  int64  `json:"wait_ms" validate:"gte=0,lte=300000"`
	LeaseMs int64  `json:"lease_ms" validate:"required,gte=1,lte=86400000"`
}

// Wait returns the wait bound as a duration.
func (r *AcquireRequest) Wait() time.Duration {
	return time.Duration(r.WaitMs) * time.Millisecond
}

// Lease returns the lease as a duration.
func (r *AcquireRequest) Lease() time.Duration {
	return time.Duration(r.LeaseMs) * time.Millisecond
}

// ReleaseRequest is the body of POST /api/v1/locks/:key/release.
type ReleaseRequest struct {
	Holder string `json:"holder" validate:"required,lockkey"`
}

// RenewRequest is the body of POST /api/v1/locks/:key/renew.
type RenewRequest struct {
	Holder  string `json:"holder" validate:"required,lockkey"`
	LeaseMs int64  `json:"lease_ms" validate:"required,gte=1,lte=86400000"`
}

// Lease returns the lease as a duration.
func (r *RenewRequest) Lease() time.Duration {
	return time.Duration(r.LeaseMs) * time.Millisecond
}

// EventsRequest holds the query parameters of GET /api/v1/locks/:key/events.
type EventsRequest struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=500"`
}

// LimitOrDefault returns Limit, or 50 when unset.
func (r *EventsRequest) LimitOrDefault() int {
	if r.Limit == 0 {
		return 50
	}

	return r.Limit
}
