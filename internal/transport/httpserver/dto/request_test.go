package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dlock-service/internal/validator"
)

func TestAcquireRequest_Validation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name      string
		req       AcquireRequest
		wantField string
	}{
		{
			name: "valid",
			req:  AcquireRequest{Holder: "worker-1", WaitMs: 500, LeaseMs: 30000},
		},
		{
			name: "zero wait is a single attempt",
			req:  AcquireRequest{Holder: "worker-1", LeaseMs: 1},
		},
		{
			name:      "missing holder",
			req:       AcquireRequest{LeaseMs: 30000},
			wantField: "holder",
		},
		{
			name:      "holder with whitespace",
			req:       AcquireRequest{Holder: "worker 1", LeaseMs: 30000},
			wantField: "holder",
		},
		{
			name:      "missing lease",
			req:       AcquireRequest{Holder: "worker-1"},
			wantField: "lease_ms",
		},
		{
			name: "at both bounds",
			req:  AcquireRequest{Holder: "worker-1", WaitMs: MaxWaitMs, LeaseMs: MaxLeaseMs},
		},
		{
			name:      "lease over a day",
			req:       AcquireRequest{Holder: "worker-1", LeaseMs: MaxLeaseMs + 1},
			wantField: "lease_ms",
		},
		{
			name:      "negative wait",
			req:       AcquireRequest{Holder: "worker-1", WaitMs: -1, LeaseMs: 1000},
			wantField: "wait_ms",
		},
		{
			name:      "wait over five minutes",
			req:       AcquireRequest{Holder: "worker-1", WaitMs: MaxWaitMs + 1, LeaseMs: 1000},
			wantField: "wait_ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&tt.req)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			errs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestAcquireRequest_Durations(t *testing.T) {
	req := AcquireRequest{WaitMs: 250, LeaseMs: 30000}

	assert.Equal(t, 250*time.Millisecond, req.Wait())
	assert.Equal(t, 30*time.Second, req.Lease())
}

func TestRenewRequest_Validation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Validate(&RenewRequest{Holder: "worker-1", LeaseMs: 1000}))
	assert.NoError(t, v.Validate(&RenewRequest{Holder: "worker-1", LeaseMs: MaxLeaseMs}))
	assert.Error(t, v.Validate(&RenewRequest{Holder: "worker-1", LeaseMs: MaxLeaseMs + 1}))
	assert.Error(t, v.Validate(&RenewRequest{Holder: "worker-1"}))
	assert.Error(t, v.Validate(&RenewRequest{LeaseMs: 1000}))
}

func TestReleaseRequest_Validation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Validate(&ReleaseRequest{Holder: "[node-1]-[42-1]"}))
	assert.Error(t, v.Validate(&ReleaseRequest{}))
}

func TestEventsRequest(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Validate(&EventsRequest{}))
	assert.NoError(t, v.Validate(&EventsRequest{Limit: 500}))
	assert.Error(t, v.Validate(&EventsRequest{Limit: 501}))

	assert.Equal(t, 50, (&EventsRequest{}).LimitOrDefault())
	assert.Equal(t, 10, (&EventsRequest{Limit: 10}).LimitOrDefault())
}
