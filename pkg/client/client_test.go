package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dlock-service/pkg/dlock"
)

const baseURL = "https://dlock.example.com"

func newTestClient() *Client {
	cfg := Config{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		Retry: RetryConfig{
			MaxAttempts: 3,
			WaitTime:    10 * time.Millisecond,
			MaxWaitTime: 50 * time.Millisecond,
		},
		CB: CBConfig{
			MaxRequests:  5,
			Interval:     60 * time.Second,
			Timeout:      15 * time.Second,
			FailureRatio: 0.6,
		},
	}
	client := New(cfg, zap.NewNop())

	httpmock.ActivateNonDefault(client.client.GetClient())

	return client
}

func lockJSON(holder string, count int) map[string]interface{} {
	return map[string]interface{}{
		"key":       "dlock:job-42",
		"name":      "job-42",
		"holder":    holder,
		"count":     count,
		"expire_at": "2026-10-15T10:00:30.123Z",
		"ttl_ms":    30000,
	}
}

func errorJSON(code string) map[string]string {
	return map[string]string{"error": "lock error", "code": code}
}

func TestClient_Acquire(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	var body acquireRequest
	var requestID string
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/acquire",
		func(req *http.Request) (*http.Response, error) {
			requestID = req.Header.Get("X-Request-ID")
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				return nil, err
			}

			return httpmock.NewJsonResponse(200, lockJSON("worker-1", 1))
		})

	lock, err := client.Acquire(context.Background(), "job-42", "worker-1", 2*time.Second, 30*time.Second)

	require.NoError(t, err)
	assert.Equal(t, acquireRequest{Holder: "worker-1", WaitMs: 2000, LeaseMs: 30000}, body)
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "worker-1", lock.Holder)
	assert.Equal(t, 1, lock.Count)
	assert.Equal(t, 30*time.Second, lock.TTL())
	assert.Equal(t, time.UnixMilli(1792058430123).UTC(), lock.ExpireAt.UTC())
}

func TestClient_ErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		status int
		code   string
		target error
		call   func(*Client) error
	}{
		{
			name:   "acquire timeout",
			method: http.MethodPost,
			path:   "/api/v1/locks/job-42/acquire",
			status: 409,
			code:   "LOCK_TIMEOUT",
			target: dlock.ErrTimeout,
			call: func(c *Client) error {
				_, err := c.Acquire(context.Background(), "job-42", "worker-2", 0, time.Second)
				return err
			},
		},
		{
			name:   "release by non-owner",
			method: http.MethodPost,
			path:   "/api/v1/locks/job-42/release",
			status: 409,
			code:   "NOT_OWNER",
			target: dlock.ErrNotOwner,
			call: func(c *Client) error {
				return c.Release(context.Background(), "job-42", "worker-2")
			},
		},
		{
			name:   "renew after expiry",
			method: http.MethodPost,
			path:   "/api/v1/locks/job-42/renew",
			status: 409,
			code:   "LEASE_LOST",
			target: ErrLeaseLost,
			call: func(c *Client) error {
				_, err := c.Renew(context.Background(), "job-42", "worker-1", time.Second)
				return err
			},
		},
		{
			name:   "get free lock",
			method: http.MethodGet,
			path:   "/api/v1/locks/job-42",
			status: 404,
			code:   "LOCK_NOT_FOUND",
			target: ErrNotFound,
			call: func(c *Client) error {
				_, err := c.Get(context.Background(), "job-42")
				return err
			},
		},
		{
			name:   "events without audit",
			method: http.MethodGet,
			path:   "/api/v1/locks/job-42/events",
			status: 404,
			code:   "AUDIT_DISABLED",
			target: ErrAuditDisabled,
			call: func(c *Client) error {
				_, err := c.Events(context.Background(), "job-42", 0)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer httpmock.DeactivateAndReset()
			client := newTestClient()
			httpmock.RegisterResponder(tt.method, baseURL+tt.path,
				httpmock.NewJsonResponderOrPanic(tt.status, errorJSON(tt.code)))

			err := tt.call(client)

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, 1, httpmock.GetTotalCallCount())
		})
	}
}

func TestClient_Release(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/release",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"key": "dlock:job-42", "released": true}))

	err := client.Release(context.Background(), "job-42", "worker-1")

	require.NoError(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_ListAndEvents(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/v1/locks",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"locks": []interface{}{lockJSON("worker-1", 2)},
			"total": 1,
		}))
	httpmock.RegisterResponderWithQuery(http.MethodGet, baseURL+"/api/v1/locks/job-42/events", "limit=5",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"events": []map[string]interface{}{
				{"id": 2, "key": "dlock:job-42", "holder": "worker-1", "type": "released", "created_at": "2026-10-15T10:00:01Z"},
				{"id": 1, "key": "dlock:job-42", "holder": "worker-1", "type": "acquired", "count": 1, "created_at": "2026-10-15T10:00:00Z"},
			},
		}))

	locks, err := client.List(context.Background())
	require.NoError(t, err)
	require.Len(t, locks, 1)
	assert.Equal(t, 2, locks[0].Count)

	events, err := client.Events(context.Background(), "job-42", 5)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "released", events[0].Type)
	assert.Equal(t, int64(1), events[1].ID)
}

func TestClient_RetriesReadsOnServerError(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	callCount := 0
	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/v1/locks/job-42",
		func(_ *http.Request) (*http.Response, error) {
			callCount++
			if callCount < 3 {
				return httpmock.NewStringResponse(500, "Server Error"), nil
			}

			return httpmock.NewJsonResponse(200, lockJSON("worker-1", 1))
		})

	lock, err := client.Get(context.Background(), "job-42")

	require.NoError(t, err)
	assert.Equal(t, "worker-1", lock.Holder)
	assert.Equal(t, 3, callCount)
}

func TestClient_DoesNotRetryAcquireOnServerError(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/acquire",
		httpmock.NewStringResponder(500, "Server Error"))

	_, err := client.Acquire(context.Background(), "job-42", "worker-1", 0, time.Second)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_RetriesAcquireWhenStoreUnavailable(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	callCount := 0
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/acquire",
		func(_ *http.Request) (*http.Response, error) {
			callCount++
			if callCount == 1 {
				return httpmock.NewJsonResponse(503, errorJSON("STORE_UNAVAILABLE"))
			}

			return httpmock.NewJsonResponse(200, lockJSON("worker-1", 1))
		})

	_, err := client.Acquire(context.Background(), "job-42", "worker-1", 0, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 2, callCount)
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/v1/locks",
		httpmock.NewStringResponder(500, "Internal Server Error"))

	for i := 0; i < 3; i++ {
		_, err := client.List(context.Background())
		require.Error(t, err)
	}

	calls := httpmock.GetTotalCallCount()
	_, err := client.List(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, calls, httpmock.GetTotalCallCount(), "open breaker makes no request")
}

func TestClient_ConflictsDoNotTripBreaker(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/acquire",
		httpmock.NewJsonResponderOrPanic(409, errorJSON("LOCK_TIMEOUT")))

	for i := 0; i < 5; i++ {
		_, err := client.Acquire(context.Background(), "job-42", "worker-2", 0, time.Second)
		require.ErrorIs(t, err, dlock.ErrTimeout)
	}

	assert.Equal(t, 5, httpmock.GetTotalCallCount())
}

func TestClient_HealthCheck(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/readyz", httpmock.NewStringResponder(503, "down"))

	err := client.HealthCheck(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

// slowResponder answers after delay unless the request is abandoned first.
func slowResponder(delay time.Duration, status int, body interface{}) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		select {
		case <-time.After(delay):
			return httpmock.NewJsonResponse(status, body)
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
}

func TestClient_AcquireDeadlineCoversWait(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()
	client.timeout = 100 * time.Millisecond

	// The server holds the request for most of the wait before granting.
	httpmock.RegisterResponder(http.MethodPost, baseURL+"/api/v1/locks/job-42/acquire",
		slowResponder(250*time.Millisecond, 200, lockJSON("worker-1", 1)))

	lock, err := client.Acquire(context.Background(), "job-42", "worker-1", 300*time.Millisecond, time.Second)

	require.NoError(t, err, "a grant inside the wait must reach the caller")
	assert.Equal(t, "worker-1", lock.Holder)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestClient_CallsAreBoundedByTimeout(t *testing.T) {
	defer httpmock.DeactivateAndReset()
	client := newTestClient()
	client.timeout = 100 * time.Millisecond

	httpmock.RegisterResponder(http.MethodGet, baseURL+"/api/v1/locks/job-42",
		slowResponder(time.Second, 200, lockJSON("worker-1", 1)))

	start := time.Now()
	_, err := client.Get(context.Background(), "job-42")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "retries share one deadline")
}
