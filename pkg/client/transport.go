package client

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Config holds configuration for the lock service client.
type Config struct {
	BaseURL string
	// Timeout bounds one call, retries included. Acquire adds its wait on
	// top, since the server may hold the request that long.
	Timeout time.Duration
	Retry   RetryConfig
	CB      CBConfig
}

// RetryConfig holds retry configuration.
type RetryConfig struct {
	MaxAttempts int
	WaitTime    time.Duration
	MaxWaitTime time.Duration
}

// CBConfig holds circuit breaker configuration.
type CBConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// newRestyClient creates a Resty HTTP client with retry configuration.
// Deadlines are set per call through the request context rather than on
// the underlying http.Client, whose timeout cannot vary per request.
func newRestyClient(cfg Config) *resty.Client {
	return resty.New().
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.Retry.MaxAttempts).
		SetRetryWaitTime(cfg.Retry.WaitTime).
		SetRetryMaxWaitTime(cfg.Retry.MaxWaitTime).
		AddRetryCondition(shouldRetry)
}

// shouldRetry retries reads on network errors and 5xx. Writes are retried
// only on 503, where the server could not reach the store at all: a blind
// retry of an acquire whose response was lost would take a second hold.
func shouldRetry(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil {
		return err != nil
	}
	if r.Request.Method == http.MethodGet {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	}

	return err == nil && r.StatusCode() == http.StatusServiceUnavailable
}

// newCircuitBreaker creates the breaker guarding calls to the service.
// Conflicts and other 4xx answers are lock outcomes, not failures.
func newCircuitBreaker[T any](name string, cfg CBConfig, logger *zap.Logger) *gobreaker.CircuitBreaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)

			return counts.Requests >= 3 && failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}

			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return gobreaker.NewCircuitBreaker[T](settings)
}
