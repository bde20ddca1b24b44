// Package client is an HTTP client for the lock service API.
package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const locksPath = "/api/v1/locks"

// Client talks to the lock service on behalf of a remote holder.
type Client struct {
	client  *resty.Client
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[*resty.Response]
	logger  *zap.Logger
}

// New creates a new lock service client.
func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:  newRestyClient(cfg),
		timeout: cfg.Timeout,
		cb:      newCircuitBreaker[*resty.Response]("dlock-service", cfg.CB, logger),
		logger:  logger,
	}
}

// Acquire takes name for holder, waiting up to wait for a contended lock.
// A holder that already owns the lock takes an additional hold.
//
// The call deadline is wait plus Config.Timeout: the server keeps polling
// for the whole wait even if the client disconnects, so giving up earlier
// could leave the lock granted to a caller that was told it failed.
func (c *Client) Acquire(ctx context.Context, name, holder string, wait, lease time.Duration) (*Lock, error) {
	ctx, cancel := c.withTimeout(ctx, wait)
	defer cancel()

	var lock Lock
	_, err := c.do(ctx, http.MethodPost, "/{key}/acquire", name, acquireRequest{
		Holder:  holder,
		WaitMs:  wait.Milliseconds(),
		LeaseMs: lease.Milliseconds(),
	}, &lock, nil)
	if err != nil {
		return nil, fmt.Errorf("acquiring %s: %w", name, err)
	}

	return &lock, nil
}

// Release drops one hold of name for holder. Releasing a lock that already
// expired succeeds.
func (c *Client) Release(ctx context.Context, name, holder string) error {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	var resp releaseResponse
	_, err := c.do(ctx, http.MethodPost, "/{key}/release", name, releaseRequest{Holder: holder}, &resp, nil)
	if err != nil {
		return fmt.Errorf("releasing %s: %w", name, err)
	}

	return nil
}

// Renew resets the lease of a lock holder owns.
func (c *Client) Renew(ctx context.Context, name, holder string, lease time.Duration) (*Lock, error) {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	var lock Lock
	_, err := c.do(ctx, http.MethodPost, "/{key}/renew", name, renewRequest{
		Holder:  holder,
		LeaseMs: lease.Milliseconds(),
	}, &lock, nil)
	if err != nil {
		return nil, fmt.Errorf("renewing %s: %w", name, err)
	}

	return &lock, nil
}

// Get returns the current state of name.
func (c *Client) Get(ctx context.Context, name string) (*Lock, error) {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	var lock Lock
	if _, err := c.do(ctx, http.MethodGet, "/{key}", name, nil, &lock, nil); err != nil {
		return nil, fmt.Errorf("getting %s: %w", name, err)
	}

	return &lock, nil
}

// List returns every held lock.
func (c *Client) List(ctx context.Context) ([]Lock, error) {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	var resp lockListResponse
	if _, err := c.do(ctx, http.MethodGet, "", "", nil, &resp, nil); err != nil {
		return nil, fmt.Errorf("listing locks: %w", err)
	}

	return resp.Locks, nil
}

// Events returns up to limit audit entries for name, newest first. A limit
// of 0 uses the server default.
func (c *Client) Events(ctx context.Context, name string, limit int) ([]Event, error) {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	var query map[string]string
	if limit > 0 {
		query = map[string]string{"limit": strconv.Itoa(limit)}
	}

	var resp eventListResponse
	if _, err := c.do(ctx, http.MethodGet, "/{key}/events", name, nil, &resp, query); err != nil {
		return nil, fmt.Errorf("listing events of %s: %w", name, err)
	}

	return resp.Events, nil
}

// HealthCheck verifies the service is ready.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx, 0)
	defer cancel()

	resp, err := c.client.R().
		SetContext(ctx).
		Get("/readyz")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("health check returned status %d", resp.StatusCode())
	}

	return nil
}

// withTimeout bounds a call by Config.Timeout plus extra. A zero Timeout
// leaves ctx unbounded.
func (c *Client) withTimeout(ctx context.Context, extra time.Duration) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.timeout+max(extra, 0))
}

func (c *Client) do(
	ctx context.Context,
	method, path, name string,
	body, result interface{},
	query map[string]string,
) (*resty.Response, error) {
	requestID := uuid.NewString()

	resp, err := c.cb.Execute(func() (*resty.Response, error) {
		req := c.client.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", requestID).
			SetResult(result).
			SetError(&errorResponse{})
		if name != "" {
			req.SetPathParam("key", name)
		}
		if body != nil {
			req.SetBody(body)
		}
		if query != nil {
			req.SetQueryParams(query)
		}

		r, err := req.Execute(method, locksPath+path)
		if err != nil {
			return nil, err
		}
		if r.IsError() {
			return r, toAPIError(r)
		}

		return r, nil
	})
	if err != nil {
		c.logger.Debug("lock service call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("key", name),
			zap.String("request_id", requestID),
			zap.String("state", c.cb.State().String()),
			zap.Error(err),
		)

		return nil, err
	}

	return resp, nil
}

func toAPIError(r *resty.Response) *APIError {
	apiErr := &APIError{Status: r.StatusCode()}
	if body, ok := r.Error().(*errorResponse); ok && body != nil {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	}

	return apiErr
}
