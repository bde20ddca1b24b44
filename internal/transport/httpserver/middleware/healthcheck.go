// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
)

// probeTimeout bounds each readiness dependency check.
const probeTimeout = 2 * time.Second

// Probe checks one dependency the service needs to serve traffic.
type Probe func(ctx context.Context) error

// NewHealthCheck creates a Fiber healthcheck middleware with Kubernetes-style endpoints.
//
// Endpoints:
//   - GET /livez  - Liveness probe (app is running)
//   - GET /readyz - Readiness probe (every probe passes, e.g. Redis and the audit DB)
//
// This middleware should be registered BEFORE other routes.
func NewHealthCheck(probes ...Probe) fiber.Handler {
	return healthcheck.New(healthcheck.Config{
		LivenessEndpoint: "/livez",
		LivenessProbe: func(_ *fiber.Ctx) bool {
			return true
		},

		ReadinessEndpoint: "/readyz",
		ReadinessProbe: func(c *fiber.Ctx) bool {
			ctx, cancel := context.WithTimeout(c.UserContext(), probeTimeout)
			defer cancel()

			for _, probe := range probes {
				if err := probe(ctx); err != nil {
					return false
				}
			}

			return true
		},
	})
}
