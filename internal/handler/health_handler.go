package handler

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/kursadbilgin/notify-relay/internal/failover"
	"github.com/kursadbilgin/notify-relay/internal/observability"
	"github.com/redis/go-redis/v9"
)

const readinessTimeout = 2 * time.Second

// PingFunc checks one infrastructure dependency.
type PingFunc func(ctx context.Context) error

// ProviderSnapshotter exposes breaker state for the ops endpoints.
type ProviderSnapshotter interface {
	Snapshot() []failover.ProviderState
}

// RedisPing adapts a go-redis client to a readiness check.
func RedisPing(rdb *redis.Client) PingFunc {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

func RegisterOpsRoutes(
	app fiber.Router,
	checks map[string]PingFunc,
	pool ProviderSnapshotter,
	metrics *observability.Metrics,
) {
	app.Get("/livez", LivezHandler())
	app.Get("/readyz", ReadyzHandler(checks, pool))
	app.Get("/providers", ProvidersHandler(pool))
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
}

func LivezHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "ok",
		})
	}
}

// ReadyzHandler reports not_ready when any dependency check fails. Suspended
// providers are reported but never fail readiness: the pool recovers on its own.
func ReadyzHandler(checks map[string]PingFunc, pool ProviderSnapshotter) fiber.Handler {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), readinessTimeout)
		defer cancel()

		ready := true
		results := fiber.Map{}
		for _, name := range names {
			status := "ok"
			if err := checks[name](ctx); err != nil {
				status = "down"
				ready = false
			}
			results[name] = status
		}

		body := fiber.Map{
			"status": "ready",
			"checks": results,
		}
		if pool != nil {
			body["providers"] = pool.Snapshot()
		}

		statusCode := fiber.StatusOK
		if !ready {
			body["status"] = "not_ready"
			statusCode = fiber.StatusServiceUnavailable
		}

		return c.Status(statusCode).JSON(body)
	}
}

func ProvidersHandler(pool ProviderSnapshotter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if pool == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "provider pool is not configured")
		}

		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"providers": pool.Snapshot(),
		})
	}
}
