package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDispatchCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.ObserveProviderAttempt("Resend", OutcomeTimeout, 5*time.Second)
	metrics.ObserveProviderAttempt("brevo", OutcomeSuccess, 120*time.Millisecond)
	metrics.IncBreakerTrip("resend")
	metrics.IncBreakerGlobalReset()
	metrics.IncNotification("EMAIL", ResultDelivered)
	metrics.ObserveDispatchDuration(-time.Second)
	metrics.IncWorkerInFlight("email")
	metrics.DecWorkerInFlight("email")

	if got := testutil.ToFloat64(metrics.providerAttemptsTotal.WithLabelValues("resend", "timeout")); got != 1 {
		t.Fatalf("provider_attempts_total{resend,timeout} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.providerAttemptsTotal.WithLabelValues("brevo", "success")); got != 1 {
		t.Fatalf("provider_attempts_total{brevo,success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.breakerTripsTotal.WithLabelValues("resend")); got != 1 {
		t.Fatalf("breaker_trips_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.breakerResetsTotal); got != 1 {
		t.Fatalf("breaker_global_resets_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsTotal.WithLabelValues("email", "delivered")); got != 1 {
		t.Fatalf("notifications_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.workerInflight.WithLabelValues("email")); got != 0 {
		t.Fatalf("worker_inflight = %v, want 0", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.ObserveProviderAttempt("resend", OutcomeFailure, time.Second)
	metrics.IncBreakerTrip("resend")
	metrics.IncBreakerGlobalReset()
	metrics.IncNotification("email", ResultUndelivered)
	metrics.ObserveDispatchDuration(time.Second)
	metrics.IncWorkerInFlight("email")
	metrics.DecWorkerInFlight("email")
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
