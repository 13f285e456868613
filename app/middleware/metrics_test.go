package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsLabelsRequestsByRouteTemplate(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/api/accounts/:id", func(c fiber.Ctx) error {
		return c.SendString("ok")
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/accounts/:id", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/accounts/42", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The label carries the route template, not the concrete path, so the
	// per-route series count stays bounded.
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/accounts/:id", "200"))
	assert.Equal(t, before+1, after)

	assert.Equal(t, float64(0), testutil.ToFloat64(httpInFlight))
}

func TestMetricsRecordsErrorStatuses(t *testing.T) {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/api/broken", func(c fiber.Ctx) error {
		return c.SendStatus(fiber.StatusBadGateway)
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/broken", "502"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/broken", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadGateway, resp.StatusCode)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/broken", "502"))
	assert.Equal(t, before+1, after)
}
