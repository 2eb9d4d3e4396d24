package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const readinessTimeout = 3 * time.Second

// Health is the liveness probe. It returns a plain "ok".
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthCheck is a named dependency probe run by Ready.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Ready runs every check in order and reports the first failure with 503.
func Ready(checks ...HealthCheck) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
		defer cancel()

		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{
					"status":       "unhealthy",
					"failed_check": hc.Name,
					"error":        err.Error(),
				})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
