// Package handler exposes the festival services over HTTP. Handlers
// bind and check the request shape, call one service operation and
// render its result or its error kind.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/service"
)

// DefaultTimeout bounds the service call of a single request.
const DefaultTimeout = 5 * time.Second

// Services bundles the components the handlers call.
type Services struct {
	Accounts  *service.Accounts
	Ledger    *service.Ledger
	Proposals *service.Proposals
	Ratings   *service.Ratings
	Events    *service.Events
	Catalog   *service.Catalog
}

type base struct {
	timeout time.Duration
	log     *slog.Logger
}

func newBase(timeout time.Duration, log *slog.Logger) base {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	return base{timeout: timeout, log: log}
}

func (b base) ctx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), b.timeout)
}

// StatusOf maps a service error kind to its HTTP status.
func StatusOf(k service.Kind) int {
	switch k {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindForbidden, service.KindProposalsClosed:
		return http.StatusForbidden
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindConflictRace, service.KindAccountExists:
		return http.StatusConflict
	case service.KindStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// fail renders err as {"error": kind, "detail": message}.
func fail(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":  service.KindStorageFailure.String(),
			"detail": service.KindStorageFailure.Message(),
		})
	}
	return c.JSON(StatusOf(se.Kind), echo.Map{"error": se.Kind.String(), "detail": se.Error()})
}

func badRequest(c echo.Context, kind service.Kind, detail string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": kind.String(), "detail": kind.Message() + ": " + detail})
}

// paramID parses the :id path parameter.
func paramID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// unauthorized answers requests that reached a user route without a
// signed-in caller. Such routes are guarded by middleware.Authorize, so
// this only fires when a route is wired wrong.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "detail": "authentication required"})
}

// ErrorHandler renders errors that reach echo (unknown routes, bad
// methods, panics turned into errors by Recover) in the API's error shape.
func ErrorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status := http.StatusInternalServerError
		detail := http.StatusText(status)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				detail = msg
			} else {
				detail = http.StatusText(status)
			}
		} else {
			log.ErrorContext(c.Request().Context(), "unhandled error", "error", err, "path", c.Path())
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, echo.Map{"error": http.StatusText(status), "detail": detail})
	}
}

// voteOp is one of the Ledger's add/remove operations.
type voteOp func(ctx context.Context, targetID, userID uint64) (int, error)
