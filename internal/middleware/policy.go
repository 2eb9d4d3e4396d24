package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/policy"
)

// Authorize enforces the access tier of action. Anonymous callers of a
// protected route get 401 and signed-in callers without the role get
// 403. It must run after JWTAuth.
func Authorize(action policy.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch policy.Authorize(action, nil, CurrentPrincipal(c)) {
			case policy.Allow:
				return next(c)
			case policy.DenyUnauthenticated:
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "detail": "authentication required"})
			default:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Forbidden", "detail": "you do not have permission to perform this action"})
			}
		}
	}
}
