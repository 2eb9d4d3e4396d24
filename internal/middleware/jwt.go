package middleware

import (
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/utils"
)

// Context keys set by JWTAuth.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// JWTAuth validates a Bearer access token when one is sent and stores
// the subject and role in the context under "user_id" (uint64) and
// "role". Requests without an Authorization header continue
// anonymously; whether that is enough is decided by Authorize. A token
// that is present but invalid is rejected with 401.
func JWTAuth(secret string, clock clockwork.Clock) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if auth == "" {
				return next(c)
			}
			raw, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "detail": "missing bearer token"})
			}

			claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw), clock.Now())
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "detail": "invalid token"})
			}
			uid, err := claims.UserID()
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized", "detail": "invalid claims"})
			}

			c.Set(ctxUserID, uid)
			c.Set(ctxRole, claims.Role)
			return next(c)
		}
	}
}
