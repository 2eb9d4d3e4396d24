package middleware

// identity.go holds the helpers that read the caller set by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/policy"
)

// CurrentPrincipal returns the authenticated caller or nil for
// anonymous requests.
func CurrentPrincipal(c echo.Context) *policy.Principal {
	uid, ok := c.Get(ctxUserID).(uint64)
	if !ok || uid == 0 {
		return nil
	}
	role, _ := c.Get(ctxRole).(string)
	return &policy.Principal{UserID: uid, Role: role}
}

// CurrentUserID returns the authenticated user's id.
func CurrentUserID(c echo.Context) (uint64, bool) {
	uid, ok := c.Get(ctxUserID).(uint64)
	return uid, ok && uid != 0
}

// userKey identifies the caller in rate limit keys; anonymous callers
// share "anon".
func userKey(c echo.Context) string {
	if uid, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(uid, 10)
	}
	return "anon"
}
