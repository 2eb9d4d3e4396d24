package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/config"
	"github.com/iliyamo/film-festival/internal/logging"
	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/policy"
	"github.com/iliyamo/film-festival/internal/utils"
)

const testSecret = "middleware-test-secret"

var testNow = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

// newTestEcho serves GET /probe behind mws and echoes the caller it saw.
func newTestEcho(mws ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/probe", func(c echo.Context) error {
		p := CurrentPrincipal(c)
		if p == nil {
			return c.JSON(http.StatusOK, echo.Map{"user": "anon"})
		}
		return c.JSON(http.StatusOK, echo.Map{"user": p.UserID, "role": p.Role})
	}, mws...)
	return e
}

func bearer(t *testing.T, uid uint64, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, uid, role, ttl, testNow)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	e := newTestEcho(JWTAuth(testSecret, clock))

	t.Run("anonymous request passes through", func(t *testing.T) {
		rec := serve(e, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":"anon"}`, rec.Body.String())
	})

	t.Run("valid token sets the caller", func(t *testing.T) {
		rec := serve(e, bearer(t, 7, model.RoleAdmin, time.Minute))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":7,"role":"ADMIN"}`, rec.Body.String())
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		auth := bearer(t, 7, model.RoleUser, time.Minute)
		clock.Advance(2 * time.Minute)
		rec := serve(e, auth)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"Unauthorized"`)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, serve(e, "Token abc").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(e, "Bearer ").Code)
	})

	t.Run("wrong secret is rejected", func(t *testing.T) {
		tok, err := utils.NewAccessToken("another-secret-value", 7, model.RoleUser, time.Hour, testNow)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, serve(newTestEcho(JWTAuth(testSecret, clockwork.NewFakeClockAt(testNow))), "Bearer "+tok.Token).Code)
	})
}

func TestAuthorize(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	tests := []struct {
		name   string
		action policy.Action
		auth   string
		want   int
	}{
		{"read is public", policy.ReadFilms, "", http.StatusOK},
		{"vote needs a session", policy.VoteFilm, "", http.StatusUnauthorized},
		{"user may vote", policy.VoteFilm, bearer(t, 1, model.RoleUser, time.Hour), http.StatusOK},
		{"user may not create events", policy.CreateEvent, bearer(t, 1, model.RoleUser, time.Hour), http.StatusForbidden},
		{"admin may create events", policy.CreateEvent, bearer(t, 2, model.RoleAdmin, time.Hour), http.StatusOK},
		{"anonymous admin action is 401", policy.MarkWatched, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(JWTAuth(testSecret, clock), Authorize(tt.action))
			assert.Equal(t, tt.want, serve(e, tt.auth).Code)
		})
	}
}

func TestIdentityHelpers(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	assert.Nil(t, CurrentPrincipal(c))
	_, ok := CurrentUserID(c)
	assert.False(t, ok)
	assert.Equal(t, "anon", userKey(c))

	c.Set(ctxUserID, uint64(42))
	c.Set(ctxRole, model.RoleUser)
	p := CurrentPrincipal(c)
	require.NotNil(t, p)
	assert.Equal(t, uint64(42), p.UserID)
	assert.False(t, p.IsAdmin())
	assert.Equal(t, "42", userKey(c))
}

func TestRequestIDReachesContext(t *testing.T) {
	e := echo.New()
	var seen string
	e.GET("/probe", func(c echo.Context) error {
		seen, _ = logging.RequestID(c.Request().Context())
		return c.NoContent(http.StatusNoContent)
	}, RequestID(), RequestLogger(logging.Discard()), Metrics())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rec.Header().Get(echo.HeaderXRequestID))
}

func TestDisabledCacheAndLimiterPassThrough(t *testing.T) {
	log := logging.Discard()
	var rc *ResponseCache
	cache := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, log)
	limiter := NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log)

	e := newTestEcho(cache.Middleware(), cache.InvalidateOnWrite(), rc.Middleware(), limiter)
	for range 3 {
		rec := serve(e, "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.NoError(t, cache.Invalidate(t.Context()))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": []string{"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
	require.NoError(t, err)

	status, gotHdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", gotHdr.Get("Content-Type"))
	assert.Equal(t, `[1,2]`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestCacheKeyIncludesPathParams(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()
	key := func(id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/events/"+id, nil), httptest.NewRecorder())
		c.SetPath("/v1/events/:id")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	assert.NotEqual(t, key("1"), key("2"))
	assert.Equal(t, key("1"), key("1"))
	assert.Contains(t, key("1"), "cache:")
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/films/3/upvote", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/films/:id/upvote")
	c.Set(ctxUserID, uint64(9))

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:9", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))
	assert.Equal(t, "rl:ip:10.0.0.1:user:9:route:POST /v1/films/:id/upvote",
		buildRateKey(config.RateLimitConfig{Prefix: "rl"}, c))
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(3), asInt64(int64(3)))
	assert.Equal(t, int64(3), asInt64(3))
	assert.Equal(t, int64(3), asInt64(float64(3)))
	assert.Equal(t, int64(3), asInt64("3"))
	assert.Zero(t, asInt64(nil))
}
