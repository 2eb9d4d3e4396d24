package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/iliyamo/film-festival/internal/config"
	"github.com/iliyamo/film-festival/internal/logging"
)

var (
	redisOnce sync.Once
	redisAddr string
	redisErr  error
)

// requireRedis starts one Redis container for the package. Tests are
// skipped in -short mode or when no container runtime is reachable.
func requireRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}
	redisOnce.Do(func() {
		ctx := context.Background()
		c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections"),
			},
			Started: true,
		})
		if err != nil {
			redisErr = fmt.Errorf("start redis container: %w", err)
			return
		}
		redisAddr, redisErr = c.Endpoint(ctx, "")
	})
	if redisErr != nil {
		if os.Getenv("CI") != "" {
			t.Fatalf("redis unavailable: %v", redisErr)
		}
		t.Skipf("redis unavailable: %v", redisErr)
	}
	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestResponseCache_HitAndInvalidate(t *testing.T) {
	rdb := requireRedis(t)
	cfg := config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{http.MethodGet: true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache-test-" + t.Name(),
	}
	rc := NewResponseCache(cfg, rdb, logging.Discard())

	calls := 0
	e := echo.New()
	e.GET("/films", func(c echo.Context) error {
		calls++
		return c.JSON(http.StatusOK, echo.Map{"calls": calls})
	}, rc.Middleware())
	e.POST("/films", func(c echo.Context) error {
		return c.NoContent(http.StatusCreated)
	}, rc.InvalidateOnWrite())

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, "/films", nil))
		return rec
	}

	first := do(http.MethodGet)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(http.MethodGet)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	assert.Equal(t, http.StatusCreated, do(http.MethodPost).Code)

	third := do(http.MethodGet)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"calls":2}`, third.Body.String())
}

func TestTokenBucket_RejectsWhenEmpty(t *testing.T) {
	rdb := requireRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            5 * time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl-test-" + t.Name(),
	}
	e := echo.New()
	e.GET("/probe", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(cfg, rdb, logging.Discard()))

	codes := make([]int, 0, 3)
	for range 3 {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/probe", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	require.Len(t, codes, 3)
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}
