package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/logging"
	"github.com/iliyamo/film-festival/internal/repository"
	"github.com/iliyamo/film-festival/internal/service"
)

func newContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(method, target, nil), rec), rec
}

func TestStatusOf(t *testing.T) {
	tests := map[service.Kind]int{
		service.KindNotFound:          http.StatusNotFound,
		service.KindForbidden:         http.StatusForbidden,
		service.KindProposalsClosed:   http.StatusForbidden,
		service.KindUnauthorized:      http.StatusUnauthorized,
		service.KindAccountExists:     http.StatusConflict,
		service.KindConflictRace:      http.StatusConflict,
		service.KindStorageFailure:    http.StatusInternalServerError,
		service.KindMissingField:      http.StatusBadRequest,
		service.KindInvalidField:      http.StatusBadRequest,
		service.KindDuplicateProposal: http.StatusBadRequest,
		service.KindAlreadyProposed:   http.StatusBadRequest,
		service.KindAlreadyVoted:      http.StatusBadRequest,
		service.KindNotVoted:          http.StatusBadRequest,
		service.KindAlreadyRated:      http.StatusBadRequest,
		service.KindAlreadyWatched:    http.StatusBadRequest,
	}
	for kind, want := range tests {
		assert.Equal(t, want, StatusOf(kind), kind.String())
	}
}

func TestFailRendersKindAndDetail(t *testing.T) {
	c, rec := newContext(http.MethodPost, "/")
	err := fmt.Errorf("wrapped: %w", &service.Error{Kind: service.KindAlreadyVoted})
	require.NoError(t, fail(c, err))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"AlreadyVoted","detail":"you have already upvoted this"}`, rec.Body.String())

	c, rec = newContext(http.MethodPost, "/")
	require.NoError(t, fail(c, repository.ErrConflict))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"StorageFailure"`)
}

func TestParamID(t *testing.T) {
	for _, tt := range []struct {
		raw string
		id  uint64
		ok  bool
	}{
		{"12", 12, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	} {
		c, _ := newContext(http.MethodGet, "/")
		c.SetParamNames("id")
		c.SetParamValues(tt.raw)
		id, ok := paramID(c)
		assert.Equal(t, tt.ok, ok, tt.raw)
		if tt.ok {
			assert.Equal(t, tt.id, id)
		}
	}
}

func TestUserRoutesRequireCaller(t *testing.T) {
	h := NewFilmHandler(Services{}, 0, nil)
	c, rec := newContext(http.MethodGet, "/v1/me/upvoted-films")
	require.NoError(t, h.MyUpvoted(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, DefaultTimeout, h.timeout)
}

func TestErrorHandler(t *testing.T) {
	handle := ErrorHandler(logging.Discard())

	c, rec := newContext(http.MethodGet, "/missing")
	handle(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not Found","detail":"Not Found"}`, rec.Body.String())

	c, rec = newContext(http.MethodGet, "/boom")
	handle(errors.New("boom"), c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")

	c, rec = newContext(http.MethodHead, "/missing")
	handle(echo.ErrMethodNotAllowed, c)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestReady(t *testing.T) {
	ok := HealthCheck{Name: "mysql", Check: func(context.Context) error { return nil }}
	down := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}

	c, rec := newContext(http.MethodGet, "/readyz")
	require.NoError(t, Ready(ok)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())

	c, rec = newContext(http.MethodGet, "/readyz")
	require.NoError(t, Ready(ok, down)(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"redis"`)
}
