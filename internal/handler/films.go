package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/middleware"
	"github.com/iliyamo/film-festival/internal/service"
)

// FilmHandler serves the watch pool: proposals, votes, ratings and the
// per-user lists.
type FilmHandler struct {
	base
	svc Services
}

func NewFilmHandler(svc Services, timeout time.Duration, log *slog.Logger) *FilmHandler {
	return &FilmHandler{base: newBase(timeout, log), svc: svc}
}

type rateReq struct {
	Stars *int `json:"stars"`
}

// ListToWatch: unwatched films, most upvoted first.
func (h *FilmHandler) ListToWatch(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	films, err := h.svc.Catalog.FilmsToWatch(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, films)
}

// ListWatched: screened films, latest screening first.
func (h *FilmHandler) ListWatched(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	films, err := h.svc.Catalog.WatchedFilms(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, films)
}

func (h *FilmHandler) Genres(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	genres, err := h.svc.Catalog.Genres(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, genres)
}

// Propose adds a film to the watch pool with the caller's upvote.
func (h *FilmHandler) Propose(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.FilmPayload
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	film, err := h.svc.Proposals.ProposeFilmToWatch(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, film)
}

// Delete withdraws the caller's own unwatched proposal.
func (h *FilmHandler) Delete(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid film id")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Proposals.DeleteProposal(ctx, uid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *FilmHandler) Upvote(c echo.Context) error {
	return h.vote(c, h.svc.Ledger.AddFilmUpvote)
}

func (h *FilmHandler) RemoveUpvote(c echo.Context) error {
	return h.vote(c, h.svc.Ledger.RemoveFilmUpvote)
}

func (h *FilmHandler) vote(c echo.Context, op voteOp) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid film id")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	n, err := op(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total_upvotes": n})
}

// Rate records the caller's one rating of the film.
func (h *FilmHandler) Rate(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid film id")
	}
	var req rateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}
	if req.Stars == nil {
		return badRequest(c, service.KindMissingField, "stars is required")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	r, err := h.svc.Ratings.RateFilm(ctx, id, uid, *req.Stars)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

// MarkWatched moves the film out of the watch pool (admin only).
func (h *FilmHandler) MarkWatched(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid film id")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	film, err := h.svc.Proposals.MarkWatched(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "watched", "watched_date": film.WatchedDate})
}

func (h *FilmHandler) MyUpvoted(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	films, err := h.svc.Catalog.UpvotedFilms(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, films)
}

func (h *FilmHandler) MyRated(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	films, err := h.svc.Catalog.RatedFilms(ctx, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, films)
}
