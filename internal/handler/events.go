package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/film-festival/internal/middleware"
	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/service"
)

// EventHandler serves festival events and the films proposed to them.
type EventHandler struct {
	base
	svc Services
}

func NewEventHandler(svc Services, timeout time.Duration, log *slog.Logger) *EventHandler {
	return &EventHandler{base: newBase(timeout, log), svc: svc}
}

// eventUpdateReq is shared by PUT and PATCH; omitted fields stay as they are.
type eventUpdateReq struct {
	Name           *string    `json:"name"`
	Date           *time.Time `json:"date"`
	AllowProposals *bool      `json:"allow_proposals"`
}

func (h *EventHandler) List(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	events, err := h.svc.Events.ListEvents(ctx)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

func (h *EventHandler) Get(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	ev, err := h.svc.Events.GetEvent(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Create: admin only.
func (h *EventHandler) Create(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var req service.EventInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	ev, err := h.svc.Events.CreateEvent(ctx, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// Update: admin only.
func (h *EventHandler) Update(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event id")
	}
	var req eventUpdateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	ev, err := h.svc.Events.UpdateEvent(ctx, id, model.EventUpdate{
		Name:           req.Name,
		Date:           req.Date,
		AllowProposals: req.AllowProposals,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// Delete: admin only. Proposals and their votes go with the event.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Events.DeleteEvent(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Films lists the event's proposals with their films attached.
func (h *EventHandler) Films(c echo.Context) error {
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.svc.Events.ListEventFilms(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// ProposeFilm proposes a film (new or existing) to the event.
func (h *EventHandler) ProposeFilm(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event id")
	}
	var req service.FilmPayload
	if err := c.Bind(&req); err != nil {
		return badRequest(c, service.KindInvalidField, "invalid body")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	ef, err := h.svc.Proposals.ProposeFilmToEvent(ctx, uid, id, req)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, ef)
}

func (h *EventHandler) UpvoteFilm(c echo.Context) error {
	return h.vote(c, h.svc.Ledger.AddEventFilmUpvote)
}

func (h *EventHandler) RemoveFilmUpvote(c echo.Context) error {
	return h.vote(c, h.svc.Ledger.RemoveEventFilmUpvote)
}

func (h *EventHandler) vote(c echo.Context, op voteOp) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event film id")
	}

	ctx, cancel := h.ctx(c)
	defer cancel()
	n, err := op(ctx, id, uid)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"upvote_count": n})
}

// DeleteFilm withdraws the caller's own event proposal.
func (h *EventHandler) DeleteFilm(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := paramID(c)
	if !ok {
		return badRequest(c, service.KindInvalidField, "invalid event film id")
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Proposals.DeleteEventProposal(ctx, uid, id); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
