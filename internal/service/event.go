package service

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/repository"
)

// EventInput is the body of event creation. Nil fields take their
// defaults: proposals are open unless AllowProposals says otherwise.
type EventInput struct {
	Name           string     `json:"name"`
	Date           *time.Time `json:"date"`
	AllowProposals *bool      `json:"allow_proposals"`
}

// Events administers screening events and serves their public reads.
type Events struct {
	deps
}

// NewEvents returns the event component over store.
func NewEvents(store repository.Store, opts Options) *Events {
	return &Events{deps: newDeps(store, opts, "events")}
}

// CreateEvent adds an event curated by adminID.
func (s *Events) CreateEvent(ctx context.Context, adminID uint64, in EventInput) (*model.Event, error) {
	if in.Date == nil || in.Date.IsZero() {
		return nil, s.fail(ctx, "CreateEvent", newError(KindMissingField, "date is required"))
	}
	e := &model.Event{
		Name:           strings.TrimSpace(in.Name),
		Date:           in.Date.UTC(),
		AllowProposals: true,
		CreatedBy:      adminID,
	}
	if in.AllowProposals != nil {
		e.AllowProposals = *in.AllowProposals
	}
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return tx.CreateEvent(ctx, e)
	})
	if err != nil {
		return nil, s.fail(ctx, "CreateEvent", err)
	}
	s.log.InfoContext(ctx, "event created", "event_id", e.ID, "admin_id", adminID)
	return e, nil
}

// UpdateEvent applies the non-nil fields of u and returns the event.
func (s *Events) UpdateEvent(ctx context.Context, id uint64, u model.EventUpdate) (*model.Event, error) {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	if u.Date != nil && u.Date.IsZero() {
		return nil, s.fail(ctx, "UpdateEvent", newError(KindInvalidField, "date must not be empty"))
	}
	var e *model.Event
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		if err := tx.UpdateEvent(ctx, id, u); err != nil {
			return notFound(err, "event")
		}
		var err error
		e, err = tx.GetEvent(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "UpdateEvent", err)
	}
	s.log.InfoContext(ctx, "event updated", "event_id", id)
	return e, nil
}

// DeleteEvent removes the event with its proposals and their votes.
func (s *Events) DeleteEvent(ctx context.Context, id uint64) error {
	err := s.store.RunInTx(ctx, func(tx repository.Tx) error {
		return notFound(tx.DeleteEvent(ctx, id), "event")
	})
	if err != nil {
		return s.fail(ctx, "DeleteEvent", err)
	}
	s.log.InfoContext(ctx, "event deleted", "event_id", id)
	return nil
}

// GetEvent returns one event.
func (s *Events) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	var e *model.Event
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		e, err = tx.GetEvent(ctx, id)
		return notFound(err, "event")
	})
	if err != nil {
		return nil, s.fail(ctx, "GetEvent", err)
	}
	return e, nil
}

// ListEvents returns every event ordered by date.
func (s *Events) ListEvents(ctx context.Context) ([]*model.Event, error) {
	var events []*model.Event
	err := s.store.View(ctx, func(tx repository.Tx) error {
		var err error
		events, err = tx.ListEvents(ctx)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "ListEvents", err)
	}
	return events, nil
}

// ListEventFilms returns the event's proposals, most upvoted first.
func (s *Events) ListEventFilms(ctx context.Context, eventID uint64) ([]*model.EventFilm, error) {
	var films []*model.EventFilm
	err := s.store.View(ctx, func(tx repository.Tx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return notFound(err, "event")
		}
		var err error
		films, err = tx.ListEventFilms(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "ListEventFilms", err)
	}
	return films, nil
}
