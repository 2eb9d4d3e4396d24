package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/film-festival/internal/metrics"
	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/queue"
	"github.com/iliyamo/film-festival/internal/repository"
)

// ProviderPayload names a streaming provider in a proposal.
type ProviderPayload struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

// FilmPayload is the body of both proposal endpoints.
type FilmPayload struct {
	ImdbID string `json:"imdb_id"`
	model.FilmMetadata
	Providers []ProviderPayload `json:"providers"`
	Genres    []string          `json:"genres"`
}

// normalize trims names, drops repeated providers and genres and checks
// the fields every proposal needs.
func (p *FilmPayload) normalize() error {
	p.ImdbID = strings.TrimSpace(p.ImdbID)
	if p.ImdbID == "" {
		return newError(KindMissingField, "imdb_id is required")
	}
	if p.Year < 0 {
		return newError(KindInvalidField, "year must not be negative")
	}

	seen := make(map[string]bool, len(p.Providers))
	providers := make([]ProviderPayload, 0, len(p.Providers))
	for _, pp := range p.Providers {
		pp.Name = strings.TrimSpace(pp.Name)
		if pp.Name == "" {
			return newError(KindInvalidField, "provider name must not be empty")
		}
		if seen[pp.Name] {
			continue
		}
		seen[pp.Name] = true
		providers = append(providers, pp)
	}
	p.Providers = providers

	seen = make(map[string]bool, len(p.Genres))
	genres := make([]string, 0, len(p.Genres))
	for _, g := range p.Genres {
		g = strings.TrimSpace(g)
		if g == "" {
			return newError(KindInvalidField, "genre name must not be empty")
		}
		if seen[g] {
			continue
		}
		seen[g] = true
		genres = append(genres, g)
	}
	p.Genres = genres
	return nil
}

// Proposals is the proposal merge engine: direct and event-scoped
// proposals, their deletion and marking films watched.
type Proposals struct {
	deps
}

// NewProposals returns the proposal engine over store.
func NewProposals(store repository.Store, opts Options) *Proposals {
	return &Proposals{deps: newDeps(store, opts, "proposals")}
}

// ProposeFilmToWatch adds a new film to the watch pool with the
// proposer's own upvote. An imdb_id that is already known is a
// DuplicateProposal; this path never merges.
func (p *Proposals) ProposeFilmToWatch(ctx context.Context, userID uint64, in FilmPayload) (*model.Film, error) {
	if err := in.normalize(); err != nil {
		metrics.ProposalsTotal.WithLabelValues("direct", outcome(err)).Inc()
		return nil, p.fail(ctx, "ProposeFilmToWatch", err)
	}

	var film *model.Film
	err := p.store.RunInTx(ctx, func(tx repository.Tx) error {
		_, err := tx.GetFilmByImdbID(ctx, in.ImdbID)
		switch {
		case err == nil:
			return newError(KindDuplicateProposal, "imdb_id "+in.ImdbID)
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		imdbID := in.ImdbID
		f := &model.Film{ImdbID: &imdbID, ProposedBy: &userID}
		f.SetMetadata(in.FilmMetadata)
		if err := tx.CreateFilm(ctx, f); err != nil {
			return onDuplicate(err, KindDuplicateProposal, "imdb_id "+in.ImdbID)
		}
		if err := linkLookups(ctx, tx, f.ID, in); err != nil {
			return err
		}
		if _, err := addFilmUpvote(ctx, tx, f.ID, userID); err != nil {
			return err
		}
		film, err = tx.GetFilm(ctx, f.ID)
		return err
	})
	metrics.ProposalsTotal.WithLabelValues("direct", outcome(err)).Inc()
	if err != nil {
		return nil, p.fail(ctx, "ProposeFilmToWatch", err)
	}

	p.log.InfoContext(ctx, "film proposed", "film_id", film.ID, "imdb_id", in.ImdbID, "user_id", userID)
	ev := queue.NewActivity(queue.FilmProposed, p.now())
	ev.FilmID, ev.UserID, ev.ImdbID, ev.Title = film.ID, userID, in.ImdbID, film.Tittle
	p.publish(ctx, ev)
	return film, nil
}

// ProposeFilmToEvent proposes a film for an event. The film is created
// when its imdb_id is unknown and otherwise back-filled from the
// payload. The proposer's event upvote is recorded with the link. When
// the film is already proposed to the event nothing is persisted.
func (p *Proposals) ProposeFilmToEvent(ctx context.Context, userID, eventID uint64, in FilmPayload) (*model.EventFilm, error) {
	var (
		ef     *model.EventFilm
		filled []string
	)
	err := p.store.RunInTx(ctx, func(tx repository.Tx) error {
		// held until commit so a concurrent close cannot slip in between
		event, err := tx.ShareEvent(ctx, eventID)
		if err != nil {
			return notFound(err, "event")
		}
		if !event.AllowProposals {
			return newError(KindProposalsClosed, "")
		}
		if err := in.normalize(); err != nil {
			return err
		}

		film, err := p.getOrCreateFilm(ctx, tx, in)
		if err != nil {
			return err
		}
		filled, err = backfill(ctx, tx, film, in.FilmMetadata)
		if err != nil {
			return err
		}
		if err := linkLookups(ctx, tx, film.ID, in); err != nil {
			return err
		}

		_, err = tx.FindEventFilm(ctx, eventID, film.ID)
		switch {
		case err == nil:
			return newError(KindAlreadyProposed, "")
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}
		link := &model.EventFilm{EventID: eventID, FilmID: film.ID, ProposedBy: userID}
		if err := tx.CreateEventFilm(ctx, link); err != nil {
			return onDuplicate(err, KindAlreadyProposed, "")
		}
		if _, _, err := ensureEventFilmUpvote(ctx, tx, link.ID, userID); err != nil {
			return err
		}

		ef, err = tx.GetEventFilm(ctx, link.ID)
		if err != nil {
			return err
		}
		ef.Film, err = tx.GetFilm(ctx, film.ID)
		return err
	})
	metrics.ProposalsTotal.WithLabelValues("event", outcome(err)).Inc()
	if err != nil {
		return nil, p.fail(ctx, "ProposeFilmToEvent", err)
	}

	metrics.MergedFieldsTotal.Add(float64(len(filled)))
	p.log.InfoContext(ctx, "film proposed to event",
		"event_id", eventID, "event_film_id", ef.ID, "film_id", ef.FilmID, "user_id", userID, "filled", filled)
	ev := queue.NewActivity(queue.FilmProposedToEvent, p.now())
	ev.FilmID, ev.EventID, ev.EventFilmID, ev.UserID = ef.FilmID, eventID, ef.ID, userID
	ev.ImdbID, ev.Title = in.ImdbID, ef.Film.Tittle
	p.publish(ctx, ev)
	return ef, nil
}

// getOrCreateFilm returns the locked film for the payload's imdb_id,
// creating it without a proposer when it does not exist yet. Losing
// the insert race to a concurrent proposal falls back to the winner's
// row. Both lookups are locking reads so the winner's committed row is
// visible to this transaction.
func (p *Proposals) getOrCreateFilm(ctx context.Context, tx repository.Tx, in FilmPayload) (*model.Film, error) {
	found, err := tx.LockFilmByImdbID(ctx, in.ImdbID)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	imdbID := in.ImdbID
	f := &model.Film{ImdbID: &imdbID}
	f.SetMetadata(in.FilmMetadata)
	err = tx.CreateFilm(ctx, f)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, repository.ErrDuplicate) {
		return nil, err
	}
	found, err = tx.LockFilmByImdbID(ctx, in.ImdbID)
	if errors.Is(err, repository.ErrNotFound) {
		// the winner was deleted again before we could read it
		return nil, &Error{Kind: KindConflictRace, Cause: err}
	}
	return found, err
}

// backfill writes the merged metadata back when any field was filled.
func backfill(ctx context.Context, tx repository.Tx, film *model.Film, incoming model.FilmMetadata) ([]string, error) {
	merged, filled := MergeMetadata(film.Metadata(), incoming)
	if len(filled) == 0 {
		return nil, nil
	}
	if err := tx.UpdateFilmMetadata(ctx, film.ID, merged); err != nil {
		return nil, err
	}
	film.SetMetadata(merged)
	return filled, nil
}

// linkLookups get-or-creates the payload's providers and genres and
// associates them with the film. Existing links are left in place.
func linkLookups(ctx context.Context, tx repository.Tx, filmID uint64, in FilmPayload) error {
	for _, pp := range in.Providers {
		prov, _, err := tx.GetOrCreateProvider(ctx, pp.Name, pp.ImageURL)
		if err != nil {
			return err
		}
		if err := tx.LinkFilmProvider(ctx, filmID, prov.ID); err != nil {
			return err
		}
	}
	for _, name := range in.Genres {
		g, _, err := tx.GetOrCreateGenre(ctx, name)
		if err != nil {
			return err
		}
		if err := tx.LinkFilmGenre(ctx, filmID, g.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteProposal removes a directly proposed film together with its
// votes, ratings and event links. Watched films cannot be deleted by
// anyone; otherwise only the proposer may delete.
func (p *Proposals) DeleteProposal(ctx context.Context, userID, filmID uint64) error {
	var film *model.Film
	err := p.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		film, err = tx.LockFilm(ctx, filmID)
		if err != nil {
			return notFound(err, "film")
		}
		if film.Watched {
			return newError(KindForbidden, "film already marked as watched and cannot be deleted")
		}
		if !film.IsProposedBy(userID) {
			return newError(KindForbidden, "only the proposer can delete this film")
		}
		return tx.DeleteFilm(ctx, filmID)
	})
	if err != nil {
		return p.fail(ctx, "DeleteProposal", err)
	}

	p.log.InfoContext(ctx, "film deleted", "film_id", filmID, "user_id", userID)
	ev := queue.NewActivity(queue.FilmDeleted, p.now())
	ev.FilmID, ev.UserID, ev.Title = filmID, userID, film.Tittle
	if film.ImdbID != nil {
		ev.ImdbID = *film.ImdbID
	}
	p.publish(ctx, ev)
	return nil
}

// DeleteEventProposal removes an event proposal and its votes. The film
// stays in the catalog.
func (p *Proposals) DeleteEventProposal(ctx context.Context, userID, eventFilmID uint64) error {
	var ef *model.EventFilm
	err := p.store.RunInTx(ctx, func(tx repository.Tx) error {
		var err error
		ef, err = tx.LockEventFilm(ctx, eventFilmID)
		if err != nil {
			return notFound(err, "event film")
		}
		if ef.ProposedBy != userID {
			return newError(KindForbidden, "only the proposer can delete this event proposal")
		}
		return tx.DeleteEventFilm(ctx, eventFilmID)
	})
	if err != nil {
		return p.fail(ctx, "DeleteEventProposal", err)
	}

	p.log.InfoContext(ctx, "event proposal deleted", "event_film_id", eventFilmID, "user_id", userID)
	ev := queue.NewActivity(queue.EventFilmDeleted, p.now())
	ev.EventFilmID, ev.EventID, ev.FilmID, ev.UserID = eventFilmID, ef.EventID, ef.FilmID, userID
	p.publish(ctx, ev)
	return nil
}

// MarkWatched flags a film as screened now.
func (p *Proposals) MarkWatched(ctx context.Context, filmID uint64) (*model.Film, error) {
	now := p.now()
	var film *model.Film
	err := p.store.RunInTx(ctx, func(tx repository.Tx) error {
		f, err := tx.LockFilm(ctx, filmID)
		if err != nil {
			return notFound(err, "film")
		}
		if f.Watched {
			return newError(KindAlreadyWatched, "")
		}
		if err := tx.SetFilmWatched(ctx, filmID, now); err != nil {
			return err
		}
		film, err = tx.GetFilm(ctx, filmID)
		return err
	})
	if err != nil {
		return nil, p.fail(ctx, "MarkWatched", err)
	}

	p.log.InfoContext(ctx, "film marked watched", "film_id", filmID)
	ev := queue.NewActivity(queue.FilmWatched, now)
	ev.FilmID, ev.Title = filmID, film.Tittle
	if film.ImdbID != nil {
		ev.ImdbID = *film.ImdbID
	}
	p.publish(ctx, ev)
	return film, nil
}
