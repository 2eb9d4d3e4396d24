package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/queue"
	"github.com/iliyamo/film-festival/internal/repository"
)

func TestProposeFilmToWatch_CreatesFilmWithSelfUpvote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := payload("tt001")
	in.Year = 1979
	in.Providers = []ProviderPayload{{Name: "Netflix", ImageURL: "n.png"}, {Name: " Netflix "}}
	in.Genres = []string{"Horror", "SciFi", "Horror"}

	f, err := env.proposals.ProposeFilmToWatch(ctx, 1, in)
	require.NoError(t, err)

	require.NotNil(t, f.ImdbID)
	assert.Equal(t, "tt001", *f.ImdbID)
	assert.True(t, f.IsProposedBy(1))
	assert.Equal(t, 1, f.TotalUpvotes)
	assert.Equal(t, 1979, f.Year)
	require.Len(t, f.Providers, 1)
	assert.Equal(t, "n.png", f.Providers[0].ImageURL)
	require.Len(t, f.Genres, 2)
	assert.Equal(t, "Horror", f.Genres[0].Name)

	assert.Equal(t, []queue.ActivityType{queue.FilmProposed}, env.activity.types())
	env.assertCountersConsistent(t)
}

func TestProposeFilmToWatch_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.proposals.ProposeFilmToWatch(ctx, 1, FilmPayload{ImdbID: "  "})
	assert.ErrorIs(t, err, ErrMissingField)

	in := payload("tt001")
	in.Genres = []string{""}
	_, err = env.proposals.ProposeFilmToWatch(ctx, 1, in)
	assert.ErrorIs(t, err, ErrInvalidField)

	in = payload("tt001")
	in.Providers = []ProviderPayload{{Name: ""}}
	_, err = env.proposals.ProposeFilmToWatch(ctx, 1, in)
	assert.ErrorIs(t, err, ErrInvalidField)

	films, err := env.catalog.FilmsToWatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, films)
	assert.Empty(t, env.activity.types())
}

func TestProposeFilmToWatch_DuplicateImdbID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.propose(t, 1, "tt001")

	in := payload("tt001")
	in.Director = "Somebody"
	_, err := env.proposals.ProposeFilmToWatch(ctx, 2, in)
	assert.ErrorIs(t, err, ErrDuplicateProposal)

	got := env.film(t, first.ID)
	assert.Empty(t, got.Director, "direct proposals never merge")
	assert.Equal(t, 1, got.TotalUpvotes)
}

func TestProposeFilmToEvent_CreatesLinkAndVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)

	assert.Equal(t, ev.ID, ef.EventID)
	assert.Equal(t, uint64(1), ef.ProposedBy)
	assert.Equal(t, 1, ef.UpvoteCount)
	require.NotNil(t, ef.Film)
	assert.Nil(t, ef.Film.ProposedBy, "event proposals create films without a direct proposer")
	assert.Equal(t, 0, ef.Film.TotalUpvotes)

	assert.Equal(t, []queue.ActivityType{queue.FilmProposedToEvent}, env.activity.types())
	env.assertCountersConsistent(t)
}

func TestProposeFilmToEvent_SecondProposalIsRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	_, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)
	_, err = env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	assert.ErrorIs(t, err, ErrAlreadyProposed)
	_, err = env.proposals.ProposeFilmToEvent(ctx, 2, ev.ID, payload("tt002"))
	assert.ErrorIs(t, err, ErrAlreadyProposed)

	list, err := env.events.ListEventFilms(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].UpvoteCount)
	env.assertCountersConsistent(t)
}

func TestProposeFilmToEvent_AlreadyProposedRollsBackBackfill(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)

	in := payload("tt002")
	in.Year = 1995
	in.Genres = []string{"Crime"}
	_, err = env.proposals.ProposeFilmToEvent(ctx, 2, ev.ID, in)
	require.ErrorIs(t, err, ErrAlreadyProposed)

	got := env.film(t, ef.FilmID)
	assert.Zero(t, got.Year)
	assert.Empty(t, got.Genres)
}

func TestProposeFilmToEvent_BackfillsExistingFilm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.openEvent(t, true)
	second := env.openEvent(t, true)

	in := payload("tt003")
	in.Director = "Michael Mann"
	in.Providers = []ProviderPayload{{Name: "Netflix", ImageURL: "first.png"}}
	_, err := env.proposals.ProposeFilmToEvent(ctx, 1, first.ID, in)
	require.NoError(t, err)

	again := payload("tt003")
	again.Tittle = "Renamed"
	again.Director = "Someone Else"
	again.Year = 1995
	again.Providers = []ProviderPayload{{Name: "Netflix", ImageURL: "second.png"}, {Name: "Mubi"}}
	again.Genres = []string{"Crime"}
	ef, err := env.proposals.ProposeFilmToEvent(ctx, 2, second.ID, again)
	require.NoError(t, err)

	f := ef.Film
	assert.Equal(t, "Film tt003", f.Tittle)
	assert.Equal(t, "Michael Mann", f.Director)
	assert.Equal(t, 1995, f.Year)
	require.Len(t, f.Providers, 2)
	assert.Equal(t, "Mubi", f.Providers[0].Name)
	assert.Equal(t, "first.png", f.Providers[1].ImageURL)
	require.Len(t, f.Genres, 1)
}

func TestProposeFilmToEvent_ReusesDirectlyProposedFilm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)
	film := env.propose(t, 1, "tt004")

	ef, err := env.proposals.ProposeFilmToEvent(ctx, 2, ev.ID, payload("tt004"))
	require.NoError(t, err)
	assert.Equal(t, film.ID, ef.FilmID)
	assert.True(t, ef.Film.IsProposedBy(1))
	assert.Equal(t, 1, ef.Film.TotalUpvotes)
}

func TestProposeFilmToEvent_ClosedAndMissingEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	closed := env.openEvent(t, false)

	_, err := env.proposals.ProposeFilmToEvent(ctx, 1, closed.ID, payload("tt005"))
	assert.ErrorIs(t, err, ErrProposalsClosed)

	_, err = env.proposals.ProposeFilmToEvent(ctx, 1, 404, payload("tt005"))
	assert.ErrorIs(t, err, ErrNotFound)

	open := env.openEvent(t, true)
	_, err = env.proposals.ProposeFilmToEvent(ctx, 1, open.ID, FilmPayload{})
	assert.ErrorIs(t, err, ErrMissingField)

	require.NoError(t, env.store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.GetFilmByImdbID(ctx, "tt005")
		assert.ErrorIs(t, err, repository.ErrNotFound, "closed event creates nothing")
		return nil
	}))
}

func TestDeleteProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")
	_, err := env.ledger.AddFilmUpvote(ctx, f.ID, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, env.proposals.DeleteProposal(ctx, 2, f.ID), ErrForbidden)
	assert.ErrorIs(t, env.proposals.DeleteProposal(ctx, 1, 404), ErrNotFound)

	require.NoError(t, env.proposals.DeleteProposal(ctx, 1, f.ID))
	require.NoError(t, env.store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.GetFilm(ctx, f.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		n, err := tx.CountUpvotes(ctx, f.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		return nil
	}))
	assert.Contains(t, env.activity.types(), queue.FilmDeleted)
}

func TestDeleteProposal_WatchedFilmIsForbiddenForEveryone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")
	_, err := env.proposals.MarkWatched(ctx, f.ID)
	require.NoError(t, err)

	for _, userID := range []uint64{1, 2} {
		err := env.proposals.DeleteProposal(ctx, userID, f.ID)
		assert.ErrorIs(t, err, ErrForbidden, "user %d", userID)
	}
	assert.True(t, env.film(t, f.ID).Watched)
}

func TestDeleteProposal_EventCreatedFilmHasNoOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)
	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)

	assert.ErrorIs(t, env.proposals.DeleteProposal(ctx, 1, ef.FilmID), ErrForbidden)
}

func TestDeleteEventProposal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)
	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)

	assert.ErrorIs(t, env.proposals.DeleteEventProposal(ctx, 2, ef.ID), ErrForbidden)
	assert.ErrorIs(t, env.proposals.DeleteEventProposal(ctx, 1, 404), ErrNotFound)
	require.NoError(t, env.proposals.DeleteEventProposal(ctx, 1, ef.ID))

	require.NoError(t, env.store.View(ctx, func(tx repository.Tx) error {
		_, err := tx.GetEventFilm(ctx, ef.ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		n, err := tx.CountEventFilmUpvotes(ctx, ef.ID)
		require.NoError(t, err)
		assert.Zero(t, n)
		_, err = tx.GetFilm(ctx, ef.FilmID)
		assert.NoError(t, err, "the film stays")
		return nil
	}))

	again, err := env.proposals.ProposeFilmToEvent(ctx, 2, ev.ID, payload("tt002"))
	require.NoError(t, err, "a deleted proposal can be made again")
	assert.Equal(t, 1, again.UpvoteCount)
}

func TestMarkWatched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")

	got, err := env.proposals.MarkWatched(ctx, f.ID)
	require.NoError(t, err)
	assert.True(t, got.Watched)
	require.NotNil(t, got.WatchedDate)
	assert.True(t, got.WatchedDate.Equal(testNow))

	_, err = env.proposals.MarkWatched(ctx, f.ID)
	assert.ErrorIs(t, err, ErrAlreadyWatched)
	_, err = env.proposals.MarkWatched(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	watched, err := env.catalog.WatchedFilms(ctx)
	require.NoError(t, err)
	require.Len(t, watched, 1)
	pool, err := env.catalog.FilmsToWatch(ctx)
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestFilmPayloadNormalize(t *testing.T) {
	in := FilmPayload{
		ImdbID:       " tt9 ",
		FilmMetadata: model.FilmMetadata{Year: -1},
	}
	assert.ErrorIs(t, in.normalize(), ErrInvalidField)

	in = FilmPayload{ImdbID: "tt9", Genres: []string{" Drama", "Drama "}}
	require.NoError(t, in.normalize())
	assert.Equal(t, []string{"Drama"}, in.Genres)
}
