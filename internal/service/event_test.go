package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/model"
)

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	date := testNow.Add(48 * time.Hour)

	ev, err := env.events.CreateEvent(ctx, 7, EventInput{Name: " Noir night ", Date: &date})
	require.NoError(t, err)
	assert.Equal(t, "Noir night", ev.Name)
	assert.True(t, ev.AllowProposals, "proposals are open by default")
	assert.Equal(t, uint64(7), ev.CreatedBy)

	_, err = env.events.CreateEvent(ctx, 7, EventInput{Name: "no date"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	closed := false
	name := "Renamed"
	got, err := env.events.UpdateEvent(ctx, ev.ID, model.EventUpdate{Name: &name, AllowProposals: &closed})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.False(t, got.AllowProposals)
	assert.True(t, got.Date.Equal(ev.Date), "date untouched")

	_, err = env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt001"))
	assert.ErrorIs(t, err, ErrProposalsClosed)

	_, err = env.events.UpdateEvent(ctx, 404, model.EventUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	zero := time.Time{}
	_, err = env.events.UpdateEvent(ctx, ev.ID, model.EventUpdate{Date: &zero})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestDeleteEvent_RemovesProposalsButKeepsFilms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)
	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt001"))
	require.NoError(t, err)

	require.NoError(t, env.events.DeleteEvent(ctx, ev.ID))
	assert.ErrorIs(t, env.events.DeleteEvent(ctx, ev.ID), ErrNotFound)

	_, err = env.events.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.events.ListEventFilms(ctx, ev.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ledger.AddEventFilmUpvote(ctx, ef.ID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	pool, err := env.catalog.FilmsToWatch(ctx)
	require.NoError(t, err)
	require.Len(t, pool, 1)
	assert.Equal(t, ef.FilmID, pool[0].ID)
}

func TestListEventsAndEventFilms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	late := testNow.Add(72 * time.Hour)
	early := testNow.Add(24 * time.Hour)
	_, err := env.events.CreateEvent(ctx, 1, EventInput{Name: "late", Date: &late})
	require.NoError(t, err)
	ev, err := env.events.CreateEvent(ctx, 1, EventInput{Name: "early", Date: &early})
	require.NoError(t, err)

	events, err := env.events.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].Name)

	a, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt001"))
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	b, err := env.proposals.ProposeFilmToEvent(ctx, 2, ev.ID, payload("tt002"))
	require.NoError(t, err)
	_, err = env.ledger.AddEventFilmUpvote(ctx, b.ID, 3)
	require.NoError(t, err)

	list, err := env.events.ListEventFilms(ctx, ev.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)
	assert.Equal(t, a.ID, list[1].ID)
	require.NotNil(t, list[0].Film)
}
