package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_FilmUpvoteScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const alice, bob = 1, 2

	f := env.propose(t, alice, "tt001")
	assert.Equal(t, 1, f.TotalUpvotes)

	n, err := env.ledger.AddFilmUpvote(ctx, f.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = env.ledger.RemoveFilmUpvote(ctx, f.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, env.film(t, f.ID).TotalUpvotes)
	env.assertCountersConsistent(t)
}

func TestLedger_AddFilmUpvoteTwice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")

	_, err := env.ledger.AddFilmUpvote(ctx, f.ID, 2)
	require.NoError(t, err)
	_, err = env.ledger.AddFilmUpvote(ctx, f.ID, 2)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	assert.Equal(t, 2, env.film(t, f.ID).TotalUpvotes)
	env.assertCountersConsistent(t)
}

func TestLedger_RemoveWithoutVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")

	_, err := env.ledger.RemoveFilmUpvote(ctx, f.ID, 2)
	assert.ErrorIs(t, err, ErrNotVoted)
	assert.Equal(t, 1, env.film(t, f.ID).TotalUpvotes)
}

func TestLedger_MissingTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.ledger.AddFilmUpvote(ctx, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ledger.RemoveFilmUpvote(ctx, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ledger.AddEventFilmUpvote(ctx, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.ledger.RemoveEventFilmUpvote(ctx, 404, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLedger_EventFilmUpvotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)
	require.Equal(t, 1, ef.UpvoteCount)

	n, err := env.ledger.AddEventFilmUpvote(ctx, ef.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = env.ledger.AddEventFilmUpvote(ctx, ef.ID, 2)
	assert.ErrorIs(t, err, ErrAlreadyVoted)

	n, err = env.ledger.RemoveEventFilmUpvote(ctx, ef.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.ledger.RemoveEventFilmUpvote(ctx, ef.ID, 1)
	assert.ErrorIs(t, err, ErrNotVoted)

	env.assertCountersConsistent(t)
}

func TestLedger_EventFilmVotesAreIndependentOfFilmVotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ev := env.openEvent(t, true)

	ef, err := env.proposals.ProposeFilmToEvent(ctx, 1, ev.ID, payload("tt002"))
	require.NoError(t, err)
	assert.Equal(t, 0, env.film(t, ef.FilmID).TotalUpvotes)

	n, err := env.ledger.AddFilmUpvote(ctx, ef.FilmID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	env.assertCountersConsistent(t)
}

func TestLedger_ConcurrentVotersKeepCountersConsistent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	f := env.propose(t, 1, "tt001")

	const voters = 20
	var wg sync.WaitGroup
	for i := range voters {
		wg.Add(1)
		go func(userID uint64) {
			defer wg.Done()
			_, _ = env.ledger.AddFilmUpvote(ctx, f.ID, userID)
			_, _ = env.ledger.AddFilmUpvote(ctx, f.ID, userID)
		}(uint64(i + 100))
	}
	wg.Wait()

	assert.Equal(t, voters+1, env.film(t, f.ID).TotalUpvotes)
	env.assertCountersConsistent(t)
}
