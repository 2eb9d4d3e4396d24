package service

import (
	"context"

	"github.com/iliyamo/film-festival/internal/metrics"
	"github.com/iliyamo/film-festival/internal/repository"
)

// Ledger owns the vote rows and the counters derived from them. A
// counter only moves in the transaction that inserts or deletes its
// vote row, and the tx-level helpers below are the only callers of the
// store's Adjust methods.
type Ledger struct {
	deps
}

// NewLedger returns a Ledger over store.
func NewLedger(store repository.Store, opts Options) *Ledger {
	return &Ledger{deps: newDeps(store, opts, "ledger")}
}

// AddFilmUpvote records userID's upvote of filmID and returns the new
// total_upvotes.
func (l *Ledger) AddFilmUpvote(ctx context.Context, filmID, userID uint64) (int, error) {
	var total int
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockFilm(ctx, filmID); err != nil {
			return notFound(err, "film")
		}
		n, err := addFilmUpvote(ctx, tx, filmID, userID)
		total = n
		return err
	})
	metrics.VotesTotal.WithLabelValues("film", "add", outcome(err)).Inc()
	if err != nil {
		return 0, l.fail(ctx, "AddFilmUpvote", err)
	}
	l.log.DebugContext(ctx, "film upvoted", "film_id", filmID, "user_id", userID, "total_upvotes", total)
	return total, nil
}

// RemoveFilmUpvote withdraws userID's upvote of filmID and returns the
// new total_upvotes.
func (l *Ledger) RemoveFilmUpvote(ctx context.Context, filmID, userID uint64) (int, error) {
	var total int
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockFilm(ctx, filmID); err != nil {
			return notFound(err, "film")
		}
		n, err := removeFilmUpvote(ctx, tx, filmID, userID)
		total = n
		return err
	})
	metrics.VotesTotal.WithLabelValues("film", "remove", outcome(err)).Inc()
	if err != nil {
		return 0, l.fail(ctx, "RemoveFilmUpvote", err)
	}
	l.log.DebugContext(ctx, "film upvote removed", "film_id", filmID, "user_id", userID, "total_upvotes", total)
	return total, nil
}

// AddEventFilmUpvote records userID's upvote of an event proposal and
// returns the new upvote_count.
func (l *Ledger) AddEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (int, error) {
	var count int
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockEventFilm(ctx, eventFilmID); err != nil {
			return notFound(err, "event film")
		}
		n, err := addEventFilmUpvote(ctx, tx, eventFilmID, userID)
		count = n
		return err
	})
	metrics.VotesTotal.WithLabelValues("event_film", "add", outcome(err)).Inc()
	if err != nil {
		return 0, l.fail(ctx, "AddEventFilmUpvote", err)
	}
	l.log.DebugContext(ctx, "event film upvoted", "event_film_id", eventFilmID, "user_id", userID, "upvote_count", count)
	return count, nil
}

// RemoveEventFilmUpvote withdraws userID's upvote of an event proposal
// and returns the new upvote_count.
func (l *Ledger) RemoveEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (int, error) {
	var count int
	err := l.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockEventFilm(ctx, eventFilmID); err != nil {
			return notFound(err, "event film")
		}
		n, err := removeEventFilmUpvote(ctx, tx, eventFilmID, userID)
		count = n
		return err
	})
	metrics.VotesTotal.WithLabelValues("event_film", "remove", outcome(err)).Inc()
	if err != nil {
		return 0, l.fail(ctx, "RemoveEventFilmUpvote", err)
	}
	l.log.DebugContext(ctx, "event film upvote removed", "event_film_id", eventFilmID, "user_id", userID, "upvote_count", count)
	return count, nil
}

// addFilmUpvote inserts the vote row and bumps the counter inside tx.
// The caller has already established that the film exists.
func addFilmUpvote(ctx context.Context, tx repository.Tx, filmID, userID uint64) (int, error) {
	voted, err := tx.HasUpvote(ctx, filmID, userID)
	if err != nil {
		return 0, err
	}
	if voted {
		return 0, newError(KindAlreadyVoted, "film already upvoted by this user")
	}
	if err := tx.CreateUpvote(ctx, filmID, userID); err != nil {
		return 0, onDuplicate(err, KindAlreadyVoted, "film already upvoted by this user")
	}
	return tx.AdjustFilmUpvotes(ctx, filmID, 1)
}

func removeFilmUpvote(ctx context.Context, tx repository.Tx, filmID, userID uint64) (int, error) {
	deleted, err := tx.DeleteUpvote(ctx, filmID, userID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, newError(KindNotVoted, "film not upvoted by this user")
	}
	return tx.AdjustFilmUpvotes(ctx, filmID, -1)
}

func addEventFilmUpvote(ctx context.Context, tx repository.Tx, eventFilmID, userID uint64) (int, error) {
	voted, err := tx.HasEventFilmUpvote(ctx, eventFilmID, userID)
	if err != nil {
		return 0, err
	}
	if voted {
		return 0, newError(KindAlreadyVoted, "event film already upvoted by this user")
	}
	if err := tx.CreateEventFilmUpvote(ctx, eventFilmID, userID); err != nil {
		return 0, onDuplicate(err, KindAlreadyVoted, "event film already upvoted by this user")
	}
	return tx.AdjustEventFilmUpvotes(ctx, eventFilmID, 1)
}

func removeEventFilmUpvote(ctx context.Context, tx repository.Tx, eventFilmID, userID uint64) (int, error) {
	deleted, err := tx.DeleteEventFilmUpvote(ctx, eventFilmID, userID)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, newError(KindNotVoted, "event film not upvoted by this user")
	}
	return tx.AdjustEventFilmUpvotes(ctx, eventFilmID, -1)
}

// ensureEventFilmUpvote is the get-or-create form used by event
// proposals: an existing vote is kept and the counter left alone.
func ensureEventFilmUpvote(ctx context.Context, tx repository.Tx, eventFilmID, userID uint64) (count int, created bool, err error) {
	voted, err := tx.HasEventFilmUpvote(ctx, eventFilmID, userID)
	if err != nil {
		return 0, false, err
	}
	if voted {
		ef, err := tx.GetEventFilm(ctx, eventFilmID)
		if err != nil {
			return 0, false, err
		}
		return ef.UpvoteCount, false, nil
	}
	n, err := addEventFilmUpvote(ctx, tx, eventFilmID, userID)
	return n, err == nil, err
}
