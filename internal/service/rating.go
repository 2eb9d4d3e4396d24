package service

import (
	"context"

	"github.com/iliyamo/film-festival/internal/metrics"
	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/repository"
)

// Star bounds of a rating.
const (
	MinStars = 1
	MaxStars = 5
)

// Ratings is the rating registry: one immutable rating per user per film.
type Ratings struct {
	deps
}

// NewRatings returns the rating registry over store.
func NewRatings(store repository.Store, opts Options) *Ratings {
	return &Ratings{deps: newDeps(store, opts, "ratings")}
}

// RateFilm records userID's rating of filmID. An existing rating is
// reported before the star value is validated.
func (r *Ratings) RateFilm(ctx context.Context, filmID, userID uint64, stars int) (*model.Rating, error) {
	var rating *model.Rating
	err := r.store.RunInTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.LockFilm(ctx, filmID); err != nil {
			return notFound(err, "film")
		}
		rated, err := tx.HasRating(ctx, filmID, userID)
		if err != nil {
			return err
		}
		if rated {
			return newError(KindAlreadyRated, "")
		}
		if stars < MinStars || stars > MaxStars {
			return newError(KindInvalidField, "stars must be between 1 and 5")
		}
		rating = &model.Rating{FilmID: filmID, UserID: userID, Stars: stars}
		return onDuplicate(tx.CreateRating(ctx, rating), KindAlreadyRated, "")
	})
	metrics.RatingsTotal.WithLabelValues(outcome(err)).Inc()
	if err != nil {
		return nil, r.fail(ctx, "RateFilm", err)
	}
	r.log.DebugContext(ctx, "film rated", "film_id", filmID, "user_id", userID, "stars", stars)
	return rating, nil
}
