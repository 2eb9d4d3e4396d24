package service

import (
	"context"

	"github.com/iliyamo/film-festival/internal/model"
	"github.com/iliyamo/film-festival/internal/repository"
)

// Catalog serves the read-only film lists.
type Catalog struct {
	deps
}

// NewCatalog returns the catalog over store.
func NewCatalog(store repository.Store, opts Options) *Catalog {
	return &Catalog{deps: newDeps(store, opts, "catalog")}
}

// FilmsToWatch returns the unwatched pool, most upvoted first and
// oldest first among ties.
func (c *Catalog) FilmsToWatch(ctx context.Context) ([]*model.Film, error) {
	return c.films(ctx, "FilmsToWatch", func(tx repository.Tx) ([]*model.Film, error) {
		return tx.ListFilms(ctx, false)
	})
}

// WatchedFilms returns the screened films, most recent first.
func (c *Catalog) WatchedFilms(ctx context.Context) ([]*model.Film, error) {
	return c.films(ctx, "WatchedFilms", func(tx repository.Tx) ([]*model.Film, error) {
		return tx.ListFilms(ctx, true)
	})
}

// UpvotedFilms returns the films userID has upvoted.
func (c *Catalog) UpvotedFilms(ctx context.Context, userID uint64) ([]*model.Film, error) {
	return c.films(ctx, "UpvotedFilms", func(tx repository.Tx) ([]*model.Film, error) {
		return tx.ListFilmsUpvotedBy(ctx, userID)
	})
}

// RatedFilms returns the films userID has rated.
func (c *Catalog) RatedFilms(ctx context.Context, userID uint64) ([]*model.Film, error) {
	return c.films(ctx, "RatedFilms", func(tx repository.Tx) ([]*model.Film, error) {
		return tx.ListFilmsRatedBy(ctx, userID)
	})
}

func (c *Catalog) films(ctx context.Context, op string, list func(tx repository.Tx) ([]*model.Film, error)) ([]*model.Film, error) {
	var films []*model.Film
	err := c.store.View(ctx, func(tx repository.Tx) error {
		var err error
		films, err = list(tx)
		return err
	})
	if err != nil {
		return nil, c.fail(ctx, op, err)
	}
	return films, nil
}

// Genres returns every genre by name.
func (c *Catalog) Genres(ctx context.Context) ([]model.Genre, error) {
	var genres []model.Genre
	err := c.store.View(ctx, func(tx repository.Tx) error {
		var err error
		genres, err = tx.ListGenres(ctx)
		return err
	})
	if err != nil {
		return nil, c.fail(ctx, "Genres", err)
	}
	return genres, nil
}
