package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/film-festival/internal/model"
)

// GetOrCreateGenre looks the genre up by name and inserts it when
// missing. A concurrent insert of the same name falls back to a re-read.
func (s *MySQLStore) GetOrCreateGenre(ctx context.Context, name string) (*model.Genre, bool, error) {
	g := &model.Genre{Name: name}
	err := s.q.QueryRowContext(ctx, s.forUpdate("SELECT id FROM genres WHERE name=?"), name).Scan(&g.ID)
	if err == nil {
		return g, false, nil
	}
	if err = mapError(err); !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	id, err := s.insert(ctx, "INSERT INTO genres (name) VALUES (?)", name)
	if errors.Is(err, ErrDuplicate) {
		if err := s.q.QueryRowContext(ctx, "SELECT id FROM genres WHERE name=?", name).Scan(&g.ID); err != nil {
			return nil, false, mapError(err)
		}
		return g, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert genre: %w", err)
	}
	g.ID = id
	return g, true, nil
}

// GetOrCreateProvider looks the provider up by name and inserts it with
// imageURL when missing. The image of an existing provider is kept.
func (s *MySQLStore) GetOrCreateProvider(ctx context.Context, name, imageURL string) (*model.Provider, bool, error) {
	p := &model.Provider{Name: name}
	err := s.q.QueryRowContext(ctx, s.forUpdate("SELECT id, image_url FROM providers WHERE name=?"), name).
		Scan(&p.ID, &p.ImageURL)
	if err == nil {
		return p, false, nil
	}
	if err = mapError(err); !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}
	id, err := s.insert(ctx, "INSERT INTO providers (name, image_url) VALUES (?,?)", name, imageURL)
	if errors.Is(err, ErrDuplicate) {
		if err := s.q.QueryRowContext(ctx, "SELECT id, image_url FROM providers WHERE name=?", name).
			Scan(&p.ID, &p.ImageURL); err != nil {
			return nil, false, mapError(err)
		}
		return p, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert provider: %w", err)
	}
	p.ID = id
	p.ImageURL = imageURL
	return p, true, nil
}

// LinkFilmGenre adds the film/genre pair unless it already exists.
func (s *MySQLStore) LinkFilmGenre(ctx context.Context, filmID, genreID uint64) error {
	_, err := s.exec(ctx, "INSERT IGNORE INTO film_genres (film_id, genre_id) VALUES (?,?)", filmID, genreID)
	return err
}

// LinkFilmProvider adds the film/provider pair unless it already exists.
func (s *MySQLStore) LinkFilmProvider(ctx context.Context, filmID, providerID uint64) error {
	_, err := s.exec(ctx, "INSERT IGNORE INTO film_providers (film_id, provider_id) VALUES (?,?)", filmID, providerID)
	return err
}

// ListGenres returns every genre ordered by name.
func (s *MySQLStore) ListGenres(ctx context.Context) ([]model.Genre, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT id, name FROM genres ORDER BY name")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	genres := []model.Genre{}
	for rows.Next() {
		var g model.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}
