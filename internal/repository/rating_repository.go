package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/film-festival/internal/model"
)

// HasRating reports whether userID rated filmID.
func (s *MySQLStore) HasRating(ctx context.Context, filmID, userID uint64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM ratings WHERE film_id=? AND user_id=?)", filmID, userID)
}

// CreateRating inserts r and fills ID and CreatedAt.
func (s *MySQLStore) CreateRating(ctx context.Context, r *model.Rating) error {
	id, err := s.insert(ctx, "INSERT INTO ratings (film_id, user_id, stars) VALUES (?,?,?)", r.FilmID, r.UserID, r.Stars)
	if err != nil {
		return fmt.Errorf("insert rating: %w", err)
	}
	r.ID = id
	if err := s.q.QueryRowContext(ctx, "SELECT created_at FROM ratings WHERE id=?", id).Scan(&r.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}
