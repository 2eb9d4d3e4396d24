package repository

import (
	"context"
	"fmt"
)

// HasUpvote reports whether userID upvoted filmID.
func (s *MySQLStore) HasUpvote(ctx context.Context, filmID, userID uint64) (bool, error) {
	return s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM upvotes WHERE film_id=? AND user_id=?)", filmID, userID)
}

// CreateUpvote inserts the (film, user) vote row.
func (s *MySQLStore) CreateUpvote(ctx context.Context, filmID, userID uint64) error {
	if _, err := s.exec(ctx, "INSERT INTO upvotes (film_id, user_id) VALUES (?,?)", filmID, userID); err != nil {
		return fmt.Errorf("insert upvote: %w", err)
	}
	return nil
}

// DeleteUpvote removes the (film, user) vote row.
func (s *MySQLStore) DeleteUpvote(ctx context.Context, filmID, userID uint64) (bool, error) {
	res, err := s.exec(ctx, "DELETE FROM upvotes WHERE film_id=? AND user_id=?", filmID, userID)
	if err != nil {
		return false, fmt.Errorf("delete upvote: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountUpvotes counts the vote rows of a film.
func (s *MySQLStore) CountUpvotes(ctx context.Context, filmID uint64) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM upvotes WHERE film_id=?", filmID)
}

// HasEventFilmUpvote reports whether userID upvoted the event film.
func (s *MySQLStore) HasEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (bool, error) {
	return s.exists(ctx,
		"SELECT EXISTS(SELECT 1 FROM event_film_upvotes WHERE event_film_id=? AND user_id=?)", eventFilmID, userID)
}

// CreateEventFilmUpvote inserts the (event film, user) vote row.
func (s *MySQLStore) CreateEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) error {
	if _, err := s.exec(ctx,
		"INSERT INTO event_film_upvotes (event_film_id, user_id) VALUES (?,?)", eventFilmID, userID); err != nil {
		return fmt.Errorf("insert event film upvote: %w", err)
	}
	return nil
}

// DeleteEventFilmUpvote removes the (event film, user) vote row.
func (s *MySQLStore) DeleteEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (bool, error) {
	res, err := s.exec(ctx,
		"DELETE FROM event_film_upvotes WHERE event_film_id=? AND user_id=?", eventFilmID, userID)
	if err != nil {
		return false, fmt.Errorf("delete event film upvote: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// CountEventFilmUpvotes counts the vote rows of an event film.
func (s *MySQLStore) CountEventFilmUpvotes(ctx context.Context, eventFilmID uint64) (int, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM event_film_upvotes WHERE event_film_id=?", eventFilmID)
}
