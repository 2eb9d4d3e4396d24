package repository

import (
	"context"
	"fmt"

	"github.com/iliyamo/film-festival/internal/model"
)

const eventFilmColumns = "ef.id, ef.event_id, ef.film_id, ef.proposed_by, ef.upvote_count, ef.created_at"

func scanEventFilm(row rowScanner) (*model.EventFilm, error) {
	var ef model.EventFilm
	if err := row.Scan(&ef.ID, &ef.EventID, &ef.FilmID, &ef.ProposedBy, &ef.UpvoteCount, &ef.CreatedAt); err != nil {
		return nil, err
	}
	return &ef, nil
}

func (s *MySQLStore) getEventFilm(ctx context.Context, q string, args ...any) (*model.EventFilm, error) {
	ef, err := scanEventFilm(s.q.QueryRowContext(ctx, q, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return ef, nil
}

// GetEventFilm fetches an event film by id.
func (s *MySQLStore) GetEventFilm(ctx context.Context, id uint64) (*model.EventFilm, error) {
	return s.getEventFilm(ctx, "SELECT "+eventFilmColumns+" FROM event_films ef WHERE ef.id=?", id)
}

// LockEventFilm fetches an event film by id with SELECT ... FOR UPDATE.
func (s *MySQLStore) LockEventFilm(ctx context.Context, id uint64) (*model.EventFilm, error) {
	return s.getEventFilm(ctx, s.forUpdate("SELECT "+eventFilmColumns+" FROM event_films ef WHERE ef.id=?"), id)
}

// FindEventFilm fetches the proposal of filmID to eventID.
func (s *MySQLStore) FindEventFilm(ctx context.Context, eventID, filmID uint64) (*model.EventFilm, error) {
	return s.getEventFilm(ctx,
		s.forUpdate("SELECT "+eventFilmColumns+" FROM event_films ef WHERE ef.event_id=? AND ef.film_id=?"),
		eventID, filmID)
}

// CreateEventFilm inserts ef with a zero counter.
func (s *MySQLStore) CreateEventFilm(ctx context.Context, ef *model.EventFilm) error {
	id, err := s.insert(ctx,
		"INSERT INTO event_films (event_id, film_id, proposed_by, upvote_count) VALUES (?,?,?,0)",
		ef.EventID, ef.FilmID, ef.ProposedBy)
	if err != nil {
		return fmt.Errorf("insert event film: %w", err)
	}
	ef.ID = id
	ef.UpvoteCount = 0
	if err := s.q.QueryRowContext(ctx, "SELECT created_at FROM event_films WHERE id=?", id).Scan(&ef.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

// DeleteEventFilm removes the proposal; its upvotes cascade.
func (s *MySQLStore) DeleteEventFilm(ctx context.Context, id uint64) error {
	res, err := s.exec(ctx, "DELETE FROM event_films WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete event film: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustEventFilmUpvotes applies delta atomically and returns the new count.
func (s *MySQLStore) AdjustEventFilmUpvotes(ctx context.Context, id uint64, delta int) (int, error) {
	if _, err := s.exec(ctx,
		"UPDATE event_films SET upvote_count = GREATEST(upvote_count + ?, 0) WHERE id=?", delta, id); err != nil {
		return 0, fmt.Errorf("adjust event film upvotes: %w", err)
	}
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT upvote_count FROM event_films WHERE id=?", id).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// ListEventFilms returns the proposals of an event with their films,
// most upvoted first.
func (s *MySQLStore) ListEventFilms(ctx context.Context, eventID uint64) ([]*model.EventFilm, error) {
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+eventFilmColumns+", "+filmColumns+` FROM event_films ef
		JOIN films f ON f.id = ef.film_id
		WHERE ef.event_id=? ORDER BY ef.upvote_count DESC, ef.created_at ASC, ef.id ASC`, eventID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	var (
		list  = []*model.EventFilm{}
		films []*model.Film
	)
	for rows.Next() {
		ef, f, err := scanEventFilmWithFilm(rows)
		if err != nil {
			return nil, err
		}
		ef.Film = f
		list = append(list, ef)
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := s.attachLookups(ctx, films); err != nil {
		return nil, err
	}
	return list, nil
}

// scanEventFilmWithFilm splits a joined event_films/films row.
func scanEventFilmWithFilm(row rowScanner) (*model.EventFilm, *model.Film, error) {
	var ef model.EventFilm
	split := &splitScanner{
		head: []any{&ef.ID, &ef.EventID, &ef.FilmID, &ef.ProposedBy, &ef.UpvoteCount, &ef.CreatedAt},
		row:  row,
	}
	film, err := scanFilm(split)
	if err != nil {
		return nil, nil, err
	}
	return &ef, film, nil
}

// splitScanner prepends head to the destinations passed to Scan so one
// row can be decoded by two scan functions.
type splitScanner struct {
	head []any
	row  rowScanner
}

func (s *splitScanner) Scan(dest ...any) error {
	return s.row.Scan(append(append([]any{}, s.head...), dest...)...)
}
