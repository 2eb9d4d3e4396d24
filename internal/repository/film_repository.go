package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/film-festival/internal/model"
)

// filmColumns lists the films columns in scan order. Queries alias the
// table as f.
const filmColumns = `f.id, f.imdb_id, f.tittle, f.description, f.year, f.runtime, f.image,
	f.director, f.actors, f.imdb_rating, f.imdb_votes, f.watched, f.watched_date,
	f.total_upvotes, f.proposed_by, f.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFilm(row rowScanner) (*model.Film, error) {
	var (
		f           model.Film
		imdbID      sql.NullString
		watchedDate sql.NullTime
		proposedBy  sql.NullInt64
	)
	err := row.Scan(&f.ID, &imdbID, &f.Tittle, &f.Description, &f.Year, &f.Runtime, &f.Image,
		&f.Director, &f.Actors, &f.ImdbRating, &f.ImdbVotes, &f.Watched, &watchedDate,
		&f.TotalUpvotes, &proposedBy, &f.CreatedAt)
	if err != nil {
		return nil, err
	}
	if imdbID.Valid {
		f.ImdbID = &imdbID.String
	}
	if watchedDate.Valid {
		t := watchedDate.Time
		f.WatchedDate = &t
	}
	if proposedBy.Valid {
		id := uint64(proposedBy.Int64)
		f.ProposedBy = &id
	}
	f.Genres = []model.Genre{}
	f.Providers = []model.Provider{}
	return &f, nil
}

func (s *MySQLStore) getFilm(ctx context.Context, q string, arg any) (*model.Film, error) {
	f, err := scanFilm(s.q.QueryRowContext(ctx, q, arg))
	if err != nil {
		return nil, mapError(err)
	}
	if err := s.attachLookups(ctx, []*model.Film{f}); err != nil {
		return nil, err
	}
	return f, nil
}

// GetFilm fetches a film by id.
func (s *MySQLStore) GetFilm(ctx context.Context, id uint64) (*model.Film, error) {
	return s.getFilm(ctx, "SELECT "+filmColumns+" FROM films f WHERE f.id=?", id)
}

// LockFilm fetches a film by id with SELECT ... FOR UPDATE.
func (s *MySQLStore) LockFilm(ctx context.Context, id uint64) (*model.Film, error) {
	return s.getFilm(ctx, s.forUpdate("SELECT "+filmColumns+" FROM films f WHERE f.id=?"), id)
}

// GetFilmByImdbID fetches a film by its natural key.
func (s *MySQLStore) GetFilmByImdbID(ctx context.Context, imdbID string) (*model.Film, error) {
	return s.getFilm(ctx, "SELECT "+filmColumns+" FROM films f WHERE f.imdb_id=?", imdbID)
}

// LockFilmByImdbID reads through the unique imdb_id index with FOR UPDATE,
// so a row committed by a concurrent insert is visible.
func (s *MySQLStore) LockFilmByImdbID(ctx context.Context, imdbID string) (*model.Film, error) {
	return s.getFilm(ctx, s.forUpdate("SELECT "+filmColumns+" FROM films f WHERE f.imdb_id=?"), imdbID)
}

// CreateFilm inserts f with a zero counter and reads back created_at.
func (s *MySQLStore) CreateFilm(ctx context.Context, f *model.Film) error {
	var proposedBy any
	if f.ProposedBy != nil {
		proposedBy = *f.ProposedBy
	}
	var imdbID any
	if f.ImdbID != nil {
		imdbID = *f.ImdbID
	}
	id, err := s.insert(ctx,
		`INSERT INTO films (imdb_id, tittle, description, year, runtime, image, director, actors,
			imdb_rating, imdb_votes, watched, total_upvotes, proposed_by)
		VALUES (?,?,?,?,?,?,?,?,?,?,FALSE,0,?)`,
		imdbID, f.Tittle, f.Description, f.Year, f.Runtime, f.Image, f.Director, f.Actors,
		f.ImdbRating, f.ImdbVotes, proposedBy)
	if err != nil {
		return fmt.Errorf("insert film: %w", err)
	}
	f.ID = id
	f.Watched = false
	f.WatchedDate = nil
	f.TotalUpvotes = 0
	if err := s.q.QueryRowContext(ctx, "SELECT created_at FROM films WHERE id=?", id).Scan(&f.CreatedAt); err != nil {
		return mapError(err)
	}
	if f.Genres == nil {
		f.Genres = []model.Genre{}
	}
	if f.Providers == nil {
		f.Providers = []model.Provider{}
	}
	return nil
}

// UpdateFilmMetadata overwrites the nine scalar metadata columns.
func (s *MySQLStore) UpdateFilmMetadata(ctx context.Context, id uint64, m model.FilmMetadata) error {
	res, err := s.exec(ctx,
		`UPDATE films SET tittle=?, description=?, year=?, runtime=?, image=?, director=?, actors=?,
			imdb_rating=?, imdb_votes=? WHERE id=?`,
		m.Tittle, m.Description, m.Year, m.Runtime, m.Image, m.Director, m.Actors,
		m.ImdbRating, m.ImdbVotes, id)
	if err != nil {
		return fmt.Errorf("update film: %w", err)
	}
	return s.requireFilm(ctx, res, id)
}

// SetFilmWatched flags the film as screened at the given time.
func (s *MySQLStore) SetFilmWatched(ctx context.Context, id uint64, at time.Time) error {
	res, err := s.exec(ctx, "UPDATE films SET watched=TRUE, watched_date=? WHERE id=?", at.UTC(), id)
	if err != nil {
		return fmt.Errorf("set watched: %w", err)
	}
	return s.requireFilm(ctx, res, id)
}

// requireFilm turns a zero-row UPDATE into ErrNotFound. MySQL reports
// zero affected rows for updates that change nothing, so the row is
// checked for existence before giving up.
func (s *MySQLStore) requireFilm(ctx context.Context, res sql.Result, id uint64) error {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}
	ok, err := s.exists(ctx, "SELECT EXISTS(SELECT 1 FROM films WHERE id=?)", id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

// DeleteFilm removes the film. Upvotes, ratings, links and event films
// go with it through ON DELETE CASCADE.
func (s *MySQLStore) DeleteFilm(ctx context.Context, id uint64) error {
	res, err := s.exec(ctx, "DELETE FROM films WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete film: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustFilmUpvotes applies delta atomically and returns the new total.
func (s *MySQLStore) AdjustFilmUpvotes(ctx context.Context, id uint64, delta int) (int, error) {
	if _, err := s.exec(ctx,
		"UPDATE films SET total_upvotes = GREATEST(total_upvotes + ?, 0) WHERE id=?", delta, id); err != nil {
		return 0, fmt.Errorf("adjust film upvotes: %w", err)
	}
	var n int
	if err := s.q.QueryRowContext(ctx, "SELECT total_upvotes FROM films WHERE id=?", id).Scan(&n); err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// ListFilms returns either the watch pool or the screened films.
func (s *MySQLStore) ListFilms(ctx context.Context, watched bool) ([]*model.Film, error) {
	q := "SELECT " + filmColumns + " FROM films f WHERE f.watched=FALSE ORDER BY f.total_upvotes DESC, f.created_at ASC, f.id ASC"
	if watched {
		q = "SELECT " + filmColumns + " FROM films f WHERE f.watched=TRUE ORDER BY f.watched_date DESC, f.id DESC"
	}
	return s.listFilms(ctx, q)
}

// ListFilmsUpvotedBy returns the films userID upvoted, newest vote first.
func (s *MySQLStore) ListFilmsUpvotedBy(ctx context.Context, userID uint64) ([]*model.Film, error) {
	return s.listFilms(ctx, "SELECT "+filmColumns+` FROM films f
		JOIN upvotes u ON u.film_id = f.id
		WHERE u.user_id=? ORDER BY u.created_at DESC, u.id DESC`, userID)
}

// ListFilmsRatedBy returns the films userID rated, newest rating first.
func (s *MySQLStore) ListFilmsRatedBy(ctx context.Context, userID uint64) ([]*model.Film, error) {
	return s.listFilms(ctx, "SELECT "+filmColumns+` FROM films f
		JOIN ratings r ON r.film_id = f.id
		WHERE r.user_id=? ORDER BY r.created_at DESC, r.id DESC`, userID)
}

func (s *MySQLStore) listFilms(ctx context.Context, q string, args ...any) ([]*model.Film, error) {
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	films := []*model.Film{}
	for rows.Next() {
		f, err := scanFilm(rows)
		if err != nil {
			return nil, err
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if err := s.attachLookups(ctx, films); err != nil {
		return nil, err
	}
	return films, nil
}

// attachLookups loads genres and providers for films with one query
// per lookup table.
func (s *MySQLStore) attachLookups(ctx context.Context, films []*model.Film) error {
	if len(films) == 0 {
		return nil
	}
	byID := make(map[uint64]*model.Film, len(films))
	args := make([]any, 0, len(films))
	for _, f := range films {
		byID[f.ID] = f
		args = append(args, f.ID)
	}
	in := placeholders(len(args))

	rows, err := s.q.QueryContext(ctx,
		`SELECT fg.film_id, g.id, g.name FROM film_genres fg
		JOIN genres g ON g.id = fg.genre_id
		WHERE fg.film_id IN (`+in+`) ORDER BY g.name`, args...)
	if err != nil {
		return mapError(err)
	}
	for rows.Next() {
		var filmID uint64
		var g model.Genre
		if err := rows.Scan(&filmID, &g.ID, &g.Name); err != nil {
			rows.Close()
			return err
		}
		byID[filmID].Genres = append(byID[filmID].Genres, g)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	rows, err = s.q.QueryContext(ctx,
		`SELECT fp.film_id, p.id, p.name, p.image_url FROM film_providers fp
		JOIN providers p ON p.id = fp.provider_id
		WHERE fp.film_id IN (`+in+`) ORDER BY p.name`, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var filmID uint64
		var p model.Provider
		if err := rows.Scan(&filmID, &p.ID, &p.Name, &p.ImageURL); err != nil {
			return err
		}
		byID[filmID].Providers = append(byID[filmID].Providers, p)
	}
	return rows.Err()
}
