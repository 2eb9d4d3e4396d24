package repository

import (
	"context"
	"time"

	"github.com/iliyamo/film-festival/internal/model"
)

// Store is the entity store the services run against. Every mutation
// happens inside RunInTx: either all writes made through tx commit or
// none do. View runs fn against a read-only snapshot.
type Store interface {
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of repositories available inside a transaction.
type Tx interface {
	FilmRepository
	LookupRepository
	EventRepository
	EventFilmRepository
	VoteRepository
	RatingRepository
	UserRepository
	TokenRepository
}

// FilmRepository persists films. Genres and providers are loaded onto
// every film it returns.
type FilmRepository interface {
	// GetFilm returns the film or ErrNotFound.
	GetFilm(ctx context.Context, id uint64) (*model.Film, error)
	// LockFilm is GetFilm taking a row lock held until the transaction ends.
	LockFilm(ctx context.Context, id uint64) (*model.Film, error)
	// GetFilmByImdbID returns the film with the given IMDb id or ErrNotFound.
	GetFilmByImdbID(ctx context.Context, imdbID string) (*model.Film, error)
	// LockFilmByImdbID is GetFilmByImdbID taking a row lock.
	LockFilmByImdbID(ctx context.Context, imdbID string) (*model.Film, error)
	// CreateFilm inserts f and fills ID and CreatedAt. A taken imdb_id
	// yields ErrDuplicate.
	CreateFilm(ctx context.Context, f *model.Film) error
	// UpdateFilmMetadata overwrites the scalar metadata columns.
	UpdateFilmMetadata(ctx context.Context, id uint64, m model.FilmMetadata) error
	// SetFilmWatched sets watched=true and watched_date=at.
	SetFilmWatched(ctx context.Context, id uint64, at time.Time) error
	// DeleteFilm removes the film and everything hanging off it.
	DeleteFilm(ctx context.Context, id uint64) error
	// AdjustFilmUpvotes adds delta to total_upvotes, never going below
	// zero, and returns the new value.
	AdjustFilmUpvotes(ctx context.Context, id uint64, delta int) (int, error)
	// ListFilms returns unwatched films by total_upvotes desc, created asc,
	// or watched films by watched_date desc.
	ListFilms(ctx context.Context, watched bool) ([]*model.Film, error)
	// ListFilmsUpvotedBy returns the films the user upvoted.
	ListFilmsUpvotedBy(ctx context.Context, userID uint64) ([]*model.Film, error)
	// ListFilmsRatedBy returns the films the user rated.
	ListFilmsRatedBy(ctx context.Context, userID uint64) ([]*model.Film, error)
}

// LookupRepository persists genres and providers and their film links.
type LookupRepository interface {
	// GetOrCreateGenre returns the genre named name, creating it if
	// needed. created reports whether a row was inserted.
	GetOrCreateGenre(ctx context.Context, name string) (g *model.Genre, created bool, err error)
	// GetOrCreateProvider returns the provider named name. imageURL is
	// only stored when the provider is created.
	GetOrCreateProvider(ctx context.Context, name, imageURL string) (p *model.Provider, created bool, err error)
	// LinkFilmGenre associates a genre with a film. Existing links are kept.
	LinkFilmGenre(ctx context.Context, filmID, genreID uint64) error
	// LinkFilmProvider associates a provider with a film. Existing links are kept.
	LinkFilmProvider(ctx context.Context, filmID, providerID uint64) error
	// ListGenres returns all genres ordered by name.
	ListGenres(ctx context.Context) ([]model.Genre, error)
}

// EventRepository persists events.
type EventRepository interface {
	CreateEvent(ctx context.Context, e *model.Event) error
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)
	// ShareEvent is GetEvent taking a shared row lock, so a concurrent
	// UpdateEvent waits until the transaction ends.
	ShareEvent(ctx context.Context, id uint64) (*model.Event, error)
	UpdateEvent(ctx context.Context, id uint64, u model.EventUpdate) error
	// DeleteEvent removes the event together with its event films and their votes.
	DeleteEvent(ctx context.Context, id uint64) error
	// ListEvents returns all events ordered by date.
	ListEvents(ctx context.Context) ([]*model.Event, error)
}

// EventFilmRepository persists event proposals.
type EventFilmRepository interface {
	GetEventFilm(ctx context.Context, id uint64) (*model.EventFilm, error)
	// LockEventFilm is GetEventFilm taking a row lock.
	LockEventFilm(ctx context.Context, id uint64) (*model.EventFilm, error)
	// FindEventFilm returns the link between event and film or ErrNotFound.
	FindEventFilm(ctx context.Context, eventID, filmID uint64) (*model.EventFilm, error)
	// CreateEventFilm inserts ef; an existing (event, film) pair yields ErrDuplicate.
	CreateEventFilm(ctx context.Context, ef *model.EventFilm) error
	// DeleteEventFilm removes the link and its votes; the film stays.
	DeleteEventFilm(ctx context.Context, id uint64) error
	// AdjustEventFilmUpvotes adds delta to upvote_count, never going
	// below zero, and returns the new value.
	AdjustEventFilmUpvotes(ctx context.Context, id uint64, delta int) (int, error)
	// ListEventFilms returns the event's proposals with their films, most
	// upvoted first.
	ListEventFilms(ctx context.Context, eventID uint64) ([]*model.EventFilm, error)
}

// VoteRepository persists the vote rows backing the cached counters.
type VoteRepository interface {
	HasUpvote(ctx context.Context, filmID, userID uint64) (bool, error)
	// CreateUpvote inserts a (film, user) upvote; a second one yields ErrDuplicate.
	CreateUpvote(ctx context.Context, filmID, userID uint64) error
	// DeleteUpvote removes the (film, user) upvote and reports whether one existed.
	DeleteUpvote(ctx context.Context, filmID, userID uint64) (bool, error)
	CountUpvotes(ctx context.Context, filmID uint64) (int, error)

	HasEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (bool, error)
	CreateEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) error
	DeleteEventFilmUpvote(ctx context.Context, eventFilmID, userID uint64) (bool, error)
	CountEventFilmUpvotes(ctx context.Context, eventFilmID uint64) (int, error)
}

// RatingRepository persists ratings.
type RatingRepository interface {
	HasRating(ctx context.Context, filmID, userID uint64) (bool, error)
	// CreateRating inserts r; a second (film, user) rating yields ErrDuplicate.
	CreateRating(ctx context.Context, r *model.Rating) error
}

// UserRepository persists accounts.
type UserRepository interface {
	// CreateUser inserts u; a taken username or email yields ErrDuplicate.
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id uint64) (*model.User, error)
	// GetUserByLogin matches login against username or email.
	GetUserByLogin(ctx context.Context, login string) (*model.User, error)
}

// TokenRepository persists refresh token hashes.
type TokenRepository interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owner of a token that is neither revoked
	// nor expired at now, or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	// RevokeRefresh marks an unrevoked token as revoked. A token that is
	// unknown or already revoked yields ErrNotFound.
	RevokeRefresh(ctx context.Context, tokenHash string) error
}
