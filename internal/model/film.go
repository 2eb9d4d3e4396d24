package model

import "time"

// Film represents a movie proposed to the festival watch pool.  It is
// created either by a direct proposal or the first time somebody
// proposes it to an event.  The scalar metadata mirrors what clients
// fetch from IMDb; all of it is optional except ImdbID which is the
// natural key used to deduplicate proposals.
//
// Fields:
//  ID           – primary key identifier.
//  ImdbID       – external IMDb identifier (unique, nil when unknown).
//  Tittle       – display title (the misspelling is part of the wire format).
//  Year         – release year, 0 when unknown.
//  Watched      – whether an admin marked the film as screened.
//  WatchedDate  – when it was marked watched.
//  TotalUpvotes – cached count of rows in `upvotes` for this film.
//  ProposedBy   – user who proposed it directly (nil for event-created films).
type Film struct {
	ID           uint64     `json:"id"`            // films.id
	ImdbID       *string    `json:"imdb_id"`       // films.imdb_id (nullable, unique)
	Tittle       string     `json:"tittle"`        // films.tittle
	Description  string     `json:"description"`   // films.description
	Year         int        `json:"year"`          // films.year
	Runtime      string     `json:"runtime"`       // films.runtime
	Image        string     `json:"image"`         // films.image
	Director     string     `json:"director"`      // films.director
	Actors       string     `json:"actors"`        // films.actors
	ImdbRating   string     `json:"imdb_rating"`   // films.imdb_rating
	ImdbVotes    string     `json:"imdb_votes"`    // films.imdb_votes
	Watched      bool       `json:"watched"`       // films.watched
	WatchedDate  *time.Time `json:"watched_date"`  // films.watched_date (nullable)
	TotalUpvotes int        `json:"total_upvotes"` // films.total_upvotes
	ProposedBy   *uint64    `json:"proposed_by"`   // films.proposed_by (nullable)
	CreatedAt    time.Time  `json:"created"`       // films.created_at
	Genres       []Genre    `json:"genres"`
	Providers    []Provider `json:"providers"`
}

// IsProposedBy reports whether userID is the direct proposer of the film.
func (f *Film) IsProposedBy(userID uint64) bool {
	return f.ProposedBy != nil && *f.ProposedBy == userID
}

// FilmMetadata carries the scalar fields that can be supplied when a
// film is proposed.  It is the unit the back-fill merge operates on.
type FilmMetadata struct {
	Tittle      string `json:"tittle"`
	Description string `json:"description"`
	Year        int    `json:"year"`
	Runtime     string `json:"runtime"`
	Image       string `json:"image"`
	Director    string `json:"director"`
	Actors      string `json:"actors"`
	ImdbRating  string `json:"imdb_rating"`
	ImdbVotes   string `json:"imdb_votes"`
}

// Metadata returns the film's scalar fields.
func (f *Film) Metadata() FilmMetadata {
	return FilmMetadata{
		Tittle:      f.Tittle,
		Description: f.Description,
		Year:        f.Year,
		Runtime:     f.Runtime,
		Image:       f.Image,
		Director:    f.Director,
		Actors:      f.Actors,
		ImdbRating:  f.ImdbRating,
		ImdbVotes:   f.ImdbVotes,
	}
}

// SetMetadata overwrites the film's scalar fields with m.
func (f *Film) SetMetadata(m FilmMetadata) {
	f.Tittle = m.Tittle
	f.Description = m.Description
	f.Year = m.Year
	f.Runtime = m.Runtime
	f.Image = m.Image
	f.Director = m.Director
	f.Actors = m.Actors
	f.ImdbRating = m.ImdbRating
	f.ImdbVotes = m.ImdbVotes
}

// Genre is a named lookup row shared between films.
type Genre struct {
	ID   uint64 `json:"id"`   // genres.id
	Name string `json:"name"` // genres.name (unique)
}

// Provider is a streaming provider (e.g. a platform) a film is available on.
// ImageURL is only recorded when the provider is first created.
type Provider struct {
	ID       uint64 `json:"id"`        // providers.id
	Name     string `json:"name"`      // providers.name (unique)
	ImageURL string `json:"image_url"` // providers.image_url
}
