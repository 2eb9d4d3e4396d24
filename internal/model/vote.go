package model

import "time"

// Upvote is one user's support for a film in the global watch pool.
// (FilmID, UserID) is unique and the rows back Film.TotalUpvotes.
type Upvote struct {
	ID        uint64    // upvotes.id
	FilmID    uint64    // upvotes.film_id
	UserID    uint64    // upvotes.user_id
	CreatedAt time.Time // upvotes.created_at
}

// EventFilmUpvote is one user's support for a film proposed to an
// event.  (EventFilmID, UserID) is unique and the rows back
// EventFilm.UpvoteCount.
type EventFilmUpvote struct {
	ID          uint64    // event_film_upvotes.id
	EventFilmID uint64    // event_film_upvotes.event_film_id
	UserID      uint64    // event_film_upvotes.user_id
	CreatedAt   time.Time // event_film_upvotes.created_at
}

// Rating is a user's star rating of a film.  One per (film, user); it
// is never edited once created.
type Rating struct {
	ID        uint64    `json:"id"`      // ratings.id
	FilmID    uint64    `json:"film"`    // ratings.film_id
	UserID    uint64    `json:"user"`    // ratings.user_id
	Stars     int       `json:"stars"`   // ratings.stars
	CreatedAt time.Time `json:"created"` // ratings.created_at
}
