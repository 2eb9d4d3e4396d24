package model

import "time"

// Event represents a festival screening night curated by an admin.
// Users may propose films to an event while AllowProposals is true.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – optional human readable name.
//  Date           – when the event takes place.
//  AllowProposals – whether new films may be proposed to the event.
//  CreatedBy      – admin user who created the event.
//  CreatedAt      – creation timestamp.
type Event struct {
	ID             uint64    `json:"id"`              // events.id
	Name           string    `json:"name"`            // events.name
	Date           time.Time `json:"date"`            // events.date
	AllowProposals bool      `json:"allow_proposals"` // events.allow_proposals
	CreatedBy      uint64    `json:"created_by"`      // events.created_by
	CreatedAt      time.Time `json:"created"`         // events.created_at
}

// EventUpdate holds the mutable fields of an event.  Nil pointers are
// left untouched so the same type serves PUT and PATCH.
type EventUpdate struct {
	Name           *string
	Date           *time.Time
	AllowProposals *bool
}

// EventFilm links a film to an event: "this film was proposed for this
// event".  The pair (EventID, FilmID) is unique and UpvoteCount caches
// the number of rows in `event_film_upvotes` for the link.
type EventFilm struct {
	ID          uint64    `json:"id"`           // event_films.id
	EventID     uint64    `json:"event"`        // event_films.event_id
	FilmID      uint64    `json:"film_id"`      // event_films.film_id
	ProposedBy  uint64    `json:"proposed_by"`  // event_films.proposed_by
	UpvoteCount int       `json:"upvote_count"` // event_films.upvote_count
	CreatedAt   time.Time `json:"created"`      // event_films.created_at
	Film        *Film     `json:"film,omitempty"`
}
