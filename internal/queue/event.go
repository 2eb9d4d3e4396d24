// Package queue defines the activity messages exchanged over RabbitMQ and
// the publisher and consumer that move them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// ActivityQueue is the durable queue activity events are published to.
const ActivityQueue = "festival.activity"

// ActivityType names what happened.
type ActivityType string

const (
	FilmProposed        ActivityType = "film.proposed"
	FilmProposedToEvent ActivityType = "film.proposed_to_event"
	FilmWatched         ActivityType = "film.watched"
	FilmDeleted         ActivityType = "film.deleted"
	EventFilmDeleted    ActivityType = "event_film.deleted"
)

// ActivityEvent is published after a proposal, watch or delete commits.
// It carries enough to log or notify without querying the database;
// ids that do not apply to the type are zero and omitted.
type ActivityEvent struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	FilmID      uint64       `json:"film_id,omitempty"`
	EventID     uint64       `json:"event_id,omitempty"`
	EventFilmID uint64       `json:"event_film_id,omitempty"`
	UserID      uint64       `json:"user_id,omitempty"`
	ImdbID      string       `json:"imdb_id,omitempty"`
	Title       string       `json:"title,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// NewActivity returns an event of type t with a fresh id.
func NewActivity(t ActivityType, at time.Time) ActivityEvent {
	return ActivityEvent{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}
