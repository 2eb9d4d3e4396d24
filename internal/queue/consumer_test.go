package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/film-festival/internal/logging"
)

func TestNewActivity(t *testing.T) {
	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	ev := NewActivity(FilmWatched, at)

	_, err := uuid.Parse(ev.ID)
	require.NoError(t, err)
	assert.Equal(t, FilmWatched, ev.Type)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.True(t, ev.OccurredAt.Equal(at))
}

func TestFormatLine(t *testing.T) {
	ev := ActivityEvent{
		ID:         "abc",
		Type:       FilmProposedToEvent,
		FilmID:     4,
		EventID:    2,
		UserID:     9,
		ImdbID:     "tt002",
		Title:      "Heat",
		OccurredAt: time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC),
	}
	line := FormatLine(ev)

	assert.Equal(t,
		"[2024-06-01T08:00:00Z] film.proposed_to_event | id=abc | film_id=4 | event_id=2 | user_id=9 | imdb_id=tt002 | title=\"Heat\"\n",
		line)
	assert.NotContains(t, line, "event_film_id")
}

func TestConsumerHandle_AppendsLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "activity.log")
	c := NewConsumer("amqp://unused", ActivityQueue, path, logging.Discard())

	for _, typ := range []ActivityType{FilmProposed, FilmDeleted} {
		body, err := json.Marshal(NewActivity(typ, time.Now()))
		require.NoError(t, err)
		require.NoError(t, c.Handle(body))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "film.proposed")
	assert.Contains(t, lines[1], "film.deleted")
}

func TestConsumerHandle_RejectsBadMessages(t *testing.T) {
	c := NewConsumer("amqp://unused", ActivityQueue, filepath.Join(t.TempDir(), "a.log"), logging.Discard())

	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"id":"x"}`)))
}
