package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/iliyamo/film-festival/internal/model"
)

const eventColumns = "id, name, date, allow_proposals, created_by, created_at"

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &e.AllowProposals, &e.CreatedBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent inserts e and fills ID and CreatedAt.
func (s *MySQLStore) CreateEvent(ctx context.Context, e *model.Event) error {
	id, err := s.insert(ctx,
		"INSERT INTO events (name, date, allow_proposals, created_by) VALUES (?,?,?,?)",
		e.Name, e.Date.UTC(), e.AllowProposals, e.CreatedBy)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	e.ID = id
	if err := s.q.QueryRowContext(ctx, "SELECT created_at FROM events WHERE id=?", id).Scan(&e.CreatedAt); err != nil {
		return mapError(err)
	}
	return nil
}

// GetEvent fetches an event by id.
func (s *MySQLStore) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := scanEvent(s.q.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id=?", id))
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// ShareEvent fetches an event with FOR SHARE inside a writable transaction.
func (s *MySQLStore) ShareEvent(ctx context.Context, id uint64) (*model.Event, error) {
	e, err := scanEvent(s.q.QueryRowContext(ctx, s.forShare("SELECT "+eventColumns+" FROM events WHERE id=?"), id))
	if err != nil {
		return nil, mapError(err)
	}
	return e, nil
}

// UpdateEvent applies the non-nil fields of u.
func (s *MySQLStore) UpdateEvent(ctx context.Context, id uint64, u model.EventUpdate) error {
	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *u.Name)
	}
	if u.Date != nil {
		sets = append(sets, "date=?")
		args = append(args, u.Date.UTC())
	}
	if u.AllowProposals != nil {
		sets = append(sets, "allow_proposals=?")
		args = append(args, *u.AllowProposals)
	}
	ok, err := s.exists(ctx, s.forUpdate("SELECT EXISTS(SELECT 1 FROM events WHERE id=?)"), id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	if _, err := s.exec(ctx, "UPDATE events SET "+strings.Join(sets, ", ")+" WHERE id=?", args...); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

// DeleteEvent removes the event; event films and their upvotes cascade.
func (s *MySQLStore) DeleteEvent(ctx context.Context, id uint64) error {
	res, err := s.exec(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListEvents returns all events by date, earliest first.
func (s *MySQLStore) ListEvents(ctx context.Context) ([]*model.Event, error) {
	rows, err := s.q.QueryContext(ctx, "SELECT "+eventColumns+" FROM events ORDER BY date ASC, id ASC")
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()
	events := []*model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
