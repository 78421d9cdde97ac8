package store

import (
	"database/sql"
	"errors"
	"time"
)

// Event is a fired gesture recorded in the event log.
type Event struct {
	ID        string
	SessionID string
	Label     string
	ModeCount int
	Required  int
	Capacity  int
	Frame     uint64
	FiredAt   time.Time
	Actuated  bool
	Error     string
}

// EventFilter narrows an event listing. Zero fields do not filter.
type EventFilter struct {
	Label     string
	SessionID string
	Since     time.Time
	Limit     int
}

// DefaultEventLimit caps listings that do not set a limit.
const DefaultEventLimit = 100

// EventRepository provides access to the fired event log.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

const eventColumns = `id, session_id, label, mode_count, required, capacity, frame, fired_at, actuated, error`

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var actuated int
	var frame int64

	err := row.Scan(&e.ID, &e.SessionID, &e.Label, &e.ModeCount, &e.Required, &e.Capacity,
		&frame, &e.FiredAt, &actuated, &e.Error)
	if err != nil {
		return nil, err
	}

	e.Frame = uint64(frame)
	e.Actuated = actuated != 0
	return e, nil
}

// Create appends an event to the log.
func (r *EventRepository) Create(e *Event) error {
	if e.FiredAt.IsZero() {
		e.FiredAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Label, e.ModeCount, e.Required, e.Capacity,
		int64(e.Frame), e.FiredAt.UTC(), boolToInt(e.Actuated), e.Error,
	)
	return err
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*Event, error) {
	e, err := scanEvent(r.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// List returns events matching the filter, newest first.
func (r *EventRepository) List(f EventFilter) ([]*Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE 1 = 1`
	var args []any

	if f.Label != "" {
		q += ` AND label = ?`
		args = append(args, f.Label)
	}
	if f.SessionID != "" {
		q += ` AND session_id = ?`
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		q += ` AND fired_at >= ?`
		args = append(args, f.Since.UTC())
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	q += ` ORDER BY fired_at DESC, frame DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// MarkActuated records the actuation outcome of an event. A nil actErr
// marks success.
func (r *EventRepository) MarkActuated(id string, actErr error) error {
	actuated, msg := 1, ""
	if actErr != nil {
		actuated, msg = 0, actErr.Error()
	}

	result, err := r.db.Exec(`UPDATE events SET actuated = ?, error = ? WHERE id = ?`, actuated, msg, id)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Count returns the number of logged events for a label, or all events
// when label is empty.
func (r *EventRepository) Count(label string) (int, error) {
	var n int
	var err error
	if label == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM events WHERE label = ?`, label).Scan(&n)
	}
	return n, err
}

// Prune deletes events fired before the cutoff and returns how many were removed.
func (r *EventRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events WHERE fired_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
