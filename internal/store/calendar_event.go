package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/homehub/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const eventCols = `id, title, date, start_hour, duration, member_id, color, created_at`

func scanEvent(scanner interface{ Scan(...any) error }) (*model.CalendarEvent, error) {
	var e model.CalendarEvent
	var memberID sql.NullInt64

	if err := scanner.Scan(&e.ID, &e.Title, &e.Date, &e.StartHour, &e.Duration, &memberID, &e.Color, &e.CreatedAt); err != nil {
		return nil, err
	}
	if memberID.Valid {
		e.MemberID = &memberID.Int64
	}
	return &e, nil
}

func (s *EventStore) Create(ctx context.Context, title, date string, startHour, duration float64, memberID *int64, color string) (*model.CalendarEvent, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (title, date, start_hour, duration, member_id, color) VALUES (?, ?, ?, ?, ?, ?)`,
		title, date, startHour, duration, nullID(memberID), color,
	)
	if err != nil {
		return nil, fmt.Errorf("insert calendar event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

func (s *EventStore) GetByID(ctx context.Context, id int64) (*model.CalendarEvent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+eventCols+` FROM calendar_events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query calendar event: %w", err)
	}
	return e, nil
}

// ListByDateRange returns events dated within [start, end], both YYYY-MM-DD.
func (s *EventStore) ListByDateRange(ctx context.Context, start, end string) ([]model.CalendarEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM calendar_events
		 WHERE date >= ? AND date <= ?
		 ORDER BY date ASC, start_hour ASC`,
		start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("query calendar events: %w", err)
	}
	defer rows.Close()

	var events []model.CalendarEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calendar event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Update(ctx context.Context, id int64, title, date string, startHour, duration float64, memberID *int64, color string) (*model.CalendarEvent, error) {
	_, err := s.db.ExecContext(ctx,
		`UPDATE calendar_events SET title = ?, date = ?, start_hour = ?, duration = ?, member_id = ?, color = ? WHERE id = ?`,
		title, date, startHour, duration, nullID(memberID), color, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update calendar event: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *EventStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM calendar_events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return nil
}

// CountByMember is used to verify cascade deletes.
func (s *EventStore) CountByMember(ctx context.Context, memberID int64) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM calendar_events WHERE member_id = ?", memberID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count member events: %w", err)
	}
	return n, nil
}
