package model

import "time"

// CalendarEvent is a locally created event. Google-sourced events are never
// stored; see ExternalEvent.
type CalendarEvent struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Date      string    `json:"date"`
	StartHour float64   `json:"start_hour"`
	Duration  float64   `json:"duration"`
	MemberID  *int64    `json:"member_id"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// ExternalEvent is a calendar event fetched live from the calendar provider.
type ExternalEvent struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`
}
