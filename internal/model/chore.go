package model

import "time"

type Chore struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Points     int       `json:"points"`
	AssignedTo *int64    `json:"assigned_to"`
	Completed  bool      `json:"completed"`
	Recurring  string    `json:"recurring"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ChoreWithAssignee is a chore joined with its assignee's display fields.
type ChoreWithAssignee struct {
	Chore
	MemberName  string `json:"member_name,omitempty"`
	MemberColor string `json:"member_color,omitempty"`
}
