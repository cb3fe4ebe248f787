package model

import "time"

type TaskStatus string

const (
	TaskNeedsAction TaskStatus = "needsAction"
	TaskCompleted   TaskStatus = "completed"
)

type TaskList struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type ExternalTask struct {
	ID     string     `json:"id"`
	ListID string     `json:"list_id"`
	Title  string     `json:"title"`
	Notes  string     `json:"notes,omitempty"`
	Status TaskStatus `json:"status"`
	Due    *time.Time `json:"due,omitempty"`
}

func (t ExternalTask) Completed() bool {
	return t.Status == TaskCompleted
}
