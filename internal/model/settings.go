package model

import "time"

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MappingKind string

const (
	MappingCalendarEvent MappingKind = "calendar_event"
	MappingTaskList      MappingKind = "task_list"
)

// Mapping is a manual assignment override for an external entity. An empty
// Target is a deliberate "cleared" assignment, distinct from no row at all.
type Mapping struct {
	Kind       MappingKind `json:"kind"`
	ExternalID string      `json:"external_id"`
	Target     string      `json:"target"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
