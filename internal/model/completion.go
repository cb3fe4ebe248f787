package model

import "time"

type TaskSource string

const (
	TaskSourceLocal  TaskSource = "local"
	TaskSourceGoogle TaskSource = "google"
)

type CompletionKind string

const (
	KindCompleted CompletionKind = "completed"
	KindReopened  CompletionKind = "reopened"
)

// TaskCompletion is one row of the append-only points audit trail. Member
// name is copied at write time so history survives renames and deletes.
type TaskCompletion struct {
	ID           int64          `json:"id"`
	MemberID     *int64         `json:"member_id"`
	MemberName   string         `json:"member_name"`
	TaskTitle    string         `json:"task_title"`
	TaskSource   TaskSource     `json:"task_source"`
	Kind         CompletionKind `json:"kind"`
	PointsEarned int            `json:"points_earned"`
	CompletedAt  time.Time      `json:"completed_at"`
}

type WeeklyMemberStats struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Color                string `json:"color"`
	TotalPoints          int    `json:"totalPoints"`
	WeeklyTasksCompleted int    `json:"weeklyTasksCompleted"`
	WeeklyPointsEarned   int    `json:"weeklyPointsEarned"`
}

type DailyMemberStats struct {
	MemberID       *int64 `json:"member_id"`
	MemberName     string `json:"member_name"`
	TasksCompleted int    `json:"tasks_completed"`
	PointsEarned   int    `json:"points_earned"`
}

type DailyStats struct {
	Date    string             `json:"date"`
	Members []DailyMemberStats `json:"members"`
}
