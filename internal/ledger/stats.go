package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/dukerupert/homehub/internal/model"
)

const (
	historyLimit    = 100
	DefaultStatDays = 7
	MaxStatDays     = 365
)

func clampDays(days int) int {
	if days <= 0 {
		return DefaultStatDays
	}
	if days > MaxStatDays {
		return MaxStatDays
	}
	return days
}

// weekStart is Monday 00:00 of the week containing t, in t's zone.
func weekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// daysStart is midnight of the first of the trailing n days ending today.
func daysStart(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d-(n-1), 0, 0, 0, 0, t.Location())
}

// taskDelta is how a row moves the completed-task count.
func taskDelta(c model.TaskCompletion) int {
	if c.Kind == model.KindReopened {
		return -1
	}
	return 1
}

// WeeklyStats summarizes the current week for every member, busiest first.
func (l *Ledger) WeeklyStats(ctx context.Context) ([]model.WeeklyMemberStats, error) {
	members, err := l.members.List(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := l.completions.ListSince(ctx, weekStart(l.now().In(l.loc)), nil, 0)
	if err != nil {
		return nil, err
	}

	tasks := make(map[int64]int)
	points := make(map[int64]int)
	for _, c := range rows {
		if c.MemberID == nil {
			continue
		}
		tasks[*c.MemberID] += taskDelta(c)
		points[*c.MemberID] += c.PointsEarned
	}

	stats := make([]model.WeeklyMemberStats, 0, len(members))
	for _, m := range members {
		stats = append(stats, model.WeeklyMemberStats{
			ID:                   m.ID,
			Name:                 m.Name,
			Color:                m.Color,
			TotalPoints:          m.Points,
			WeeklyTasksCompleted: tasks[m.ID],
			WeeklyPointsEarned:   points[m.ID],
		})
	}
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].WeeklyTasksCompleted != stats[j].WeeklyTasksCompleted {
			return stats[i].WeeklyTasksCompleted > stats[j].WeeklyTasksCompleted
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}

// DailyStats breaks the trailing days down by local date and member. Days
// without activity are omitted.
func (l *Ledger) DailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	days = clampDays(days)
	rows, err := l.completions.ListSince(ctx, daysStart(l.now().In(l.loc), days), nil, 0)
	if err != nil {
		return nil, err
	}

	type key struct {
		date string
		name string
	}
	totals := make(map[key]*model.DailyMemberStats)
	dates := make(map[string][]key)
	for _, c := range rows {
		k := key{date: c.CompletedAt.In(l.loc).Format("2006-01-02"), name: c.MemberName}
		s, ok := totals[k]
		if !ok {
			s = &model.DailyMemberStats{MemberID: c.MemberID, MemberName: c.MemberName}
			totals[k] = s
			dates[k.date] = append(dates[k.date], k)
		}
		s.TasksCompleted += taskDelta(c)
		s.PointsEarned += c.PointsEarned
	}

	out := make([]model.DailyStats, 0, len(dates))
	for date, keys := range dates {
		day := model.DailyStats{Date: date}
		for _, k := range keys {
			day.Members = append(day.Members, *totals[k])
		}
		sort.Slice(day.Members, func(i, j int) bool { return day.Members[i].MemberName < day.Members[j].MemberName })
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// History lists the most recent audit rows in the trailing days, newest
// first, optionally for one member.
func (l *Ledger) History(ctx context.Context, days int, memberID *int64) ([]model.TaskCompletion, error) {
	days = clampDays(days)
	rows, err := l.completions.ListSince(ctx, daysStart(l.now().In(l.loc), days), memberID, historyLimit)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.TaskCompletion{}
	}
	return rows, nil
}
