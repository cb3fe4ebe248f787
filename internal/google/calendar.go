package google

import (
	"context"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/dukerupert/homehub/internal/model"
)

// ListEvents returns the single occurrences of every event overlapping
// [start, end) on the household calendar, ordered by start time.
func (c *Client) ListEvents(ctx context.Context, start, end time.Time) ([]model.ExternalEvent, error) {
	opts, err := c.options(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, c.classify("calendar service", err)
	}

	var events []model.ExternalEvent
	pageToken := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}

		call := svc.Events.List(c.calendarID).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(250).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, c.classify("list events", err)
		}
		for _, item := range resp.Items {
			if item.Status == "cancelled" {
				continue
			}
			events = append(events, c.toEvent(item))
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return events, nil
}

func (c *Client) toEvent(item *calendar.Event) model.ExternalEvent {
	e := model.ExternalEvent{ID: item.Id, Title: item.Summary}
	e.Start, e.AllDay = c.eventTime(item.Start)
	e.End, _ = c.eventTime(item.End)
	return e
}

// eventTime reads a timed or all-day boundary. All-day dates are taken as
// midnight in the household zone.
func (c *Client) eventTime(dt *calendar.EventDateTime) (time.Time, bool) {
	if dt == nil {
		return time.Time{}, false
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err == nil {
			return t, false
		}
		c.logger.Warn("unparseable event time", "value", dt.DateTime, "error", err)
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", dt.Date, c.loc)
	if err != nil {
		return time.Time{}, true
	}
	return t, true
}
