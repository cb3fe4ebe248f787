package google

import (
	"context"
	"time"

	"google.golang.org/api/tasks/v1"

	"github.com/dukerupert/homehub/internal/model"
)

func (c *Client) tasksService(ctx context.Context) (*tasks.Service, error) {
	opts, err := c.options(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, c.classify("tasks service", err)
	}
	return svc, nil
}

func toTask(listID string, t *tasks.Task) model.ExternalTask {
	out := model.ExternalTask{
		ID:     t.Id,
		ListID: listID,
		Title:  t.Title,
		Notes:  t.Notes,
		Status: model.TaskStatus(t.Status),
	}
	if out.Status == "" {
		out.Status = model.TaskNeedsAction
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			out.Due = &due
		}
	}
	return out
}

func (c *Client) ListTaskLists(ctx context.Context) ([]model.TaskList, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}

	var lists []model.TaskList
	pageToken := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Tasklists.List().MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, c.classify("list task lists", err)
		}
		for _, l := range resp.Items {
			lists = append(lists, model.TaskList{ID: l.Id, Title: l.Title})
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return lists, nil
}

func (c *Client) ListTasks(ctx context.Context, listID string) ([]model.ExternalTask, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}
	return c.listTasks(ctx, svc, listID)
}

func (c *Client) listTasks(ctx context.Context, svc *tasks.Service, listID string) ([]model.ExternalTask, error) {
	var out []model.ExternalTask
	pageToken := ""
	for {
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		call := svc.Tasks.List(listID).ShowCompleted(true).ShowHidden(true).MaxResults(100).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, c.classify("list tasks", err)
		}
		for _, t := range resp.Items {
			out = append(out, toTask(listID, t))
		}
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}
	return out, nil
}

// ListAllTasks returns the tasks of every list, list by list.
func (c *Client) ListAllTasks(ctx context.Context) ([]model.TaskList, []model.ExternalTask, error) {
	lists, err := c.ListTaskLists(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, nil, err
	}

	var all []model.ExternalTask
	for _, l := range lists {
		ts, err := c.listTasks(ctx, svc, l.ID)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, ts...)
	}
	return lists, all, nil
}

// GetTask returns nil when the task does not exist.
func (c *Client) GetTask(ctx context.Context, listID, taskID string) (*model.ExternalTask, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	t, err := svc.Tasks.Get(listID, taskID).Context(ctx).Do()
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, c.classify("get task", err)
	}
	out := toTask(listID, t)
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, listID, title, notes string, due *time.Time) (*model.ExternalTask, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	t := &tasks.Task{Title: title, Notes: notes}
	if due != nil {
		t.Due = due.UTC().Format(time.RFC3339)
	}
	created, err := svc.Tasks.Insert(listID, t).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("create task", err)
	}
	out := toTask(listID, created)
	return &out, nil
}

func (c *Client) SetTaskStatus(ctx context.Context, listID, taskID string, status model.TaskStatus) (*model.ExternalTask, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	patch := &tasks.Task{Status: string(status)}
	if status == model.TaskNeedsAction {
		patch.NullFields = []string{"Completed"}
	}
	updated, err := svc.Tasks.Patch(listID, taskID, patch).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("update task", err)
	}
	out := toTask(listID, updated)
	return &out, nil
}

// MoveTask recreates a task in another list as pending, then removes the
// original. If the delete fails the task exists in both lists.
func (c *Client) MoveTask(ctx context.Context, task model.ExternalTask, toList string) (*model.ExternalTask, error) {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	t := &tasks.Task{Title: task.Title, Notes: task.Notes, Status: string(model.TaskNeedsAction)}
	if task.Due != nil {
		t.Due = task.Due.UTC().Format(time.RFC3339)
	}
	created, err := svc.Tasks.Insert(toList, t).Context(ctx).Do()
	if err != nil {
		return nil, c.classify("move task", err)
	}

	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if err := svc.Tasks.Delete(task.ListID, task.ID).Context(ctx).Do(); err != nil && !isNotFound(err) {
		return nil, c.classify("move task", err)
	}

	out := toTask(toList, created)
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	svc, err := c.tasksService(ctx)
	if err != nil {
		return err
	}
	if err := c.wait(ctx); err != nil {
		return err
	}
	if err := svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return c.classify("delete task", err)
	}
	return nil
}
