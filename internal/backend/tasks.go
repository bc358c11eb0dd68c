package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/doease/doease/internal/domain"
)

// ListTasks returns the caller's tasks, newest first. Row-level security on
// the remote side already scopes rows to the session user; the explicit
// filter keeps the query honest.
func (c *Client) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	path := "/rest/v1/tasks?user_id=eq." + url.QueryEscape(userID) + "&select=*&order=created_at.desc"
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var tasks []domain.Task
	if err := c.do(req, &tasks); err != nil {
		return nil, fmt.Errorf("task list failed: %w", err)
	}
	return tasks, nil
}

// AddTask inserts a task for userID and returns the stored row with its
// assigned id and timestamps.
func (c *Client) AddTask(ctx context.Context, userID string, task domain.NewTask) (*domain.Task, error) {
	type taskInsert struct {
		domain.NewTask
		UserID string `json:"user_id"`
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/tasks?select=*", []taskInsert{{
		NewTask: task,
		UserID:  userID,
	}})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	req.Header.Set("Prefer", "return=representation")

	var created domain.Task
	if err := c.do(req, &created); err != nil {
		return nil, fmt.Errorf("task insert failed: %w", err)
	}
	return &created, nil
}

// UpdateTask applies a partial update to one task and returns the stored row.
func (c *Client) UpdateTask(ctx context.Context, taskID int64, update domain.TaskUpdate) (*domain.Task, error) {
	path := "/rest/v1/tasks?id=eq." + strconv.FormatInt(taskID, 10) + "&select=*"
	req, err := c.newRequest(ctx, http.MethodPatch, path, update)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	req.Header.Set("Prefer", "return=representation")

	var updated domain.Task
	if err := c.do(req, &updated); err != nil {
		return nil, fmt.Errorf("task update failed: %w", err)
	}
	return &updated, nil
}

// DeleteTask removes one task.
func (c *Client) DeleteTask(ctx context.Context, taskID int64) error {
	path := "/rest/v1/tasks?id=eq." + strconv.FormatInt(taskID, 10)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("task delete failed: %w", err)
	}
	return nil
}
