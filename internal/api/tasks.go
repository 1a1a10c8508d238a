package api

import (
	"context"
	"net/url"
)

func (c *Client) Tasks(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.do(ctx, "GET", "/api/tasks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) TaskByID(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.do(ctx, "GET", "/api/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var out Task
	if err := c.do(ctx, "POST", "/api/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	var out Task
	if err := c.do(ctx, "PUT", "/api/tasks/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, "DELETE", "/api/tasks/"+id, nil, nil)
}

func (c *Client) ToggleComplete(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := c.do(ctx, "PATCH", "/api/tasks/"+id+"/toggle-complete", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchTasks(ctx context.Context, query string) ([]Task, error) {
	var out []Task
	if err := c.do(ctx, "GET", "/api/tasks/search?q="+url.QueryEscape(query), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Notifications returns tasks due soon. The trailing slash matters to the
// backend router.
func (c *Client) Notifications(ctx context.Context) ([]Task, error) {
	var out []Task
	if err := c.do(ctx, "GET", "/api/tasks/notifications/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
