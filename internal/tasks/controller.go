// Package tasks maintains the client-side task cache and its derived
// views, mirroring backend mutations into the cache as they confirm.
package tasks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/events"
	"taskflow/internal/session"
)

type SortOption string

const (
	SortDefault SortOption = "default"
	SortTitle   SortOption = "title"
	SortDueDate SortOption = "due_date"
)

// Draft is the raw form input for a new task before normalization.
type Draft struct {
	Title       string
	Description string
	Priority    string
	Tags        string // comma separated, as typed
	DueDate     *time.Time
}

// Normalize prepares the create payload: priority lower-cased, tags split
// on commas and trimmed (never omitted, empty input yields an empty list),
// and a missing due date sent as an explicit null.
func (d Draft) Normalize() api.CreateTaskRequest {
	tags := []string{}
	for _, tag := range strings.Split(d.Tags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return api.CreateTaskRequest{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Priority:    strings.ToLower(strings.TrimSpace(d.Priority)),
		Tags:        tags,
		DueDate:     d.DueDate,
	}
}

type Controller struct {
	client  *api.Client
	session *session.Store
	logger  *app.Logger

	mu    sync.Mutex
	tasks []api.Task
}

func NewController(client *api.Client, sess *session.Store, logger *app.Logger) *Controller {
	return &Controller{client: client, session: sess, logger: logger}
}

// requireToken redirects to login when no credential is present. No
// network call is made in that case.
func (c *Controller) requireToken() bool {
	if c.session.Token() == "" {
		if c.session.Redirect != nil {
			c.session.Redirect("/login")
		}
		return false
	}
	return true
}

func (c *Controller) Refresh(ctx context.Context) error {
	if !c.requireToken() {
		return nil
	}
	list, err := c.client.Tasks(ctx)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		c.logger.Error("failed to fetch tasks", map[string]interface{}{"error": err.Error()})
		return err
	}
	c.mu.Lock()
	c.tasks = list
	c.mu.Unlock()
	return nil
}

// Create is not optimistic: the form stays populated until the server
// returns the created record.
func (c *Controller) Create(ctx context.Context, draft Draft) (*api.Task, error) {
	if !c.requireToken() {
		return nil, nil
	}
	created, err := c.client.CreateTask(ctx, draft.Normalize())
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return nil, err
		}
		c.logger.Error("failed to create task", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	c.mu.Lock()
	c.tasks = append(c.tasks, *created)
	c.mu.Unlock()
	return created, nil
}

func (c *Controller) Update(ctx context.Context, id string, req api.UpdateTaskRequest) (*api.Task, error) {
	if !c.requireToken() {
		return nil, nil
	}
	updated, err := c.client.UpdateTask(ctx, id, req)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return nil, err
		}
		c.logger.Error("failed to update task", map[string]interface{}{"error": err.Error(), "task_id": id})
		return nil, err
	}
	c.patch(*updated)
	return updated, nil
}

func (c *Controller) ToggleComplete(ctx context.Context, id string) (*api.Task, error) {
	if !c.requireToken() {
		return nil, nil
	}
	updated, err := c.client.ToggleComplete(ctx, id)
	if err != nil {
		if c.session.HandleUnauthorized(err) {
			return nil, err
		}
		c.logger.Error("failed to toggle task", map[string]interface{}{"error": err.Error(), "task_id": id})
		return nil, err
	}
	c.patch(*updated)
	return updated, nil
}

// Delete removes the cached copy as soon as the server confirms; there is
// no rollback path afterwards.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if !c.requireToken() {
		return nil
	}
	if err := c.client.DeleteTask(ctx, id); err != nil {
		if c.session.HandleUnauthorized(err) {
			return err
		}
		c.logger.Error("failed to delete task", map[string]interface{}{"error": err.Error(), "task_id": id})
		return err
	}
	c.mu.Lock()
	kept := c.tasks[:0]
	for _, t := range c.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	c.tasks = kept
	c.mu.Unlock()
	return nil
}

func (c *Controller) patch(updated api.Task) {
	c.mu.Lock()
	for i := range c.tasks {
		if c.tasks[i].ID == updated.ID {
			c.tasks[i] = updated
			break
		}
	}
	c.mu.Unlock()
}

// Tasks returns a snapshot of the cache in backend order.
func (c *Controller) Tasks() []api.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Reset drops the cache, e.g. after the session is cleared.
func (c *Controller) Reset() {
	c.mu.Lock()
	c.tasks = nil
	c.mu.Unlock()
}

// View applies the search filter and then the requested sort to a snapshot
// of the cache. The default keeps backend order.
func (c *Controller) View(query string, sortBy SortOption) []api.Task {
	filtered := Filter(c.Tasks(), query)
	Sort(filtered, sortBy)
	return filtered
}

// Filter keeps tasks whose title or tags contain the query,
// case-insensitively. An empty query keeps everything.
func Filter(list []api.Task, query string) []api.Task {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return list
	}
	out := list[:0]
	for _, t := range list {
		if strings.Contains(strings.ToLower(t.Title), term) {
			out = append(out, t)
			continue
		}
		for _, tag := range t.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// Sort orders in place: by title lexicographically, or by due date
// ascending with undated tasks last. Both are stable, so re-sorting a
// sorted list is a no-op.
func Sort(list []api.Task, by SortOption) {
	switch by {
	case SortTitle:
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Title < list[j].Title
		})
	case SortDueDate:
		sort.SliceStable(list, func(i, j int) bool {
			a, b := list[i].DueDate, list[j].DueDate
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return a.Before(*b)
		})
	}
}

// ResolveID maps user input, either a task UUID or a 1-based list index,
// to the task's UUID. Returns "" when nothing matches.
func (c *Controller) ResolveID(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if _, err := uuid.Parse(input); err == nil {
		return input, nil
	}
	index := 0
	for _, r := range input {
		if r < '0' || r > '9' {
			return "", nil
		}
		index = index*10 + int(r-'0')
	}
	if index == 0 {
		return "", nil
	}
	if err := c.Refresh(ctx); err != nil {
		return "", err
	}
	list := c.Tasks()
	if index > len(list) {
		return "", nil
	}
	return list[index-1].ID, nil
}

// WatchBus refreshes the list whenever the chat reports a task mutation,
// until ctx is done.
func (c *Controller) WatchBus(ctx context.Context, bus *events.Bus) {
	added := bus.Subscribe(events.TopicTaskAdded)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-added:
				_ = c.Refresh(ctx)
			}
		}
	}()
}
