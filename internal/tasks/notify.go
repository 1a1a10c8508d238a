package tasks

import (
	"context"
	"sync"
	"time"

	"taskflow/internal/api"
	"taskflow/internal/app"
	"taskflow/internal/session"
)

const defaultPollInterval = 60 * time.Second

// Notifier polls the due-soon endpoint while the dashboard is open and
// surfaces tasks that were not in the previous poll. Polling is a
// deliberate latency tradeoff; the backend offers no push channel.
type Notifier struct {
	client   *api.Client
	session  *session.Store
	logger   *app.Logger
	Interval time.Duration

	// OnNew is called once per newly seen due-soon task.
	OnNew func(task api.Task)

	mu      sync.Mutex
	seen    map[string]bool
	current []api.Task
	cancel  context.CancelFunc
}

func NewNotifier(client *api.Client, sess *session.Store, logger *app.Logger) *Notifier {
	return &Notifier{
		client:   client,
		session:  sess,
		logger:   logger,
		Interval: defaultPollInterval,
		seen:     make(map[string]bool),
	}
}

// Poll fetches due-soon tasks once and returns the ones not seen before.
func (n *Notifier) Poll(ctx context.Context) ([]api.Task, error) {
	if n.session.Token() == "" {
		if n.session.Redirect != nil {
			n.session.Redirect("/login")
		}
		return nil, nil
	}
	list, err := n.client.Notifications(ctx)
	if err != nil {
		if n.session.HandleUnauthorized(err) {
			return nil, err
		}
		n.logger.Error("failed to fetch notifications", map[string]interface{}{"error": err.Error()})
		return nil, err
	}

	n.mu.Lock()
	var fresh []api.Task
	nextSeen := make(map[string]bool, len(list))
	for _, t := range list {
		nextSeen[t.ID] = true
		if !n.seen[t.ID] {
			fresh = append(fresh, t)
		}
	}
	n.seen = nextSeen
	n.current = list
	onNew := n.OnNew
	n.mu.Unlock()

	if onNew != nil {
		for _, t := range fresh {
			onNew(t)
		}
	}
	return fresh, nil
}

// Start polls immediately and then on every interval tick until Stop or
// ctx cancellation.
func (n *Notifier) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	n.mu.Lock()
	n.cancel = cancel
	n.mu.Unlock()

	go func() {
		_, _ = n.Poll(ctx)
		ticker := time.NewTicker(n.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = n.Poll(ctx)
			}
		}
	}()
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	cancel := n.cancel
	n.cancel = nil
	n.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Current returns the latest due-soon list.
func (n *Notifier) Current() []api.Task {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]api.Task, len(n.current))
	copy(out, n.current)
	return out
}
