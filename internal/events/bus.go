// Package events is a tiny in-process broadcast channel that lets
// loosely coupled controllers signal each other without importing one
// another.
package events

import "sync"

type Topic string

// TopicTaskAdded fires when the chat assistant reports a task mutation so
// the task list can refresh.
const TopicTaskAdded Topic = "task-added"

type Bus struct {
	mu   sync.Mutex
	subs map[Topic][]chan struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]chan struct{})}
}

// Subscribe returns a channel that receives a signal per publish. The
// channel is buffered; a slow subscriber coalesces bursts instead of
// blocking the publisher.
func (b *Bus) Subscribe(topic Topic) <-chan struct{} {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[topic] = append(b.subs[topic], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) Publish(topic Topic) {
	b.mu.Lock()
	subs := b.subs[topic]
	b.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
