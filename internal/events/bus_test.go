package events

import "testing"

func TestPublishReachesEverySubscriber(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(TopicTaskAdded)
	b := bus.Subscribe(TopicTaskAdded)

	bus.Publish(TopicTaskAdded)

	for name, ch := range map[string]<-chan struct{}{"a": a, "b": b} {
		select {
		case <-ch:
		default:
			t.Fatalf("subscriber %s missed the event", name)
		}
	}
}

func TestPublishNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus()
	_ = bus.Subscribe(TopicTaskAdded)

	// Nobody drains; repeated publishes must coalesce, not deadlock.
	for i := 0; i < 10; i++ {
		bus.Publish(TopicTaskAdded)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	NewBus().Publish(TopicTaskAdded)
}
