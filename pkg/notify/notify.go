// Package notify coalesces per-tweet completions into batched
// "new items" events.
package notify

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

const EventNewItems = "new items"

// Event is the single outbound notification type.
type Event struct {
	Name  string `json:"event"`
	Count int    `json:"count"`
}

// Emitter delivers events to connected observers. Delivery is
// fire-and-forget, failures are logged and the batch is not replayed.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Notifier counts archived tweets and emits one event per threshold
// batch. The counter is process-local: a restart drops a partial
// batch, which is accepted.
type Notifier struct {
	mu        sync.Mutex
	count     int
	threshold int
	emitter   Emitter
}

func NewNotifier(threshold int, emitter Emitter) *Notifier {
	return &Notifier{
		threshold: threshold,
		emitter:   emitter,
	}
}

// Archived records one completed tweet, firing a batched event when
// the threshold is reached.
func (n *Notifier) Archived(ctx context.Context) {
	if n.threshold <= 0 || n.emitter == nil {
		return
	}

	n.mu.Lock()
	n.count++
	if n.count < n.threshold {
		n.mu.Unlock()
		return
	}

	count := n.count
	n.count = 0
	n.mu.Unlock()

	if err := n.emitter.Emit(ctx, Event{Name: EventNewItems, Count: count}); err != nil {
		log.WithError(err).Error("failed to emit notification")
	}
}
