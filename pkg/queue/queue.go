// Package queue decouples timeline fetching from media archival via a
// durable, at-least-once work queue.
package queue

import (
	"context"

	"github.com/tweetvault/tweetvault/pkg/model"
)

// Publisher enqueues fetched tweets for archival. SendBatch returns an
// error unless every item was durably accepted by the broker, which is
// what lets the fetcher advance its cursor safely.
type Publisher interface {
	SendBatch(ctx context.Context, items []*model.WorkItem) error
}

// Delivery is one received work item. Attempts counts deliveries of
// this message including the current one.
type Delivery struct {
	Item     *model.WorkItem
	Attempts int

	receiptHandle string
}

// Receiver hands out queued work items. A delivery that is never acked
// becomes visible again after the broker's visibility timeout, which
// is the only redelivery mechanism.
type Receiver interface {
	// Receive blocks (long poll) until items arrive, the context is
	// canceled or an error occurs. May return an empty slice.
	Receive(ctx context.Context) ([]*Delivery, error)

	// Ack removes a delivery from the queue.
	Ack(ctx context.Context, d *Delivery) error
}
