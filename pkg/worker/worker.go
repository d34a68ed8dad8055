// Package worker drains the work queue: for every queued tweet it
// resolves media, streams it into storage, persists the record and
// acknowledges the delivery.
package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tweetvault/tweetvault/pkg/media"
	"github.com/tweetvault/tweetvault/pkg/model"
	"github.com/tweetvault/tweetvault/pkg/queue"
	"github.com/tweetvault/tweetvault/pkg/storage"
)

// Transferrer copies media bytes from their source to durable storage.
type Transferrer interface {
	Transfer(ctx context.Context, m model.ResolvedMedia) (string, error)
}

// Notifier is told about every newly archived tweet.
type Notifier interface {
	Archived(ctx context.Context)
}

type Config struct {
	// MaxAttempts bounds redeliveries of a failing item before it is
	// dropped with a terminal error.
	MaxAttempts int
	// MediaConcurrency caps parallel media transfers within one item.
	MediaConcurrency int
}

type Worker struct {
	queue    queue.Receiver
	transfer Transferrer
	store    storage.Storage
	notifier Notifier
	cfg      Config
}

func New(q queue.Receiver, transfer Transferrer, store storage.Storage, notifier Notifier, cfg Config) *Worker {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 5
	}

	if cfg.MediaConcurrency == 0 {
		cfg.MediaConcurrency = 4
	}

	return &Worker{
		queue:    q,
		transfer: transfer,
		store:    store,
		notifier: notifier,
		cfg:      cfg,
	}
}

// Run drains the queue until the context is canceled. Item failures
// are contained: nothing an individual tweet does can stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	log.Info("starting ingestion worker")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := w.queue.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			log.WithError(err).Error("failed to receive work items")

			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}

			continue
		}

		for _, d := range deliveries {
			w.handle(ctx, d)
		}
	}
}

func (w *Worker) handle(ctx context.Context, d *queue.Delivery) {
	logger := log.WithFields(log.Fields{
		"tweet_id": d.Item.TweetID,
		"attempt":  d.Attempts,
	})

	archived, err := w.process(ctx, d.Item)
	if err == nil {
		if err := w.queue.Ack(ctx, d); err != nil {
			// The record is persisted; redelivery will be a no-op.
			logger.WithError(err).Error("failed to ack work item")
			return
		}

		if archived {
			w.notifier.Archived(ctx)
		}

		return
	}

	if d.Attempts >= w.cfg.MaxAttempts {
		logger.WithError(err).Errorf("dropping tweet after %d failed attempts", d.Attempts)

		if err := w.queue.Ack(ctx, d); err != nil {
			logger.WithError(err).Error("failed to remove poisoned work item")
		}

		return
	}

	// Left unacknowledged: the broker redelivers it after the
	// visibility timeout expires.
	logger.WithError(err).Warn("failed to archive tweet, will retry")
}

// process archives one tweet. It returns true when a new record was
// persisted, false when the tweet was already archived. On any media
// transfer failure the whole item fails and nothing is persisted,
// partial records are never written.
func (w *Worker) process(ctx context.Context, item *model.WorkItem) (bool, error) {
	logger := log.WithField("tweet_id", item.TweetID)

	resolved := make([]model.ResolvedMedia, 0, len(item.Media))
	for _, m := range item.Media {
		r, err := media.Resolve(m)
		if err != nil {
			// Upstream data fault on a single attachment. The tweet is
			// still archived, just with fewer media locations.
			logger.WithError(err).Warnf("skipping media %s", m.MediaKey)
			continue
		}

		resolved = append(resolved, r)
	}

	locations := make([]string, len(resolved))

	group, groupCtx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, w.cfg.MediaConcurrency)

	for i, m := range resolved {
		i, m := i, m

		group.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			location, err := w.transfer.Transfer(groupCtx, m)
			if err != nil {
				return err
			}

			locations[i] = location
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return false, errors.Wrap(err, "failed to transfer media")
	}

	tweet := &model.Tweet{
		TweetID:        item.TweetID,
		Text:           item.Text,
		CreatedAt:      item.CreatedAt,
		MediaLocations: locations,
		IngestedAt:     time.Now().UTC(),
	}

	if err := w.store.SaveTweet(ctx, tweet); err != nil {
		if err == model.ErrAlreadyExists {
			// At-least-once redelivery, nothing to do.
			logger.Debug("tweet already archived")
			return false, nil
		}

		return false, errors.Wrap(err, "failed to persist tweet")
	}

	logger.Infof("archived tweet with %d media file(s)", len(locations))
	return true, nil
}
