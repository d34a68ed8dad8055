// Package fetcher drives one poll cycle against the timeline API:
// read the cursor, fetch what's new, enqueue it oldest first, and only
// then advance the cursor.
package fetcher

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/model"
	"github.com/tweetvault/tweetvault/pkg/queue"
	"github.com/tweetvault/tweetvault/pkg/twitter"
)

type TimelineService interface {
	Timeline(ctx context.Context, q twitter.TimelineQuery) (*twitter.Timeline, error)
}

// CursorStore tracks the most recent tweet ID known to be durably
// enqueued. The fetcher is its only writer.
type CursorStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, id string) error
}

// RecentStore is the slice of the document store used for cold-start
// recovery when no cursor has been written yet.
type RecentStore interface {
	MostRecent(ctx context.Context) (*model.Tweet, error)
}

type Config struct {
	// PageSize is the number of tweets requested per timeline page.
	PageSize int
	// MaxPages bounds how many continuation pages one poll consumes.
	MaxPages int
	// StartTime is the archival epoch, used when neither a cursor nor
	// an archived record exists.
	StartTime time.Time
}

type Fetcher struct {
	timeline  TimelineService
	cursor    CursorStore
	store     RecentStore
	publisher queue.Publisher
	cfg       Config
}

func New(timeline TimelineService, cursor CursorStore, store RecentStore, publisher queue.Publisher, cfg Config) *Fetcher {
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}

	if cfg.MaxPages == 0 {
		cfg.MaxPages = 10
	}

	return &Fetcher{
		timeline:  timeline,
		cursor:    cursor,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Poll runs one fetch-and-enqueue cycle. Any error leaves the cursor
// untouched, so the next tick re-fetches the same window.
func (f *Fetcher) Poll(ctx context.Context) error {
	started := time.Now()

	sinceID, err := f.seedCursor(ctx)
	if err != nil {
		return err
	}

	pages, err := f.fetchPages(ctx, sinceID)
	if err != nil {
		return err
	}

	if len(pages) == 0 {
		log.Debug("timeline is up to date")
		return nil
	}

	// Pages arrive newest first. Enqueue the oldest page first so the
	// cursor only ever moves forward: a crash mid-cycle leaves newer,
	// not-yet-enqueued pages for the next poll to re-fetch.
	total := 0
	for i := len(pages) - 1; i >= 0; i-- {
		page := pages[i]
		items := buildWorkItems(page)

		if err := f.publisher.SendBatch(ctx, items); err != nil {
			return errors.Wrap(err, "failed to enqueue page")
		}

		if err := f.cursor.Set(ctx, page.Data[0].ID); err != nil {
			return errors.Wrap(err, "failed to advance cursor")
		}

		total += len(items)
	}

	log.Infof("enqueued %d tweet(s) in %s", total, time.Since(started))
	return nil
}

// seedCursor returns the since_id to poll from. An empty string means
// no archive exists yet and the configured epoch applies.
func (f *Fetcher) seedCursor(ctx context.Context) (string, error) {
	sinceID, err := f.cursor.Get(ctx)
	if err == nil {
		return sinceID, nil
	}

	if err != model.ErrNotFound {
		return "", errors.Wrap(err, "failed to read cursor")
	}

	recent, err := f.store.MostRecent(ctx)
	if err == nil {
		log.Debugf("seeding cursor from most recent archived tweet %s", recent.TweetID)
		return recent.TweetID, nil
	}

	if err != model.ErrNotFound {
		return "", errors.Wrap(err, "failed to recover cursor from archive")
	}

	log.Infof("empty archive, starting from %s", f.cfg.StartTime.Format(time.RFC3339))
	return "", nil
}

func (f *Fetcher) fetchPages(ctx context.Context, sinceID string) ([]*twitter.Timeline, error) {
	var (
		pages []*twitter.Timeline
		token string
	)

	for i := 0; i < f.cfg.MaxPages; i++ {
		q := twitter.TimelineQuery{
			SinceID:         sinceID,
			PaginationToken: token,
			MaxResults:      f.cfg.PageSize,
		}

		if sinceID == "" {
			q.StartTime = f.cfg.StartTime
		}

		page, err := f.timeline.Timeline(ctx, q)
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch timeline page")
		}

		if page.Meta.ResultCount == 0 || len(page.Data) == 0 {
			break
		}

		pages = append(pages, page)

		token = page.Meta.NextToken
		if token == "" {
			break
		}
	}

	return pages, nil
}

// buildWorkItems turns one newest-first page into oldest-first work
// items with their media descriptors inlined.
func buildWorkItems(page *twitter.Timeline) []*model.WorkItem {
	mediaByKey := map[string]model.MediaDescriptor{}
	if page.Includes != nil {
		for _, m := range page.Includes.Media {
			mediaByKey[m.MediaKey] = convertMedia(m)
		}
	}

	items := make([]*model.WorkItem, 0, len(page.Data))

	for i := len(page.Data) - 1; i >= 0; i-- {
		tweet := page.Data[i]

		item := &model.WorkItem{
			TweetID:   tweet.ID,
			Text:      tweet.Text,
			CreatedAt: tweet.CreatedAt,
		}

		if tweet.Attachments != nil {
			for _, key := range tweet.Attachments.MediaKeys {
				descriptor, ok := mediaByKey[key]
				if !ok {
					log.Warnf("tweet %s references unknown media key %s", tweet.ID, key)
					continue
				}

				item.Media = append(item.Media, descriptor)
			}
		}

		items = append(items, item)
	}

	return items
}

func convertMedia(m twitter.Media) model.MediaDescriptor {
	descriptor := model.MediaDescriptor{
		MediaKey: m.MediaKey,
		Kind:     model.MediaKind(m.Type),
		URL:      m.URL,
	}

	for _, v := range m.Variants {
		descriptor.Variants = append(descriptor.Variants, model.Variant{
			URL:         v.URL,
			ContentType: v.ContentType,
			BitRate:     v.BitRate,
		})
	}

	return descriptor
}
