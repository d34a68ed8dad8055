// Package db keeps the pipeline's local durable state: the timeline
// cursor marking how far ingestion has progressed.
package db

import (
	"context"
	"os"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/model"
)

var cursorKey = []byte("tweetvault/cursor")

// Config represents database configuration parameters
type Config struct {
	// Dir is a directory to keep database files
	Dir string `toml:"dir"`
}

// CursorStore persists the ID of the most recently enqueued tweet.
// The fetcher is the only writer, so no additional locking is layered
// on top of badger's transactions.
type CursorStore struct {
	db *badger.DB
}

func NewCursorStore(config Config) (*CursorStore, error) {
	dir := config.Dir

	log.Infof("opening database %q", dir)

	// Make sure database directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "could not mkdir database dir")
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(log.StandardLogger()).
		WithTruncate(true)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	return &CursorStore{db: db}, nil
}

func (c *CursorStore) Close() error {
	log.Debug("closing database")
	return c.db.Close()
}

// Get returns the saved cursor, or model.ErrNotFound if no poll cycle
// has completed yet.
func (c *CursorStore) Get(_ context.Context) (string, error) {
	var id string

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cursorKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return model.ErrNotFound
			}
			return err
		}

		value, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}

		id = string(value)
		return nil
	})
	if err != nil {
		if err == model.ErrNotFound {
			return "", err
		}
		return "", errors.Wrap(err, "failed to read cursor")
	}

	return id, nil
}

func (c *CursorStore) Set(_ context.Context, id string) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cursorKey, []byte(id))
	})
	if err != nil {
		return errors.Wrapf(err, "failed to save cursor %q", id)
	}

	return nil
}
