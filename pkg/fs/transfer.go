package fs

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/model"
)

// Transferrer pipes media bytes from their source URL into Storage.
// The source body is handed to the uploader as-is, so reads and chunk
// writes overlap and memory stays bounded regardless of object size.
type Transferrer struct {
	client  *http.Client
	storage Storage
}

func NewTransferrer(storage Storage) *Transferrer {
	// No client timeout: large videos legitimately take minutes, and
	// cancellation comes from the request context instead.
	return &Transferrer{
		client:  &http.Client{},
		storage: storage,
	}
}

// Transfer downloads resolved media and streams it into storage,
// returning the destination location.
func (t *Transferrer) Transfer(ctx context.Context, m model.ResolvedMedia) (string, error) {
	logger := log.WithFields(log.Fields{
		"source": m.SourceURL,
		"name":   m.Name,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.SourceURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "failed to build media request")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch media from %q", m.SourceURL)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status code %d fetching %q", resp.StatusCode, m.SourceURL)
	}

	location, written, err := t.storage.Create(ctx, m.Name, m.ContentType, resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to store media %q", m.Name)
	}

	logger.Debugf("transferred %d bytes to %s", written, location)
	return location, nil
}
