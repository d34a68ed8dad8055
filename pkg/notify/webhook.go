package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// Webhook posts events as JSON to a configured URL.
type Webhook struct {
	client *http.Client
	url    string
}

var _ Emitter = (*Webhook)(nil)

func NewWebhook(url string) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("webhook url can't be empty")
	}

	return &Webhook{
		client: &http.Client{Timeout: 10 * time.Second},
		url:    url,
	}, nil
}

func (w *Webhook) Emit(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "failed to build webhook request")
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "webhook request failed")
	}

	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Errorf("unexpected status code %d from webhook", resp.StatusCode)
	}

	return nil
}
