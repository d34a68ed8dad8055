package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// Field selection matches what the archiver persists. Anything
	// else the API could return would be dead weight on the wire.
	mediaFields = "type,url,alt_text,duration_ms,preview_image_url,public_metrics,variants"
	expansions  = "attachments.media_keys"
	tweetFields = "attachments,created_at"
)

type Client struct {
	client      *http.Client
	baseURL     string
	userID      string
	bearerToken string
}

type Config struct {
	// BaseURL overrides the API endpoint, used in tests and for proxies.
	BaseURL string
	// UserID is the numeric ID of the account being archived.
	UserID string
	// BearerToken is the OAuth 2.0 app-only token.
	BearerToken string
	// Timeout for a single timeline request.
	Timeout time.Duration
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.UserID == "" {
		return nil, errors.New("user id can't be empty")
	}

	if cfg.BearerToken == "" {
		return nil, errors.New("bearer token can't be empty")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:      &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		userID:      cfg.UserID,
		bearerToken: cfg.BearerToken,
	}, nil
}

// Timeline fetches one page of the user timeline. The API returns
// tweets newest first, callers are responsible for reordering.
func (c *Client) Timeline(ctx context.Context, q TimelineQuery) (*Timeline, error) {
	endpoint := fmt.Sprintf("%s/2/users/%s/tweets", c.baseURL, c.userID)

	params := url.Values{}
	params.Set("media.fields", mediaFields)
	params.Set("expansions", expansions)
	params.Set("tweet.fields", tweetFields)
	params.Set("max_results", strconv.Itoa(q.MaxResults))

	switch {
	case q.PaginationToken != "":
		params.Set("pagination_token", q.PaginationToken)
	case q.SinceID != "":
		params.Set("since_id", q.SinceID)
	case !q.StartTime.IsZero():
		params.Set("start_time", q.StartTime.UTC().Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build timeline request")
	}

	req.Header.Set("Authorization", "Bearer "+c.bearerToken)

	log.WithFields(log.Fields{
		"since_id": q.SinceID,
		"token":    q.PaginationToken,
	}).Debug("querying user timeline")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "timeline request failed")
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code %d from timeline API", resp.StatusCode)
	}

	var timeline Timeline
	if err := json.NewDecoder(resp.Body).Decode(&timeline); err != nil {
		return nil, errors.Wrap(err, "failed to decode timeline response")
	}

	if timeline.Meta == nil {
		return nil, errors.New("malformed timeline response: missing meta")
	}

	return &timeline, nil
}
