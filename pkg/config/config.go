package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/tweetvault/tweetvault/pkg/db"
	"github.com/tweetvault/tweetvault/pkg/fs"
)

// Twitter configures the upstream timeline API.
type Twitter struct {
	// BaseURL overrides the API endpoint (tests, proxies)
	BaseURL string `toml:"base_url"`
	// UserID is the numeric ID of the account to archive
	UserID string `toml:"user_id"`
	// BearerToken is the app-only OAuth token.
	// Falls back to the TWITTER_BEARER_TOKEN environment variable.
	BearerToken string `toml:"bearer_token"`
	// PageSize is the number of tweets per timeline request (5..100)
	PageSize int `toml:"page_size"`
	// MaxPages bounds continuation pages consumed per poll
	MaxPages int `toml:"max_pages"`
	// StartTime is the archival epoch for an empty archive
	StartTime Time `toml:"start_time"`
}

// Updater configures the poll schedule.
type Updater struct {
	// Schedule is a cron expression, e.g. "@every 5m".
	// Overlapping runs are skipped, not queued.
	Schedule string `toml:"schedule"`
}

type LocalStorage struct {
	// DataDir is where media files are kept
	DataDir string `toml:"data_dir"`
	// Hostname to use for media links
	Hostname string `toml:"hostname"`
}

// Storage selects exactly one media storage backend.
type Storage struct {
	S3    *fs.S3Config  `toml:"s3"`
	Local *LocalStorage `toml:"local"`
}

// Queue configures the SQS work queue.
type Queue struct {
	URL    string `toml:"url"`
	Region string `toml:"region"`
	// WaitTime is the long poll duration for receives
	WaitTime Duration `toml:"wait_time"`
}

// Dynamo configures the archived tweets table.
type Dynamo struct {
	Table       string `toml:"table"`
	Region      string `toml:"region"`
	EndpointURL string `toml:"endpoint_url"`
	// AccountID is the partition key value for this archive
	AccountID string `toml:"account_id"`
}

// Worker configures archival processing.
type Worker struct {
	// MaxAttempts bounds redeliveries before an item is dropped
	MaxAttempts int `toml:"max_attempts"`
	// MediaConcurrency caps parallel media transfers per tweet
	MediaConcurrency int `toml:"media_concurrency"`
}

// Notify configures batched notifications.
type Notify struct {
	// WebhookURL receives the "new items" events, empty disables them
	WebhookURL string `toml:"webhook_url"`
	// Threshold is the number of archived tweets per event
	Threshold int `toml:"threshold"`
}

type Config struct {
	Twitter  Twitter   `toml:"twitter"`
	Updater  Updater   `toml:"updater"`
	Storage  Storage   `toml:"storage"`
	Queue    Queue     `toml:"queue"`
	Dynamo   Dynamo    `toml:"dynamo"`
	Database db.Config `toml:"database"`
	Worker   Worker    `toml:"worker"`
	Notify   Notify    `toml:"notify"`
}

// LoadConfig loads TOML configuration from a file path
func LoadConfig(path string) (*Config, error) {
	config := Config{}
	_, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config file")
	}

	config.applyDefaults(path)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	var result *multierror.Error

	if c.Twitter.UserID == "" {
		result = multierror.Append(result, errors.New("twitter user id is required"))
	}

	if c.Twitter.BearerToken == "" {
		result = multierror.Append(result, errors.New("twitter bearer token is required"))
	}

	if c.Queue.URL == "" {
		result = multierror.Append(result, errors.New("queue URL is required"))
	}

	if c.Dynamo.Table == "" {
		result = multierror.Append(result, errors.New("dynamo table name is required"))
	}

	switch {
	case c.Storage.S3 != nil && c.Storage.Local != nil:
		result = multierror.Append(result, errors.New("exactly one storage backend must be configured"))
	case c.Storage.S3 != nil:
		if c.Storage.S3.Bucket == "" {
			result = multierror.Append(result, errors.New("s3 bucket is required"))
		}
	case c.Storage.Local != nil:
		if c.Storage.Local.DataDir == "" {
			result = multierror.Append(result, errors.New("local storage data dir is required"))
		}
		if c.Storage.Local.Hostname == "" {
			result = multierror.Append(result, errors.New("local storage hostname is required"))
		}
	default:
		result = multierror.Append(result, errors.New("storage backend is required"))
	}

	return result.ErrorOrNil()
}

func (c *Config) applyDefaults(configPath string) {
	if c.Twitter.BearerToken == "" {
		c.Twitter.BearerToken = os.Getenv("TWITTER_BEARER_TOKEN")
	}

	if c.Twitter.PageSize == 0 {
		c.Twitter.PageSize = 100
	}

	if c.Twitter.MaxPages == 0 {
		c.Twitter.MaxPages = 10
	}

	if c.Updater.Schedule == "" {
		c.Updater.Schedule = "@every 5m"
	}

	if c.Dynamo.AccountID == "" {
		c.Dynamo.AccountID = c.Twitter.UserID
	}

	if c.Database.Dir == "" {
		c.Database.Dir = filepath.Join(filepath.Dir(configPath), "db")
	}

	if c.Worker.MaxAttempts == 0 {
		c.Worker.MaxAttempts = 5
	}

	if c.Worker.MediaConcurrency == 0 {
		c.Worker.MediaConcurrency = 4
	}

	if c.Notify.Threshold == 0 {
		c.Notify.Threshold = 10
	}
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type Time struct {
	time.Time
}

func (t *Time) UnmarshalText(text []byte) error {
	var err error
	t.Time, err = time.Parse(time.RFC3339, string(text))
	return err
}
