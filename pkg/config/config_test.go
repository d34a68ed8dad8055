package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[twitter]
user_id = "1260553941714186241"
bearer_token = "secret"
page_size = 50
start_time = "2022-11-25T00:00:00Z"

[updater]
schedule = "@every 10m"

[storage.s3]
bucket = "tweet-media"
region = "eu-west-1"

[queue]
url = "https://sqs.eu-west-1.amazonaws.com/123/tweets"
wait_time = "10s"

[dynamo]
table = "Tweets"
region = "eu-west-1"

[notify]
webhook_url = "https://example.com/hooks/new-items"
threshold = 25
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "1260553941714186241", cfg.Twitter.UserID)
	assert.Equal(t, "secret", cfg.Twitter.BearerToken)
	assert.Equal(t, 50, cfg.Twitter.PageSize)
	assert.True(t, cfg.Twitter.StartTime.Equal(time.Date(2022, 11, 25, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "@every 10m", cfg.Updater.Schedule)

	require.NotNil(t, cfg.Storage.S3)
	assert.Equal(t, "tweet-media", cfg.Storage.S3.Bucket)
	assert.Nil(t, cfg.Storage.Local)

	assert.Equal(t, 10*time.Second, cfg.Queue.WaitTime.Duration)
	assert.Equal(t, "Tweets", cfg.Dynamo.Table)
	assert.Equal(t, 25, cfg.Notify.Threshold)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, `
[twitter]
user_id = "42"
bearer_token = "secret"

[storage.local]
data_dir = "/var/tweetvault/media"
hostname = "localhost"

[queue]
url = "https://sqs.eu-west-1.amazonaws.com/123/tweets"

[dynamo]
table = "Tweets"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Twitter.PageSize)
	assert.Equal(t, 10, cfg.Twitter.MaxPages)
	assert.Equal(t, "@every 5m", cfg.Updater.Schedule)
	assert.Equal(t, "42", cfg.Dynamo.AccountID)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "db"), cfg.Database.Dir)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, 4, cfg.Worker.MediaConcurrency)
	assert.Equal(t, 10, cfg.Notify.Threshold)
}

func TestLoadConfig_BearerTokenFromEnv(t *testing.T) {
	t.Setenv("TWITTER_BEARER_TOKEN", "env-secret")

	path := writeConfig(t, `
[twitter]
user_id = "42"

[storage.local]
data_dir = "/tmp/media"
hostname = "localhost"

[queue]
url = "https://sqs/queue"

[dynamo]
table = "Tweets"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.Twitter.BearerToken)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := writeConfig(t, `
[twitter]
user_id = ""
bearer_token = "secret"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "twitter user id is required")
	assert.Contains(t, err.Error(), "queue URL is required")
	assert.Contains(t, err.Error(), "dynamo table name is required")
	assert.Contains(t, err.Error(), "storage backend is required")
}

func TestLoadConfig_ConflictingStorage(t *testing.T) {
	path := writeConfig(t, `
[twitter]
user_id = "42"
bearer_token = "secret"

[storage.s3]
bucket = "b"

[storage.local]
data_dir = "/tmp"
hostname = "localhost"

[queue]
url = "https://sqs/queue"

[dynamo]
table = "Tweets"
`)

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one storage backend")
}
