package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/jessevdk/go-flags"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tweetvault/tweetvault/pkg/config"
	"github.com/tweetvault/tweetvault/pkg/db"
	"github.com/tweetvault/tweetvault/pkg/fetcher"
	"github.com/tweetvault/tweetvault/pkg/fs"
	"github.com/tweetvault/tweetvault/pkg/notify"
	"github.com/tweetvault/tweetvault/pkg/queue"
	"github.com/tweetvault/tweetvault/pkg/storage"
	"github.com/tweetvault/tweetvault/pkg/twitter"
	"github.com/tweetvault/tweetvault/pkg/worker"
)

type Opts struct {
	ConfigPath string `long:"config" short:"c" default:"config.toml" env:"TWEETVAULT_CONFIG_PATH"`
	Debug      bool   `long:"debug"`
}

var (
	version = "dev"
	commit  = "none"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	// Parse args
	opts := Opts{}
	if _, err := flags.Parse(&opts); err != nil {
		log.WithError(err).Fatal("failed to parse command line arguments")
	}

	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	log.WithFields(log.Fields{
		"version": version,
		"commit":  commit,
	}).Info("running tweetvault")

	log.Debugf("loading configuration %q", opts.ConfigPath)
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration file")
	}

	// Media storage
	var mediaStore fs.Storage
	if cfg.Storage.S3 != nil {
		mediaStore, err = fs.NewS3(*cfg.Storage.S3)
	} else {
		mediaStore, err = fs.NewLocal(cfg.Storage.Local.DataDir, cfg.Storage.Local.Hostname)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to open media storage")
	}

	transferrer := fs.NewTransferrer(mediaStore)

	// Cursor database
	cursors, err := db.NewCursorStore(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("failed to open cursor database")
	}

	defer cursors.Close()

	// Document store
	dynamoSess, err := session.NewSession(aws.NewConfig().
		WithRegion(cfg.Dynamo.Region).
		WithEndpoint(cfg.Dynamo.EndpointURL))
	if err != nil {
		log.WithError(err).Fatal("failed to initialize dynamo session")
	}

	tweets, err := storage.NewDynamo(dynamodb.New(dynamoSess), cfg.Dynamo.Table, cfg.Dynamo.AccountID)
	if err != nil {
		log.WithError(err).Fatal("failed to create tweet store")
	}

	if err := tweets.Ping(ctx); err != nil {
		log.WithError(err).Fatal("tweet store is unreachable")
	}

	// Work queue
	queueSess, err := session.NewSession(aws.NewConfig().WithRegion(cfg.Queue.Region))
	if err != nil {
		log.WithError(err).Fatal("failed to initialize queue session")
	}

	workQueue := queue.NewSQS(sqs.New(queueSess), cfg.Queue.URL, cfg.Queue.WaitTime.Duration)

	// Notifications
	var emitter notify.Emitter
	if cfg.Notify.WebhookURL != "" {
		emitter, err = notify.NewWebhook(cfg.Notify.WebhookURL)
		if err != nil {
			log.WithError(err).Fatal("failed to create notification webhook")
		}
	}

	notifier := notify.NewNotifier(cfg.Notify.Threshold, emitter)

	// Timeline client
	timeline, err := twitter.NewClient(twitter.Config{
		BaseURL:     cfg.Twitter.BaseURL,
		UserID:      cfg.Twitter.UserID,
		BearerToken: cfg.Twitter.BearerToken,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create twitter client")
	}

	poller := fetcher.New(timeline, cursors, tweets, workQueue, fetcher.Config{
		PageSize:  cfg.Twitter.PageSize,
		MaxPages:  cfg.Twitter.MaxPages,
		StartTime: cfg.Twitter.StartTime.Time,
	})

	archiver := worker.New(workQueue, transferrer, tweets, notifier, worker.Config{
		MaxAttempts:      cfg.Worker.MaxAttempts,
		MediaConcurrency: cfg.Worker.MediaConcurrency,
	})

	// Poll on schedule, one cycle at a time
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	group.Go(func() error {
		defer func() {
			log.Info("shutting down cron")
			c.Stop()
		}()

		_, err := c.AddFunc(cfg.Updater.Schedule, func() {
			if err := poller.Poll(ctx); err != nil {
				log.WithError(err).Error("poll cycle failed")
			}
		})
		if err != nil {
			return err
		}

		log.Infof("polling timeline %q", cfg.Updater.Schedule)

		// Catch up immediately after restart
		if err := poller.Poll(ctx); err != nil {
			log.WithError(err).Error("poll cycle failed")
		}

		c.Start()

		<-ctx.Done()
		return ctx.Err()
	})

	// Drain the work queue
	group.Go(func() error {
		return archiver.Run(ctx)
	})

	group.Go(func() error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			cancel()
			return nil
		}
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.WithError(err).Error("wait error")
	}

	log.Info("gracefully stopped")
}
