// Package storage persists archived tweets to a document store.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	attr "github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/model"
)

// Storage is the document store for archived tweets.
type Storage interface {
	// SaveTweet inserts a record, returning model.ErrAlreadyExists if a
	// record with the same tweet ID is already persisted.
	SaveTweet(ctx context.Context, tweet *model.Tweet) error

	// MostRecent returns the newest archived tweet, or model.ErrNotFound
	// when the store is empty. Used to seed the cursor on cold start.
	MostRecent(ctx context.Context) (*model.Tweet, error)
}

// sortIDWidth fits the largest possible uint64 snowflake, so padded
// lexicographic order equals numeric order.
const sortIDWidth = 20

/*
Tweets:
	Table name:         Tweets (configurable)
	Partition key:      AccountID (String)
	Sort key:           SortID (String, zero-padded tweet ID)
	No secondary indexes needed
*/
type Dynamo struct {
	dynamo    dynamodbiface.DynamoDBAPI
	table     *string
	accountID string
}

var _ Storage = (*Dynamo)(nil)

func NewDynamo(api dynamodbiface.DynamoDBAPI, table, accountID string) (*Dynamo, error) {
	if table == "" {
		return nil, errors.New("table name can't be empty")
	}

	if accountID == "" {
		return nil, errors.New("account id can't be empty")
	}

	return &Dynamo{
		dynamo:    api,
		table:     aws.String(table),
		accountID: accountID,
	}, nil
}

// Ping verifies connectivity and credentials, so misconfiguration is
// caught at startup instead of on the first archived tweet.
func (d *Dynamo) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := d.dynamo.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: d.table,
	})
	return errors.Wrap(err, "failed to describe tweets table")
}

type record struct {
	AccountID      string    `dynamodbav:"AccountID"`
	SortID         string    `dynamodbav:"SortID"`
	TweetID        string    `dynamodbav:"TweetID"`
	Text           string    `dynamodbav:"Text"`
	CreatedAt      time.Time `dynamodbav:"CreatedAt"`
	MediaLocations []string  `dynamodbav:"MediaLocations,omitempty"`
	IngestedAt     time.Time `dynamodbav:"IngestedAt"`
}

func (d *Dynamo) SaveTweet(ctx context.Context, tweet *model.Tweet) error {
	logger := log.WithField("tweet_id", tweet.TweetID)

	item, err := attr.MarshalMap(record{
		AccountID:      d.accountID,
		SortID:         padID(tweet.TweetID),
		TweetID:        tweet.TweetID,
		Text:           tweet.Text,
		CreatedAt:      tweet.CreatedAt,
		MediaLocations: tweet.MediaLocations,
		IngestedAt:     tweet.IngestedAt,
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal tweet record")
	}

	input := &dynamodb.PutItemInput{
		TableName:           d.table,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(SortID)"),
	}

	if _, err := d.dynamo.PutItemWithContext(ctx, input); err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return model.ErrAlreadyExists
		}

		logger.WithError(err).Error("failed to save tweet record")
		return errors.Wrapf(err, "failed to save tweet %q", tweet.TweetID)
	}

	return nil
}

func (d *Dynamo) MostRecent(ctx context.Context) (*model.Tweet, error) {
	out, err := d.dynamo.QueryWithContext(ctx, &dynamodb.QueryInput{
		TableName:              d.table,
		KeyConditionExpression: aws.String("AccountID = :account"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":account": {S: aws.String(d.accountID)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int64(1),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to query most recent tweet")
	}

	if len(out.Items) == 0 {
		return nil, model.ErrNotFound
	}

	var rec record
	if err := attr.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal tweet record")
	}

	return &model.Tweet{
		TweetID:        rec.TweetID,
		Text:           rec.Text,
		CreatedAt:      rec.CreatedAt,
		MediaLocations: rec.MediaLocations,
		IngestedAt:     rec.IngestedAt,
	}, nil
}

func padID(id string) string {
	if len(id) >= sortIDWidth {
		return id
	}

	return strings.Repeat("0", sortIDWidth-len(id)) + id
}
