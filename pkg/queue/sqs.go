package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tweetvault/tweetvault/pkg/model"
)

const (
	// SQS batch limit is 10 items per request
	maxElementPerBatch = 10

	maxMessagesPerReceive = 10
)

// SQS implements Publisher and Receiver on top of an SQS queue.
type SQS struct {
	api      sqsiface.SQSAPI
	url      *string
	waitTime time.Duration
}

var (
	_ Publisher = (*SQS)(nil)
	_ Receiver  = (*SQS)(nil)
)

func NewSQS(api sqsiface.SQSAPI, url string, waitTime time.Duration) *SQS {
	if waitTime == 0 {
		waitTime = 20 * time.Second
	}

	return &SQS{
		api:      api,
		url:      aws.String(url),
		waitTime: waitTime,
	}
}

// SendBatch enqueues items in order, chunked to the SQS batch limit.
// Any failed chunk or rejected entry fails the whole call, so callers
// must not treat the batch as durably enqueued.
func (s *SQS) SendBatch(ctx context.Context, items []*model.WorkItem) error {
	for start := 0; start < len(items); start += maxElementPerBatch {
		end := start + maxElementPerBatch
		if end > len(items) {
			end = len(items)
		}

		if err := s.send(ctx, items[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQS) send(ctx context.Context, list []*model.WorkItem) error {
	if len(list) == 0 {
		return nil
	}

	sendInput := &sqs.SendMessageBatchInput{
		QueueUrl: s.url,
	}

	for _, item := range list {
		data, err := json.Marshal(item)
		if err != nil {
			return errors.Wrapf(err, "failed to marshal item %q", item.TweetID)
		}

		sendInput.Entries = append(sendInput.Entries, &sqs.SendMessageBatchRequestEntry{
			Id:          aws.String(item.TweetID),
			MessageBody: aws.String(string(data)),
		})
	}

	out, err := s.api.SendMessageBatchWithContext(ctx, sendInput)
	if err != nil {
		return errors.Wrap(err, "failed to send message batch")
	}

	if len(out.Failed) > 0 {
		first := out.Failed[0]
		return errors.Errorf("broker rejected %d of %d items (first: %s %s)",
			len(out.Failed), len(list), aws.StringValue(first.Id), aws.StringValue(first.Message))
	}

	log.Debugf("sent %d item(s) to SQS", len(list))
	return nil
}

// Receive long polls the queue and decodes a batch of deliveries.
// Messages with unparseable bodies can never succeed, so they are
// deleted right away instead of cycling through redelivery.
func (s *SQS) Receive(ctx context.Context) ([]*Delivery, error) {
	out, err := s.api.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            s.url,
		MaxNumberOfMessages: aws.Int64(maxMessagesPerReceive),
		WaitTimeSeconds:     aws.Int64(int64(s.waitTime / time.Second)),
		AttributeNames: []*string{
			aws.String(sqs.MessageSystemAttributeNameApproximateReceiveCount),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to receive messages")
	}

	deliveries := make([]*Delivery, 0, len(out.Messages))

	for _, msg := range out.Messages {
		var item model.WorkItem
		if err := json.Unmarshal([]byte(aws.StringValue(msg.Body)), &item); err != nil {
			log.WithError(err).Errorf("dropping malformed message %s", aws.StringValue(msg.MessageId))

			if _, err := s.api.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      s.url,
				ReceiptHandle: msg.ReceiptHandle,
			}); err != nil {
				log.WithError(err).Error("failed to delete malformed message")
			}

			continue
		}

		attempts := 1
		if v, ok := msg.Attributes[sqs.MessageSystemAttributeNameApproximateReceiveCount]; ok {
			if n, err := strconv.Atoi(aws.StringValue(v)); err == nil {
				attempts = n
			}
		}

		deliveries = append(deliveries, &Delivery{
			Item:          &item,
			Attempts:      attempts,
			receiptHandle: aws.StringValue(msg.ReceiptHandle),
		})
	}

	return deliveries, nil
}

func (s *SQS) Ack(ctx context.Context, d *Delivery) error {
	_, err := s.api.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      s.url,
		ReceiptHandle: aws.String(d.receiptHandle),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to ack item %q", d.Item.TweetID)
	}

	return nil
}
