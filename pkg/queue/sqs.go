package queue

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/openindexer/indexerd/pkg/errors"
	"github.com/openindexer/indexerd/pkg/logger"
)

const (
	defaultRegion      = "us-east-1"
	defaultWaitSeconds = 20
	receiveBatchSize   = 10
)

// Config holds SQS connection settings
type Config struct {
	// Region is the AWS region
	Region string `mapstructure:"region" yaml:"region"`
	// Endpoint overrides the service endpoint, for the local emulator
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// AccessKeyID and SecretAccessKey are static credentials for the emulator
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	// StartQueueURL receives ids of indexers to start
	StartQueueURL string `mapstructure:"start_queue_url" yaml:"start_queue_url"`
	// FailedQueueURL receives ids of indexers whose process died
	FailedQueueURL string `mapstructure:"failed_queue_url" yaml:"failed_queue_url"`
}

// NewSQSClient creates an SQS client honoring emulator overrides
func NewSQSClient(ctx context.Context, cfg *Config) (*sqs.Client, error) {
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to load AWS configuration")
	}

	client := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return client, nil
}

var (
	_ Publisher = (*SQSQueue)(nil)
	_ Consumer  = (*SQSQueue)(nil)
)

// SQSQueue is a Publisher and Consumer bound to one queue URL
type SQSQueue struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewSQSQueue binds a client to a queue URL
func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:   client,
		queueURL: queueURL,
		logger:   logger.With(zap.String("component", "sqs_queue"), zap.String("queue_url", queueURL)),
	}
}

// Publish sends body to the queue
func (q *SQSQueue) Publish(ctx context.Context, body string) error {
	_, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQueue, "failed to publish message")
	}
	q.logger.Debug("message published", zap.String("body", body))
	return nil
}

// Purge drops all pending messages. Intended for tests.
func (q *SQSQueue) Purge(ctx context.Context) error {
	_, err := q.client.PurgeQueue(ctx, &sqs.PurgeQueueInput{
		QueueUrl: aws.String(q.queueURL),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeQueue, "failed to purge queue")
	}
	return nil
}

// Health verifies the queue is reachable
func (q *SQSQueue) Health(ctx context.Context) error {
	_, err := q.client.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.queueURL),
		AttributeNames: []types.QueueAttributeName{types.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeHealth, "queue not reachable")
	}
	return nil
}

// Consume long-polls the queue until ctx is cancelled. Messages are deleted
// only after the handler succeeds, so failed handling redelivers.
func (q *SQSQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(q.queueURL),
			MaxNumberOfMessages: receiveBatchSize,
			WaitTimeSeconds:     defaultWaitSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.logger.Warn("receive failed, backing off", zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, msg := range out.Messages {
			body := aws.ToString(msg.Body)
			if err := handler(ctx, body); err != nil {
				q.logger.Error("handler failed, message will redeliver",
					zap.String("body", body), zap.Error(err))
				continue
			}

			_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      aws.String(q.queueURL),
				ReceiptHandle: msg.ReceiptHandle,
			})
			if err != nil {
				q.logger.Warn("failed to delete message", zap.Error(err))
			}
		}
	}
}
