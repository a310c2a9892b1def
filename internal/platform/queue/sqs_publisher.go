package queue

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/RedHatInsights/identity-event-forwarder/internal/delivery"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
)

// SQS accepts at most ten entries per SendMessageBatch call.
const sqsMaxBatchEntries = 10

type sqsAPI interface {
	GetQueueAttributesWithContext(ctx aws.Context, input *sqs.GetQueueAttributesInput, opts ...request.Option) (*sqs.GetQueueAttributesOutput, error)
	SendMessageBatchWithContext(ctx aws.Context, input *sqs.SendMessageBatchInput, opts ...request.Option) (*sqs.SendMessageBatchOutput, error)
}

type SqsConnector struct {
	queueURL string
	region   string

	newClient func(region string) (sqsAPI, error)
}

func NewSqsConnector(queueURL string, region string) *SqsConnector {
	return &SqsConnector{queueURL: queueURL, region: region, newClient: newSqsClient}
}

func newSqsClient(region string) (sqsAPI, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, err
	}
	return sqs.New(sess), nil
}

func (c *SqsConnector) Connect(ctx context.Context) (delivery.Publisher, error) {
	client, err := c.newClient(c.region)
	if err != nil {
		return nil, fmt.Errorf("sqs session: %w", err)
	}

	_, err = client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(c.queueURL),
		AttributeNames: []*string{aws.String(sqs.QueueAttributeNameQueueArn)},
	})
	if err != nil {
		return nil, fmt.Errorf("sqs handshake with %s failed: %w", c.queueURL, err)
	}

	return &SqsPublisher{
		client:   client,
		queueURL: c.queueURL,
		fifo:     strings.HasSuffix(c.queueURL, ".fifo"),
	}, nil
}

// SqsPublisher sends a batch in chunks of ten.  A chunk with any failed entry
// fails the whole Publish call, so earlier chunks may be delivered twice when the
// batch is retried.
type SqsPublisher struct {
	client   sqsAPI
	queueURL string
	fifo     bool
}

func (p *SqsPublisher) Publish(ctx context.Context, msgs []delivery.Message) error {
	for start := 0; start < len(msgs); start += sqsMaxBatchEntries {
		end := start + sqsMaxBatchEntries
		if end > len(msgs) {
			end = len(msgs)
		}

		if err := p.sendChunk(ctx, msgs[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func (p *SqsPublisher) sendChunk(ctx context.Context, msgs []delivery.Message) error {
	entries := make([]*sqs.SendMessageBatchRequestEntry, len(msgs))

	for i, msg := range msgs {
		entry := &sqs.SendMessageBatchRequestEntry{
			Id:          aws.String(strconv.Itoa(i)),
			MessageBody: aws.String(string(msg.Value)),
			MessageAttributes: map[string]*sqs.MessageAttributeValue{
				EventTypeHeader: {DataType: aws.String("String"), StringValue: aws.String(msg.EventType.String())},
				EventIDHeader:   {DataType: aws.String("String"), StringValue: aws.String(msg.EventID.String())},
			},
		}

		if p.fifo {
			group := string(msg.Key)
			if group == "" {
				group = "identity-events"
			}
			entry.MessageGroupId = aws.String(group)
			entry.MessageDeduplicationId = aws.String(msg.EventID.String())
		}

		entries[i] = entry
	}

	output, err := p.client.SendMessageBatchWithContext(ctx, &sqs.SendMessageBatchInput{
		QueueUrl: aws.String(p.queueURL),
		Entries:  entries,
	})
	if err != nil {
		return err
	}

	if len(output.Failed) == 0 {
		return nil
	}

	failed := output.Failed[0]
	err = fmt.Errorf("sqs rejected %d of %d messages: %s: %s",
		len(output.Failed), len(entries), aws.StringValue(failed.Code), aws.StringValue(failed.Message))

	for _, f := range output.Failed {
		if aws.BoolValue(f.SenderFault) {
			return delivery.Unrecoverable(err)
		}
	}

	return err
}

func (p *SqsPublisher) Close() error {
	return nil
}
