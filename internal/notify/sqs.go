package notify

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/go-faster/errors"

	"github.com/xenking/order-capture/internal/domain/order"
)

// SQSAPI is the subset of *sqs.Client used for sending.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

var _ order.Notifier = (*SQS)(nil)

// SQS sends summaries to an SQS queue.
type SQS struct {
	client   SQSAPI
	queueURL string
}

// NewSQS returns an SQS notifier bound to a queue URL.
func NewSQS(client SQSAPI, queueURL string) *SQS {
	return &SQS{client: client, queueURL: queueURL}
}

// Notify implements order.Notifier.
func (n *SQS) Notify(ctx context.Context, s order.Summary) error {
	if _, err := n.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(n.queueURL),
		MessageBody: aws.String(string(Encode(s))),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"order_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.OrderID),
			},
			"content_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(ContentType),
			},
		},
	}); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}
