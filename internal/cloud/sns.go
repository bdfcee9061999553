package cloud

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type SNSAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient publishes alert notifications to one topic.
type SNSClient struct {
	svc      SNSAPI
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return NewSNSClientWithAPI(sns.NewFromConfig(cfg), topicArn)
}

func NewSNSClientWithAPI(svc SNSAPI, topicArn string) *SNSClient {
	return &SNSClient{svc: svc, topicArn: topicArn}
}

// SendAlert publishes a message and returns its SNS message id.
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) (string, error) {
	result, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return aws.ToString(result.MessageId), nil
}
