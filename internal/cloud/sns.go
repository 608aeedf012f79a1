package cloud

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog/log"
)

// SNS rejects subjects longer than this or containing line breaks.
const maxSubjectLen = 100

type snsAPI interface {
	Publish(ctx context.Context, in *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSClient wraps AWS SNS client for notification operations
type SNSClient struct {
	svc      snsAPI
	topicArn string
	now      func() time.Time
}

// NewSNSClient creates a new SNS client instance
func NewSNSClient(ctx context.Context, region, topicArn string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return &SNSClient{
		svc:      sns.NewFromConfig(cfg),
		topicArn: topicArn,
		now:      time.Now,
	}, nil
}

// SendAlert sends an alert notification via SNS
func (c *SNSClient) SendAlert(ctx context.Context, subject, message string) error {
	input := &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(alertSubject(subject)),
		Message:  aws.String(message),
	}

	result, err := c.svc.Publish(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to publish to SNS: %w", err)
	}

	log.Debug().Str("message_id", aws.ToString(result.MessageId)).Msg("alert sent")
	return nil
}

// alertSubject maps anything outside printable ASCII to a space and
// shortens the result to maxSubjectLen.
func alertSubject(subject string) string {
	subject = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return ' '
		}
		return r
	}, subject)
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen-3] + "..."
	}
	return subject
}

// NotifyRejected reports a submission discarded for an out-of-range value.
func (c *SNSClient) NotifyRejected(ctx context.Context, deviceKey, clientID string, reason error) error {
	subject := fmt.Sprintf("Sensor Alert: out-of-range reading from %s", deviceKey)
	if clientID == "" {
		clientID = "(anonymous)"
	}
	message := fmt.Sprintf(
		"Out-of-range Reading Rejected\n\n"+
			"Device: %s\n"+
			"Client: %s\n"+
			"Reason: %v\n"+
			"Time: %s\n\n"+
			"Check the sensor calibration.",
		deviceKey,
		clientID,
		reason,
		c.now().Format(time.RFC3339),
	)

	return c.SendAlert(ctx, subject, message)
}
