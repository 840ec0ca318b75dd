package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Sender sends SMS messages via AWS SNS.
type Sender struct {
	client *sns.Client
}

func NewSender(awsCfg aws.Config) *Sender {
	return &Sender{client: sns.NewFromConfig(awsCfg)}
}

// SendSMS publishes message to an E.164 phone number and returns the SNS message id.
func (s *Sender) SendSMS(ctx context.Context, to, message string) (string, error) {
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("sns publish: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}
