// Package sms delivers verification codes through AWS SNS, with a dry-run
// sender for local development.
package sms

import (
	"context"
	"log"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// Sender is the messaging collaborator. Delivery failures are reported as
// errors; callers decide how failure affects their own accounting.
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

type snsSender struct {
	client   *sns.Client
	senderID string
}

// NewSNSSender builds a Sender publishing directly to phone numbers. senderID
// is the alphanumeric originator shown on the handset; empty leaves the
// account default.
func NewSNSSender(ctx context.Context, region, senderID string) (Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &snsSender{client: sns.NewFromConfig(awsCfg), senderID: senderID}, nil
}

func (s *snsSender) Send(ctx context.Context, phone, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
	}
	if s.senderID != "" {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			"AWS.SNS.SMS.SenderID": {
				DataType:    aws.String("String"),
				StringValue: aws.String(s.senderID),
			},
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		}
	}
	_, err := s.client.Publish(ctx, input)
	return err
}

type logSender struct{}

// NewLogSender returns a Sender that only logs, for development without an
// SNS account. The code itself is not logged.
func NewLogSender() Sender {
	return logSender{}
}

func (logSender) Send(ctx context.Context, phone, message string) error {
	log.Println("[SMS] [INFO] dry-run delivery to:", phone)
	return nil
}
