package mail

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/unitchange-alerts/internal/pkg/logger"
)

// SESConfig configures the SES transport. Without static keys the default
// AWS credential chain is used.
type SESConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	From      string
}

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends mail through AWS SES v2.
type SESSender struct {
	client sesAPI
	from   string
}

// NewSESSender loads AWS configuration and builds the SES client.
func NewSESSender(ctx context.Context, cfg SESConfig) (*SESSender, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, fmt.Errorf("ses sender requires a from address")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SESSender{client: sesv2.NewFromConfig(awsCfg), from: cfg.From}, nil
}

// Send delivers msg as a simple UTF-8 HTML message.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	to := strings.TrimSpace(msg.To)
	if to == "" {
		return ErrNoRecipient
	}

	dest := &types.Destination{ToAddresses: []string{to}}
	if cc := ccList(msg); len(cc) > 0 {
		dest.CcAddresses = cc
	}

	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      dest,
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", logger.RedactEmail(to), err)
	}

	logger.Debug("ses mail accepted", "recipient", to, "message_id", aws.ToString(out.MessageId))
	return nil
}
