package external

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"corporate/internal/types"
)

// SESAPI is the subset of the SES v2 client used by SESClient, extracted
// for testability.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// OutboundEmail is one pre-rendered email ready for transmission.
type OutboundEmail struct {
	To       string
	From     string
	FromName string
	ReplyTo  string
	Subject  string
	BodyText string
}

// SESClient delivers email through AWS SES v2.
type SESClient struct {
	api    SESAPI
	logger *slog.Logger
}

// NewSESClient creates an SESClient with a real SES v2 client for the
// given region.
func NewSESClient(ctx context.Context, region string, logger *slog.Logger) (*SESClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return NewSESClientWithAPI(sesv2.NewFromConfig(awsCfg), logger), nil
}

// NewSESClientWithAPI creates an SESClient with a caller-provided API,
// used by tests.
func NewSESClientWithAPI(api SESAPI, logger *slog.Logger) *SESClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &SESClient{api: api, logger: logger}
}

// Send transmits the email and returns the provider's message ID.
func (c *SESClient) Send(ctx context.Context, email OutboundEmail) (string, error) {
	from := email.From
	if email.FromName != "" {
		from = email.FromName + " <" + email.From + ">"
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{email.To},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(email.Subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(email.BodyText)},
				},
			},
		},
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}

	out, err := c.api.SendEmail(ctx, input)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamEmail, "failed to send email", err)
	}

	messageID := ""
	if out.MessageId != nil {
		messageID = *out.MessageId
	}
	c.logger.Debug("email sent", "to", email.To, "message_id", messageID)
	return messageID, nil
}
