package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

// sesAPI is the slice of the SESv2 client the sender calls.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESClient sends plain-text mail through Amazon SES.
type SESClient struct {
	api    sesAPI
	sender string
}

// NewSESClient uses static keys when both are given and the default AWS credential chain otherwise.
func NewSESClient(accessKeyID, secretAccessKey, region, sender string) (*SESClient, error) {
	switch {
	case region == "":
		return nil, errors.New("ses region is required")
	case sender == "":
		return nil, errors.New("ses sender is required")
	case (accessKeyID == "") != (secretAccessKey == ""):
		return nil, errors.New("ses access key id and secret must be set together")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" {
		static := credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(static))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESClient{api: sesv2.NewFromConfig(awsCfg), sender: sender}, nil
}

func (c *SESClient) Send(ctx context.Context, recipient, subject, body string) error {
	return c.SendFrom(ctx, recipient, subject, body, "")
}

// SendFrom sends with sender as the From address, or the configured sender when it is blank.
func (c *SESClient) SendFrom(ctx context.Context, recipient, subject, body, sender string) error {
	if c == nil || c.api == nil {
		return errors.New("ses client is not initialized")
	}
	if recipient == "" {
		return errors.New("recipient is required")
	}
	from := strings.TrimSpace(sender)
	if from == "" {
		from = c.sender
	}

	out, err := c.api.SendEmail(ctx, plainTextEmail(from, recipient, subject, body))
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("recipient", recipient).Msg("SES send failed")
		return fmt.Errorf("send ses email: %w", err)
	}
	log.Ctx(ctx).Debug().Str("message_id", aws.ToString(out.MessageId)).Msg("SES email sent")
	return nil
}

func plainTextEmail(from, to, subject, body string) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")}},
			},
		},
	}
}
