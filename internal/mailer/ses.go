package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sirupsen/logrus"

	"github.com/unclebandit/reengage-backend/internal/config"
	"github.com/unclebandit/reengage-backend/internal/logger"
)

type sesAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends email through AWS SES.
type SESSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
	log       *logrus.Entry
}

func NewSESSender(ctx context.Context, cfg config.SESConfig, log *logrus.Entry) (*SESSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESSender{
		client:    sesv2.NewFromConfig(awsCfg),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		log:       log,
	}, nil
}

func (s *SESSender) Send(ctx context.Context, m Message) error {
	to := m.To
	if m.ToName != "" {
		to = fmt.Sprintf("%s <%s>", m.ToName, m.To)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(m.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(m.HTML), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("campaign_id"), Value: aws.String(m.CampaignID)},
			{Name: aws.String("notification_id"), Value: aws.String(m.NotificationID)},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", logger.RedactEmail(m.To), err)
	}

	fields := logrus.Fields{
		"notification_id": m.NotificationID,
		"to":              logger.RedactEmail(m.To),
	}
	if out.MessageId != nil {
		fields["message_id"] = *out.MessageId
	}
	s.log.WithFields(fields).Info("email sent via ses")
	return nil
}
