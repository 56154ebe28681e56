// Package ses отправляет письма через Amazon SES (API v2).
package ses

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/magabrotheeeer/market-digest/internal/config"
	"github.com/magabrotheeeer/market-digest/internal/lib/awsconf"
	"github.com/magabrotheeeer/market-digest/internal/lib/sl"
	"github.com/magabrotheeeer/market-digest/internal/models"
)

// API — часть клиента sesv2, используемая транспортом.
type API interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Transport отправляет письма через SES.
type Transport struct {
	client API
	from   string
	log    *slog.Logger
}

// New создаёт Transport поверх готового клиента.
func New(client API, from, fromName string, log *slog.Logger) *Transport {
	addr := mail.Address{Name: fromName, Address: from}
	return &Transport{client: client, from: addr.String(), log: log}
}

// NewFromConfig создаёт клиент SES по настройкам почты.
func NewFromConfig(ctx context.Context, cfg config.Mail, log *slog.Logger) (*Transport, error) {
	const op = "ses.NewFromConfig"
	awsCfg, err := awsconf.Load(ctx, cfg.SESRegion, cfg.SESAccessKey, cfg.SESSecretKey)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return New(sesv2.NewFromConfig(awsCfg), cfg.From, cfg.FromName, log), nil
}

// Send отправляет письмо и возвращает MessageId, назначенный SES.
func (t *Transport) Send(ctx context.Context, msg models.Message) (string, error) {
	const op = "ses.Send"

	body := &types.Body{}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}
	if msg.Text != "" {
		body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(t.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String(msg.Kind)},
		},
	}

	out, err := t.client.SendEmail(ctx, input)
	if err != nil {
		t.log.Error("ses send failed", sl.Email(msg.To), sl.Err(err))
		return "", fmt.Errorf("%s: %w", op, err)
	}

	id := aws.ToString(out.MessageId)
	t.log.Info("email sent via ses", sl.Email(msg.To), slog.String("message_id", id))
	return id, nil
}
