package mail

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridEndpoint = "/v3/mail/send"

// SendGridSettings configure delivery through the SendGrid v3 API.
type SendGridSettings struct {
	Enabled  bool
	APIKey   string
	From     string
	FromName string
	// Host overrides the API base URL.
	Host string
}

type sendGridMailer struct {
	cfg SendGridSettings
}

// NewSendGridMailer returns a Mailer backed by the SendGrid API.
func NewSendGridMailer(cfg SendGridSettings) (Mailer, error) {
	if cfg.Enabled && strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid: api key is required when enabled")
	}
	return &sendGridMailer{cfg: cfg}, nil
}

func (m *sendGridMailer) Send(ctx context.Context, msg Message) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	env, err := buildEnvelope(msg, m.cfg.From)
	if err != nil {
		return err
	}

	message := sgmail.NewV3Mail()
	message.SetFrom(sgmail.NewEmail(m.cfg.FromName, env.from))
	message.Subject = escapeHeader(msg.Subject)

	personalization := sgmail.NewPersonalization()
	for _, rcpt := range env.recipients {
		personalization.AddTos(sgmail.NewEmail("", rcpt))
	}
	message.AddPersonalizations(personalization)
	message.AddContent(sgmail.NewContent("text/plain", msg.Body))

	request := sendgrid.GetRequest(m.cfg.APIKey, sendGridEndpoint, strings.TrimSpace(m.cfg.Host))
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(message)

	response, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("sendgrid: send: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid: status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}
