package mail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
)

// ErrDisabled signals that outbound email is switched off via configuration.
var ErrDisabled = errors.New("mail: delivery disabled")

// Providers accepted by New.
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
)

// Message represents an outbound email.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Mailer defines behaviour for sending email messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// Settings selects and configures the outbound provider.
type Settings struct {
	Provider string
	SMTP     SMTPSettings
	SendGrid SendGridSettings
}

// New builds the mailer named by settings.Provider, defaulting to SMTP.
func New(settings Settings) (Mailer, error) {
	switch strings.ToLower(strings.TrimSpace(settings.Provider)) {
	case "", ProviderSMTP:
		return NewSMTPMailer(settings.SMTP)
	case ProviderSendGrid:
		return NewSendGridMailer(settings.SendGrid)
	default:
		return nil, fmt.Errorf("mail: unsupported provider %q", settings.Provider)
	}
}

// envelope is a validated sender and recipient list.
type envelope struct {
	from       string
	recipients []string
}

func buildEnvelope(msg Message, defaultFrom string) (envelope, error) {
	recipients := uniqueAddresses(msg.To)
	if len(recipients) == 0 {
		return envelope{}, errors.New("mail: at least one recipient is required")
	}

	from := strings.TrimSpace(msg.From)
	if from == "" {
		from = strings.TrimSpace(defaultFrom)
	}
	if from == "" {
		return envelope{}, errors.New("mail: sender address is required")
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return envelope{}, fmt.Errorf("mail: invalid from address: %w", err)
	}

	for _, rcpt := range recipients {
		if _, err := mail.ParseAddress(rcpt); err != nil {
			return envelope{}, fmt.Errorf("mail: invalid recipient address %q: %w", rcpt, err)
		}
	}

	return envelope{from: from, recipients: recipients}, nil
}

func uniqueAddresses(addresses []string) []string {
	seen := make(map[string]struct{}, len(addresses))
	var result []string
	for _, addr := range addresses {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		if _, exists := seen[addr]; exists {
			continue
		}
		seen[addr] = struct{}{}
		result = append(result, addr)
	}
	return result
}

func escapeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
