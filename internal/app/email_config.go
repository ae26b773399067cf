package app

import "github.com/charlesng35/teamdash/pkg/mail"

// MailSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) MailSettings() mail.Settings {
	return mail.Settings{
		Provider: c.Provider,
		SMTP: mail.SMTPSettings{
			Enabled:  c.SMTP.Enabled,
			Host:     c.SMTP.Host,
			Port:     c.SMTP.Port,
			Username: c.SMTP.Username,
			Password: c.SMTP.Password,
			From:     c.SMTP.From,
			UseTLS:   c.SMTP.UseTLS,
			Timeout:  c.SMTP.Timeout,
		},
		SendGrid: mail.SendGridSettings{
			Enabled:  c.SendGrid.Enabled,
			APIKey:   c.SendGrid.APIKey,
			From:     c.SendGrid.From,
			FromName: c.SendGrid.FromName,
		},
	}
}
