package app

import (
	"strings"

	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/pkg/crypto"
)

// CipherOptions converts EncryptionConfig into options for fieldcrypt.NewCipher.
func (c EncryptionConfig) CipherOptions() []fieldcrypt.Option {
	opts := []fieldcrypt.Option{fieldcrypt.WithSalt(c.Salt)}

	if c.Iterations > 0 {
		params := crypto.DefaultPBKDF2Params()
		params.Iterations = c.Iterations
		opts = append(opts, fieldcrypt.WithParameters(params))
	}

	var previous []string
	for _, secret := range c.PreviousSecrets {
		if secret = strings.TrimSpace(secret); secret != "" {
			previous = append(previous, secret)
		}
	}
	if len(previous) > 0 {
		opts = append(opts, fieldcrypt.WithPreviousSecrets(previous...))
	}

	return opts
}

// NewFieldCipher builds the process-wide cipher for encrypted columns.
func (c EncryptionConfig) NewFieldCipher() (*fieldcrypt.Cipher, error) {
	return fieldcrypt.NewCipher(c.Secret, c.CipherOptions()...)
}
