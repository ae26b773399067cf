package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charlesng35/teamdash/pkg/crypto"
)

const (
	jwtSecretBytes        = 48
	encryptionSecretBytes = 32
)

// ErrMissingSecret is returned in production when a required secret is not configured.
var ErrMissingSecret = errors.New("config: required secret is not configured")

// ApplyRuntimeDefaults fills in secrets that were left empty. In development a
// random value is generated; production refuses to start instead, since a
// generated encryption secret would make previously stored data unreadable.
// The returned map names the generated keys so callers can log the event
// without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)
	secrets := []struct {
		key    string
		target *string
		size   int
	}{
		{"encryption.secret", &cfg.Encryption.Secret, encryptionSecretBytes},
		{"auth.jwt.secret", &cfg.Auth.JWT.Secret, jwtSecretBytes},
	}

	for _, s := range secrets {
		*s.target = strings.TrimSpace(*s.target)
		if *s.target != "" {
			continue
		}
		if cfg.App.IsProduction() {
			return nil, fmt.Errorf("%w: %s", ErrMissingSecret, s.key)
		}
		value, err := crypto.GenerateToken(s.size)
		if err != nil {
			return nil, fmt.Errorf("generate %s: %w", s.key, err)
		}
		*s.target = value
		generated[s.key] = true
	}

	if strings.TrimSpace(cfg.Encryption.Salt) == "" {
		cfg.Encryption.Salt = "10"
	}

	return generated, nil
}
