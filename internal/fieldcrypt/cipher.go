// Package fieldcrypt seals individual string columns with a process wide key
// derived from a configured secret and salt.
//
// Reads are lenient: a stored value that cannot be opened (rows written before
// encryption was introduced, or sealed under an unknown key) is returned
// verbatim. Writes are strict: a value that cannot be sealed is an error.
package fieldcrypt

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/teamdash/pkg/crypto"
	"github.com/charlesng35/teamdash/pkg/logger"
	"github.com/charlesng35/teamdash/pkg/metrics"
)

// DefaultSalt is applied to every key derivation unless overridden. Existing
// rows were written under this literal, so changing it orphans them.
const DefaultSalt = "10"

// ErrEncryptionFailed wraps any failure to seal a value.
var ErrEncryptionFailed = errors.New("fieldcrypt: encryption failed")

// State describes how a stored value was resolved.
type State int

const (
	// StateCurrent means the value was sealed under the active secret.
	StateCurrent State = iota
	// StateRetired means the value was sealed under a previous secret.
	StateRetired
	// StateRaw means the value could not be opened and was returned as stored.
	StateRaw
)

func (s State) String() string {
	switch s {
	case StateCurrent:
		return "current"
	case StateRetired:
		return "retired"
	default:
		return "raw"
	}
}

// Cipher seals and opens column values. It holds no mutable state after
// construction and is safe for concurrent use.
type Cipher struct {
	key     []byte
	retired [][]byte
	log     *zap.Logger
}

type cipherConfig struct {
	salt     string
	params   crypto.PBKDF2Parameters
	previous []string
	log      *zap.Logger
}

// Option configures a Cipher.
type Option func(*cipherConfig)

// WithSalt overrides DefaultSalt.
func WithSalt(salt string) Option {
	return func(cfg *cipherConfig) {
		if salt != "" {
			cfg.salt = salt
		}
	}
}

// WithPreviousSecrets registers retired secrets that are still accepted when
// opening values. New values are always sealed with the primary secret.
func WithPreviousSecrets(secrets ...string) Option {
	return func(cfg *cipherConfig) {
		for _, secret := range secrets {
			if secret = strings.TrimSpace(secret); secret != "" {
				cfg.previous = append(cfg.previous, secret)
			}
		}
	}
}

// WithParameters overrides the PBKDF2 cost parameters.
func WithParameters(params crypto.PBKDF2Parameters) Option {
	return func(cfg *cipherConfig) {
		cfg.params = params
	}
}

// WithLogger sets the logger used to report fallback reads.
func WithLogger(log *zap.Logger) Option {
	return func(cfg *cipherConfig) {
		if log != nil {
			cfg.log = log
		}
	}
}

// NewCipher derives the field key from secret. It fails when the secret is
// empty or the derivation parameters are invalid.
func NewCipher(secret string, opts ...Option) (*Cipher, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("fieldcrypt: secret is required")
	}

	cfg := cipherConfig{
		salt:   DefaultSalt,
		params: crypto.DefaultPBKDF2Params(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.log == nil {
		cfg.log = logger.WithModule("fieldcrypt")
	}

	key, err := crypto.DeriveKeyPBKDF2([]byte(secret), []byte(cfg.salt), cfg.params)
	if err != nil {
		return nil, fmt.Errorf("fieldcrypt: derive key: %w", err)
	}

	c := &Cipher{key: key, log: cfg.log}
	for _, prev := range cfg.previous {
		if prev == secret {
			continue
		}
		retiredKey, err := crypto.DeriveKeyPBKDF2([]byte(prev), []byte(cfg.salt), cfg.params)
		if err != nil {
			return nil, fmt.Errorf("fieldcrypt: derive retired key: %w", err)
		}
		c.retired = append(c.retired, retiredKey)
	}

	return c, nil
}

// Seal encrypts plaintext under the primary key and returns the value to persist.
func (c *Cipher) Seal(plaintext string) (string, error) {
	if c == nil || len(c.key) == 0 {
		metrics.FieldCryptOperations.WithLabelValues("encrypt_error").Inc()
		return "", fmt.Errorf("%w: cipher is not initialised", ErrEncryptionFailed)
	}

	sealed, err := crypto.Encrypt([]byte(plaintext), c.key)
	if err != nil {
		metrics.FieldCryptOperations.WithLabelValues("encrypt_error").Inc()
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	metrics.FieldCryptOperations.WithLabelValues("encrypt").Inc()
	return sealed, nil
}

// Open returns the plaintext behind stored. It never fails: values that cannot
// be decrypted are returned unchanged and reported as a fallback.
func (c *Cipher) Open(stored string) string {
	plaintext, state := c.Inspect(stored)
	if state == StateRaw {
		metrics.FieldCryptOperations.WithLabelValues("fallback").Inc()
		if c != nil && c.log != nil {
			c.log.Warn("encrypted field fell back to raw value", zap.Int("length", len(stored)))
		}
		return plaintext
	}

	metrics.FieldCryptOperations.WithLabelValues("decrypt").Inc()
	return plaintext
}

// Inspect resolves stored without side effects and reports which key, if any,
// opened it.
func (c *Cipher) Inspect(stored string) (string, State) {
	if c == nil || len(c.key) == 0 || stored == "" {
		return stored, StateRaw
	}

	if plaintext, err := crypto.Decrypt(stored, c.key); err == nil {
		return string(plaintext), StateCurrent
	}

	for _, key := range c.retired {
		if plaintext, err := crypto.Decrypt(stored, key); err == nil {
			return string(plaintext), StateRetired
		}
	}

	return stored, StateRaw
}

// Reseal opens stored and seals it again under the primary key. changed is
// false when stored is already sealed under the primary key.
func (c *Cipher) Reseal(stored string) (resealed string, changed bool, err error) {
	plaintext, state := c.Inspect(stored)
	if state == StateCurrent {
		return stored, false, nil
	}

	resealed, err = c.Seal(plaintext)
	if err != nil {
		return "", false, err
	}
	return resealed, true, nil
}
