package crypto

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Parameters controls the cost factors for PBKDF2-SHA256 key derivation.
type PBKDF2Parameters struct {
	// Iterations is the number of PBKDF2 rounds.
	Iterations int
	// KeyLength is the desired length of the derived key in bytes.
	KeyLength int
}

// DefaultPBKDF2Params returns the parameters used for field encryption keys.
func DefaultPBKDF2Params() PBKDF2Parameters {
	return PBKDF2Parameters{
		Iterations: 100_000,
		KeyLength:  32,
	}
}

// Validate ensures the parameters are suitable for AES key derivation.
func (p PBKDF2Parameters) Validate() error {
	if p.Iterations <= 0 {
		return fmt.Errorf("pbkdf2: iterations must be greater than zero")
	}
	switch p.KeyLength {
	case 16, 24, 32:
	default:
		return fmt.Errorf("pbkdf2: key length must be 16, 24, or 32 bytes (got %d)", p.KeyLength)
	}
	return nil
}

// DeriveKeyPBKDF2 stretches secret with salt into an AES key. Short salts are
// accepted so that keys stay compatible with rows written under a fixed literal salt.
func DeriveKeyPBKDF2(secret, salt []byte, params PBKDF2Parameters) ([]byte, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("pbkdf2: secret is required")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("pbkdf2: salt is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return pbkdf2.Key(secret, salt, params.Iterations, params.KeyLength, sha256.New), nil
}
