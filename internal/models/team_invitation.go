package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrInvitationTokenRequired rejects invitations without an acceptance token.
	ErrInvitationTokenRequired = errors.New("team invitation: token is required")
	// ErrInvitationEmailRequired rejects invitations without an email address.
	ErrInvitationEmailRequired = errors.New("team invitation: email is required")
)

// FieldCipher seals values before they are persisted and opens them after they
// are loaded. Open must never fail.
type FieldCipher interface {
	Seal(plaintext string) (string, error)
	Open(stored string) string
}

// TeamInvitation is a pending invite of an email address into a team. The
// email column holds ciphertext; use SetEmail and GetEmail instead of touching
// StoredEmail directly.
type TeamInvitation struct {
	BaseModel

	UserID uint   `gorm:"not null;index" json:"user_id"`
	TeamID uint   `gorm:"not null;index" json:"team_id"`
	Token  string `gorm:"not null;uniqueIndex" json:"-"`
	Role   string `gorm:"not null;default:member" json:"role"`

	// StoredEmail is the physical column value.
	StoredEmail string `gorm:"column:email;not null" json:"-"`

	Inviter *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Team    *Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// TableName keeps the singular table name used by existing deployments.
func (TeamInvitation) TableName() string {
	return "TeamInvitation"
}

// SetEmail seals email exactly as given and stores the ciphertext. Callers
// normalise addresses beforehand. Sealing failures are returned and leave the
// stored value untouched.
func (i *TeamInvitation) SetEmail(cipher FieldCipher, email string) error {
	if email == "" {
		return ErrInvitationEmailRequired
	}
	if cipher == nil {
		return errors.New("team invitation: cipher is required")
	}

	sealed, err := cipher.Seal(email)
	if err != nil {
		return err
	}
	i.StoredEmail = sealed
	return nil
}

// GetEmail returns the plaintext email, or the stored value itself when it
// cannot be decrypted.
func (i *TeamInvitation) GetEmail(cipher FieldCipher) string {
	if cipher == nil {
		return i.StoredEmail
	}
	return cipher.Open(i.StoredEmail)
}

// BeforeSave enforces the required columns on every create and update.
func (i *TeamInvitation) BeforeSave(tx *gorm.DB) error {
	if strings.TrimSpace(i.Token) == "" {
		return ErrInvitationTokenRequired
	}
	if strings.TrimSpace(i.StoredEmail) == "" {
		return ErrInvitationEmailRequired
	}
	if strings.TrimSpace(i.Role) == "" {
		i.Role = RoleMember
	}
	return nil
}
