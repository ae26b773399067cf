package models

import "strings"

// User is a dashboard account. Email is stored lower-cased.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `json:"name"`
	Password string `gorm:"not null" json:"-"`

	TeamRoles []TeamRole `gorm:"constraint:OnDelete:CASCADE" json:"team_roles,omitempty"`
}

// NormaliseEmail trims and lower-cases an email address for comparison and storage.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
