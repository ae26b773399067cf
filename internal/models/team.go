package models

// Team groups users, projects, and the invitations pending for it. Deleting a
// team removes its roles, projects, and invitations.
type Team struct {
	BaseModel

	Name string `gorm:"not null" json:"name"`

	TeamRoles   []TeamRole       `gorm:"constraint:OnDelete:CASCADE" json:"team_roles,omitempty"`
	Projects    []Project        `gorm:"constraint:OnDelete:CASCADE" json:"projects,omitempty"`
	Invitations []TeamInvitation `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
