package models

// Project belongs to exactly one team.
type Project struct {
	BaseModel

	TeamID uint   `gorm:"not null;index" json:"team_id"`
	Name   string `gorm:"not null" json:"name"`
}
