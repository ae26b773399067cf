package models

import "strings"

// Membership levels, ordered from most to least privileged.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var roleRank = map[string]int{
	RoleOwner:  3,
	RoleAdmin:  2,
	RoleMember: 1,
}

// TeamRole binds a user to a team with a membership level.
type TeamRole struct {
	BaseModel

	UserID uint   `gorm:"not null;uniqueIndex:idx_team_roles_member" json:"user_id"`
	TeamID uint   `gorm:"not null;uniqueIndex:idx_team_roles_member;index" json:"team_id"`
	Role   string `gorm:"not null;default:member" json:"role"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

// IsValidRole reports whether role is a known membership level.
func IsValidRole(role string) bool {
	_, ok := roleRank[strings.ToLower(strings.TrimSpace(role))]
	return ok
}

// RoleSatisfies reports whether held grants at least the privileges of required.
func RoleSatisfies(held, required string) bool {
	h, ok := roleRank[strings.ToLower(held)]
	if !ok {
		return false
	}
	r, ok := roleRank[strings.ToLower(required)]
	if !ok {
		return false
	}
	return h >= r
}

// CanAccess reports whether userID holds at least role within teamRoles.
func CanAccess(role string, userID uint, teamRoles []TeamRole) bool {
	for _, tr := range teamRoles {
		if tr.UserID == userID {
			return RoleSatisfies(tr.Role, role)
		}
	}
	return false
}
