package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/models"
	apperrors "github.com/charlesng35/teamdash/pkg/errors"
	"github.com/charlesng35/teamdash/pkg/logger"
)

var (
	// ErrTeamNotFound indicates the requested team does not exist.
	ErrTeamNotFound = apperrors.New("TEAM_NOT_FOUND", "Team not found", http.StatusNotFound)
	// ErrTeamMemberNotFound indicates the requested membership does not exist.
	ErrTeamMemberNotFound = apperrors.New("TEAM_MEMBER_NOT_FOUND", "User is not a member of the team", http.StatusNotFound)
	// ErrLastOwner prevents a team from losing its final owner.
	ErrLastOwner = apperrors.New("TEAM_LAST_OWNER", "The last owner cannot leave the team", http.StatusConflict)
)

// TeamService handles team lifecycle and membership management.
type TeamService struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewTeamService constructs a TeamService instance.
func NewTeamService(db *gorm.DB) (*TeamService, error) {
	if db == nil {
		return nil, errors.New("team service: db is required")
	}
	return &TeamService{db: db, log: logger.WithModule("teams")}, nil
}

// CreateTeam registers a team and makes userID its owner.
func (s *TeamService) CreateTeam(ctx context.Context, userID uint, name string) (*models.Team, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("team name is required")
	}
	if _, err := loadUser(ctx, s.db, userID); err != nil {
		return nil, err
	}

	team := &models.Team{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(team).Error; err != nil {
			return err
		}
		owner := models.TeamRole{UserID: userID, TeamID: team.ID, Role: models.RoleOwner}
		if err := tx.Create(&owner).Error; err != nil {
			return err
		}
		team.TeamRoles = []models.TeamRole{owner}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("team service: create team: %w", err)
	}

	s.log.Info("team created", zap.Uint("team_id", team.ID), zap.Uint("owner_id", userID))
	return team, nil
}

// ListTeams returns every team userID belongs to, with members and projects.
func (s *TeamService) ListTeams(ctx context.Context, userID uint) ([]models.Team, error) {
	ctx = ensureContext(ctx)

	var teams []models.Team
	err := s.db.WithContext(ctx).
		Joins("JOIN team_roles ON team_roles.team_id = teams.id AND team_roles.user_id = ?", userID).
		Preload("TeamRoles", func(db *gorm.DB) *gorm.DB { return db.Order("team_roles.id ASC") }).
		Preload("TeamRoles.User").
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("projects.id ASC") }).
		Order("teams.id ASC").
		Find(&teams).Error
	if err != nil {
		return nil, fmt.Errorf("team service: list teams: %w", err)
	}
	return teams, nil
}

// GetTeam loads a team the requester belongs to.
func (s *TeamService) GetTeam(ctx context.Context, userID, teamID uint) (*models.Team, error) {
	ctx = ensureContext(ctx)

	if _, err := requireTeamRole(ctx, s.db, userID, teamID, models.RoleMember); err != nil {
		return nil, err
	}

	var team models.Team
	err := s.db.WithContext(ctx).
		Preload("TeamRoles", func(db *gorm.DB) *gorm.DB { return db.Order("team_roles.id ASC") }).
		Preload("TeamRoles.User").
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("projects.id ASC") }).
		First(&team, teamID).Error
	if err != nil {
		return nil, fmt.Errorf("team service: load team: %w", err)
	}
	return &team, nil
}

// DeleteTeam removes a team together with its roles, projects, and pending
// invitations. Only owners may delete a team.
func (s *TeamService) DeleteTeam(ctx context.Context, userID, teamID uint) error {
	ctx = ensureContext(ctx)

	if _, err := requireTeamRole(ctx, s.db, userID, teamID, models.RoleOwner); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.TeamInvitation{}, &models.Project{}, &models.TeamRole{}} {
			if err := tx.Where("team_id = ?", teamID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Team{}, teamID).Error
	})
	if err != nil {
		return fmt.Errorf("team service: delete team: %w", err)
	}

	s.log.Info("team deleted", zap.Uint("team_id", teamID), zap.Uint("user_id", userID))
	return nil
}

// RemoveMember drops memberID from the team. Members may remove themselves;
// removing someone else requires admin and cannot target a higher role. The
// last owner can never be removed.
func (s *TeamService) RemoveMember(ctx context.Context, requesterID, teamID, memberID uint) error {
	ctx = ensureContext(ctx)

	requester, err := requireTeamRole(ctx, s.db, requesterID, teamID, models.RoleMember)
	if err != nil {
		return err
	}

	target := requester
	if memberID != requesterID {
		if !models.RoleSatisfies(requester.Role, models.RoleAdmin) {
			return apperrors.ErrForbidden
		}
		var role models.TeamRole
		err := s.db.WithContext(ctx).Where("team_id = ? AND user_id = ?", teamID, memberID).First(&role).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeamMemberNotFound
		}
		if err != nil {
			return fmt.Errorf("team service: load member: %w", err)
		}
		if !models.RoleSatisfies(requester.Role, role.Role) {
			return apperrors.ErrForbidden
		}
		target = &role
	}

	if target.Role == models.RoleOwner {
		var owners int64
		if err := s.db.WithContext(ctx).Model(&models.TeamRole{}).
			Where("team_id = ? AND role = ?", teamID, models.RoleOwner).
			Count(&owners).Error; err != nil {
			return fmt.Errorf("team service: count owners: %w", err)
		}
		if owners <= 1 {
			return ErrLastOwner
		}
	}

	if err := s.db.WithContext(ctx).Delete(&models.TeamRole{}, target.ID).Error; err != nil {
		return fmt.Errorf("team service: remove member: %w", err)
	}
	return nil
}

// requireTeamRole returns the requester's membership when it grants at least
// role. Missing teams map to ErrTeamNotFound, missing or insufficient
// membership to ErrForbidden.
func requireTeamRole(ctx context.Context, db *gorm.DB, userID, teamID uint, role string) (*models.TeamRole, error) {
	var team models.Team
	err := db.WithContext(ctx).Preload("TeamRoles").First(&team, teamID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}

	if !models.CanAccess(role, userID, team.TeamRoles) {
		return nil, apperrors.ErrForbidden
	}
	for i := range team.TeamRoles {
		if team.TeamRoles[i].UserID == userID {
			return &team.TeamRoles[i], nil
		}
	}
	return nil, apperrors.ErrForbidden
}
