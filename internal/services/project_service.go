package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/models"
	apperrors "github.com/charlesng35/teamdash/pkg/errors"
)

// ProjectService manages projects inside teams.
type ProjectService struct {
	db *gorm.DB
}

// NewProjectService constructs a ProjectService instance.
func NewProjectService(db *gorm.DB) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	return &ProjectService{db: db}, nil
}

// CreateProject adds a project to a team. The requester must be an admin.
func (s *ProjectService) CreateProject(ctx context.Context, userID, teamID uint, name string) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewBadRequest("project name is required")
	}
	if _, err := requireTeamRole(ctx, s.db, userID, teamID, models.RoleAdmin); err != nil {
		return nil, err
	}

	project := &models.Project{TeamID: teamID, Name: name}
	if err := s.db.WithContext(ctx).Create(project).Error; err != nil {
		return nil, fmt.Errorf("project service: create project: %w", err)
	}
	return project, nil
}
