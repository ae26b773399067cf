package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamdash/internal/services"
	"github.com/charlesng35/teamdash/pkg/response"
)

// TeamHandler serves teams, their members, and their projects.
type TeamHandler struct {
	teams    *services.TeamService
	projects *services.ProjectService
}

type createTeamRequest struct {
	Name string `json:"name" validate:"required,min=2,max=128"`
}

type createProjectRequest struct {
	Name string `json:"name" validate:"required,min=1,max=128"`
}

// NewTeamHandler constructs a TeamHandler.
func NewTeamHandler(teams *services.TeamService, projects *services.ProjectService) *TeamHandler {
	return &TeamHandler{teams: teams, projects: projects}
}

// GET /api/teams
func (h *TeamHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	teams, err := h.teams.ListTeams(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, teams, len(teams))
}

// POST /api/teams
func (h *TeamHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body createTeamRequest
	if !bindAndValidate(c, &body) {
		return
	}

	team, err := h.teams.CreateTeam(requestContext(c), userID, body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, team)
}

// GET /api/teams/:id
func (h *TeamHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	team, err := h.teams.GetTeam(requestContext(c), userID, teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, team)
}

// DELETE /api/teams/:id
func (h *TeamHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.teams.DeleteTeam(requestContext(c), userID, teamID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// DELETE /api/teams/:id/members/:userID
func (h *TeamHandler) RemoveMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	memberID, ok := uintParam(c, "userID")
	if !ok {
		return
	}

	if err := h.teams.RemoveMember(requestContext(c), userID, teamID, memberID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// POST /api/teams/:id/projects
func (h *TeamHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body createProjectRequest
	if !bindAndValidate(c, &body) {
		return
	}

	project, err := h.projects.CreateProject(requestContext(c), userID, teamID, body.Name)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}
