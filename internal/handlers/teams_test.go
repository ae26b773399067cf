package handlers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/teamdash/internal/handlers/testutil"
	"github.com/charlesng35/teamdash/internal/models"
)

type teamPayload struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	TeamRoles []struct {
		UserID uint   `json:"user_id"`
		Role   string `json:"role"`
		User   *struct {
			Email string `json:"email"`
		} `json:"user"`
	} `json:"team_roles"`
	Projects []struct {
		ID   uint   `json:"id"`
		Name string `json:"name"`
	} `json:"projects"`
}

func createTeam(t *testing.T, env *testutil.Env, token, name string) teamPayload {
	t.Helper()
	resp := env.Request(http.MethodPost, "/api/teams", map[string]string{"name": name}, token)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	var team teamPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, resp).Data, &team)
	require.NotZero(t, team.ID)
	return team
}

func TestTeamHandler_Lifecycle(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner@example.com", "password123")

	team := createTeam(t, env, owner.AccessToken, "Platform")
	require.Equal(t, "Platform", team.Name)

	project := env.Request(http.MethodPost, fmt.Sprintf("/api/teams/%d/projects", team.ID), map[string]string{"name": "Dashboard"}, owner.AccessToken)
	require.Equal(t, http.StatusCreated, project.Code, project.Body.String())

	list := env.Request(http.MethodGet, "/api/teams", nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, list.Code)
	decoded := testutil.DecodeResponse(t, list)
	require.Equal(t, 1, decoded.Meta.Total)

	var teams []teamPayload
	testutil.DecodeInto(t, decoded.Data, &teams)
	require.Len(t, teams, 1)
	require.Len(t, teams[0].TeamRoles, 1)
	require.Equal(t, models.RoleOwner, teams[0].TeamRoles[0].Role)
	require.NotNil(t, teams[0].TeamRoles[0].User)
	require.Equal(t, "owner@example.com", teams[0].TeamRoles[0].User.Email)
	require.Len(t, teams[0].Projects, 1)
	require.Equal(t, "Dashboard", teams[0].Projects[0].Name)

	get := env.Request(http.MethodGet, fmt.Sprintf("/api/teams/%d", team.ID), nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, get.Code)

	del := env.Request(http.MethodDelete, fmt.Sprintf("/api/teams/%d", team.ID), nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, del.Code, del.Body.String())

	missing := env.Request(http.MethodGet, fmt.Sprintf("/api/teams/%d", team.ID), nil, owner.AccessToken)
	require.Equal(t, http.StatusNotFound, missing.Code)
	require.Equal(t, "TEAM_NOT_FOUND", testutil.DecodeResponse(t, missing).Error.Code)
}

func TestTeamHandler_AccessControl(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner@example.com", "password123")
	outsider := env.Register("outsider@example.com", "password123")
	team := createTeam(t, env, owner.AccessToken, "Platform")

	get := env.Request(http.MethodGet, fmt.Sprintf("/api/teams/%d", team.ID), nil, outsider.AccessToken)
	require.Equal(t, http.StatusForbidden, get.Code)

	project := env.Request(http.MethodPost, fmt.Sprintf("/api/teams/%d/projects", team.ID), map[string]string{"name": "Nope"}, outsider.AccessToken)
	require.Equal(t, http.StatusForbidden, project.Code)

	del := env.Request(http.MethodDelete, fmt.Sprintf("/api/teams/%d", team.ID), nil, outsider.AccessToken)
	require.Equal(t, http.StatusForbidden, del.Code)

	list := env.Request(http.MethodGet, "/api/teams", nil, outsider.AccessToken)
	require.Equal(t, http.StatusOK, list.Code)
	require.Equal(t, 0, testutil.DecodeResponse(t, list).Meta.Total)
}

func TestTeamHandler_RemoveMember(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner@example.com", "password123")
	member := env.Register("member@example.com", "password123")
	team := createTeam(t, env, owner.AccessToken, "Platform")
	require.NoError(t, env.DB.Create(&models.TeamRole{TeamID: team.ID, UserID: member.User.ID, Role: models.RoleMember}).Error)

	lastOwner := env.Request(http.MethodDelete, fmt.Sprintf("/api/teams/%d/members/%d", team.ID, owner.User.ID), nil, owner.AccessToken)
	require.Equal(t, http.StatusConflict, lastOwner.Code)
	require.Equal(t, "TEAM_LAST_OWNER", testutil.DecodeResponse(t, lastOwner).Error.Code)

	removed := env.Request(http.MethodDelete, fmt.Sprintf("/api/teams/%d/members/%d", team.ID, member.User.ID), nil, owner.AccessToken)
	require.Equal(t, http.StatusOK, removed.Code, removed.Body.String())

	get := env.Request(http.MethodGet, fmt.Sprintf("/api/teams/%d", team.ID), nil, member.AccessToken)
	require.Equal(t, http.StatusForbidden, get.Code)
}

func TestTeamHandler_Validation(t *testing.T) {
	env := testutil.NewEnv(t)
	owner := env.Register("owner@example.com", "password123")

	resp := env.Request(http.MethodPost, "/api/teams", map[string]string{"name": "x"}, owner.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Contains(t, testutil.DecodeResponse(t, resp).Error.Message, "name must be at least 2 characters")

	resp = env.Request(http.MethodGet, "/api/teams/abc", nil, owner.AccessToken)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.Request(http.MethodGet, "/api/teams", nil, "")
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}
