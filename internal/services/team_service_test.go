package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/teamdash/internal/models"
	apperrors "github.com/charlesng35/teamdash/pkg/errors"
)

func TestTeamServiceCreateAndList(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTeamService(db)
	require.NoError(t, err)

	owner := createUser(t, db, "owner@example.com")
	other := createUser(t, db, "other@example.com")
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, owner.ID, "  Platform ")
	require.NoError(t, err)
	require.Equal(t, "Platform", team.Name)
	require.Len(t, team.TeamRoles, 1)
	require.Equal(t, models.RoleOwner, team.TeamRoles[0].Role)

	_, err = svc.CreateTeam(ctx, other.ID, "Billing")
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.Project{TeamID: team.ID, Name: "Dashboard"}).Error)
	addMember(t, db, team.ID, other.ID, models.RoleMember)

	teams, err := svc.ListTeams(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, teams, 1)
	require.Equal(t, "Platform", teams[0].Name)
	require.Len(t, teams[0].TeamRoles, 2)
	require.NotNil(t, teams[0].TeamRoles[0].User)
	require.Equal(t, "owner@example.com", teams[0].TeamRoles[0].User.Email)
	require.Len(t, teams[0].Projects, 1)

	teams, err = svc.ListTeams(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, teams, 2)
}

func TestTeamServiceCreateValidation(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTeamService(db)
	require.NoError(t, err)
	owner := createUser(t, db, "owner@example.com")

	_, err = svc.CreateTeam(context.Background(), owner.ID, "   ")
	require.Error(t, err)

	_, err = svc.CreateTeam(context.Background(), owner.ID+42, "Ghost")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestTeamServiceGetTeamRequiresMembership(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTeamService(db)
	require.NoError(t, err)

	owner := createUser(t, db, "owner@example.com")
	outsider := createUser(t, db, "outsider@example.com")
	team, err := svc.CreateTeam(context.Background(), owner.ID, "Platform")
	require.NoError(t, err)

	loaded, err := svc.GetTeam(context.Background(), owner.ID, team.ID)
	require.NoError(t, err)
	require.Equal(t, team.ID, loaded.ID)

	_, err = svc.GetTeam(context.Background(), outsider.ID, team.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, err = svc.GetTeam(context.Background(), owner.ID, team.ID+10)
	require.ErrorIs(t, err, ErrTeamNotFound)
}

func TestTeamServiceDeleteTeamCascades(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTeamService(db)
	require.NoError(t, err)
	cipher := newTestCipher(t, "s3cr3t")

	owner := createUser(t, db, "owner@example.com")
	admin := createUser(t, db, "admin@example.com")
	team, err := svc.CreateTeam(context.Background(), owner.ID, "Platform")
	require.NoError(t, err)
	addMember(t, db, team.ID, admin.ID, models.RoleAdmin)
	require.NoError(t, db.Create(&models.Project{TeamID: team.ID, Name: "Dashboard"}).Error)

	invite := models.TeamInvitation{UserID: owner.ID, TeamID: team.ID, Token: "tok", Role: models.RoleMember}
	require.NoError(t, invite.SetEmail(cipher, "new@example.com"))
	require.NoError(t, db.Create(&invite).Error)

	err = svc.DeleteTeam(context.Background(), admin.ID, team.ID)
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	require.NoError(t, svc.DeleteTeam(context.Background(), owner.ID, team.ID))

	for _, model := range []any{&models.Team{}, &models.TeamRole{}, &models.Project{}, &models.TeamInvitation{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		require.Zero(t, count)
	}
}

func TestTeamServiceRemoveMember(t *testing.T) {
	db := newTestDB(t)
	svc, err := NewTeamService(db)
	require.NoError(t, err)
	ctx := context.Background()

	owner := createUser(t, db, "owner@example.com")
	admin := createUser(t, db, "admin@example.com")
	member := createUser(t, db, "member@example.com")
	peer := createUser(t, db, "peer@example.com")
	team, err := svc.CreateTeam(ctx, owner.ID, "Platform")
	require.NoError(t, err)
	addMember(t, db, team.ID, admin.ID, models.RoleAdmin)
	addMember(t, db, team.ID, member.ID, models.RoleMember)
	addMember(t, db, team.ID, peer.ID, models.RoleMember)

	t.Run("member cannot remove others", func(t *testing.T) {
		err := svc.RemoveMember(ctx, member.ID, team.ID, peer.ID)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("admin cannot remove owner", func(t *testing.T) {
		err := svc.RemoveMember(ctx, admin.ID, team.ID, owner.ID)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("last owner cannot leave", func(t *testing.T) {
		err := svc.RemoveMember(ctx, owner.ID, team.ID, owner.ID)
		require.ErrorIs(t, err, ErrLastOwner)
	})

	t.Run("unknown member", func(t *testing.T) {
		err := svc.RemoveMember(ctx, admin.ID, team.ID, owner.ID+999)
		require.ErrorIs(t, err, ErrTeamMemberNotFound)
	})

	t.Run("admin removes member", func(t *testing.T) {
		require.NoError(t, svc.RemoveMember(ctx, admin.ID, team.ID, peer.ID))
		var count int64
		require.NoError(t, db.Model(&models.TeamRole{}).Where("team_id = ? AND user_id = ?", team.ID, peer.ID).Count(&count).Error)
		require.Zero(t, count)
	})

	t.Run("member leaves", func(t *testing.T) {
		require.NoError(t, svc.RemoveMember(ctx, member.ID, team.ID, member.ID))
		_, err := svc.GetTeam(ctx, member.ID, team.ID)
		require.ErrorIs(t, err, apperrors.ErrForbidden)
	})
}
