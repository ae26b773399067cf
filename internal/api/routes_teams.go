package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamdash/internal/handlers"
)

func registerTeamRoutes(api *gin.RouterGroup, teams *handlers.TeamHandler, invitations *handlers.InvitationHandler, inviteLimit gin.HandlerFunc) {
	group := api.Group("/teams")
	{
		group.GET("", teams.List)
		group.POST("", teams.Create)
		group.GET("/:id", teams.Get)
		group.DELETE("/:id", teams.Delete)
		group.DELETE("/:id/members/:userID", teams.RemoveMember)
		group.POST("/:id/projects", teams.CreateProject)

		group.GET("/:id/invitations", invitations.ListPending)
		group.POST("/:id/invitations", inviteLimit, invitations.Create)
		group.DELETE("/:id/invitations/:invitationID", invitations.Revoke)
	}

	mine := api.Group("/invitations")
	{
		mine.GET("", invitations.ListMine)
		mine.POST("/accept", invitations.Accept)
		mine.POST("/decline", invitations.Decline)
	}
}
