package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/teamdash/internal/services"
	"github.com/charlesng35/teamdash/pkg/response"
)

// InvitationHandler serves the team invitation flow.
type InvitationHandler struct {
	invitations *services.InvitationService
}

type createInvitationRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"omitempty,oneof=admin member"`
}

type invitationTokenRequest struct {
	Token string `json:"token" validate:"required,max=256"`
}

// NewInvitationHandler constructs an InvitationHandler.
func NewInvitationHandler(invitations *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// GET /api/teams/:id/invitations
func (h *InvitationHandler) ListPending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	invitations, err := h.invitations.ListPending(requestContext(c), userID, teamID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, invitations, len(invitations))
}

// POST /api/teams/:id/invitations
func (h *InvitationHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}

	var body createInvitationRequest
	if !bindAndValidate(c, &body) {
		return
	}

	result, err := h.invitations.Invite(requestContext(c), services.InviteInput{
		InviterID: userID,
		TeamID:    teamID,
		Email:     body.Email,
		Role:      body.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// DELETE /api/teams/:id/invitations/:invitationID
func (h *InvitationHandler) Revoke(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	teamID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	invitationID, ok := uintParam(c, "invitationID")
	if !ok {
		return
	}

	if err := h.invitations.Revoke(requestContext(c), userID, teamID, invitationID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"revoked": true})
}

// GET /api/invitations
func (h *InvitationHandler) ListMine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	invitations, err := h.invitations.ListForUser(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, invitations, len(invitations))
}

// POST /api/invitations/accept
func (h *InvitationHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body invitationTokenRequest
	if !bindAndValidate(c, &body) {
		return
	}

	membership, err := h.invitations.Accept(requestContext(c), userID, body.Token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, membership)
}

// POST /api/invitations/decline
func (h *InvitationHandler) Decline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var body invitationTokenRequest
	if !bindAndValidate(c, &body) {
		return
	}

	if err := h.invitations.Decline(requestContext(c), userID, body.Token); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"declined": true})
}
