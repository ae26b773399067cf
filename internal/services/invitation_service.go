package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/models"
	"github.com/charlesng35/teamdash/pkg/crypto"
	apperrors "github.com/charlesng35/teamdash/pkg/errors"
	"github.com/charlesng35/teamdash/pkg/logger"
	"github.com/charlesng35/teamdash/pkg/mail"
	"github.com/charlesng35/teamdash/pkg/metrics"
	"github.com/charlesng35/teamdash/pkg/validator"
)

const (
	defaultInvitationTokenBytes = 32
	defaultAcceptPath           = "/invitations/accept"
	invitationScanBatch         = 200
)

var (
	// ErrInvitationNotFound indicates no invitation matches the token or id.
	ErrInvitationNotFound = apperrors.New("INVITATION_NOT_FOUND", "Invitation not found", http.StatusNotFound)
	// ErrInvitationExists signals a pending invitation for the same email.
	ErrInvitationExists = apperrors.New("INVITATION_EXISTS", "An invitation is already pending for this email", http.StatusConflict)
	// ErrAlreadyMember signals the invited email already belongs to a member.
	ErrAlreadyMember = apperrors.New("TEAM_MEMBER_EXISTS", "User is already a member of the team", http.StatusConflict)
	// ErrInvitationEmailMismatch is returned when the invitation was addressed to another email.
	ErrInvitationEmailMismatch = apperrors.New("INVITATION_EMAIL_MISMATCH", "This invitation was sent to a different email address", http.StatusForbidden)
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationBaseURL configures the base URL used to build accept links.
func WithInvitationBaseURL(base string) InvitationOption {
	return func(s *InvitationService) {
		s.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// WithInvitationAcceptPath overrides the path of the accept page.
func WithInvitationAcceptPath(path string) InvitationOption {
	return func(s *InvitationService) {
		if path = strings.TrimSpace(path); path != "" {
			s.acceptPath = "/" + strings.TrimLeft(path, "/")
		}
	}
}

// WithInvitationTokenSize adjusts the random token length in bytes.
func WithInvitationTokenSize(size int) InvitationOption {
	return func(s *InvitationService) {
		if size > 0 {
			s.tokenLength = size
		}
	}
}

// Invitation is the API view of a pending invitation with the email decrypted.
type Invitation struct {
	ID        uint      `json:"id"`
	TeamID    uint      `json:"team_id"`
	TeamName  string    `json:"team_name,omitempty"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	InvitedBy uint      `json:"invited_by"`
	Token     string    `json:"token,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// InviteInput describes a new invitation.
type InviteInput struct {
	InviterID uint
	TeamID    uint
	Email     string
	Role      string
}

// InviteResult is returned by Invite.
type InviteResult struct {
	Invitation Invitation `json:"invitation"`
	Link       string     `json:"link"`
	EmailSent  bool       `json:"email_sent"`
}

// InvitationService manages team invitations. Invitee emails are stored
// through cipher, so lookups by email decrypt candidate rows in memory.
type InvitationService struct {
	db          *gorm.DB
	cipher      models.FieldCipher
	mailer      mail.Mailer
	baseURL     string
	acceptPath  string
	tokenLength int
	log         *zap.Logger
}

// NewInvitationService constructs an InvitationService. mailer may be nil.
func NewInvitationService(db *gorm.DB, cipher models.FieldCipher, mailer mail.Mailer, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}
	if cipher == nil {
		return nil, errors.New("invitation service: cipher is required")
	}

	svc := &InvitationService{
		db:          db,
		cipher:      cipher,
		mailer:      mailer,
		acceptPath:  defaultAcceptPath,
		tokenLength: defaultInvitationTokenBytes,
		log:         logger.WithModule("invitations"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Invite records an invitation for email and mails the accept link.
func (s *InvitationService) Invite(ctx context.Context, input InviteInput) (*InviteResult, error) {
	ctx = ensureContext(ctx)

	email := models.NormaliseEmail(input.Email)
	if !validator.IsEmail(email) {
		return nil, apperrors.NewBadRequest("a valid email is required")
	}

	role := strings.ToLower(strings.TrimSpace(input.Role))
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleAdmin {
		return nil, apperrors.NewBadRequest("role must be admin or member")
	}

	inviter, err := requireTeamRole(ctx, s.db, input.InviterID, input.TeamID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !models.RoleSatisfies(inviter.Role, role) {
		return nil, apperrors.ErrForbidden
	}

	member, err := s.isMember(ctx, input.TeamID, email)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	pending, err := s.findPendingByEmail(ctx, input.TeamID, email)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return nil, ErrInvitationExists
	}

	token, err := crypto.GenerateToken(s.tokenLength)
	if err != nil {
		return nil, fmt.Errorf("invitation service: generate token: %w", err)
	}

	invitation := models.TeamInvitation{
		UserID: input.InviterID,
		TeamID: input.TeamID,
		Token:  token,
		Role:   role,
	}
	if err := invitation.SetEmail(s.cipher, email); err != nil {
		return nil, fmt.Errorf("invitation service: encrypt email: %w", err)
	}
	if err := s.db.WithContext(ctx).Create(&invitation).Error; err != nil {
		return nil, fmt.Errorf("invitation service: create invitation: %w", err)
	}
	metrics.InvitationEvents.WithLabelValues("created").Inc()

	var team models.Team
	if err := s.db.WithContext(ctx).Select("id", "name").First(&team, input.TeamID).Error; err != nil {
		return nil, fmt.Errorf("invitation service: load team: %w", err)
	}

	link := s.acceptLink(token)
	result := &InviteResult{
		Invitation: s.view(&invitation, email, team.Name),
		Link:       link,
	}
	result.EmailSent = s.sendInvitation(ctx, email, team.Name, link)

	s.log.Info("invitation created",
		zap.Uint("invitation_id", invitation.ID),
		zap.Uint("team_id", input.TeamID),
		zap.Bool("email_sent", result.EmailSent),
	)
	return result, nil
}

// ListPending returns the team's pending invitations. Requires admin.
func (s *InvitationService) ListPending(ctx context.Context, requesterID, teamID uint) ([]Invitation, error) {
	ctx = ensureContext(ctx)

	if _, err := requireTeamRole(ctx, s.db, requesterID, teamID, models.RoleAdmin); err != nil {
		return nil, err
	}

	var rows []models.TeamInvitation
	if err := s.db.WithContext(ctx).
		Preload("Team").
		Where("team_id = ?", teamID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("invitation service: list pending: %w", err)
	}

	out := make([]Invitation, 0, len(rows))
	for i := range rows {
		out = append(out, s.view(&rows[i], rows[i].GetEmail(s.cipher), teamName(rows[i].Team)))
	}
	return out, nil
}

// ListForUser returns invitations addressed to the user's email, including
// the tokens needed to accept or decline them.
func (s *InvitationService) ListForUser(ctx context.Context, userID uint) ([]Invitation, error) {
	ctx = ensureContext(ctx)

	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	var (
		out   []Invitation
		batch []models.TeamInvitation
	)
	result := s.db.WithContext(ctx).
		Preload("Team").
		FindInBatches(&batch, invitationScanBatch, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				email := batch[i].GetEmail(s.cipher)
				if models.NormaliseEmail(email) != user.Email {
					continue
				}
				view := s.view(&batch[i], email, teamName(batch[i].Team))
				view.Token = batch[i].Token
				out = append(out, view)
			}
			return nil
		})
	if result.Error != nil {
		return nil, fmt.Errorf("invitation service: list for user: %w", result.Error)
	}
	return out, nil
}

// Accept joins the user to the invitation's team with the invited role and
// deletes the invitation.
func (s *InvitationService) Accept(ctx context.Context, userID uint, token string) (*models.TeamRole, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.claim(ctx, userID, token)
	if err != nil {
		return nil, err
	}

	var membership models.TeamRole
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("team_id = ? AND user_id = ?", invitation.TeamID, userID).First(&membership).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			membership = models.TeamRole{UserID: userID, TeamID: invitation.TeamID, Role: invitation.Role}
			if err := tx.Create(&membership).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		}
		return tx.Delete(&models.TeamInvitation{}, invitation.ID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("invitation service: accept: %w", err)
	}

	metrics.InvitationEvents.WithLabelValues("accepted").Inc()
	s.log.Info("invitation accepted", zap.Uint("team_id", invitation.TeamID), zap.Uint("user_id", userID))
	return &membership, nil
}

// Decline deletes an invitation addressed to the user.
func (s *InvitationService) Decline(ctx context.Context, userID uint, token string) error {
	ctx = ensureContext(ctx)

	invitation, err := s.claim(ctx, userID, token)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.TeamInvitation{}, invitation.ID).Error; err != nil {
		return fmt.Errorf("invitation service: decline: %w", err)
	}

	metrics.InvitationEvents.WithLabelValues("declined").Inc()
	return nil
}

// Revoke deletes a pending invitation of the team. Requires admin.
func (s *InvitationService) Revoke(ctx context.Context, requesterID, teamID, invitationID uint) error {
	ctx = ensureContext(ctx)

	if _, err := requireTeamRole(ctx, s.db, requesterID, teamID, models.RoleAdmin); err != nil {
		return err
	}

	result := s.db.WithContext(ctx).
		Where("id = ? AND team_id = ?", invitationID, teamID).
		Delete(&models.TeamInvitation{})
	if result.Error != nil {
		return fmt.Errorf("invitation service: revoke: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInvitationNotFound
	}

	metrics.InvitationEvents.WithLabelValues("revoked").Inc()
	return nil
}

// claim loads the invitation behind token and checks it was addressed to userID.
func (s *InvitationService) claim(ctx context.Context, userID uint, token string) (*models.TeamInvitation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NewBadRequest("token is required")
	}

	user, err := loadUser(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}

	var invitation models.TeamInvitation
	err = s.db.WithContext(ctx).Where("token = ?", token).First(&invitation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvitationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("invitation service: load invitation: %w", err)
	}

	if models.NormaliseEmail(invitation.GetEmail(s.cipher)) != user.Email {
		return nil, ErrInvitationEmailMismatch
	}
	return &invitation, nil
}

func (s *InvitationService) isMember(ctx context.Context, teamID uint, email string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TeamRole{}).
		Joins("JOIN users ON users.id = team_roles.user_id").
		Where("team_roles.team_id = ? AND users.email = ?", teamID, email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("invitation service: check membership: %w", err)
	}
	return count > 0, nil
}

// findPendingByEmail decrypts the team's invitations one by one; ciphertexts
// are randomised, so an equality query on the column cannot match.
func (s *InvitationService) findPendingByEmail(ctx context.Context, teamID uint, email string) (*models.TeamInvitation, error) {
	var rows []models.TeamInvitation
	if err := s.db.WithContext(ctx).Where("team_id = ?", teamID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("invitation service: load pending: %w", err)
	}
	for i := range rows {
		if models.NormaliseEmail(rows[i].GetEmail(s.cipher)) == email {
			return &rows[i], nil
		}
	}
	return nil, nil
}

func (s *InvitationService) sendInvitation(ctx context.Context, email, team, link string) bool {
	if s.mailer == nil {
		return false
	}

	err := s.mailer.Send(ctx, mail.Message{
		To:      []string{email},
		Subject: fmt.Sprintf("You're invited to join %s", team),
		Body:    fmt.Sprintf("Hello,\n\nYou have been invited to join the team %q. Use the following link to accept:\n%s\n\nIf you did not expect this email, you can ignore it.\n", team, link),
	})
	switch {
	case err == nil:
		return true
	case errors.Is(err, mail.ErrDisabled):
		return false
	default:
		s.log.Warn("invitation email failed", zap.Error(err))
		return false
	}
}

func (s *InvitationService) acceptLink(token string) string {
	query := url.Values{"token": []string{token}}.Encode()
	return s.baseURL + s.acceptPath + "?" + query
}

func (s *InvitationService) view(inv *models.TeamInvitation, email, team string) Invitation {
	return Invitation{
		ID:        inv.ID,
		TeamID:    inv.TeamID,
		TeamName:  team,
		Email:     email,
		Role:      inv.Role,
		InvitedBy: inv.UserID,
		CreatedAt: inv.CreatedAt,
	}
}

func teamName(team *models.Team) string {
	if team == nil {
		return ""
	}
	return team.Name
}
