package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/auth"
	"github.com/charlesng35/teamdash/internal/models"
	"github.com/charlesng35/teamdash/pkg/crypto"
	apperrors "github.com/charlesng35/teamdash/pkg/errors"
	"github.com/charlesng35/teamdash/pkg/logger"
	"github.com/charlesng35/teamdash/pkg/metrics"
	"github.com/charlesng35/teamdash/pkg/validator"
)

const minPasswordLength = 8

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.New("USER_NOT_FOUND", "User not found", http.StatusNotFound)
	// ErrEmailTaken indicates another account already uses the email address.
	ErrEmailTaken = apperrors.New("EMAIL_TAKEN", "An account with this email already exists", http.StatusConflict)
)

// TokenIssuer issues access tokens for authenticated users.
type TokenIssuer interface {
	GenerateAccessToken(input auth.AccessTokenInput) (string, error)
	TTL() time.Duration
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// AuthResult is returned after a successful login.
type AuthResult struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int          `json:"expires_in"`
	User        *models.User `json:"user"`
}

// UserService manages accounts and password authentication.
type UserService struct {
	db     *gorm.DB
	tokens TokenIssuer
	log    *zap.Logger
}

// NewUserService constructs a UserService instance.
func NewUserService(db *gorm.DB, tokens TokenIssuer) (*UserService, error) {
	if db == nil {
		return nil, errors.New("user service: db is required")
	}
	if tokens == nil {
		return nil, errors.New("user service: token issuer is required")
	}
	return &UserService{
		db:     db,
		tokens: tokens,
		log:    logger.WithModule("users"),
	}, nil
}

// Register creates an account with a bcrypt hashed password.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	ctx = ensureContext(ctx)

	email := models.NormaliseEmail(input.Email)
	if !validator.IsEmail(email) {
		return nil, apperrors.NewBadRequest("a valid email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.NewBadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hashed, err := crypto.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("user service: hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Name:     name,
		Password: hashed,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, ErrEmailTaken.WithInternal(err)
		}
		return nil, fmt.Errorf("user service: create user: %w", err)
	}

	s.log.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Authenticate verifies the credentials and issues an access token.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormaliseEmail(email)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user service: load user: %w", err)
	}
	if err != nil || !crypto.VerifyPassword(user.Password, password) {
		metrics.AuthAttempts.WithLabelValues("failure").Inc()
		return nil, apperrors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateAccessToken(auth.AccessTokenInput{UserID: user.ID, Email: user.Email})
	if err != nil {
		return nil, fmt.Errorf("user service: issue token: %w", err)
	}

	metrics.AuthAttempts.WithLabelValues("success").Inc()
	return &AuthResult{
		AccessToken: token,
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		User:        &user,
	}, nil
}

// GetByID loads a user.
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return loadUser(ensureContext(ctx), s.db, id)
}

func loadUser(ctx context.Context, db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}
