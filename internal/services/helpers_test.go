package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/auth"
	testutil "github.com/charlesng35/teamdash/internal/database/testutil"
	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/models"
	"github.com/charlesng35/teamdash/pkg/crypto"
	"github.com/charlesng35/teamdash/pkg/mail"
)

var testCipherParams = crypto.PBKDF2Parameters{Iterations: 1000, KeyLength: 32}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
}

func newTestCipher(t *testing.T, secret string) *fieldcrypt.Cipher {
	t.Helper()
	c, err := fieldcrypt.NewCipher(secret, fieldcrypt.WithParameters(testCipherParams))
	require.NoError(t, err)
	return c
}

func newTestJWT(t *testing.T) *auth.JWTService {
	t.Helper()
	svc, err := auth.NewJWTService(auth.JWTConfig{Secret: "test-secret", Issuer: "teamdash", AccessTokenTTL: 15 * time.Minute})
	require.NoError(t, err)
	return svc
}

func createUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hashed, err := crypto.HashPassword("password123")
	require.NoError(t, err)
	user := &models.User{Email: email, Name: email, Password: hashed}
	require.NoError(t, db.Create(user).Error)
	return user
}

func addMember(t *testing.T, db *gorm.DB, teamID, userID uint, role string) {
	t.Helper()
	require.NoError(t, db.Create(&models.TeamRole{TeamID: teamID, UserID: userID, Role: role}).Error)
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}
