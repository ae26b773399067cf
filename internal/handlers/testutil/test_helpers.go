package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/teamdash/internal/api"
	"github.com/charlesng35/teamdash/internal/app"
	iauth "github.com/charlesng35/teamdash/internal/auth"
	"github.com/charlesng35/teamdash/internal/cache"
	sharedtestutil "github.com/charlesng35/teamdash/internal/database/testutil"
	"github.com/charlesng35/teamdash/internal/fieldcrypt"
	"github.com/charlesng35/teamdash/internal/middleware"
	"github.com/charlesng35/teamdash/internal/services"
	"github.com/charlesng35/teamdash/pkg/crypto"
	"github.com/charlesng35/teamdash/pkg/mail"
	"github.com/charlesng35/teamdash/pkg/response"
)

// InviteRateLimit is the per-client invitation limit configured by NewEnv.
const InviteRateLimit = 5

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Router *gin.Engine
	JWT    *iauth.JWTService
	Cipher *fieldcrypt.Cipher
	Mailer *RecordingMailer
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "test-suite-super-secret-key-32-bytes!!",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	cipher, err := fieldcrypt.NewCipher("s3cr3t",
		fieldcrypt.WithParameters(crypto.PBKDF2Parameters{Iterations: 1000, KeyLength: 32}),
	)
	require.NoError(t, err)

	cfg := &app.Config{
		App: app.AppSettings{
			Environment: app.EnvironmentDevelopment,
			BaseURL:     "http://dash.test",
		},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
		},
		RateLimit: app.RateLimitConfig{
			InviteRequests: InviteRateLimit,
			InviteWindow:   time.Minute,
		},
	}

	mailer := &RecordingMailer{}

	users, err := services.NewUserService(db, jwtSvc)
	require.NoError(t, err)
	teams, err := services.NewTeamService(db)
	require.NoError(t, err)
	projects, err := services.NewProjectService(db)
	require.NoError(t, err)
	invitations, err := services.NewInvitationService(db, cipher, mailer,
		services.WithInvitationBaseURL(cfg.App.BaseURL),
	)
	require.NoError(t, err)

	router, err := api.NewRouter(cfg, api.Dependencies{
		DB:          db,
		Tokens:      jwtSvc,
		Users:       users,
		Teams:       teams,
		Projects:    projects,
		Invitations: invitations,
		RateStore:   middleware.NewRateStore(cache.NewMemoryStore()),
	})
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Router: router,
		JWT:    jwtSvc,
		Cipher: cipher,
		Mailer: mailer,
	}
}

// UserPayload captures the user fields returned from auth endpoints.
type UserPayload struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResult bundles the JSON response from POST /api/auth/login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int         `json:"expires_in"`
	User        UserPayload `json:"user"`
}

// Register creates an account through the API and logs it in.
func (e *Env) Register(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{"email": email, "password": password}
	w := e.Request(http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(e.T, http.StatusCreated, w.Code, w.Body.String())

	return e.Login(email, password)
}

// Login authenticates with email and password and returns the issued token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	payload := map[string]string{"email": email, "password": password}
	w := e.Request(http.MethodPost, "/api/auth/login", payload, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Greater(e.T, result.ExpiresIn, 0)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// RecordingMailer captures outbound messages instead of delivering them.
type RecordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
}

// Send records msg.
func (m *RecordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

// Messages returns a copy of every recorded message.
func (m *RecordingMailer) Messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}
