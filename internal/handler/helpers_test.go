package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/config"
	"github.com/CedricAlejo21/securelms-api/internal/handler"
	"github.com/CedricAlejo21/securelms-api/internal/middleware"
	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/repository"
	"github.com/CedricAlejo21/securelms-api/internal/router"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

// apiFixture wires the full HTTP surface against an in-memory database, so
// handler tests exercise the real route tree, middleware chain and services.
type apiFixture struct {
	app    *fiber.App
	db     *gorm.DB
	repo   repository.IdentityRepository
	events repository.SecurityEventRepository
	tokens service.TokenService
}

func newAPIFixture(t *testing.T, name string) *apiFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:api_%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Identity{}, &models.SecurityEvent{}))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	identities := repository.NewIdentityRepository(db)
	events := repository.NewSecurityEventRepository(db)

	audit := service.NewAuditService(events, nil, time.Minute, logger)
	credentials := service.NewCredentialService(identities, validate, bcrypt.MinCost, 0, logger)
	lockout := service.NewLockoutService(identities, 5, 15*time.Minute, logger)
	tokens := service.NewTokenService("handler-test-secret", time.Hour)
	authz := service.NewAuthorizationService(audit, logger)
	auth := service.NewAuthService(identities, credentials, lockout, tokens, audit, validate, logger)
	adminUsers := service.NewAdminUserService(identities, audit, validate, logger)

	cfg := config.Config{AppName: "securelms-api", AppEnv: "test"}

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:      handler.NewAuthHandler(auth, authz, identities, logger),
		AuditHandler:     handler.NewAuditHandler(audit, logger),
		AdminUserHandler: handler.NewAdminUserHandler(adminUsers, logger),
		Authenticated:    middleware.Authenticated(tokens, identities, lockout, audit, logger),
		Authorization:    authz,
	})

	return &apiFixture{app: app, db: db, repo: identities, events: events, tokens: tokens}
}

func (f *apiFixture) seed(t *testing.T, username, password string, role models.Role) *models.Identity {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	identity := &models.Identity{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	require.NoError(t, f.db.Create(identity).Error)
	return identity
}

func (f *apiFixture) token(t *testing.T, identity *models.Identity) string {
	t.Helper()
	token, _, err := f.tokens.Issue(identity)
	require.NoError(t, err)
	return token
}

// do sends a request and decodes the JSON envelope. The raw response is
// returned alongside so callers can inspect status codes and headers.
func (f *apiFixture) do(t *testing.T, method, path, token string, payload interface{}) (*http.Response, utils.APIResponse, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed utils.APIResponse
	if json.Valid(raw) {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed, raw
}

func (f *apiFixture) lastEvent(t *testing.T) models.SecurityEvent {
	t.Helper()
	var event models.SecurityEvent
	require.NoError(t, f.db.Order("id DESC").First(&event).Error)
	return event
}

func (f *apiFixture) countEvents(t *testing.T, action models.SecurityAction) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.SecurityEvent{}).Where("action = ?", action).Count(&count).Error)
	return count
}
