package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/CedricAlejo21/securelms-api/internal/models"
	"github.com/CedricAlejo21/securelms-api/internal/service"
	"github.com/CedricAlejo21/securelms-api/internal/utils"
)

func newRBACApp(recorder *recorderStub, actorID uint, role string) *fiber.App {
	authz := service.NewAuthorizationService(recorder, zerolog.New(io.Discard))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if actorID > 0 {
			c.Locals("user_id", actorID)
			c.Locals("user_role", role)
		}
		return c.Next()
	})
	app.Get("/admin/audit", RequireRoles(authz, "audit_trail", models.RoleAdmin), func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "ok", nil)
	})

	return app
}

func doRBACRequest(t *testing.T, app *fiber.App) (*http.Response, utils.APIResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/admin/audit", nil)
	req.Header.Set("User-Agent", "go-test")

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed utils.APIResponse
	require.NoError(t, json.Unmarshal(body, &parsed))
	return resp, parsed
}

func TestRequireRolesAllowsAdmin(t *testing.T) {
	recorder := &recorderStub{}
	app := newRBACApp(recorder, 1, "admin")

	resp, parsed := doRBACRequest(t, app)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, parsed.Success)
	require.Empty(t, recorder.all())
}

func TestRequireRolesDeniesStudentWithGenericWording(t *testing.T) {
	recorder := &recorderStub{}
	app := newRBACApp(recorder, 9, "student")

	resp, parsed := doRBACRequest(t, app)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.False(t, parsed.Success)
	require.Equal(t, service.AccessDeniedMessage, parsed.Message)

	entries := recorder.all()
	require.Len(t, entries, 1, "exactly one audit event per denial")
	entry := entries[0]
	require.Equal(t, models.ActionUnauthorizedAccess, entry.Action)
	require.Equal(t, uint(9), *entry.ActorID)
	require.Equal(t, "audit_trail", entry.ResourceType)
	require.Equal(t, "student", entry.Details["user_role"])
	require.Equal(t, "go-test", entry.UserAgent)
}

func TestRequireRolesDeniesAnonymous(t *testing.T) {
	recorder := &recorderStub{}
	app := newRBACApp(recorder, 0, "")

	resp, parsed := doRBACRequest(t, app)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, service.AccessDeniedMessage, parsed.Message)
	require.Nil(t, recorder.all()[0].ActorID)
}
