package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"claimpro/internal/middleware"
	"claimpro/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const strongPassword = "Lecturer-Pass-2026!"

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/auth/register", "", registerRequest{
		Email:     "New.Lecturer@ClaimPro.local",
		Password:  strongPassword,
		FirstName: "New",
		LastName:  "Lecturer",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	registered := decode[authResponse](t, resp)
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "new.lecturer@claimpro.local", registered.User.Email)
	assert.Empty(t, registered.Roles)

	resp = env.postJSON(t, "/auth/register", "", registerRequest{
		Email:    "new.lecturer@claimpro.local",
		Password: strongPassword,
	})
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, resp).Code)

	require.NoError(t, env.srv.roleService.AssignRole(t.Context(), "new.lecturer@claimpro.local", models.RoleLecturer))

	resp = env.postJSON(t, "/auth/login", "", loginRequest{
		Email:    "new.lecturer@claimpro.local",
		Password: strongPassword,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	loggedIn := decode[authResponse](t, resp)
	assert.Equal(t, []string{models.RoleLecturer}, loggedIn.Roles)

	resp = env.get(t, "/auth/me", loggedIn.Token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	caller := decode[middleware.Caller](t, resp)
	assert.Equal(t, "new.lecturer@claimpro.local", caller.Email)
	assert.Equal(t, []string{models.RoleLecturer}, caller.Roles)
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		req   registerRequest
		field string
	}{
		{"bad email", registerRequest{Email: "not-an-email", Password: strongPassword}, "Email"},
		{"weak password", registerRequest{Email: "a@claimpro.local", Password: "short"}, "Password"},
		{"missing password", registerRequest{Email: "a@claimpro.local"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postJSON(t, "/auth/register", "", tt.req)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.field, decode[models.ErrorResponse](t, resp).Field)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	resp := env.postJSON(t, "/auth/register", "", registerRequest{Email: "user@claimpro.local", Password: strongPassword})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	for _, req := range []loginRequest{
		{Email: "user@claimpro.local", Password: "Wrong-Pass-2026!"},
		{Email: "ghost@claimpro.local", Password: strongPassword},
	} {
		resp := env.postJSON(t, "/auth/login", "", req)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", decode[models.ErrorResponse](t, resp).Error)
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Content-Type", "text/plain")
	resp := env.do(t, req, "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestLogout_RevokesToken(t *testing.T) {
	useMiniredis(t)
	env := newTestEnv(t)
	token := env.userWithRoles(t, "lecturer@claimpro.local", models.RoleLecturer)

	resp := env.get(t, "/Claims", token)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.postJSON(t, "/auth/logout", token, nil)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp = env.get(t, "/Claims", token)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Token has been revoked", decode[models.ErrorResponse](t, resp).Error)
}

func TestLogout_WithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	token := env.userWithRoles(t, "lecturer@claimpro.local")

	resp := env.postJSON(t, "/auth/logout", token, nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
