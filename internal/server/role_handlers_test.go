package server

import (
	"net/url"
	"testing"

	"claimpro/internal/config"
	"claimpro/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleHandlers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.userWithRoles(t, "admin@claimpro.local", models.RoleAdministrator)

	t.Run("create form is empty", func(t *testing.T) {
		resp := env.get(t, "/AppRoles/Create", admin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]string{"Name": ""}, decode[map[string]string](t, resp))
	})

	t.Run("create new role", func(t *testing.T) {
		resp := env.postForm(t, "/AppRoles/Create", admin, url.Values{"Name": {"  Auditor "}})
		require.Equal(t, fiber.StatusCreated, resp.StatusCode)
		assert.Equal(t, "Auditor", decode[models.Role](t, resp).Name)
	})

	t.Run("existing role is a no-op", func(t *testing.T) {
		resp := env.postForm(t, "/AppRoles/Create", admin, url.Values{"Name": {"Auditor"}})
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("blank name", func(t *testing.T) {
		resp := env.postForm(t, "/AppRoles/Create", admin, url.Values{"Name": {"   "}})
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Name", decode[models.ErrorResponse](t, resp).Field)
	})

	t.Run("list is ordered by name", func(t *testing.T) {
		resp := env.get(t, "/AppRoles", admin)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		roles := decode[[]models.Role](t, resp)
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, r.Name)
		}
		assert.Equal(t, []string{"Administrator", "Auditor", "Coordinator", "Lecturer", "Manager"}, names)
	})
}

func TestAssignRole_GrantsAccess(t *testing.T) {
	env := newTestEnv(t)
	admin := env.userWithRoles(t, "admin@claimpro.local", models.RoleAdministrator)
	reviewer := env.userWithRoles(t, "reviewer@claimpro.local")

	resp := env.get(t, "/Claims/PendingClaims", reviewer)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = env.postForm(t, "/AppRoles/Assign", admin,
		url.Values{"Email": {"Reviewer@ClaimPro.local"}, "Role": {"coordinator"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.get(t, "/Claims/PendingClaims", reviewer)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.postForm(t, "/AppRoles/Revoke", admin,
		url.Values{"Email": {"reviewer@claimpro.local"}, "Role": {"Coordinator"}})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = env.get(t, "/Claims/PendingClaims", reviewer)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAssignRole_Errors(t *testing.T) {
	env := newTestEnv(t)
	admin := env.userWithRoles(t, "admin@claimpro.local", models.RoleAdministrator)

	tests := []struct {
		name   string
		values url.Values
		status int
	}{
		{"missing fields", url.Values{"Email": {"admin@claimpro.local"}}, fiber.StatusBadRequest},
		{"unknown user", url.Values{"Email": {"ghost@claimpro.local"}, "Role": {"Manager"}}, fiber.StatusNotFound},
		{"unknown role", url.Values{"Email": {"admin@claimpro.local"}, "Role": {"Dean"}}, fiber.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.postForm(t, "/AppRoles/Assign", admin, tt.values)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGetFeatureFlags(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) { c.FeatureFlags = "strict_claim_transitions=on" })
	admin := env.userWithRoles(t, "admin@claimpro.local", models.RoleAdministrator)

	resp := env.get(t, "/admin/feature-flags", admin)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	type flagsBody struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	body := decode[flagsBody](t, resp)
	assert.Equal(t, "on", body.Raw["strict_claim_transitions"])
	assert.True(t, body.Evaluated["strict_claim_transitions"])
}
