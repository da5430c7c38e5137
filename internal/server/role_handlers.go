package server

import (
	"strings"

	"claimpro/internal/models"
	"claimpro/internal/service"

	"github.com/gofiber/fiber/v2"
)

type roleAssignment struct {
	Email string `json:"email" form:"Email"`
	Role  string `json:"role" form:"Role"`
}

// ListRoles handles GET /AppRoles
// @Summary List roles
// @Tags roles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Role
// @Failure 403 {object} models.ErrorResponse
// @Router /AppRoles [get]
func (s *Server) ListRoles(c *fiber.Ctx) error {
	roles, err := s.roleService.ListRoles(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(roles)
}

// GetCreateRoleForm handles GET /AppRoles/Create
func (s *Server) GetCreateRoleForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{service.FieldRoleName: ""})
}

// CreateRole handles POST /AppRoles/Create
// @Summary Create a role
// @Description Creating a role that already exists returns it unchanged with 200.
// @Tags roles
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param Name formData string true "Role name"
// @Success 200 {object} models.Role
// @Success 201 {object} models.Role
// @Failure 400 {object} models.ErrorResponse
// @Router /AppRoles/Create [post]
func (s *Server) CreateRole(c *fiber.Ctx) error {
	role, created, err := s.roleService.CreateRole(c.UserContext(), c.FormValue(service.FieldRoleName))
	if err != nil {
		return respondServiceError(c, err)
	}
	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(role)
}

// AssignRole handles POST /AppRoles/Assign
// @Summary Assign a role to a user
// @Tags roles
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param Email formData string true "User email"
// @Param Role formData string true "Role name"
// @Success 200 {object} roleAssignment
// @Failure 404 {object} models.ErrorResponse
// @Router /AppRoles/Assign [post]
func (s *Server) AssignRole(c *fiber.Ctx) error {
	req, err := parseRoleAssignment(c)
	if err != nil {
		return nil
	}
	if err := s.roleService.AssignRole(c.UserContext(), req.Email, req.Role); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(req)
}

// RevokeRole handles POST /AppRoles/Revoke
// @Summary Revoke a role from a user
// @Tags roles
// @Accept x-www-form-urlencoded
// @Produce json
// @Security BearerAuth
// @Param Email formData string true "User email"
// @Param Role formData string true "Role name"
// @Success 200 {object} roleAssignment
// @Failure 404 {object} models.ErrorResponse
// @Router /AppRoles/Revoke [post]
func (s *Server) RevokeRole(c *fiber.Ctx) error {
	req, err := parseRoleAssignment(c)
	if err != nil {
		return nil
	}
	if err := s.roleService.RevokeRole(c.UserContext(), req.Email, req.Role); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(req)
}

func parseRoleAssignment(c *fiber.Ctx) (roleAssignment, error) {
	var req roleAssignment
	if err := c.BodyParser(&req); err != nil {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
		return req, errResponseWritten
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Role = strings.TrimSpace(req.Role)
	if req.Email == "" || req.Role == "" {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Email and role are required"))
		return req, errResponseWritten
	}
	return req, nil
}
