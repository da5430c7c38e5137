package server

import (
	"log/slog"
	"time"

	"claimpro/internal/cache"
	"claimpro/internal/middleware"
	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/service"

	"github.com/gofiber/fiber/v2"
)

type registerRequest struct {
	Email     string `json:"email" form:"Email"`
	Password  string `json:"password" form:"Password"`
	FirstName string `json:"first_name" form:"FirstName"`
	LastName  string `json:"last_name" form:"LastName"`
}

type loginRequest struct {
	Email    string `json:"email" form:"Email"`
	Password string `json:"password" form:"Password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	Roles     []string     `json:"roles"`
}

// Register handles POST /auth/register
// @Summary Register an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Registration"
// @Success 201 {object} authResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return respondServiceError(c, err)
	}
	return s.respondWithToken(c, fiber.StatusCreated, user)
}

// Login handles POST /auth/login
// @Summary Log in
// @Description Authenticate and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login credentials"
// @Success 200 {object} authResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondServiceError(c, err)
	}
	return s.respondWithToken(c, fiber.StatusOK, user)
}

func (s *Server) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	token, claims, err := s.auth.IssueToken(user.ID, user.Email)
	if err != nil {
		return respondServiceError(c, models.NewInternalError(err))
	}
	roles, err := s.roleService.RolesFor(c.UserContext(), user.ID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(status).JSON(authResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
		Roles:     roles,
	})
}

// Logout handles POST /auth/logout
// @Summary Log out
// @Description Revokes the presented token until it expires
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	tokenString, _ := middleware.BearerToken(c)
	claims, err := s.auth.ParseToken(tokenString)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := cache.BlacklistToken(c.UserContext(), claims.ID, ttl); err != nil {
		observability.GlobalLogger.WarnContext(c.UserContext(), "token revocation failed",
			slog.String("error", err.Error()),
		)
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(err))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me handles GET /auth/me
// @Summary Current caller
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} middleware.Caller
// @Router /auth/me [get]
func (s *Server) Me(c *fiber.Ctx) error {
	caller, err := callerOf(c)
	if err != nil {
		return nil
	}
	return c.JSON(caller)
}
