package server

import (
	"errors"
	"log/slog"
	"strings"

	"claimpro/internal/middleware"
	"claimpro/internal/models"
	"claimpro/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// humanizeParam converts a route param name into a human-readable label.
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	if strings.HasSuffix(param, "Id") {
		return strings.ToLower(param[:len(param)-2]) + " ID"
	}
	return param
}

// parseDecimalField reads a decimal form value. An absent value is zero.
func parseDecimalField(c *fiber.Ctx, field string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(c.FormValue(field))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, models.NewFieldValidationError(field, "must be a decimal number")
	}
	return d, nil
}

// statusFor maps an application error code to its HTTP status.
func statusFor(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeConflict, models.CodeConcurrencyConflict:
		return fiber.StatusConflict
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

// respondServiceError renders a service error with the status its code maps to.
// Unexpected errors are logged and hidden behind a generic internal error.
func respondServiceError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
		return models.RespondWithError(c, status, models.NewInternalError(nil))
	}
	return models.RespondWithError(c, status, err)
}

// callerOf returns the authenticated caller. Routes are mounted behind
// Authenticator.Required, so a missing caller is answered with 401.
func callerOf(c *fiber.Ctx) (middleware.Caller, error) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
		return middleware.Caller{}, errResponseWritten
	}
	return caller, nil
}
