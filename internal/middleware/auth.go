// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"claimpro/internal/cache"
	"claimpro/internal/models"
	"claimpro/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token issuer and audience stamped into and required on every access token.
const (
	TokenIssuer   = "claimpro-api"
	TokenAudience = "claimpro-client"
	TokenTTL      = 7 * 24 * time.Hour
)

const callerLocalsKey = "caller"

type callerCtxKey struct{}

// Caller is the authenticated identity of a request with its role set resolved once.
type Caller struct {
	UserID uint     `json:"user_id"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
}

// HasAnyRole reports whether the caller holds at least one of roles.
func (c Caller) HasAnyRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range c.Roles {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// TokenClaims are the JWT claims issued at login.
type TokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// RoleResolver looks up the role labels assigned to a user.
type RoleResolver interface {
	RolesFor(ctx context.Context, userID uint) ([]string, error)
}

// Authenticator validates bearer tokens and resolves the caller.
type Authenticator struct {
	secret []byte
	roles  RoleResolver
}

// NewAuthenticator creates an Authenticator signing and verifying with secret.
func NewAuthenticator(secret string, roles RoleResolver) *Authenticator {
	return &Authenticator{secret: []byte(secret), roles: roles}
}

// IssueToken signs an HS256 access token for the user.
func (a *Authenticator) IssueToken(userID uint, email string) (string, *TokenClaims, error) {
	now := time.Now()
	claims := &TokenClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// ParseToken verifies signature, expiry, issuer and audience.
func (a *Authenticator) ParseToken(tokenString string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}
	return claims, nil
}

// UserID returns the numeric subject of the token.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil {
		return 0, models.NewUnauthorizedError("Invalid user ID in token")
	}
	return uint(id), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// Required enforces a valid, unrevoked token and stores the resolved Caller.
func (a *Authenticator) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := BearerToken(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := a.ParseToken(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		userID, err := claims.UserID()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		ctx := c.UserContext()
		revoked, err := cache.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			// A revoked token must not become valid again while Redis is down.
			observability.GlobalLogger.WarnContext(ctx, "token blacklist lookup failed",
				slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				errors.New("token revocation check unavailable"))
		}
		if revoked {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Token has been revoked"))
		}

		roles, err := a.roles.RolesFor(ctx, userID)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		}

		caller := Caller{UserID: userID, Email: claims.Email, Roles: roles}
		c.Locals(callerLocalsKey, caller)

		ctx = context.WithValue(ctx, callerCtxKey{}, caller)
		ctx = observability.WithUserID(ctx, userID)
		c.SetUserContext(ctx)

		return c.Next()
	}
}

// RequireRoles rejects callers holding none of roles with 403. It must run after Required.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller, ok := CallerFrom(c)
		if !ok {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}
		if !caller.HasAnyRole(roles...) {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewUnauthorizedError(fmt.Sprintf("requires role: %s", strings.Join(roles, " or "))))
		}
		return c.Next()
	}
}

// CallerFrom returns the Caller stored by Required.
func CallerFrom(c *fiber.Ctx) (Caller, bool) {
	caller, ok := c.Locals(callerLocalsKey).(Caller)
	return caller, ok
}

// CallerFromContext returns the Caller carried by a request context.
func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerCtxKey{}).(Caller)
	return caller, ok
}
