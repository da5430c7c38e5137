// Package bootstrap prepares the database, cache and built-in records a process needs.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"claimpro/internal/cache"
	"claimpro/internal/config"
	"claimpro/internal/database"
	"claimpro/internal/models"
	"claimpro/internal/repository"
	"claimpro/internal/service"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations according to DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedBuiltIns ensures the built-in roles exist.
	SeedBuiltIns bool
}

// InitRuntime connects to DB and Redis, applies the schema and seeds
// built-in roles as requested, then bootstraps the development admin.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	if opts.SeedBuiltIns {
		if err := EnsureBuiltIns(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in roles: %w", err)
		}
	}

	if err := ensureDevAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development admin: %w", err)
	}

	return db, r, nil
}

// EnsureBuiltIns creates any missing built-in role.
func EnsureBuiltIns(ctx context.Context, db *gorm.DB) error {
	users := repository.NewUserRepository(db)
	return service.NewRoleService(repository.NewRoleRepository(db), users).EnsureBuiltInRoles(ctx)
}

// ensureDevAdmin registers the development admin account if missing and
// grants it the Administrator role. Only active in development.
func ensureDevAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapAdmin {
		return nil
	}

	email := strings.TrimSpace(strings.ToLower(cfg.DevAdminEmail))
	if email == "" {
		email = "admin@claimpro.local"
	}
	if cfg.DevAdminPassword == "" {
		return errors.New("DEV_ADMIN_PASSWORD must be set when DEV_BOOTSTRAP_ADMIN is enabled")
	}

	users := repository.NewUserRepository(db)
	roles := service.NewRoleService(repository.NewRoleRepository(db), users)
	if err := roles.EnsureBuiltInRoles(ctx); err != nil {
		return err
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing == nil {
		_, err := service.NewAuthService(users).Register(ctx, service.RegisterInput{
			Email:     email,
			Password:  cfg.DevAdminPassword,
			FirstName: "Development",
			LastName:  "Admin",
		})
		if err != nil && !models.HasCode(err, models.CodeConflict) {
			return fmt.Errorf("register admin: %w", err)
		}
	}

	if err := roles.AssignRole(ctx, email, models.RoleAdministrator); err != nil {
		return err
	}

	log.Printf("development admin bootstrap ensured for %s", email)
	return nil
}
