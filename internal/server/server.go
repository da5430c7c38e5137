// Package server contains the HTTP handlers for the claims API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	_ "claimpro/docs" // swagger docs
	"claimpro/internal/config"
	"claimpro/internal/featureflags"
	"claimpro/internal/middleware"
	"claimpro/internal/models"
	"claimpro/internal/observability"
	"claimpro/internal/repository"
	"claimpro/internal/service"
	"claimpro/internal/storage"
	"claimpro/internal/validation"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BodyLimit is the transport ceiling for request bodies, multipart uploads included.
const BodyLimit = 10 * 1024 * 1024

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	featureFlags   *featureflags.Manager
	claimService   *service.ClaimService
	roleService    *service.RoleService
	authService    *service.AuthService
	userService    *service.UserService
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The bootstrap layer establishes DB/Redis and performs any seeding.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	attachments, err := storage.NewLocalStore(cfg.AttachmentDir)
	if err != nil {
		return nil, fmt.Errorf("attachment store: %w", err)
	}

	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	claimRepo := repository.NewClaimRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	policy := validation.NewAttachmentPolicy(cfg.AttachmentMaxBytes())
	roleService := service.NewRoleService(roleRepo, userRepo)

	return &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(observability.ServiceName),
		auth:           middleware.NewAuthenticator(cfg.JWTSecret, roleService),
		featureFlags:   flags,
		claimService:   service.NewClaimService(claimRepo, attachments, policy, flags),
		roleService:    roleService,
		authService:    service.NewAuthService(userRepo),
		userService:    service.NewUserService(userRepo),
	}, nil
}

// NewApp builds the Fiber application with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "ClaimPro API",
		BodyLimit:    BodyLimit,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		return models.RespondWithError(c, fe.Code, errors.New(fe.Message))
	}
	log.Printf("Error: %v", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Propagates request, user and trace IDs into the user context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses keep the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || !s.config.IsProduction()
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Stored attachments are public, addressed by their generated name.
	app.Static(storage.PublicPrefix, s.config.AttachmentDir, fiber.Static{
		Browse: false,
	})

	auth := app.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.auth.Required(), s.Logout)
	auth.Get("/me", s.auth.Required(), s.Me)

	reviewers := middleware.RequireRoles(models.ReviewerRoles...)
	lecturers := middleware.RequireRoles(models.RoleLecturer)
	admins := middleware.RequireRoles(models.RoleAdministrator)

	claims := app.Group("/Claims", s.auth.Required())
	claims.Get("/", lecturers, s.ListOwnClaims)
	claims.Get("/PendingClaims", reviewers, s.ListPendingClaims)
	claims.Get("/ClaimHistory", reviewers, s.ListClaimHistory)
	claims.Get("/Create", lecturers, s.GetCreateClaimForm)
	claims.Post("/Create", lecturers,
		middleware.RateLimit(s.redis, 10, time.Minute, "submit_claim"), s.SubmitClaim)
	claims.Get("/Details/:id", s.GetClaimDetails)
	claims.Get("/Edit/:id", s.GetClaimDetails)
	claims.Post("/Edit/:id", s.EditClaim)
	claims.Get("/Delete/:id", s.GetClaimDetails)
	claims.Post("/Delete/:id", s.DeleteClaim)
	claims.Post("/Reject/:id", s.RejectClaim)
	claims.Post("/Approve/:id", s.ApproveClaim)

	roles := app.Group("/AppRoles", s.auth.Required(), admins)
	roles.Get("/", s.ListRoles)
	roles.Get("/Create", s.GetCreateRoleForm)
	roles.Post("/Create", s.CreateRole)
	roles.Post("/Assign", s.AssignRole)
	roles.Post("/Revoke", s.RevokeRole)

	admin := app.Group("/admin", s.auth.Required(), admins)
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Get("/users", s.ListUsers)
	admin.Get("/users/:id", s.GetUser)
	admin.Get("/dashboard", monitor.New(monitor.Config{
		Title: "ClaimPro Metrics Dashboard",
	}))
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports unhealthy when the database is unreachable or a
// configured Redis does not answer. Running without Redis degrades caching and
// rate limiting but still serves claims.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start serves HTTP on the configured port until Shutdown is called.
func (s *Server) Start() error {
	s.app = s.NewApp()
	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
