// Package server contains the HTTP handlers for the comment and moderation API.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	_ "github.com/dereckmezquita/derecksnotes.com-sub002/docs" // swagger docs
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/cache"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/config"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/database"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/featureflags"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/middleware"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/models"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/notifications"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/repository"
	"github.com/dereckmezquita/derecksnotes.com-sub002/internal/service"

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

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	featureFlags   *featureflags.Manager

	store     *repository.Store
	notifier  *notifications.Notifier
	authz     *service.Authorizer
	comments  *service.CommentService
	reactions *service.ReactionService
	reports   *service.ReportService
	bans      *service.BanService
	audit     *service.AuditService
	groups    *service.GroupService
	users     *service.UserService
	retention *service.RetentionJob
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client disables caching, rate limiting and event publishing.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("server requires a config and a database")
	}
	middleware.InitMiddleware(cfg)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	store := repository.NewStore(db)
	authz := service.NewAuthorizer(store)
	recorder := service.NewAuditRecorder()

	var notifier *notifications.Notifier
	if flags.Active(featureflags.ModerationEvents) {
		notifier = notifications.NewNotifier(redisClient).WithActorGate(func(actorID uint) bool {
			return flags.EnabledFor(featureflags.ModerationEvents, actorID)
		})
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("comments-api"),
		featureFlags:   flags,
		store:          store,
		notifier:       notifier,
		authz:          authz,
		comments:       service.NewCommentService(store, authz, recorder, cfg.MaxThreadDepth),
		reactions:      service.NewReactionService(store, authz),
		reports:        service.NewReportService(store, authz, recorder, notifier),
		bans:           service.NewBanService(store, authz, recorder, notifier),
		groups:         service.NewGroupService(store, authz, recorder),
		users:          service.NewUserService(store),
	}
	s.audit = service.NewAuditService(store, authz, recorder)
	if flags.Enabled(featureflags.AuditRetentionWorker) {
		s.retention = service.NewRetentionJob(s.audit, cfg.AuditRetentionActorID,
			cfg.AuditRetention(), cfg.AuditRetentionInterval)
	}

	middleware.Logger.Info("feature flags loaded", "flags", flags.Raw())
	if unknown, invalid := flags.Unknown(), flags.Invalid(); len(unknown) > 0 || len(invalid) > 0 {
		middleware.Logger.Warn("ignoring feature flags", "unknown", unknown, "invalid", invalid)
	}
	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Tracing sets the trace ID local that ContextMiddleware copies into the request context.
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Comments API Metrics Dashboard",
	}))

	// Swagger documentation
	api.Get("/swagger/*", swagger.HandlerDefault)

	auth := api.Group("/auth")
	auth.Post("/signup", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)

	users := api.Group("/users")
	users.Get("/me", middleware.AuthRequired, s.GetMyProfile)
	users.Get("/:id", s.GetUserProfile)

	// Post slugs contain '/', so threads are addressed by query parameter.
	comments := api.Group("/comments")
	comments.Get("/", middleware.AuthOptional, s.GetThread)
	comments.Post("/", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	comments.Get("/:id/history", middleware.AuthOptional, s.GetCommentHistory)
	comments.Post("/:id/approve", middleware.AuthRequired, s.ApproveComment)
	comments.Post("/:id/unapprove", middleware.AuthRequired, s.UnapproveComment)
	comments.Put("/:id/reaction", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 60, time.Minute, "reaction"), s.SetReaction)
	comments.Delete("/:id/reaction", middleware.AuthRequired, s.RemoveReaction)
	comments.Post("/:id/reports", middleware.AuthRequired,
		middleware.RateLimit(s.redis, 10, 10*time.Minute, "report"), s.CreateReport)
	comments.Get("/:id", middleware.AuthOptional, s.GetComment)
	comments.Put("/:id", middleware.AuthRequired, s.UpdateComment)
	comments.Delete("/:id", middleware.AuthRequired, s.DeleteComment)

	// Admin routes only authenticate; each service checks the permission it needs.
	admin := api.Group("/admin", middleware.AuthRequired)
	admin.Get("/comments/pending", s.GetPendingComments)

	admin.Get("/reports", s.ListReports)
	admin.Post("/reports/:id/resolve", s.ResolveReport)

	admin.Post("/users/:id/bans", s.BanUser)
	admin.Get("/users/:id/bans", s.ListUserBans)
	admin.Put("/users/:id/group", s.AssignUserGroup)
	admin.Post("/bans/:id/lift", s.LiftBan)

	admin.Get("/groups", s.ListGroups)
	admin.Post("/groups", s.CreateGroup)
	admin.Get("/groups/:id", s.GetGroup)
	admin.Post("/groups/:id/permissions", s.GrantPermission)
	admin.Delete("/groups/:id/permissions/:name", s.RevokePermission)

	admin.Get("/audit", s.ListAudit)
	admin.Post("/audit/purge", s.PurgeAudit)
}

// App builds the Fiber app on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "Comments API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "path", c.Path(), "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional: a missing client
// reports "disabled" without failing readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
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

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := s.App()

	if s.retention != nil {
		go s.retention.Run(s.shutdownCtx)
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	// Let in-flight event publishes finish before Redis goes away.
	s.notifier.Wait()

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
