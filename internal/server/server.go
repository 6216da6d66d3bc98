// Package server contains HTTP and WebSocket handlers for the debate API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "rostrum/docs" // swagger docs
	"rostrum/internal/bootstrap"
	"rostrum/internal/config"
	"rostrum/internal/events"
	"rostrum/internal/middleware"
	"rostrum/internal/models"
	"rostrum/internal/notifications"
	"rostrum/internal/repository"
	"rostrum/internal/service"
	"rostrum/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-connected collaborators a Server runs on.
type Deps struct {
	DB         *gorm.DB
	Redis      *redis.Client
	Blobs      storage.BlobStore
	Publishers []events.Publisher
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	blobs          storage.BlobStore
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	runtime        *bootstrap.Runtime

	debateRepo repository.DebateRepository
	notifier   *notifications.Notifier
	hub        *notifications.DebateHub

	debateService   *service.DebateService
	responseService *service.ResponseService
	voteService     *service.VoteService
	userService     *service.UserService
}

// NewServer connects every collaborator named by cfg and builds the server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{ServiceName: "rostrum-api"})
	if err != nil {
		return nil, err
	}

	s, err := NewServerWithDeps(cfg, Deps{
		DB:         rt.DB,
		Redis:      rt.Redis,
		Blobs:      rt.Blobs,
		Publishers: []events.Publisher{rt.Events},
	})
	if err != nil {
		return nil, err
	}
	s.runtime = rt
	return s, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Live updates fan out through Redis when a client is given, otherwise they
// are delivered to this instance's subscribers directly.
func NewServerWithDeps(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("server requires a database")
	}
	if deps.Blobs == nil {
		return nil, fmt.Errorf("server requires a blob store")
	}
	middleware.InitMiddleware(cfg)

	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		blobs:          deps.Blobs,
		promMiddleware: middleware.InitMetrics("rostrum-api"),
		hub:            notifications.NewDebateHub(),
	}

	sinks := append([]events.Publisher{}, deps.Publishers...)
	if deps.Redis != nil {
		s.notifier = notifications.NewNotifier(deps.Redis)
		sinks = append(sinks, s.notifier)
	} else {
		sinks = append(sinks, s.hub.LocalPublisher())
	}

	userRepo := repository.NewUserRepository(deps.DB)
	s.debateRepo = repository.NewDebateRepository(deps.DB)
	responseRepo := repository.NewResponseRepository(deps.DB)
	voteRepo := repository.NewVoteRepository(deps.DB)
	categoryRepo := repository.NewCategoryRepository(deps.DB)

	leaders := service.NewLeaderService(deps.DB, s.debateRepo, responseRepo)
	s.debateService = service.NewDebateService(s.debateRepo, categoryRepo, responseRepo, voteRepo, deps.Blobs, cfg, sinks...)
	s.responseService = service.NewResponseService(deps.DB, responseRepo, s.debateRepo, userRepo, leaders, sinks...)
	s.voteService = service.NewVoteService(deps.DB, voteRepo, responseRepo, s.debateRepo, leaders, cfg.VoteMaxRetries, sinks...)
	s.userService = service.NewUserService(userRepo)

	return s, nil
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "Rostrum API",
		BodyLimit: (s.config.PictureMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Context Middleware to propagate Request ID and trace ID
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
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
	app.Get("/api/swagger/*", swagger.HandlerDefault)

	if disk, ok := s.blobs.(*storage.DiskStore); ok {
		app.Static(strings.TrimSuffix(storage.DiskURLPrefix, "/"), disk.Root(), fiber.Static{MaxAge: 3600})
	}

	if s.config.IsDevelopment() {
		app.Post("/auth/token", s.IssueDevToken)
	}
	app.Post("/user", middleware.RateLimitWithPolicy(s.redis, 5, time.Minute, middleware.FailClosed, "signup"), s.CreateUser)

	debate := app.Group("/debate")
	debate.Get("/list", s.ListDebates)
	debate.Get("/category/list", s.ListCategories)
	debate.Post("/", middleware.RequireUser(), middleware.RateLimit(s.redis, 10, time.Minute, "debate_create"), s.CreateDebate)
	debate.Get("/:id/single", middleware.OptionalUser(), s.GetDebate)
	debate.Put("/:id/file", middleware.RequireUser(), s.UploadPicture)
	debate.Get("/:id/file", s.DownloadPicture)

	response := app.Group("/response", middleware.RequireUser())
	response.Post("/", middleware.RateLimit(s.redis, 20, time.Minute, "response_create"), s.CreateResponse)
	response.Post("/:id/vote", middleware.RateLimit(s.redis, 60, time.Minute, "vote"), s.CastVote)

	app.Get("/ws/debate/:id", s.requireDebateUpgrade, s.DebateStream())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis only degrades
// caching and fan-out, so its absence does not fail readiness.
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
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	case redisStatus != "healthy":
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"version": "1.0.0",
		"status":  overallStatus,
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

	s.app = s.NewApp()

	if s.notifier != nil {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start debate hub wiring", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	s.hub.Shutdown(ctx)

	if s.runtime != nil {
		if err := s.runtime.Close(ctx); err != nil {
			middleware.Logger.Error("error closing runtime", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
