// Package server contains the HTTP and WebSocket handlers of the blog API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	_ "spaceofthoughts/docs" // swagger docs
	"spaceofthoughts/internal/auth"
	"spaceofthoughts/internal/bootstrap"
	"spaceofthoughts/internal/cache"
	"spaceofthoughts/internal/config"
	"spaceofthoughts/internal/database"
	"spaceofthoughts/internal/featureflags"
	"spaceofthoughts/internal/middleware"
	"spaceofthoughts/internal/models"
	"spaceofthoughts/internal/notifications"
	"spaceofthoughts/internal/observability"
	"spaceofthoughts/internal/repository"
	"spaceofthoughts/internal/service"
	"spaceofthoughts/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
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

const (
	serviceName  = "spaceofthoughts-api"
	minBodyLimit = 30 * 1024 * 1024
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

	featureFlags *featureflags.Manager
	authn        *middleware.Authenticator
	attempts     *middleware.AttemptLimiter
	notifier     *notifications.Notifier
	hub          *notifications.Hub

	authService     *service.AuthService
	userService     *service.UserService
	postService     *service.PostService
	categoryService *service.CategoryService
	imageService    *service.ImageService
}

// NewServer connects to the database and Redis, seeds the built-in records
// and returns a ready Server.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, rdb, err := bootstrap.InitRuntime(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, rdb)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil; caching, revocation and the live feed then degrade
// to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	settings := auth.Settings{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	issuer, err := auth.NewIssuer(settings)
	if err != nil {
		return nil, err
	}
	guard, err := auth.NewGuard(settings)
	if err != nil {
		return nil, err
	}

	flags := featureflags.NewManager(cfg.FeatureFlags)
	if cfg.FeatureFlagsFile != "" {
		if err := flags.LoadFile(cfg.FeatureFlagsFile); err != nil {
			return nil, err
		}
	}

	store, err := storage.NewDisk(cfg.ImageDir)
	if err != nil {
		return nil, err
	}

	observability.SetLogger(middleware.Logger)
	blacklist := cache.NewTokenBlacklist(redisClient)
	notifier := notifications.NewNotifier(redisClient)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics(serviceName),
		featureFlags:   flags,
		authn:          middleware.NewAuthenticator(guard, blacklist, cfg.IsProduction()),
		attempts:       middleware.NewAttemptLimiter(redisClient, cfg.Env != "test" && cfg.Env != "development"),
		notifier:       notifier,
		hub:            notifications.NewHub(),
	}

	userRepo := repository.NewUserRepository(db)
	s.authService = service.NewAuthService(userRepo, issuer, blacklist, flags)
	s.userService = service.NewUserService(userRepo)
	s.postService = service.NewPostService(repository.NewPostRepository(db), notifier)
	s.categoryService = service.NewCategoryService(repository.NewCategoryRepository(db), notifier)
	s.imageService = service.NewImageService(
		repository.NewImageRepository(db), store, notifier, flags, cfg.MaxUploadBytes, cfg.PublicBaseURL)

	return s, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		XSSProtection:  "1; mode=block",
		XFrameOptions:  "DENY",
		ReferrerPolicy: "no-referrer",
		// The SPA is served from another origin and embeds /Images.
		CrossOriginResourcePolicy: "cross-origin",
		CrossOriginEmbedderPolicy: "unsafe-none",
	}))
	app.Use(compress.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so error responses still carry CORS headers.
	origins := s.config.Origins()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(origins, ","),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: !slices.Contains(origins, "*"),
		MaxAge:           86400,
	}))

	perMinute := s.config.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 100
	}
	app.Use(limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
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
	app.Static(service.ImageRoute, s.config.ImageDir)

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if !s.config.IsProduction() {
		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Get("/metrics/dashboard", monitor.New(monitor.Config{
			Title: "SpaceOfThoughts API Metrics",
		}))
	}

	api := app.Group("/api")
	writer := s.authn.RequireRoles(models.RoleWriter)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", s.attempts.Limit("login", 10, 5*time.Minute), s.Login)
	authGroup.Post("/register", s.attempts.Limit("register", 5, 10*time.Minute), s.Register)
	authGroup.Post("/logout", s.authn.RequireRoles(), s.Logout)
	authGroup.Get("/count", s.CountUsers)
	authGroup.Get("/users", writer, s.GetUsers)
	authGroup.Get("/users/:id", writer, s.GetUser)
	authGroup.Delete("/users/:id", writer, s.DeleteUser)

	posts := api.Group("/blogposts")
	posts.Get("/", s.GetPosts)
	posts.Get("/count", s.CountPosts)
	posts.Get("/slug/:urlHandle", s.GetPostByURLHandle)
	posts.Get("/:id", s.GetPost)
	posts.Post("/", writer, s.CreatePost)
	posts.Put("/:id", writer, s.UpdatePost)
	posts.Delete("/:id", writer, s.DeletePost)

	categories := api.Group("/categories", writer)
	categories.Get("/", s.GetCategories)
	categories.Post("/", s.CreateCategory)
	categories.Get("/count", s.CountCategories)
	categories.Get("/:id", s.GetCategory)
	categories.Put("/:id", s.UpdateCategory)
	categories.Delete("/:id", s.DeleteCategory)

	images := api.Group("/images", writer)
	images.Get("/", s.GetImages)
	images.Get("/count", s.CountImages)
	images.Post("/", s.UploadImage)
	images.Delete("/:id", s.DeleteImage)

	api.Get("/ws/feed", s.FeedUpgrade, s.FeedHandler())
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional, so
// only the database decides the status code.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unavailable"
	} else if err := database.Ping(ctx, s.db); err != nil {
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
	overall := "healthy"
	switch {
	case dbStatus != "healthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case redisStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the Fiber app with middleware and routes installed.
func (s *Server) NewApp() *fiber.App {
	maxBody := int(s.config.MaxUploadBytes)
	if maxBody <= 0 {
		maxBody = service.DefaultImageMaxUploadBytes
	}
	app := fiber.New(fiber.Config{
		AppName: "SpaceOfThoughts API",
		// Oversized images must reach UploadImage to be rejected under "file";
		// the image service caps what it actually reads.
		BodyLimit: max(3*maxBody, minBodyLimit),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
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

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.NewApp()

	if s.redis != nil && s.featureFlags.Enabled(featureflags.LiveFeed, "") {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			middleware.Logger.Error("failed to start feed wiring",
				slog.String("hub", s.hub.Name()), slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(fmt.Sprintf(":%s", s.config.Port))
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

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("error shutting down hub", slog.String("error", err.Error()))
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
			}
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
