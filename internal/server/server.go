// Package server contains the HTTP handlers for the JSON API and the browser
// account flow.
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/bootstrap"
	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/mail"
	"inkwell/internal/media"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/tokens"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	tokenIssuer   = "inkwell-api"
	tokenAudience = "inkwell-client"
	sessionCookie = "session"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	now            func() time.Time

	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	blogRepo    repository.BlogRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	tagRepo     repository.TagRepository
	otpRepo     repository.OTPRepository

	identity       *service.IdentityService
	tokenService   *service.TokenService
	accountService *service.AccountService
	blogService    *service.BlogService
	postService    *service.PostService
	commentService *service.CommentService
	tagService     *service.TagService
	profileService *service.ProfileService
	sweeper        *service.OTPSweeper
}

// Option adjusts how NewServerWithDeps wires collaborators.
type Option func(*options)

type options struct {
	mailer  mail.Mailer
	avatars media.AvatarStore
	now     func() time.Time
}

// WithMailer replaces the configured mail driver.
func WithMailer(m mail.Mailer) Option {
	return func(o *options) { o.mailer = m }
}

// WithAvatarStore replaces the on-disk avatar store.
func WithAvatarStore(a media.AvatarStore) Option {
	return func(o *options) { o.avatars = a }
}

// WithClock pins the clock used for token lifetimes and session stamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SeedDemo: cfg.SeedDemo})
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient, opts...)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, opts ...Option) (*Server, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mailer == nil {
		o.mailer = mail.New(cfg)
	}
	if o.avatars == nil {
		o.avatars = media.NewDiskAvatarStore(cfg.AvatarDir)
	}

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		now:            o.now,
		userRepo:       repository.NewUserRepository(db),
		profileRepo:    repository.NewProfileRepository(db),
		blogRepo:       repository.NewBlogRepository(db),
		postRepo:       repository.NewPostRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		tagRepo:        repository.NewTagRepository(db),
		otpRepo:        repository.NewOTPRepository(db),
	}

	s.identity = service.NewIdentityService(s.userRepo, o.avatars)
	s.tokenService = service.NewTokenService(
		tokens.NewLinkSigner(cfg.LinkSecret(), cfg.LinkTokenTTL()),
		tokens.NewOTPGenerator(cfg.OTPTTL()),
		s.otpRepo, s.userRepo,
	).WithClock(o.now)
	s.accountService = service.NewAccountService(s.identity, s.tokenService, s.userRepo, o.mailer, cfg.SiteURL).
		WithClock(o.now)
	s.blogService = service.NewBlogService(s.blogRepo, s.tagRepo, s.userRepo)
	s.postService = service.NewPostService(s.postRepo, s.blogRepo)
	s.commentService = service.NewCommentService(s.commentRepo, s.blogRepo)
	s.tagService = service.NewTagService(s.tagRepo, s.userRepo)
	s.profileService = service.NewProfileService(s.profileRepo, s.userRepo, s.blogRepo, s.tagRepo)
	s.sweeper = service.NewOTPSweeper(s.tokenService, cfg.OTPSweepInterval())

	return s, nil
}

// Sweeper exposes the expired-code sweeper so the process can run it alongside the HTTP server.
func (s *Server) Sweeper() *service.OTPSweeper {
	return s.sweeper
}

// Identity exposes account creation for bootstrap and admin tooling.
func (s *Server) Identity() *service.IdentityService {
	return s.identity
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected browser requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
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
	app.Get("/health", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	// Browser flow
	browser := app.Group("/account")
	browser.Get("/verify/:uid/:token", s.BrowserVerify)
	browser.Get("/search", s.AuthRequired(), s.BrowserSearch)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 5, 10*time.Minute, "register"), s.Register)
	auth.Post("/verify", s.VerifyAccount)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/password/change", s.AuthRequired(), s.ChangePassword)
	auth.Post("/password/reset", middleware.RateLimit(s.redis, 5, 10*time.Minute, "reset_link"), s.RequestPasswordReset)
	auth.Post("/password/reset/confirm", s.ConfirmPasswordReset)
	auth.Post("/password/otp", middleware.RateLimit(s.redis, 5, 10*time.Minute, "reset_otp"), s.RequestPasswordOTP)
	auth.Post("/password/otp/confirm", middleware.RateLimit(s.redis, 10, 5*time.Minute, "reset_otp_confirm"), s.ConfirmPasswordOTP)

	// The feed is public; a session, when present, decorates it with the viewer's reactions.
	api.Get("/blogs", s.OptionalAuth(), s.GetFeed)
	api.Get("/tags", s.GetTags)

	protected := api.Group("", s.AuthRequired())

	account := protected.Group("/account")
	account.Get("/", s.GetAccount)
	account.Put("/", s.UpdateAccount)
	account.Post("/deactivate", s.DeactivateAccount)
	account.Delete("/", s.DeleteAccount)

	users := protected.Group("/users")
	// Specific routes before generic /:id
	users.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchUsers)
	users.Get("/:id/blogs", s.GetUserBlogs)
	users.Get("/:id", s.GetUser)

	profile := protected.Group("/profile")
	profile.Get("/", s.GetMyProfile)
	profile.Put("/", s.UpdateMyProfile)
	profile.Get("/followers", s.GetFollowers)
	profile.Get("/following", s.GetFollowing)
	profile.Get("/saved", s.GetSavedBlogs)
	profile.Post("/follow/:userId", s.FollowUser)
	profile.Delete("/follow/:userId", s.UnfollowUser)
	profile.Post("/saved/:blogId", s.SaveBlog)
	profile.Delete("/saved/:blogId", s.UnsaveBlog)
	profile.Post("/tags/:tagId", s.AddProfileTag)
	profile.Delete("/tags/:tagId", s.RemoveProfileTag)

	blogs := protected.Group("/blogs")
	blogs.Post("/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "create_blog"), s.CreateBlog)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	blogs.Post("/:id/publish", s.PublishBlog)
	blogs.Post("/:id/like", s.LikeBlog)
	blogs.Post("/:id/dislike", s.DislikeBlog)
	blogs.Post("/:id/tags/:tagId", s.AddBlogTag)
	blogs.Delete("/:id/tags/:tagId", s.RemoveBlogTag)
	blogs.Get("/:id/posts", s.GetPosts)
	blogs.Post("/:id/posts", s.CreatePost)
	blogs.Get("/:id/comments", s.GetComments)
	blogs.Post("/:id/comments", middleware.RateLimit(s.redis, 5, time.Minute, "create_comment"), s.CreateComment)
	blogs.Get("/:id", s.GetBlog)
	blogs.Put("/:id", s.UpdateBlog)
	blogs.Delete("/:id", s.DeleteBlog)

	posts := protected.Group("/posts")
	posts.Put("/:id", s.UpdatePost)
	posts.Delete("/:id", s.DeletePost)

	comments := protected.Group("/comments")
	comments.Post("/:id/replies", middleware.RateLimit(s.redis, 10, time.Minute, "create_reply"), s.CreateReply)
	comments.Get("/:id", s.GetComment)
	comments.Delete("/:id", s.DeleteComment)

	protected.Delete("/replies/:id", s.DeleteReply)
	protected.Post("/tags", s.CreateTag)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
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

// sessionClaims is what a verified session token yields.
type sessionClaims struct {
	UserID    uuid.UUID
	JTI       string
	ExpiresAt time.Time
}

// sessionToken returns the raw token from the Authorization header or the session cookie.
func sessionToken(c *fiber.Ctx) string {
	if authHeader := c.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}
	return c.Cookies(sessionCookie)
}

// parseSession validates signature, issuer, audience, subject and revocation.
func (s *Server) parseSession(ctx context.Context, tokenString string) (*sessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, models.NewUnauthorizedError("Invalid user ID in token")
	}

	out := &sessionClaims{UserID: userID}
	if jti, ok := claims["jti"].(string); ok {
		out.JTI = jti
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}

	if cache.IsRevoked(ctx, out.JTI) {
		return nil, models.NewUnauthorizedError("Token has been revoked")
	}
	return out, nil
}

// AuthRequired returns the authentication middleware. Tokens belonging to
// deactivated or deleted accounts are rejected.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := sessionToken(c)
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		claims, err := s.parseSession(c.UserContext(), tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, err)
		}

		active, err := s.userRepo.IsActive(c.UserContext(), claims.UserID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !active {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Account is inactive"))
		}

		s.bindSession(c, claims)
		return c.Next()
	}
}

// OptionalAuth identifies the caller when a valid session is presented and
// otherwise lets the request through anonymously.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := sessionToken(c)
		if tokenString == "" {
			return c.Next()
		}
		claims, err := s.parseSession(c.UserContext(), tokenString)
		if err != nil {
			return c.Next()
		}
		if active, err := s.userRepo.IsActive(c.UserContext(), claims.UserID); err == nil && active {
			s.bindSession(c, claims)
		}
		return c.Next()
	}
}

func (s *Server) bindSession(c *fiber.Ctx, claims *sessionClaims) {
	c.Locals("userID", claims.UserID)
	c.Locals("session", claims)
	c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
}

// generateToken issues a signed session token for the user.
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID.String(),
		"username": user.Username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(s.config.SessionTTL()).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// revokeSession blacklists the presented token until its natural expiry.
func (s *Server) revokeSession(c *fiber.Ctx) {
	claims, ok := c.Locals("session").(*sessionClaims)
	if !ok || claims.JTI == "" {
		return
	}
	if err := cache.RevokeToken(c.UserContext(), claims.JTI, claims.ExpiresAt.Sub(s.now())); err != nil {
		middleware.Logger.WarnContext(c.UserContext(), "failed to revoke session", "error", err)
	}
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  s.now().Add(s.config.SessionTTL()),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// Start builds the Fiber app and listens on the configured port.
func (s *Server) Start() error {
	app := fiber.New(fiber.Config{
		AppName:   "Inkwell API",
		BodyLimit: 10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the HTTP server and closes the database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

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
