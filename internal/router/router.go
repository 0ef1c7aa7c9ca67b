package router

import (
	"fmt"

	"github.com/anonto42/minisocial/internal/handlers"
	"github.com/anonto42/minisocial/internal/middleware"
	"github.com/anonto42/minisocial/internal/monitoring"
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/anonto42/minisocial/internal/session"
	"github.com/anonto42/minisocial/internal/validators"
	"github.com/anonto42/minisocial/pkg/firebase"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options carries the infrastructure the routes are wired to.
type Options struct {
	Postgres  *gorm.DB
	Posts     repositories.PostRepository
	Hub       *realtime.Hub
	Publisher realtime.Publisher
	Tokens    *middleware.Tokens
	Sessions  session.Store
	// Verifier is nil when Firebase is not configured.
	Verifier firebase.Verifier
}

// SetupRoutes migrates the relational schema and mounts every route under /api/v1.
func SetupRoutes(e *echo.Echo, opts Options) error {
	if err := repositories.AutoMigrate(opts.Postgres); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("PostgreSQL auto-migrations completed for all models.")

	e.Validator = validators.NewValidator()
	e.Use(monitoring.Middleware())

	// Health check - always accessible
	e.GET("/health", handlers.HealthCheck)

	// --- Initialize Repositories ---
	pgdb := opts.Postgres
	deps := handlers.Deps{
		Users:         repositories.NewPostgresUserRepository(pgdb),
		Posts:         opts.Posts,
		PostCascade:   repositories.NewPostgresPostCascadeRepository(pgdb),
		Likes:         repositories.NewPostgresLikeRepository(pgdb),
		Comments:      repositories.NewPostgresCommentRepository(pgdb),
		CommentLikes:  repositories.NewPostgresCommentLikeRepository(pgdb),
		Follows:       repositories.NewPostgresFollowRepository(pgdb),
		SavedPosts:    repositories.NewPostgresSavedPostRepository(pgdb),
		Notifications: repositories.NewPostgresNotificationRepository(pgdb),
		Publisher:     opts.Publisher,
	}

	// --- Unprotected routes for authentication ---
	authHandler := handlers.NewAuthHandler(deps.Users, opts.Verifier, opts.Tokens, opts.Sessions)
	authHandler.RegisterAuthRoutes(e.Group("/api/v1/auth"))
	log.Info("Auth routes configured.")

	// --- Protected routes (require JWT authentication) ---
	api := e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(opts.Tokens, opts.Sessions))
	authHandler.RegisterSessionRoutes(api)

	handlers.NewUserHandler(deps).RegisterProfileRoutes(api)
	handlers.NewPostHandler(deps).RegisterPostRoutes(api)
	handlers.NewFeedHandler(deps).RegisterFeedRoutes(api)
	handlers.NewLikeHandler(deps).RegisterLikeRoutes(api)
	handlers.NewCommentHandler(deps).RegisterCommentRoutes(api)
	handlers.NewFollowHandler(deps).RegisterFollowRoutes(api)
	handlers.NewSavedPostHandler(deps).RegisterSavedPostRoutes(api)
	handlers.NewNotificationHandler(deps).RegisterNotificationRoutes(api)
	handlers.NewRealtimeHandler(opts.Hub).RegisterRealtimeRoutes(api)

	log.Info("All routes configured.")
	return nil
}
