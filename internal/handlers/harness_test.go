package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/minisocial/internal/middleware"
	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/anonto42/minisocial/internal/session"
	"github.com/anonto42/minisocial/internal/validators"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	e      *echo.Echo
	db     *gorm.DB
	posts  *memoryPostRepository
	events *recordingPublisher
	hub    *realtime.Hub
	tokens *middleware.Tokens
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, repositories.AutoMigrate(db))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	app := &testApp{
		e:      echo.New(),
		db:     db,
		posts:  newMemoryPostRepository(),
		hub:    realtime.NewHub(16),
		tokens: middleware.NewTokens("test-secret", time.Hour),
	}
	app.events = &recordingPublisher{next: realtime.NewBroker(nil, app.hub)}
	t.Cleanup(app.hub.Shutdown)

	deps := Deps{
		Users:         repositories.NewPostgresUserRepository(db),
		Posts:         app.posts,
		PostCascade:   repositories.NewPostgresPostCascadeRepository(db),
		Likes:         repositories.NewPostgresLikeRepository(db),
		Comments:      repositories.NewPostgresCommentRepository(db),
		CommentLikes:  repositories.NewPostgresCommentLikeRepository(db),
		Follows:       repositories.NewPostgresFollowRepository(db),
		SavedPosts:    repositories.NewPostgresSavedPostRepository(db),
		Notifications: repositories.NewPostgresNotificationRepository(db),
		Publisher:     app.events,
	}
	sessions := session.NewMemoryStore()

	app.e.Validator = validators.NewValidator()
	auth := NewAuthHandler(deps.Users, nil, app.tokens, sessions)
	auth.RegisterAuthRoutes(app.e.Group("/api/v1/auth"))

	api := app.e.Group("/api/v1")
	api.Use(middleware.JWTAuthMiddleware(app.tokens, sessions))
	auth.RegisterSessionRoutes(api)
	NewUserHandler(deps).RegisterProfileRoutes(api)
	NewPostHandler(deps).RegisterPostRoutes(api)
	NewFeedHandler(deps).RegisterFeedRoutes(api)
	NewLikeHandler(deps).RegisterLikeRoutes(api)
	NewCommentHandler(deps).RegisterCommentRoutes(api)
	NewFollowHandler(deps).RegisterFollowRoutes(api)
	NewSavedPostHandler(deps).RegisterSavedPostRoutes(api)
	NewNotificationHandler(deps).RegisterNotificationRoutes(api)
	NewRealtimeHandler(app.hub).RegisterRealtimeRoutes(api)
	return app
}

// user inserts a user directly and returns it with a valid session token.
func (a *testApp) user(t *testing.T, username string) (models.User, string) {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "hashed"}
	require.NoError(t, a.db.Create(&u).Error)
	token, _, err := a.tokens.Issue(&u)
	require.NoError(t, err)
	return u, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

// createPost posts content as token's user and returns the created feed row.
func (a *testApp) createPost(t *testing.T, token, content string) models.FeedPost {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/v1/posts", token, echo.Map{"content": content})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var post models.FeedPost
	decode(t, rec, &post)
	return post
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
