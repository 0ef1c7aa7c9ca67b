package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/anonto42/minisocial/internal/middleware"
	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/anonto42/minisocial/internal/session"
	"github.com/anonto42/minisocial/pkg/firebase"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	userRepository repositories.UserRepository
	firebase       firebase.Verifier
	tokens         *middleware.Tokens
	sessions       session.Store
}

// NewAuthHandler creates a new AuthHandler. verifier may be nil, which
// disables firebase-login.
func NewAuthHandler(userRepo repositories.UserRepository, verifier firebase.Verifier, tokens *middleware.Tokens, sessions session.Store) *AuthHandler {
	return &AuthHandler{
		userRepository: userRepo,
		firebase:       verifier,
		tokens:         tokens,
		sessions:       sessions,
	}
}

// RegisterAuthRoutes registers the unauthenticated routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// RegisterSessionRoutes registers routes that need a live session
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/auth/signout", h.SignOut)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	taken, err := h.userRepository.UsernameTaken(ctx, req.Username, 0)
	if err != nil {
		return toHTTPError(err)
	}
	if taken {
		return toHTTPError(models.NewValidationError("username already taken"))
	}
	if _, err := h.userRepository.GetUserByEmail(ctx, req.Email); err == nil {
		return echo.NewHTTPError(http.StatusConflict, "User with this email already registered")
	} else if !errors.Is(err, models.ErrNotFound) {
		return toHTTPError(err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := &models.User{
		Username: req.Username,
		Email:    strings.ToLower(req.Email),
		Password: string(hashedPassword),
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return toHTTPError(err)
	}

	return h.respondWithSession(c, http.StatusCreated, user)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByEmail(c.Request().Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
		}
		return toHTTPError(err)
	}
	if user.Password == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Account uses Firebase sign-in")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	return h.respondWithSession(c, http.StatusOK, user)
}

// FirebaseLoginRequest defines the request body for Firebase login
type FirebaseLoginRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

// FirebaseLogin verifies a Firebase ID token and issues a local session,
// creating or linking the user on first sight.
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebase == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req FirebaseLoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	identity, err := h.firebase.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}

	user, err := h.userRepository.GetUserByFirebaseUID(ctx, identity.UID)
	switch {
	case err == nil:
	case !errors.Is(err, models.ErrNotFound):
		return toHTTPError(err)
	case identity.Email == "":
		return echo.NewHTTPError(http.StatusBadRequest, "Firebase account has no email")
	default:
		user, err = h.userRepository.GetUserByEmail(ctx, identity.Email)
		switch {
		case err == nil:
			uid := identity.UID
			user.FirebaseUID = &uid
			if err := h.userRepository.UpdateUser(ctx, user); err != nil {
				return toHTTPError(err)
			}
		case errors.Is(err, models.ErrNotFound):
			user, err = h.createFirebaseUser(c, identity)
			if err != nil {
				return toHTTPError(err)
			}
		default:
			return toHTTPError(err)
		}
	}

	return h.respondWithSession(c, http.StatusOK, user)
}

var nonHandleChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func (h *AuthHandler) createFirebaseUser(c echo.Context, identity *firebase.Identity) (*models.User, error) {
	ctx := c.Request().Context()
	base := identity.Name
	if base == "" {
		base = strings.SplitN(identity.Email, "@", 2)[0]
	}
	base = nonHandleChars.ReplaceAllString(base, "")
	if len(base) < 2 {
		base = "user"
	}
	if len(base) > 40 {
		base = base[:40]
	}

	username := base
	for i := 1; ; i++ {
		taken, err := h.userRepository.UsernameTaken(ctx, username, 0)
		if err != nil {
			return nil, err
		}
		if !taken {
			break
		}
		if i > 50 {
			return nil, models.NewConflictError("could not derive a free username")
		}
		username = fmt.Sprintf("%s%d", base, i)
	}

	uid := identity.UID
	user := &models.User{
		Username:    username,
		Email:       strings.ToLower(identity.Email),
		FirebaseUID: &uid,
	}
	if err := h.userRepository.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	log.WithField("user_id", user.ID).Info("created user from firebase identity")
	return user, nil
}

// SignOut revokes the session carried by the request.
func (h *AuthHandler) SignOut(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Not signed in")
	}
	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := h.sessions.Revoke(c.Request().Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			log.WithError(err).Error("failed to revoke session")
			return echo.NewHTTPError(http.StatusServiceUnavailable, "Session store unavailable")
		}
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) respondWithSession(c echo.Context, status int, user *models.User) error {
	token, claims, err := h.tokens.Issue(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(status, models.SessionResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user.ToCompact(),
	})
}
