package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

const suggestedUsersLimit = 5

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	postRepository   repositories.PostRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(deps Deps) *UserHandler {
	return &UserHandler{
		userRepository:   deps.Users,
		followRepository: deps.Follows,
		postRepository:   deps.Posts,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/suggested", h.GetSuggestedUsers)
	g.GET("/users/:id", h.GetUser)
}

func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	return h.respondWithProfile(c, id)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	return h.respondWithProfile(c, getUserIDFromContext(c))
}

func (h *UserHandler) respondWithProfile(c echo.Context, userID uint) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		return toHTTPError(err)
	}

	profile := models.Profile{UserCompact: user.ToCompact()}
	if profile.Stats.Followers, err = h.followRepository.GetFollowersCount(ctx, userID); err != nil {
		return toHTTPError(err)
	}
	if profile.Stats.Following, err = h.followRepository.GetFollowingCount(ctx, userID); err != nil {
		return toHTTPError(err)
	}
	if profile.Stats.Posts, err = h.postRepository.CountByAuthorID(ctx, userID); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile updates the authenticated user's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req models.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()

	user, err := h.userRepository.GetUserByID(ctx, getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	if req.Username != "" && req.Username != user.Username {
		taken, err := h.userRepository.UsernameTaken(ctx, req.Username, user.ID)
		if err != nil {
			return toHTTPError(err)
		}
		if taken {
			return toHTTPError(models.NewValidationError("username already taken"))
		}
		user.Username = req.Username
	}
	if req.Email != "" {
		user.Email = req.Email
	}
	if req.AvatarURL != "" {
		user.AvatarURL = req.AvatarURL
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}

	if err := h.userRepository.UpdateUser(ctx, user); err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, user.ToCompact())
}

// SearchUsers searches for users by a query string (username or email)
func (h *UserHandler) SearchUsers(c echo.Context) error {
	query := c.QueryParam("q")
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Search query 'q' is required")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 50 {
		limit = 20
	}

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

// GetSuggestedUsers lists people the caller does not follow yet.
func (h *UserHandler) GetSuggestedUsers(c echo.Context) error {
	users, err := h.userRepository.GetSuggestedUsers(c.Request().Context(), getUserIDFromContext(c), suggestedUsersLimit)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}
