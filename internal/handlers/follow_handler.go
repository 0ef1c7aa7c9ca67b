package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow-related HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	notifier         *notifier
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(deps Deps) *FollowHandler {
	return &FollowHandler{
		followRepository: deps.Follows,
		userRepository:   deps.Users,
		notifier:         deps.notifier(),
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow/toggle", h.ToggleFollow)
	g.GET("/me/following", h.GetFollowingIDs)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// ToggleFollow follows or unfollows the target user.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	if _, err := h.userRepository.GetUserByID(ctx, targetID); err != nil {
		return toHTTPError(err)
	}
	following, err := h.followRepository.ToggleFollow(ctx, userID, targetID)
	if err != nil {
		return toHTTPError(err)
	}

	typ := models.EventDelete
	if following {
		typ = models.EventInsert
	}
	resp := models.ToggleFollowResponse{Following: following}
	h.notifier.events.emit(ctx, models.TableFollows, typ, strconv.FormatUint(uint64(targetID), 10), userID, 0, resp)
	if following {
		h.notifier.notify(ctx, models.NotificationFollow, userID, targetID, "")
	}
	return c.JSON(http.StatusOK, resp)
}

// GetFollowingIDs lists the ids of users the caller follows.
func (h *FollowHandler) GetFollowingIDs(c echo.Context) error {
	ids, err := h.followRepository.GetFollowingIDs(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_ids": ids})
}

// GetFollowers lists a user's followers
func (h *FollowHandler) GetFollowers(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}

// GetFollowing lists the users a user follows
func (h *FollowHandler) GetFollowing(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, compactUsers(users))
}
