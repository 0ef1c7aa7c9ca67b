package handlers

import (
	"net/http"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository repositories.LikeRepository
	postRepository repositories.PostRepository
	notifier       *notifier
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(deps Deps) *LikeHandler {
	return &LikeHandler{
		likeRepository: deps.Likes,
		postRepository: deps.Posts,
		notifier:       deps.notifier(),
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/likes/toggle", h.ToggleLike)
	g.GET("/me/likes", h.GetLikedPostIDs)
}

// ToggleLike flips the caller's like on a post and returns the new state.
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")
	userID := getUserIDFromContext(c)

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}

	liked, err := h.likeRepository.ToggleLike(ctx, postID, userID)
	if err != nil {
		return toHTTPError(err)
	}
	count, err := h.likeRepository.GetLikesCountByPostID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}

	typ := models.EventDelete
	if liked {
		typ = models.EventInsert
	}
	resp := models.ToggleLikeResponse{Liked: liked, LikesCount: count}
	h.notifier.events.emit(ctx, models.TableLikes, typ, postID, userID, 0, resp)
	if liked {
		h.notifier.notify(ctx, models.NotificationLike, userID, post.AuthorID, postID)
	}
	return c.JSON(http.StatusOK, resp)
}

// GetLikedPostIDs lists the posts the caller likes.
func (h *LikeHandler) GetLikedPostIDs(c echo.Context) error {
	ids, err := h.likeRepository.GetLikedPostIDs(c.Request().Context(), getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"post_ids": ids})
}
