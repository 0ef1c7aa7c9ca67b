package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	commentRepository     repositories.CommentRepository
	commentLikeRepository repositories.CommentLikeRepository
	postRepository        repositories.PostRepository
	userRepository        repositories.UserRepository
	notifier              *notifier
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(deps Deps) *CommentHandler {
	return &CommentHandler{
		commentRepository:     deps.Comments,
		commentLikeRepository: deps.CommentLikes,
		postRepository:        deps.Posts,
		userRepository:        deps.Users,
		notifier:              deps.notifier(),
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/comments", h.CreateComment)
	g.GET("/posts/:post_id/comments", h.GetCommentsByPostID)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
	g.POST("/comments/:id/likes/toggle", h.ToggleCommentLike)
}

func (h *CommentHandler) views(ctx context.Context, viewerID uint, comments []models.Comment) ([]models.CommentView, error) {
	out := make([]models.CommentView, 0, len(comments))
	if len(comments) == 0 {
		return out, nil
	}
	ids := make([]uint, len(comments))
	userIDs := make([]uint, 0, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
		userIDs = append(userIDs, cm.UserID)
	}
	users, err := h.userRepository.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	likes, err := h.commentLikeRepository.GetLikesCountByCommentIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	likedByViewer, err := h.commentLikeRepository.GetLikedCommentIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	for _, cm := range comments {
		author := users[cm.UserID]
		out = append(out, models.CommentView{
			ID:         cm.ID,
			PostID:     cm.PostID,
			UserID:     cm.UserID,
			Author:     author.ToCompact(),
			Content:    cm.Content,
			CreatedAt:  cm.CreatedAt,
			LikesCount: likes[cm.ID],
			LikedByMe:  likedByViewer[cm.ID],
		})
	}
	return out, nil
}

// CreateComment adds a comment to a post
func (h *CommentHandler) CreateComment(c echo.Context) error {
	var req models.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("post_id")
	userID := getUserIDFromContext(c)

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}

	comment := &models.Comment{
		PostID:  postID,
		UserID:  userID,
		Content: strings.TrimSpace(req.Content),
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return toHTTPError(err)
	}

	views, err := h.views(ctx, userID, []models.Comment{*comment})
	if err != nil {
		return toHTTPError(err)
	}
	h.notifier.events.emit(ctx, models.TableComments, models.EventInsert, strconv.FormatUint(uint64(comment.ID), 10), userID, 0, views[0])
	h.notifier.notify(ctx, models.NotificationComment, userID, post.AuthorID, postID)
	return c.JSON(http.StatusCreated, views[0])
}

// GetCommentsByPostID lists a post's comments oldest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")
	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		return toHTTPError(err)
	}

	comments, err := h.commentRepository.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}
	views, err := h.views(ctx, getUserIDFromContext(c), comments)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *CommentHandler) ownComment(c echo.Context) (*models.Comment, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), id)
	if err != nil {
		return nil, toHTTPError(err)
	}
	if comment.UserID != getUserIDFromContext(c) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "You can only change your own comments")
	}
	return comment, nil
}

// UpdateComment edits the caller's comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	var req models.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	comment, err := h.ownComment(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	comment.Content = strings.TrimSpace(req.Content)
	if err := h.commentRepository.UpdateComment(ctx, comment); err != nil {
		return toHTTPError(err)
	}
	views, err := h.views(ctx, comment.UserID, []models.Comment{*comment})
	if err != nil {
		return toHTTPError(err)
	}
	h.notifier.events.emit(ctx, models.TableComments, models.EventUpdate, strconv.FormatUint(uint64(comment.ID), 10), comment.UserID, 0, views[0])
	return c.JSON(http.StatusOK, views[0])
}

// DeleteComment removes the caller's comment and its likes
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	comment, err := h.ownComment(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	if err := h.commentRepository.DeleteComment(ctx, comment.ID); err != nil {
		return toHTTPError(err)
	}
	h.notifier.events.emit(ctx, models.TableComments, models.EventDelete, strconv.FormatUint(uint64(comment.ID), 10), comment.UserID, 0, echo.Map{"post_id": comment.PostID})
	return c.NoContent(http.StatusNoContent)
}

// ToggleCommentLike flips the caller's like on a comment
func (h *CommentHandler) ToggleCommentLike(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.commentRepository.GetCommentByID(ctx, id); err != nil {
		return toHTTPError(err)
	}

	liked, err := h.commentLikeRepository.ToggleCommentLike(ctx, id, getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	count, err := h.commentLikeRepository.GetLikesCount(ctx, id)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, models.ToggleLikeResponse{Liked: liked, LikesCount: count})
}
