package handlers

import (
	"net/http"
	"strings"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	postRepository    repositories.PostRepository
	cascadeRepository repositories.PostCascadeRepository
	assembler         *postAssembler
	events            events
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(deps Deps) *PostHandler {
	return &PostHandler{
		postRepository:    deps.Posts,
		cascadeRepository: deps.PostCascade,
		assembler:         deps.assembler(),
		events:            events{publisher: deps.Publisher},
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/users/:id/posts", h.GetPostsByUser)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req models.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := getUserIDFromContext(c)

	post := &models.Post{
		AuthorID:  userID,
		Content:   strings.TrimSpace(req.Content),
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
	}
	if post.MediaURL == "" {
		post.MediaType = ""
	} else if post.MediaType == "" {
		post.MediaType = "image"
	}

	if err := h.postRepository.CreatePost(ctx, post); err != nil {
		return toHTTPError(err)
	}

	view, err := h.assembler.assembleOne(ctx, post)
	if err != nil {
		return toHTTPError(err)
	}
	h.events.emit(ctx, models.TablePosts, models.EventInsert, view.ID, userID, 0, view)
	return c.JSON(http.StatusCreated, view)
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	view, err := h.assembler.assembleOne(ctx, post)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, view)
}

// GetPostsByUser lists one author's posts newest first.
func (h *PostHandler) GetPostsByUser(c echo.Context) error {
	authorID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}
	page, limit := pagination(c, 10, true)
	ctx := c.Request().Context()

	posts, err := h.postRepository.GetPostsByAuthorID(ctx, authorID, int64((page-1)*limit), int64(limit))
	if err != nil {
		return toHTTPError(err)
	}
	views, err := h.assembler.assemble(ctx, posts)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}

// UpdatePost edits the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	var req models.UpdatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	postID := c.Param("id")
	userID := getUserIDFromContext(c)

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}
	if post.AuthorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You can only edit your own posts")
	}

	if req.Content != "" {
		post.Content = strings.TrimSpace(req.Content)
	}
	if req.MediaURL != "" {
		post.MediaURL = req.MediaURL
	}
	if req.MediaType != "" {
		post.MediaType = req.MediaType
	}

	if err := h.postRepository.UpdatePost(ctx, postID, post); err != nil {
		return toHTTPError(err)
	}
	view, err := h.assembler.assembleOne(ctx, post)
	if err != nil {
		return toHTTPError(err)
	}
	h.events.emit(ctx, models.TablePosts, models.EventUpdate, postID, userID, 0, view)
	return c.JSON(http.StatusOK, view)
}

// DeletePost removes the caller's post with its likes, comments, bookmarks
// and notifications.
func (h *PostHandler) DeletePost(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("id")
	userID := getUserIDFromContext(c)

	post, err := h.postRepository.GetPostByID(ctx, postID)
	if err != nil {
		return toHTTPError(err)
	}
	if post.AuthorID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "You can only delete your own posts")
	}

	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return toHTTPError(err)
	}
	if err := h.cascadeRepository.DeletePostEdges(ctx, postID); err != nil {
		log.WithError(err).WithField("post_id", postID).Error("post deleted but cleaning its edges failed")
	}

	h.events.emit(ctx, models.TablePosts, models.EventDelete, postID, userID, 0, nil)
	return c.NoContent(http.StatusNoContent)
}
