package handlers

import (
	"net/http"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles bookmark requests
type SavedPostHandler struct {
	savedPostRepository repositories.SavedPostRepository
	postRepository      repositories.PostRepository
	assembler           *postAssembler
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(deps Deps) *SavedPostHandler {
	return &SavedPostHandler{
		savedPostRepository: deps.SavedPosts,
		postRepository:      deps.Posts,
		assembler:           deps.assembler(),
	}
}

// RegisterSavedPostRoutes registers bookmark routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.POST("/posts/:post_id/bookmark/toggle", h.ToggleBookmark)
	g.GET("/me/bookmarks", h.GetBookmarks)
}

// ToggleBookmark saves or unsaves a post for the caller
func (h *SavedPostHandler) ToggleBookmark(c echo.Context) error {
	ctx := c.Request().Context()
	postID := c.Param("post_id")
	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		return toHTTPError(err)
	}

	saved, err := h.savedPostRepository.ToggleSavedPost(ctx, getUserIDFromContext(c), postID)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, models.ToggleBookmarkResponse{Saved: saved})
}

// GetBookmarks returns the caller's saved posts, most recently saved first
func (h *SavedPostHandler) GetBookmarks(c echo.Context) error {
	ctx := c.Request().Context()
	ids, err := h.savedPostRepository.GetSavedPostIDsByUser(ctx, getUserIDFromContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	posts, err := h.postRepository.GetPostsByIDs(ctx, ids)
	if err != nil {
		return toHTTPError(err)
	}
	byID := make(map[string]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID.Hex()] = p
	}
	ordered := make([]models.Post, 0, len(posts))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	views, err := h.assembler.assemble(ctx, ordered)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, views)
}
