package handlers

import (
	"net/http"

	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository repositories.PostRepository
	assembler      *postAssembler
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(deps Deps) *FeedHandler {
	return &FeedHandler{
		postRepository: deps.Posts,
		assembler:      deps.assembler(),
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns every post newest first with author and derived counts.
// Without a limit query parameter the whole feed is returned.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	page, limit := pagination(c, 10, true)
	ctx := c.Request().Context()

	posts, err := h.postRepository.GetAllPosts(ctx, int64((page-1)*limit), int64(limit))
	if err != nil {
		return toHTTPError(err)
	}
	views, err := h.assembler.assemble(ctx, posts)
	if err != nil {
		return toHTTPError(err)
	}

	total := int64(len(views))
	if limit > 0 {
		if total, err = h.postRepository.CountAll(ctx); err != nil {
			return toHTTPError(err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"posts": views,
		},
		"meta": pageMeta(page, limit, total),
	})
}
