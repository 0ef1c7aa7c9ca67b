package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

type feedResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Posts []models.FeedPost `json:"posts"`
	} `json:"data"`
	Meta struct {
		TotalItems  int64 `json:"totalItems"`
		TotalPages  int   `json:"totalPages"`
		HasNextPage bool  `json:"hasNextPage"`
	} `json:"meta"`
}

func TestGetFeed_NewestFirstWithCounts(t *testing.T) {
	app := newTestApp(t)
	_, alice := app.user(t, "alice")
	_, bob := app.user(t, "bob")

	first := app.createPost(t, alice, "Designing a new #Design system")
	second := app.createPost(t, bob, "Morning run")
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/posts/"+first.ID+"/likes/toggle", bob, nil).Code)
	require.Equal(t, http.StatusOK, app.do(t, http.MethodPost, "/api/v1/posts/"+first.ID+"/likes/toggle", alice, nil).Code)
	require.Equal(t, http.StatusCreated, app.do(t, http.MethodPost, "/api/v1/posts/"+first.ID+"/comments", bob, echo.Map{"content": "love it"}).Code)

	rec := app.do(t, http.MethodGet, "/api/v1/feed", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp feedResponse
	decode(t, rec, &resp)

	assert.True(t, resp.Success)
	require.Len(t, resp.Data.Posts, 2)
	assert.Equal(t, second.ID, resp.Data.Posts[0].ID)
	assert.Equal(t, first.ID, resp.Data.Posts[1].ID)
	assert.Equal(t, int64(2), resp.Data.Posts[1].LikesCount)
	assert.Equal(t, int64(1), resp.Data.Posts[1].CommentsCount)
	assert.Equal(t, "bob", resp.Data.Posts[0].Author.Username)
	assert.Equal(t, int64(2), resp.Meta.TotalItems)
}

func TestGetFeed_Paginates(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "alice")
	for i := 0; i < 3; i++ {
		app.createPost(t, token, "post "+strconv.Itoa(i))
	}

	rec := app.do(t, http.MethodGet, "/api/v1/feed?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp feedResponse
	decode(t, rec, &resp)
	assert.Len(t, resp.Data.Posts, 2)
	assert.Equal(t, int64(3), resp.Meta.TotalItems)
	assert.Equal(t, 2, resp.Meta.TotalPages)
	assert.True(t, resp.Meta.HasNextPage)

	rec = app.do(t, http.MethodGet, "/api/v1/feed?page=2&limit=2", token, nil)
	decode(t, rec, &resp)
	require.Len(t, resp.Data.Posts, 1)
	assert.Equal(t, "post 0", resp.Data.Posts[0].Content)
}

func TestGetFeed_DropsPostsWithoutAuthor(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "alice")
	app.createPost(t, token, "kept")
	require.NoError(t, app.posts.CreatePost(t.Context(), &models.Post{AuthorID: 999, Content: "orphan"}))

	rec := app.do(t, http.MethodGet, "/api/v1/feed", token, nil)
	var resp feedResponse
	decode(t, rec, &resp)
	require.Len(t, resp.Data.Posts, 1)
	assert.Equal(t, "kept", resp.Data.Posts[0].Content)
}
