package handlers

import (
	"net/http"
	"testing"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toggleLike(t *testing.T, app *testApp, token, postID string) models.ToggleLikeResponse {
	t.Helper()
	rec := app.do(t, http.MethodPost, "/api/v1/posts/"+postID+"/likes/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp models.ToggleLikeResponse
	decode(t, rec, &resp)
	return resp
}

func TestToggleLike_TwiceRestoresState(t *testing.T) {
	app := newTestApp(t)
	_, alice := app.user(t, "alice")
	bob, bobToken := app.user(t, "bob")
	post := app.createPost(t, alice, "like me")

	first := toggleLike(t, app, bobToken, post.ID)
	assert.Equal(t, models.ToggleLikeResponse{Liked: true, LikesCount: 1}, first)

	second := toggleLike(t, app, bobToken, post.ID)
	assert.Equal(t, models.ToggleLikeResponse{Liked: false, LikesCount: 0}, second)

	rec := app.do(t, http.MethodGet, "/api/v1/me/likes", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liked struct {
		PostIDs []string `json:"post_ids"`
	}
	decode(t, rec, &liked)
	assert.Empty(t, liked.PostIDs)

	likes := app.events.ofTable(models.TableLikes)
	require.Len(t, likes, 2)
	assert.Equal(t, models.EventInsert, likes[0].Type)
	assert.Equal(t, models.EventDelete, likes[1].Type)
	assert.Equal(t, bob.ID, likes[0].ActorID)
}

func TestToggleLike_NotifiesAuthorButNotSelf(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.user(t, "alice")
	_, bobToken := app.user(t, "bob")
	post := app.createPost(t, aliceToken, "like me")

	toggleLike(t, app, aliceToken, post.ID)
	toggleLike(t, app, bobToken, post.ID)

	var notifications []models.Notification
	require.NoError(t, app.db.Find(&notifications).Error)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationLike, notifications[0].Type)
	assert.Equal(t, alice.ID, notifications[0].RecipientID)
	assert.Equal(t, post.ID, notifications[0].PostID)

	pushed := app.events.ofTable(models.TableNotifications)
	require.Len(t, pushed, 1)
	assert.Equal(t, alice.ID, pushed[0].RecipientID)
}

func TestToggleLike_UnknownPost(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "alice")

	rec := app.do(t, http.MethodPost, "/api/v1/posts/000000000000000000000000/likes/toggle", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
