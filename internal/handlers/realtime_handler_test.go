package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTables(t *testing.T) {
	tables, err := parseTables("")
	require.NoError(t, err)
	assert.Equal(t, []string{models.TablePosts}, tables)

	tables, err = parseTables(" Posts, notifications ,")
	require.NoError(t, err)
	assert.Equal(t, []string{"posts", "notifications"}, tables)

	_, err = parseTables("posts,users")
	assert.Error(t, err)
}

func TestRealtime_StreamsCommittedWrites(t *testing.T) {
	app := newTestApp(t)
	alice, aliceToken := app.user(t, "alice")
	_, bobToken := app.user(t, "bob")

	srv := httptest.NewServer(app.e)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/realtime?tables=posts,notifications&token=" + aliceToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return app.hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	post := app.createPost(t, bobToken, "realtime hello")
	toggleLike(t, app, bobToken, app.createPost(t, aliceToken, "mine").ID)

	var got []models.ChangeEvent
	for len(got) < 3 {
		var evt models.ChangeEvent
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&evt))
		got = append(got, evt)
	}

	assert.Equal(t, models.TablePosts, got[0].Table)
	assert.Equal(t, post.ID, got[0].RecordID)
	assert.Equal(t, models.TablePosts, got[1].Table)
	assert.Equal(t, models.TableNotifications, got[2].Table)
	assert.Equal(t, alice.ID, got[2].RecipientID)
}

func TestRealtime_RejectsBadRequests(t *testing.T) {
	app := newTestApp(t)
	_, token := app.user(t, "alice")

	rec := app.do(t, http.MethodGet, "/api/v1/realtime?tables=users", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = app.do(t, http.MethodGet, "/api/v1/realtime", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
