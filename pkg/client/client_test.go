package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/api/v1", Token: "tok", Timeout: 2 * time.Second, RetryMax: 2})
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNew_RejectsBadURL(t *testing.T) {
	_, err := New(Options{BaseURL: "ftp://example.com"})
	assert.Error(t, err)
}

func TestFeed_DropsMalformedRows(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/feed", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{"posts": []map[string]interface{}{
				{"id": "a1", "content": "ok", "author": map[string]interface{}{"id": 1, "username": "alice"}},
				{"id": "", "content": "no id", "author": map[string]interface{}{"id": 1}},
				{"id": "a3", "content": "no author"},
			}},
		})
	})
	c := newTestClient(t, mux)

	posts, err := c.Feed(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "a1", posts[0].ID)
	assert.Equal(t, "alice", posts[0].Author.Username)
}

func TestReads_AreRetried(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me/following", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "warming up"})
			return
		}
		writeJSON(w, http.StatusOK, map[string][]uint{"user_ids": {2, 3}})
	})
	c := newTestClient(t, mux)

	ids, err := c.FollowingIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 3}, ids)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestReads_RetriedByDefault(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/me/likes", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]string{"message": "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, map[string][]string{"post_ids": {"p1"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c, err := New(Options{BaseURL: srv.URL + "/api/v1"})
	require.NoError(t, err)
	ids, err := c.LikedPostIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	atomic.StoreInt32(&calls, 0)
	c, err = New(Options{BaseURL: srv.URL + "/api/v1", RetryMax: -1})
	require.NoError(t, err)
	_, err = c.LikedPostIDs(context.Background())
	assert.ErrorIs(t, err, models.ErrUnavailable)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMutations_AreNotRetried(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/posts/p1/likes/toggle", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"message": "down"})
	})
	c := newTestClient(t, mux)

	_, err := c.ToggleLike(context.Background(), "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStatusesMapToSentinels(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, models.ErrValidation},
		{http.StatusUnauthorized, models.ErrUnauthorized},
		{http.StatusForbidden, models.ErrForbidden},
		{http.StatusNotFound, models.ErrNotFound},
		{http.StatusConflict, models.ErrConflict},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/api/v1/posts/p1", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]string{"message": "nope"})
			})
			c := newTestClient(t, mux)

			err := c.DeletePost(context.Background(), "p1")
			require.ErrorIs(t, err, tt.want)
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "nope", appErr.Message)
		})
	}
}

func TestSignInAndSignOut_ManageToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var req models.SigninRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@example.com", req.Email)
		writeJSON(w, http.StatusOK, models.SessionResponse{Token: "fresh", User: models.UserCompact{ID: 1}})
	})
	mux.HandleFunc("/api/v1/auth/signout", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer fresh", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	})
	c := newTestClient(t, mux)

	session, err := c.SignIn(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, uint(1), session.User.ID)
	assert.Equal(t, "fresh", c.Token())

	require.NoError(t, c.SignOut(context.Background()))
	assert.Empty(t, c.Token())
}

func TestSubscribe_DeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "posts,notifications", r.URL.Query().Get("tables"))
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(models.ChangeEvent{Table: models.TablePosts, Type: models.EventInsert, RecordID: "p1"})
		_ = conn.WriteJSON(models.ChangeEvent{Table: models.TableNotifications, Type: models.EventInsert, RecordID: "7"})
	})
	c := newTestClient(t, mux)

	var got []models.ChangeEvent
	err := c.Subscribe(context.Background(), []string{"posts", "notifications"}, func(evt models.ChangeEvent) {
		got = append(got, evt)
	})
	require.Error(t, err, "the stream ends when the server closes")
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0].RecordID)
	assert.Equal(t, models.TableNotifications, got[1].Table)
}

func TestSubscribe_Unauthorized(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Session revoked"})
	})
	c := newTestClient(t, mux)

	err := c.Subscribe(context.Background(), []string{"posts"}, func(models.ChangeEvent) {})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSubscribe_StopsOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/realtime", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_, _, _ = conn.ReadMessage()
	})
	c := newTestClient(t, mux)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	err := c.Subscribe(ctx, []string{"posts"}, func(models.ChangeEvent) {})
	assert.ErrorIs(t, err, context.Canceled)
}
