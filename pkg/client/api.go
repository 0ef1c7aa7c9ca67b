package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/anonto42/minisocial/internal/models"
	log "github.com/sirupsen/logrus"
)

func id(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}

// SignIn opens a session and keeps its token for later calls.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.SessionResponse, error) {
	var out models.SessionResponse
	err := c.do(ctx, http.MethodPost, "/auth/signin", models.SigninRequest{Email: email, Password: password}, &out)
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

// SignOut revokes the current session and forgets its token.
func (c *Client) SignOut(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/auth/signout", nil, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

func (c *Client) Me(ctx context.Context) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Profile(ctx context.Context, userID uint) (*models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/users/"+id(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SuggestedUsers(ctx context.Context) ([]models.UserCompact, error) {
	var out []models.UserCompact
	err := c.do(ctx, http.MethodGet, "/users/suggested", nil, &out)
	return out, err
}

// Feed fetches every post newest first. Rows without an id or an author are dropped.
func (c *Client) Feed(ctx context.Context) ([]models.FeedPost, error) {
	var out struct {
		Data struct {
			Posts []models.FeedPost `json:"posts"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/feed", nil, &out); err != nil {
		return nil, err
	}
	return validPosts(out.Data.Posts), nil
}

func validPosts(posts []models.FeedPost) []models.FeedPost {
	valid := posts[:0]
	for _, p := range posts {
		if p.ID == "" || p.Author.ID == 0 {
			log.WithField("post_id", p.ID).Warn("dropping malformed feed row")
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

func (c *Client) CreatePost(ctx context.Context, content, mediaURL string) (*models.FeedPost, error) {
	var out models.FeedPost
	err := c.do(ctx, http.MethodPost, "/posts", models.CreatePostRequest{Content: content, MediaURL: mediaURL}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePost(ctx context.Context, postID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+url.PathEscape(postID), nil, nil)
}

func (c *Client) ToggleLike(ctx context.Context, postID string) (models.ToggleLikeResponse, error) {
	var out models.ToggleLikeResponse
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/likes/toggle", nil, &out)
	return out, err
}

// LikedPostIDs lists the posts the signed-in user likes.
func (c *Client) LikedPostIDs(ctx context.Context) ([]string, error) {
	var out struct {
		PostIDs []string `json:"post_ids"`
	}
	err := c.do(ctx, http.MethodGet, "/me/likes", nil, &out)
	return out.PostIDs, err
}

func (c *Client) Comments(ctx context.Context, postID string) ([]models.CommentView, error) {
	var out []models.CommentView
	err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &out)
	return out, err
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (*models.CommentView, error) {
	var out models.CommentView
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", models.CreateCommentRequest{Content: content}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteComment(ctx context.Context, commentID uint) error {
	return c.do(ctx, http.MethodDelete, "/comments/"+id(commentID), nil, nil)
}

func (c *Client) ToggleCommentLike(ctx context.Context, commentID uint) (models.ToggleLikeResponse, error) {
	var out models.ToggleLikeResponse
	err := c.do(ctx, http.MethodPost, "/comments/"+id(commentID)+"/likes/toggle", nil, &out)
	return out, err
}

func (c *Client) ToggleFollow(ctx context.Context, userID uint) (models.ToggleFollowResponse, error) {
	var out models.ToggleFollowResponse
	err := c.do(ctx, http.MethodPost, "/users/"+id(userID)+"/follow/toggle", nil, &out)
	return out, err
}

// FollowingIDs lists the users the signed-in user follows.
func (c *Client) FollowingIDs(ctx context.Context) ([]uint, error) {
	var out struct {
		UserIDs []uint `json:"user_ids"`
	}
	err := c.do(ctx, http.MethodGet, "/me/following", nil, &out)
	return out.UserIDs, err
}

func (c *Client) ToggleBookmark(ctx context.Context, postID string) (models.ToggleBookmarkResponse, error) {
	var out models.ToggleBookmarkResponse
	err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/bookmark/toggle", nil, &out)
	return out, err
}

// BookmarkedPostIDs lists saved posts, most recently saved first.
func (c *Client) BookmarkedPostIDs(ctx context.Context) ([]string, error) {
	var posts []models.FeedPost
	if err := c.do(ctx, http.MethodGet, "/me/bookmarks", nil, &posts); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// Notifications fetches all of the signed-in user's notifications newest first.
func (c *Client) Notifications(ctx context.Context) ([]models.NotificationView, error) {
	var out struct {
		Data struct {
			Notifications []models.NotificationView `json:"notifications"`
		} `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/notifications", nil, &out)
	return out.Data.Notifications, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, notificationID uint) error {
	return c.do(ctx, http.MethodPut, "/notifications/"+id(notificationID)+"/read", nil, nil)
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	var out struct {
		Updated int64 `json:"updated"`
	}
	err := c.do(ctx, http.MethodPut, "/notifications/read-all", nil, &out)
	return out.Updated, err
}
