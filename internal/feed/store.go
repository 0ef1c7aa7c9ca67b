// Package feed keeps the locally rendered MiniSocial state in sync with the
// data service. Every action is applied locally first and reverted when the
// service rejects it.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 10 * time.Second
	suggestedLimit = 5
)

// Remote is the data service as seen by the store. pkg/client.Client implements it.
type Remote interface {
	Feed(ctx context.Context) ([]models.FeedPost, error)
	CreatePost(ctx context.Context, content, mediaURL string) (*models.FeedPost, error)
	DeletePost(ctx context.Context, postID string) error

	ToggleLike(ctx context.Context, postID string) (models.ToggleLikeResponse, error)
	LikedPostIDs(ctx context.Context) ([]string, error)

	Comments(ctx context.Context, postID string) ([]models.CommentView, error)
	AddComment(ctx context.Context, postID, content string) (*models.CommentView, error)
	DeleteComment(ctx context.Context, commentID uint) error
	ToggleCommentLike(ctx context.Context, commentID uint) (models.ToggleLikeResponse, error)

	ToggleFollow(ctx context.Context, userID uint) (models.ToggleFollowResponse, error)
	FollowingIDs(ctx context.Context) ([]uint, error)
	SuggestedUsers(ctx context.Context) ([]models.UserCompact, error)

	ToggleBookmark(ctx context.Context, postID string) (models.ToggleBookmarkResponse, error)
	BookmarkedPostIDs(ctx context.Context) ([]string, error)

	Notifications(ctx context.Context) ([]models.NotificationView, error)
	MarkNotificationRead(ctx context.Context, notificationID uint) error
	MarkAllNotificationsRead(ctx context.Context) (int64, error)

	Subscribe(ctx context.Context, tables []string, handle func(models.ChangeEvent)) error
}

type Options struct {
	// Timeout bounds every remote call. Defaults to 10s.
	Timeout time.Duration
	// OnAuthRequired is called when the service rejects the session.
	OnAuthRequired func(err error)
	// ReconnectMin and ReconnectMax bound the Watch backoff.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// Post is a feed row with the current user's relation to it.
type Post struct {
	models.FeedPost
	Liked      bool `json:"liked"`
	Bookmarked bool `json:"bookmarked"`
	// Pending marks an optimistic row the service has not confirmed yet.
	Pending bool `json:"pending,omitempty"`
}

// Comment is a comment row; LocalID is set on optimistic rows only.
type Comment struct {
	models.CommentView
	Liked   bool   `json:"liked"`
	LocalID string `json:"-"`
}

// Store holds the feed state of one signed-in user. It is safe for concurrent
// use; remote calls never run with the lock held.
type Store struct {
	remote Remote
	me     models.UserCompact
	opts   Options

	ctx     context.Context
	cancel  context.CancelFunc
	refetch *coalescer
	wg      sync.WaitGroup

	mu            sync.Mutex
	closed        bool
	posts         []models.FeedPost
	liked         map[string]bool
	bookmarked    map[string]bool
	following     map[uint]bool
	followPending map[uint]bool
	comments      map[string][]Comment
	likedComments map[uint]bool
	notifications []models.NotificationView
	// read ids stay read even if a refetch still reports them unread
	readIDs   map[uint]bool
	suggested []models.UserCompact
}

func NewStore(remote Remote, me models.UserCompact, opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.ReconnectMin <= 0 {
		opts.ReconnectMin = 500 * time.Millisecond
	}
	if opts.ReconnectMax < opts.ReconnectMin {
		opts.ReconnectMax = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		remote:        remote,
		me:            me,
		opts:          opts,
		ctx:           ctx,
		cancel:        cancel,
		refetch:       newCoalescer(),
		liked:         make(map[string]bool),
		bookmarked:    make(map[string]bool),
		following:     make(map[uint]bool),
		followPending: make(map[uint]bool),
		comments:      make(map[string][]Comment),
		likedComments: make(map[uint]bool),
		readIDs:       make(map[uint]bool),
	}
}

// Close cancels outstanding remote calls. Nothing mutates the state afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// callContext bounds one remote call by the store lifetime and the timeout.
func (s *Store) callContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(s.ctx, s.opts.Timeout)
}

// update runs fn under the lock unless the store is closed.
func (s *Store) update(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *Store) authCheck(err error) {
	if errors.Is(err, models.ErrUnauthorized) && s.opts.OnAuthRequired != nil {
		s.opts.OnAuthRequired(err)
	}
}

// Load fetches everything the store renders.
func (s *Store) Load(ctx context.Context) error {
	steps := []func() error{
		s.RefreshFeed,
		s.RefreshFollowing,
		s.RefreshBookmarks,
		s.RefreshNotifications,
		s.RefreshSuggestions,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// fetch runs a coalesced remote read and applies its result unless closed.
func fetch[T any](s *Store, stream, key string, get func(context.Context) (T, error), apply func(T)) error {
	return s.refetch.do(stream, key, func() error {
		ctx, cancel := s.callContext()
		defer cancel()
		v, err := get(ctx)
		if err != nil {
			s.authCheck(err)
			return err
		}
		if !s.update(func() { apply(v) }) {
			return ErrClosed
		}
		return nil
	})
}

// RefreshFeed replaces the posts and the liked set with the service's view.
func (s *Store) RefreshFeed() error {
	type snapshot struct {
		posts []models.FeedPost
		liked []string
	}
	return fetch(s, "feed", "feed", func(ctx context.Context) (snapshot, error) {
		posts, err := s.remote.Feed(ctx)
		if err != nil {
			return snapshot{}, err
		}
		liked, err := s.remote.LikedPostIDs(ctx)
		return snapshot{posts: posts, liked: liked}, err
	}, func(v snapshot) {
		s.posts = v.posts
		s.liked = make(map[string]bool, len(v.liked))
		for _, id := range v.liked {
			s.liked[id] = true
		}
	})
}

func (s *Store) RefreshFollowing() error {
	return fetch(s, "following", "following", s.remote.FollowingIDs, func(ids []uint) {
		s.following = make(map[uint]bool, len(ids))
		for _, id := range ids {
			s.following[id] = true
		}
	})
}

func (s *Store) RefreshBookmarks() error {
	return fetch(s, "bookmarks", "bookmarks", s.remote.BookmarkedPostIDs, func(ids []string) {
		s.bookmarked = make(map[string]bool, len(ids))
		for _, id := range ids {
			s.bookmarked[id] = true
		}
	})
}

func (s *Store) RefreshNotifications() error {
	return fetch(s, "notifications", "notifications", s.remote.Notifications, func(list []models.NotificationView) {
		for i := range list {
			if s.readIDs[list[i].ID] {
				list[i].IsRead = true
			}
		}
		s.notifications = list
	})
}

func (s *Store) RefreshSuggestions() error {
	return fetch(s, "suggested", "suggested", s.remote.SuggestedUsers, func(users []models.UserCompact) {
		if len(users) > suggestedLimit {
			users = users[:suggestedLimit]
		}
		s.suggested = users
	})
}

// RefreshComments replaces the cached comments of one post and its comment count.
func (s *Store) RefreshComments(postID string) error {
	return fetch(s, "comments", "comments:"+postID, func(ctx context.Context) ([]models.CommentView, error) {
		return s.remote.Comments(ctx, postID)
	}, func(list []models.CommentView) {
		out := make([]Comment, len(list))
		for i, c := range list {
			s.setCommentLiked(c.ID, c.LikedByMe)
			out[i] = Comment{CommentView: c, Liked: c.LikedByMe}
		}
		s.comments[postID] = out
		if i := s.postIndex(postID); i >= 0 {
			s.posts[i].CommentsCount = int64(len(list))
		}
	})
}

func (s *Store) setCommentLiked(commentID uint, liked bool) {
	if liked {
		s.likedComments[commentID] = true
	} else {
		delete(s.likedComments, commentID)
	}
}

// refreshAsync triggers a refresh from an event callback.
func (s *Store) refreshAsync(name string, refresh func() error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := refresh(); err != nil && !errors.Is(err, ErrClosed) && s.ctx.Err() == nil {
			log.WithError(err).WithField("stream", name).Warn("refetch failed")
		}
	}()
}

func (s *Store) postIndex(postID string) int {
	for i := range s.posts {
		if s.posts[i].ID == postID {
			return i
		}
	}
	return -1
}

// Posts returns a copy of the feed, newest first.
func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.postsLocked()
}

func (s *Store) postsLocked() []Post {
	out := make([]Post, len(s.posts))
	for i, p := range s.posts {
		out[i] = Post{
			FeedPost:   p,
			Liked:      s.liked[p.ID],
			Bookmarked: s.bookmarked[p.ID],
			Pending:    isLocalID(p.ID),
		}
	}
	return out
}

func (s *Store) Post(postID string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.postIndex(postID)
	if i < 0 {
		return Post{}, false
	}
	return s.postsLocked()[i], true
}

// Comments returns the cached comments of a post, oldest first.
func (s *Store) Comments(postID string) []Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Comment(nil), s.comments[postID]...)
}

func (s *Store) IsFollowing(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.following[userID]
}

func (s *Store) FollowingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.following)
}

// SuggestedUsers excludes the current user and everyone already followed.
func (s *Store) SuggestedUsers() []models.UserCompact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserCompact, 0, len(s.suggested))
	for _, u := range s.suggested {
		if u.ID != s.me.ID && !s.following[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

func (s *Store) Notifications() []models.NotificationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.NotificationView(nil), s.notifications...)
}

func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.notifications {
		if !v.IsRead {
			n++
		}
	}
	return n
}

// TrendingTags ranks the hashtags of every loaded post.
func (s *Store) TrendingTags() []TagCount {
	s.mu.Lock()
	contents := make([]string, len(s.posts))
	for i, p := range s.posts {
		contents[i] = p.Content
	}
	s.mu.Unlock()
	return TrendingTags(contents, TrendingLimit)
}

// Filtered applies a search query and an optional tag to the loaded feed.
func (s *Store) Filtered(query, tag string) []Post {
	return Filter(s.Posts(), query, tag)
}

func unmarshalRecord(evt models.ChangeEvent, v interface{}) error {
	if len(evt.Record) == 0 {
		return errors.New("event has no record")
	}
	return json.Unmarshal(evt.Record, v)
}
