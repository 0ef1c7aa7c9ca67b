package feed

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/anonto42/minisocial/internal/models"
)

// fakeRemote is an in-memory data service for one signed-in user.
type fakeRemote struct {
	mu sync.Mutex
	me uint

	posts         []models.FeedPost
	likes         map[string]map[uint]bool
	following     map[uint]bool
	bookmarks     map[string]bool
	comments      map[string][]models.CommentView
	commentLikes  map[uint]map[uint]bool
	notifications []models.NotificationView
	suggested     []models.UserCompact
	nextID        uint

	// fail makes the named call return the error once.
	fail map[string]error
	// gates block the named call until closed; entered is signalled first.
	gates   map[string]chan struct{}
	entered chan string

	calls map[string]int

	subscribe func(ctx context.Context, handle func(models.ChangeEvent)) error
}

func newFakeRemote(me uint) *fakeRemote {
	return &fakeRemote{
		me:           me,
		likes:        make(map[string]map[uint]bool),
		following:    make(map[uint]bool),
		bookmarks:    make(map[string]bool),
		comments:     make(map[string][]models.CommentView),
		commentLikes: make(map[uint]map[uint]bool),
		fail:         make(map[string]error),
		gates:        make(map[string]chan struct{}),
		entered:      make(chan string, 64),
		calls:        make(map[string]int),
		nextID:       100,
	}
}

func (f *fakeRemote) gate(name string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[name] = ch
	return ch
}

func (f *fakeRemote) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRemote) failNext(name string, err error) {
	f.mu.Lock()
	f.fail[name] = err
	f.mu.Unlock()
}

// enter records a call, waits on its gate and returns the injected failure.
func (f *fakeRemote) enter(name string) error {
	f.mu.Lock()
	f.calls[name]++
	gate := f.gates[name]
	f.mu.Unlock()

	if gate != nil {
		f.entered <- name
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.fail[name]; ok {
		delete(f.fail, name)
		return err
	}
	return nil
}

func (f *fakeRemote) addPost(authorID uint, username, content string) models.FeedPost {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	p := models.FeedPost{
		ID:        "p" + strconv.Itoa(int(f.nextID)),
		AuthorID:  authorID,
		Author:    models.UserCompact{ID: authorID, Username: username},
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.posts = append([]models.FeedPost{p}, f.posts...)
	return p
}

func (f *fakeRemote) Feed(context.Context) ([]models.FeedPost, error) {
	if err := f.enter("feed"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.FeedPost, len(f.posts))
	for i, p := range f.posts {
		p.LikesCount = int64(len(f.likes[p.ID]))
		p.CommentsCount = int64(len(f.comments[p.ID]))
		out[i] = p
	}
	return out, nil
}

func (f *fakeRemote) CreatePost(_ context.Context, content, mediaURL string) (*models.FeedPost, error) {
	if err := f.enter("create_post"); err != nil {
		return nil, err
	}
	p := f.addPost(f.me, "me", content)
	p.MediaURL = mediaURL
	return &p, nil
}

func (f *fakeRemote) DeletePost(_ context.Context, postID string) error {
	if err := f.enter("delete_post"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.posts {
		if p.ID == postID {
			f.posts = append(f.posts[:i], f.posts[i+1:]...)
			delete(f.likes, postID)
			delete(f.comments, postID)
			return nil
		}
	}
	return models.NewNotFoundError("post", postID)
}

func (f *fakeRemote) ToggleLike(_ context.Context, postID string) (models.ToggleLikeResponse, error) {
	if err := f.enter("toggle_like"); err != nil {
		return models.ToggleLikeResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.likes[postID] == nil {
		f.likes[postID] = make(map[uint]bool)
	}
	liked := !f.likes[postID][f.me]
	if liked {
		f.likes[postID][f.me] = true
	} else {
		delete(f.likes[postID], f.me)
	}
	return models.ToggleLikeResponse{Liked: liked, LikesCount: int64(len(f.likes[postID]))}, nil
}

func (f *fakeRemote) LikedPostIDs(context.Context) ([]string, error) {
	if err := f.enter("liked_ids"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, users := range f.likes {
		if users[f.me] {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRemote) Comments(_ context.Context, postID string) ([]models.CommentView, error) {
	if err := f.enter("comments"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]models.CommentView(nil), f.comments[postID]...)
	for i := range out {
		out[i].LikesCount = int64(len(f.commentLikes[out[i].ID]))
		out[i].LikedByMe = f.commentLikes[out[i].ID][f.me]
	}
	return out, nil
}

func (f *fakeRemote) AddComment(_ context.Context, postID, content string) (*models.CommentView, error) {
	if err := f.enter("add_comment"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := models.CommentView{ID: f.nextID, PostID: postID, UserID: f.me, Content: content, CreatedAt: time.Now()}
	f.comments[postID] = append(f.comments[postID], c)
	return &c, nil
}

func (f *fakeRemote) seedComment(postID string, userID uint, content string) models.CommentView {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c := models.CommentView{ID: f.nextID, PostID: postID, UserID: userID, Content: content}
	f.comments[postID] = append(f.comments[postID], c)
	return c
}

func (f *fakeRemote) DeleteComment(_ context.Context, commentID uint) error {
	if err := f.enter("delete_comment"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for postID, list := range f.comments {
		for i, c := range list {
			if c.ID == commentID {
				f.comments[postID] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return models.NewNotFoundError("comment", commentID)
}

func (f *fakeRemote) ToggleCommentLike(_ context.Context, commentID uint) (models.ToggleLikeResponse, error) {
	if err := f.enter("toggle_comment_like"); err != nil {
		return models.ToggleLikeResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentLikes[commentID] == nil {
		f.commentLikes[commentID] = make(map[uint]bool)
	}
	liked := !f.commentLikes[commentID][f.me]
	if liked {
		f.commentLikes[commentID][f.me] = true
	} else {
		delete(f.commentLikes[commentID], f.me)
	}
	return models.ToggleLikeResponse{Liked: liked, LikesCount: int64(len(f.commentLikes[commentID]))}, nil
}

func (f *fakeRemote) ToggleFollow(_ context.Context, userID uint) (models.ToggleFollowResponse, error) {
	if err := f.enter("toggle_follow"); err != nil {
		return models.ToggleFollowResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	on := !f.following[userID]
	if on {
		f.following[userID] = true
	} else {
		delete(f.following, userID)
	}
	return models.ToggleFollowResponse{Following: on}, nil
}

func (f *fakeRemote) FollowingIDs(context.Context) ([]uint, error) {
	if err := f.enter("following_ids"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for id := range f.following {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeRemote) SuggestedUsers(context.Context) ([]models.UserCompact, error) {
	if err := f.enter("suggested"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.UserCompact(nil), f.suggested...), nil
}

func (f *fakeRemote) ToggleBookmark(_ context.Context, postID string) (models.ToggleBookmarkResponse, error) {
	if err := f.enter("toggle_bookmark"); err != nil {
		return models.ToggleBookmarkResponse{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	saved := !f.bookmarks[postID]
	f.bookmarks[postID] = saved
	return models.ToggleBookmarkResponse{Saved: saved}, nil
}

func (f *fakeRemote) BookmarkedPostIDs(context.Context) ([]string, error) {
	if err := f.enter("bookmarks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for id, on := range f.bookmarks {
		if on {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeRemote) Notifications(context.Context) ([]models.NotificationView, error) {
	if err := f.enter("notifications"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.NotificationView(nil), f.notifications...), nil
}

// MarkNotificationRead records the call but leaves the row unread, like a
// replica that has not caught up yet.
func (f *fakeRemote) MarkNotificationRead(context.Context, uint) error {
	return f.enter("mark_read")
}

func (f *fakeRemote) MarkAllNotificationsRead(context.Context) (int64, error) {
	if err := f.enter("mark_all_read"); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.notifications {
		if !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeRemote) Subscribe(ctx context.Context, _ []string, handle func(models.ChangeEvent)) error {
	f.mu.Lock()
	f.calls["subscribe"]++
	sub := f.subscribe
	f.mu.Unlock()
	if sub == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return sub(ctx, handle)
}
