package feed

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/monitoring"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	maxPostLength    = 280
	maxCommentLength = 500
	localIDPrefix    = "local-"
)

func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}

func isLocalID(id string) bool {
	return strings.HasPrefix(id, localIDPrefix)
}

// mutation is one optimistic action. apply and revert run under the store
// lock; call and reconcile run without it.
type mutation struct {
	action    string
	apply     func()
	revert    func()
	call      func(ctx context.Context) error
	reconcile func() error
}

// applyOptimistic applies the local change, performs the remote call and
// either reconciles or reverts.
func (s *Store) applyOptimistic(m mutation) Result {
	if !s.update(m.apply) {
		return record(m.action, Result{Outcome: Failed, Err: ErrClosed})
	}

	ctx, cancel := s.callContext()
	err := m.call(ctx)
	cancel()
	if err != nil {
		s.update(m.revert)
		monitoring.SyncRollbacks.WithLabelValues(m.action).Inc()
		s.authCheck(err)
		log.WithError(err).WithField("action", m.action).Debug("optimistic change reverted")
		return record(m.action, Result{Outcome: Failed, Err: err})
	}

	if m.reconcile != nil {
		if err := m.reconcile(); err != nil {
			return record(m.action, Result{Outcome: PartiallyApplied, Err: err})
		}
	}
	return record(m.action, Result{Outcome: Applied})
}

func rejected(action string, err error) Result {
	return record(action, Result{Outcome: Failed, Err: err})
}

// ToggleLike flips the current user's like on a post.
func (s *Store) ToggleLike(postID string) Result {
	var (
		wasLiked bool
		count    int64
	)
	return s.applyOptimistic(mutation{
		action: "toggle_like",
		apply: func() {
			wasLiked = s.liked[postID]
			if i := s.postIndex(postID); i >= 0 {
				count = s.posts[i].LikesCount
				if wasLiked {
					s.posts[i].LikesCount--
				} else {
					s.posts[i].LikesCount++
				}
			}
			s.liked[postID] = !wasLiked
		},
		revert: func() {
			s.liked[postID] = wasLiked
			if i := s.postIndex(postID); i >= 0 {
				s.posts[i].LikesCount = count
			}
		},
		call: func(ctx context.Context) error {
			_, err := s.remote.ToggleLike(ctx, postID)
			return err
		},
		reconcile: s.RefreshFeed,
	})
}

// ToggleFollow follows or unfollows userID. While a toggle for the same user
// is in flight further calls are Skipped.
func (s *Store) ToggleFollow(userID uint) Result {
	const action = "toggle_follow"
	if userID == s.me.ID {
		return rejected(action, models.NewValidationError("you cannot follow yourself"))
	}

	s.mu.Lock()
	if s.followPending[userID] {
		s.mu.Unlock()
		return record(action, Result{Outcome: Skipped})
	}
	s.followPending[userID] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.followPending, userID)
		s.mu.Unlock()
	}()

	var was bool
	return s.applyOptimistic(mutation{
		action: action,
		apply: func() {
			was = s.following[userID]
			s.setFollowing(userID, !was)
		},
		revert: func() { s.setFollowing(userID, was) },
		call: func(ctx context.Context) error {
			_, err := s.remote.ToggleFollow(ctx, userID)
			return err
		},
		reconcile: s.RefreshFollowing,
	})
}

func (s *Store) setFollowing(userID uint, on bool) {
	if on {
		s.following[userID] = true
	} else {
		delete(s.following, userID)
	}
}

// CreatePost shows a pending post at the top of the feed until the service confirms it.
func (s *Store) CreatePost(content, mediaURL string) Result {
	const action = "create_post"
	content = strings.TrimSpace(content)
	if content == "" {
		return rejected(action, models.NewValidationError("post content is required"))
	}
	if utf8.RuneCountInString(content) > maxPostLength {
		return rejected(action, models.NewValidationError("post content is too long"))
	}

	localID := newLocalID()
	return s.applyOptimistic(mutation{
		action: action,
		apply: func() {
			tmp := models.FeedPost{
				ID:       localID,
				AuthorID: s.me.ID,
				Author:   s.me,
				Content:  content,
				MediaURL: mediaURL,
			}
			s.posts = append([]models.FeedPost{tmp}, s.posts...)
		},
		revert: func() { s.removePost(localID) },
		call: func(ctx context.Context) error {
			created, err := s.remote.CreatePost(ctx, content, mediaURL)
			if err != nil {
				return err
			}
			s.update(func() {
				if i := s.postIndex(localID); i >= 0 {
					s.posts[i] = *created
				}
			})
			return nil
		},
		reconcile: s.RefreshFeed,
	})
}

func (s *Store) removePost(postID string) (models.FeedPost, int) {
	i := s.postIndex(postID)
	if i < 0 {
		return models.FeedPost{}, -1
	}
	p := s.posts[i]
	s.posts = append(s.posts[:i:i], s.posts[i+1:]...)
	return p, i
}

func insertAt[T any](list []T, i int, v T) []T {
	if i < 0 || i > len(list) {
		i = len(list)
	}
	list = append(list, v)
	copy(list[i+1:], list[i:])
	list[i] = v
	return list
}

// DeletePost removes one of the current user's posts.
func (s *Store) DeletePost(postID string) Result {
	const action = "delete_post"
	s.mu.Lock()
	i := s.postIndex(postID)
	owned := i >= 0 && s.posts[i].AuthorID == s.me.ID
	s.mu.Unlock()
	if i < 0 {
		return rejected(action, models.NewNotFoundError("post", postID))
	}
	if !owned {
		return rejected(action, models.NewForbiddenError("you can only delete your own posts"))
	}

	var (
		removed models.FeedPost
		at      = -1
	)
	return s.applyOptimistic(mutation{
		action: action,
		apply:  func() { removed, at = s.removePost(postID) },
		revert: func() {
			if at >= 0 && s.postIndex(postID) < 0 {
				s.posts = insertAt(s.posts, at, removed)
			}
		},
		call: func(ctx context.Context) error {
			return s.remote.DeletePost(ctx, postID)
		},
		reconcile: func() error {
			s.update(func() { delete(s.comments, postID) })
			return s.RefreshFeed()
		},
	})
}

// ToggleBookmark saves or unsaves a post.
func (s *Store) ToggleBookmark(postID string) Result {
	var was bool
	return s.applyOptimistic(mutation{
		action: "toggle_bookmark",
		apply: func() {
			was = s.bookmarked[postID]
			s.bookmarked[postID] = !was
		},
		revert: func() { s.bookmarked[postID] = was },
		call: func(ctx context.Context) error {
			resp, err := s.remote.ToggleBookmark(ctx, postID)
			if err == nil {
				s.update(func() { s.bookmarked[postID] = resp.Saved })
			}
			return err
		},
	})
}

// AddComment shows a pending comment under the post until the service confirms it.
func (s *Store) AddComment(postID, content string) Result {
	const action = "add_comment"
	content = strings.TrimSpace(content)
	if content == "" {
		return rejected(action, models.NewValidationError("comment content is required"))
	}
	if utf8.RuneCountInString(content) > maxCommentLength {
		return rejected(action, models.NewValidationError("comment content is too long"))
	}

	localID := newLocalID()
	return s.applyOptimistic(mutation{
		action: action,
		apply: func() {
			tmp := Comment{
				CommentView: models.CommentView{PostID: postID, UserID: s.me.ID, Author: s.me, Content: content},
				LocalID:     localID,
			}
			s.comments[postID] = append(s.comments[postID], tmp)
			s.adjustCommentCount(postID, 1)
		},
		revert: func() {
			list := s.comments[postID]
			for i := range list {
				if list[i].LocalID == localID {
					s.comments[postID] = append(list[:i:i], list[i+1:]...)
					s.adjustCommentCount(postID, -1)
					break
				}
			}
		},
		call: func(ctx context.Context) error {
			_, err := s.remote.AddComment(ctx, postID, content)
			return err
		},
		reconcile: func() error { return s.RefreshComments(postID) },
	})
}

func (s *Store) adjustCommentCount(postID string, delta int64) {
	if i := s.postIndex(postID); i >= 0 {
		s.posts[i].CommentsCount += delta
	}
}

// DeleteComment removes one of the current user's comments. On failure the
// comment returns to its original position.
func (s *Store) DeleteComment(postID string, commentID uint) Result {
	const action = "delete_comment"
	s.mu.Lock()
	at := s.commentIndex(postID, commentID)
	owned := at >= 0 && s.comments[postID][at].UserID == s.me.ID
	s.mu.Unlock()
	if at < 0 {
		return rejected(action, models.NewNotFoundError("comment", commentID))
	}
	if !owned {
		return rejected(action, models.NewForbiddenError("you can only delete your own comments"))
	}

	var (
		removed Comment
		pos     = -1
	)
	return s.applyOptimistic(mutation{
		action: action,
		apply: func() {
			if pos = s.commentIndex(postID, commentID); pos >= 0 {
				list := s.comments[postID]
				removed = list[pos]
				s.comments[postID] = append(list[:pos:pos], list[pos+1:]...)
				s.adjustCommentCount(postID, -1)
			}
		},
		revert: func() {
			if pos >= 0 && s.commentIndex(postID, commentID) < 0 {
				s.comments[postID] = insertAt(s.comments[postID], pos, removed)
				s.adjustCommentCount(postID, 1)
			}
		},
		call: func(ctx context.Context) error {
			return s.remote.DeleteComment(ctx, commentID)
		},
		reconcile: func() error { return s.RefreshComments(postID) },
	})
}

func (s *Store) commentIndex(postID string, commentID uint) int {
	for i, c := range s.comments[postID] {
		if c.LocalID == "" && c.ID == commentID {
			return i
		}
	}
	return -1
}

// ToggleCommentLike flips the current user's like on a loaded comment. The
// toggle response is the reconciliation.
func (s *Store) ToggleCommentLike(postID string, commentID uint) Result {
	var (
		was   bool
		count int64
	)
	setCount := func(n int64) {
		if i := s.commentIndex(postID, commentID); i >= 0 {
			s.comments[postID][i].LikesCount = n
			s.comments[postID][i].Liked = s.likedComments[commentID]
		}
	}
	return s.applyOptimistic(mutation{
		action: "toggle_comment_like",
		apply: func() {
			was = s.likedComments[commentID]
			if i := s.commentIndex(postID, commentID); i >= 0 {
				count = s.comments[postID][i].LikesCount
			}
			s.likedComments[commentID] = !was
			if was {
				setCount(count - 1)
			} else {
				setCount(count + 1)
			}
		},
		revert: func() {
			s.likedComments[commentID] = was
			setCount(count)
		},
		call: func(ctx context.Context) error {
			resp, err := s.remote.ToggleCommentLike(ctx, commentID)
			if err == nil {
				s.update(func() {
					s.likedComments[commentID] = resp.Liked
					setCount(resp.LikesCount)
				})
			}
			return err
		},
	})
}

// MarkNotificationRead marks one notification read. The read flag never goes
// back to unread in this session, even when the remote call fails.
func (s *Store) MarkNotificationRead(notificationID uint) Result {
	return s.applyOptimistic(mutation{
		action: "mark_read",
		apply:  func() { s.markReadLocked(notificationID) },
		revert: func() {},
		call: func(ctx context.Context) error {
			return s.remote.MarkNotificationRead(ctx, notificationID)
		},
	})
}

// MarkAllNotificationsRead marks every loaded notification read.
func (s *Store) MarkAllNotificationsRead() Result {
	return s.applyOptimistic(mutation{
		action: "mark_all_read",
		apply: func() {
			for _, n := range s.notifications {
				s.markReadLocked(n.ID)
			}
		},
		revert: func() {},
		call: func(ctx context.Context) error {
			_, err := s.remote.MarkAllNotificationsRead(ctx)
			return err
		},
	})
}

func (s *Store) markReadLocked(notificationID uint) {
	s.readIDs[notificationID] = true
	for i := range s.notifications {
		if s.notifications[i].ID == notificationID {
			s.notifications[i].IsRead = true
		}
	}
}
