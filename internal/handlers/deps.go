package handlers

import (
	"github.com/anonto42/minisocial/internal/realtime"
	"github.com/anonto42/minisocial/internal/repositories"
)

// Deps bundles the repositories and the change publisher the handlers share.
type Deps struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	PostCascade   repositories.PostCascadeRepository
	Likes         repositories.LikeRepository
	Comments      repositories.CommentRepository
	CommentLikes  repositories.CommentLikeRepository
	Follows       repositories.FollowRepository
	SavedPosts    repositories.SavedPostRepository
	Notifications repositories.NotificationRepository
	Publisher     realtime.Publisher
}

func (d Deps) assembler() *postAssembler {
	return &postAssembler{users: d.Users, likes: d.Likes, comments: d.Comments}
}

func (d Deps) notifier() *notifier {
	return &notifier{notifications: d.Notifications, events: events{publisher: d.Publisher}}
}
