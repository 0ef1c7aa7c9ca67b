// Package seed fills a development database with demo users, posts and the
// social graph between them.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/anonto42/minisocial/internal/models"
	"github.com/anonto42/minisocial/internal/repositories"
	"github.com/brianvoe/gofakeit/v6"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPassword is the password of every seeded user.
const DefaultPassword = "password123"

var hashtags = []string{"golang", "design", "music", "travel", "food", "coffee", "fitness", "books", "photography", "startups"}

type Options struct {
	Users           int
	PostsPerUser    int
	FollowsPerUser  int
	LikesPerPost    int
	CommentsPerPost int
	// Seed makes a run reproducible. Zero picks a random seed.
	Seed int64
}

// Repositories are the stores the seeder writes to.
type Repositories struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Likes         repositories.LikeRepository
	Comments      repositories.CommentRepository
	Follows       repositories.FollowRepository
	Notifications repositories.NotificationRepository
}

// Summary counts what a run created.
type Summary struct {
	Users         int
	Posts         int
	Follows       int
	Likes         int
	Comments      int
	Notifications int
}

type Seeder struct {
	repos Repositories
	opts  Options
	faker *gofakeit.Faker
	sum   Summary
}

func NewSeeder(repos Repositories, opts Options) *Seeder {
	return &Seeder{repos: repos, opts: opts, faker: gofakeit.New(opts.Seed)}
}

// Run creates users first, then follows, then posts with their likes and comments.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return s.sum, fmt.Errorf("hash password: %w", err)
	}

	users, err := s.seedUsers(ctx, string(hash))
	if err != nil {
		return s.sum, err
	}
	if err := s.seedFollows(ctx, users); err != nil {
		return s.sum, err
	}
	if err := s.seedPosts(ctx, users); err != nil {
		return s.sum, err
	}

	log.WithFields(log.Fields{
		"users":         s.sum.Users,
		"posts":         s.sum.Posts,
		"follows":       s.sum.Follows,
		"likes":         s.sum.Likes,
		"comments":      s.sum.Comments,
		"notifications": s.sum.Notifications,
	}).Info("seed complete")
	return s.sum, nil
}

func (s *Seeder) seedUsers(ctx context.Context, passwordHash string) ([]models.User, error) {
	users := make([]models.User, 0, s.opts.Users)
	for i := 0; i < s.opts.Users; i++ {
		name := strings.ToLower(s.faker.FirstName())
		username := fmt.Sprintf("%s_%d", name, i+1)
		u := models.User{
			Username:  username,
			Email:     username + "@example.com",
			Password:  passwordHash,
			Bio:       s.faker.Sentence(8),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := s.repos.Users.CreateUser(ctx, &u); err != nil {
			return nil, fmt.Errorf("create user %s: %w", username, err)
		}
		users = append(users, u)
		s.sum.Users++
	}
	return users, nil
}

// others returns up to n random users other than users[self].
func (s *Seeder) others(users []models.User, self, n int) []models.User {
	idx := make([]int, 0, len(users)-1)
	for i := range users {
		if i != self {
			idx = append(idx, i)
		}
	}
	s.faker.ShuffleInts(idx)
	if n < len(idx) {
		idx = idx[:n]
	}
	out := make([]models.User, len(idx))
	for i, j := range idx {
		out[i] = users[j]
	}
	return out
}

func (s *Seeder) seedFollows(ctx context.Context, users []models.User) error {
	for i, u := range users {
		for _, target := range s.others(users, i, s.opts.FollowsPerUser) {
			err := s.repos.Follows.CreateFollow(ctx, &models.Follow{FollowerID: u.ID, FollowingID: target.ID})
			if err != nil {
				return fmt.Errorf("follow %d -> %d: %w", u.ID, target.ID, err)
			}
			s.sum.Follows++
			s.notify(ctx, models.NotificationFollow, u.ID, target.ID, "")
		}
	}
	return nil
}

func (s *Seeder) seedPosts(ctx context.Context, users []models.User) error {
	for i, author := range users {
		for j := 0; j < s.opts.PostsPerUser; j++ {
			post := models.Post{AuthorID: author.ID, Content: s.postContent()}
			if err := s.repos.Posts.CreatePost(ctx, &post); err != nil {
				return fmt.Errorf("create post: %w", err)
			}
			s.sum.Posts++
			postID := post.ID.Hex()

			for _, fan := range s.others(users, i, s.opts.LikesPerPost) {
				if _, err := s.repos.Likes.ToggleLike(ctx, postID, fan.ID); err != nil {
					return fmt.Errorf("like post %s: %w", postID, err)
				}
				s.sum.Likes++
				s.notify(ctx, models.NotificationLike, fan.ID, author.ID, postID)
			}

			for _, commenter := range s.others(users, i, s.opts.CommentsPerPost) {
				c := models.Comment{PostID: postID, UserID: commenter.ID, Content: s.faker.Sentence(6)}
				if err := s.repos.Comments.CreateComment(ctx, &c); err != nil {
					return fmt.Errorf("comment on post %s: %w", postID, err)
				}
				s.sum.Comments++
				s.notify(ctx, models.NotificationComment, commenter.ID, author.ID, postID)
			}
		}
	}
	return nil
}

// postContent is a short sentence with one or two hashtags, within the post limit.
func (s *Seeder) postContent() string {
	text := s.faker.Sentence(s.faker.Number(4, 12))
	tags := s.faker.Number(1, 2)
	for k := 0; k < tags; k++ {
		text += " #" + hashtags[s.faker.Number(0, len(hashtags)-1)]
	}
	if len(text) > 280 {
		text = text[:280]
	}
	return text
}

// notify stores a notification; failures are logged and do not stop the run.
func (s *Seeder) notify(ctx context.Context, kind string, actorID, recipientID uint, postID string) {
	if s.repos.Notifications == nil {
		return
	}
	n := models.Notification{Type: kind, ActorID: actorID, RecipientID: recipientID, PostID: postID}
	if err := s.repos.Notifications.CreateNotification(ctx, &n); err != nil {
		log.WithError(err).WithField("type", kind).Warn("seed notification failed")
		return
	}
	s.sum.Notifications++
}
