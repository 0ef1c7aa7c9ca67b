package handlers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/anonto42/minisocial/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryPostRepository stands in for the MongoDB collection.
type memoryPostRepository struct {
	mu    sync.Mutex
	posts map[string]models.Post
}

func newMemoryPostRepository() *memoryPostRepository {
	return &memoryPostRepository{posts: make(map[string]models.Post)}
}

func (r *memoryPostRepository) CreatePost(_ context.Context, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.ID = primitive.NewObjectID()
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	r.posts[post.ID.Hex()] = *post
	return nil
}

func (r *memoryPostRepository) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("post", id)
	}
	return &p, nil
}

func (r *memoryPostRepository) sorted(keep func(models.Post) bool) []models.Post {
	out := make([]models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func window(posts []models.Post, skip, limit int64) []models.Post {
	if skip >= int64(len(posts)) {
		return []models.Post{}
	}
	posts = posts[skip:]
	if limit > 0 && limit < int64(len(posts)) {
		posts = posts[:limit]
	}
	return posts
}

func (r *memoryPostRepository) GetPostsByAuthorID(_ context.Context, authorID uint, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return window(r.sorted(func(p models.Post) bool { return p.AuthorID == authorID }), skip, limit), nil
}

func (r *memoryPostRepository) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	return r.sorted(func(p models.Post) bool { return want[p.ID.Hex()] }), nil
}

func (r *memoryPostRepository) GetAllPosts(_ context.Context, skip, limit int64) ([]models.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return window(r.sorted(func(models.Post) bool { return true }), skip, limit), nil
}

func (r *memoryPostRepository) CountByAuthorID(_ context.Context, authorID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.sorted(func(p models.Post) bool { return p.AuthorID == authorID }))), nil
}

func (r *memoryPostRepository) CountAll(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.posts)), nil
}

func (r *memoryPostRepository) UpdatePost(_ context.Context, id string, post *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return models.NewNotFoundError("post", id)
	}
	post.UpdatedAt = time.Now().UTC()
	r.posts[id] = *post
	return nil
}

func (r *memoryPostRepository) DeletePost(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.posts[id]; !ok {
		return models.NewNotFoundError("post", id)
	}
	delete(r.posts, id)
	return nil
}

// recordingPublisher keeps every event and forwards to next when set.
type recordingPublisher struct {
	mu     sync.Mutex
	events []models.ChangeEvent
	next   interface {
		Publish(context.Context, models.ChangeEvent) error
	}
}

func (p *recordingPublisher) Publish(ctx context.Context, evt models.ChangeEvent) error {
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
	if p.next != nil {
		return p.next.Publish(ctx, evt)
	}
	return nil
}

func (p *recordingPublisher) ofTable(table string) []models.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.ChangeEvent
	for _, e := range p.events {
		if e.Table == table {
			out = append(out, e)
		}
	}
	return out
}
