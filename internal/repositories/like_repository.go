package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/minisocial/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	ToggleLike(ctx context.Context, postID string, userID uint) (bool, error)
	HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error)
	GetLikesCountByPostID(ctx context.Context, postID string) (int64, error)
	GetLikesCountByPostIDs(ctx context.Context, postIDs []string) (map[string]int64, error)
	GetLikedPostIDs(ctx context.Context, userID uint) ([]string, error)
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// ToggleLike removes the (post, user) pair if present and inserts it otherwise.
// It reports whether the user likes the post afterwards.
func (r *PostgresLikeRepository) ToggleLike(ctx context.Context, postID string, userID uint) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		liked = true
		return tx.Create(&models.Like{PostID: postID, UserID: userID}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// a concurrent toggle inserted the same pair first
		return true, nil
	}
	return liked, err
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetLikesCountByPostID retrieves the count of likes for a specific post from PostgreSQL
func (r *PostgresLikeRepository) GetLikesCountByPostID(ctx context.Context, postID string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GetLikesCountByPostIDs counts likes for a page of posts in one query.
// Posts without likes are absent from the map.
func (r *PostgresLikeRepository) GetLikesCountByPostIDs(ctx context.Context, postIDs []string) (map[string]int64, error) {
	return countByPostIDs(r.db.WithContext(ctx), &models.Like{}, postIDs)
}

// GetLikedPostIDs lists every post the user currently likes.
func (r *PostgresLikeRepository) GetLikedPostIDs(ctx context.Context, userID uint) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Order("id").Pluck("post_id", &ids).Error
	return ids, err
}
