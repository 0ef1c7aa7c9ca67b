package repositories

import (
	"context"
	"errors"

	"github.com/anonto42/minisocial/internal/models"
	"gorm.io/gorm"
)

// SavedPostRepository defines the interface for saved post operations
type SavedPostRepository interface {
	ToggleSavedPost(ctx context.Context, userID uint, postID string) (bool, error)
	IsPostSaved(ctx context.Context, userID uint, postID string) (bool, error)
	GetSavedPostIDsByUser(ctx context.Context, userID uint) ([]string, error)
	GetSavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error)
}

// PostgresSavedPostRepository implements SavedPostRepository
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

// ToggleSavedPost bookmarks or un-bookmarks a post and reports the new state.
func (r *PostgresSavedPostRepository) ToggleSavedPost(ctx context.Context, userID uint, postID string) (bool, error) {
	saved := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		saved = true
		return tx.Create(&models.SavedPost{UserID: userID, PostID: postID}).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true, nil
	}
	return saved, err
}

func (r *PostgresSavedPostRepository) IsPostSaved(ctx context.Context, userID uint, postID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error
	return count > 0, err
}

// GetSavedPostIDsByUser lists bookmarks newest first.
func (r *PostgresSavedPostRepository) GetSavedPostIDsByUser(ctx context.Context, userID uint) ([]string, error) {
	ids := []string{}
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).Where("user_id = ?", userID).Order("created_at DESC, id DESC").Pluck("post_id", &ids).Error
	return ids, err
}

func (r *PostgresSavedPostRepository) GetSavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var saved []models.SavedPost
	err := r.db.WithContext(ctx).Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&saved).Error
	if err != nil {
		return nil, err
	}
	for _, s := range saved {
		result[s.PostID] = true
	}
	return result, nil
}
