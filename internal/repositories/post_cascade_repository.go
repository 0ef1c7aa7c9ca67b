package repositories

import (
	"context"

	"github.com/anonto42/minisocial/internal/models"
	"gorm.io/gorm"
)

// PostCascadeRepository removes the relational rows that hang off a post.
type PostCascadeRepository interface {
	DeletePostEdges(ctx context.Context, postID string) error
}

type postgresPostCascadeRepository struct {
	db *gorm.DB
}

func NewPostgresPostCascadeRepository(db *gorm.DB) PostCascadeRepository {
	return &postgresPostCascadeRepository{db: db}
}

// DeletePostEdges deletes likes, comments with their likes, bookmarks and
// notifications of a post in one transaction.
func (r *postgresPostCascadeRepository) DeletePostEdges(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		for _, model := range []interface{}{&models.Comment{}, &models.Like{}, &models.SavedPost{}, &models.Notification{}} {
			if err := tx.Where("post_id = ?", postID).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
