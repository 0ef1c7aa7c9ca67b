package models

import "time"

// Comment is a reply on a post. PostID is the MongoDB ObjectID hex of the parent post.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" gorm:"size:24;index"`
	UserID    uint      `json:"user_id" gorm:"index"`
	Content   string    `json:"content" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommentView is a comment joined with its author and like set size.
// LikedByMe is relative to the caller of the read.
type CommentView struct {
	ID         uint        `json:"id"`
	PostID     string      `json:"post_id"`
	UserID     uint        `json:"user_id"`
	Author     UserCompact `json:"author"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
	LikesCount int64       `json:"likes_count"`
	LikedByMe  bool        `json:"liked_by_me"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=500"`
}

// UpdateCommentRequest defines the request body for updating an existing comment
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=500"`
}
