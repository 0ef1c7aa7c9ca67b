package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a MiniSocial post stored in MongoDB. Like and comment counts are derived
// from the relational store and never persisted on the document.
type Post struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorID  uint               `json:"author_id" bson:"author_id"`
	Content   string             `json:"content" bson:"content"`
	MediaURL  string             `json:"media_url,omitempty" bson:"media_url,omitempty"`
	MediaType string             `json:"media_type,omitempty" bson:"media_type,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// FeedPost is a post joined with its author and derived counters.
type FeedPost struct {
	ID            string      `json:"id"`
	AuthorID      uint        `json:"author_id"`
	Author        UserCompact `json:"author"`
	Content       string      `json:"content"`
	MediaURL      string      `json:"media_url,omitempty"`
	MediaType     string      `json:"media_type,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	LikesCount    int64       `json:"likes_count"`
	CommentsCount int64       `json:"comments_count"`
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Content   string `json:"content" validate:"required,notblank,max=280"`
	MediaURL  string `json:"media_url,omitempty" validate:"omitempty,url"`
	MediaType string `json:"media_type,omitempty" validate:"omitempty,oneof=image video"`
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content   string `json:"content,omitempty" validate:"omitempty,min=1,max=280"`
	MediaURL  string `json:"media_url,omitempty" validate:"omitempty,url"`
	MediaType string `json:"media_type,omitempty" validate:"omitempty,oneof=image video"`
}
