package models

import "time"

// Follow is a directed edge of the social graph.
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToggleFollowResponse reports the edge state after a toggle.
type ToggleFollowResponse struct {
	Following bool `json:"following"`
}
