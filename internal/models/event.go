package models

import (
	"encoding/json"
	"time"
)

// Tables that emit change events.
const (
	TablePosts         = "posts"
	TableComments      = "comments"
	TableLikes         = "likes"
	TableFollows       = "follows"
	TableNotifications = "notifications"
)

// Change event types.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ChangeEvent describes a committed row change. RecipientID, when set, restricts
// delivery to a single user.
type ChangeEvent struct {
	Table       string          `json:"table"`
	Type        string          `json:"type"`
	RecordID    string          `json:"record_id"`
	ActorID     uint            `json:"actor_id,omitempty"`
	RecipientID uint            `json:"recipient_id,omitempty"`
	Record      json.RawMessage `json:"record,omitempty"`
	At          time.Time       `json:"at"`
}
