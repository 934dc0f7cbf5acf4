package models

import "time"

const CHAT_ROLE_USER = "user"
const CHAT_ROLE_ASSISTANT = "assistant"

// ChatMessage is one logged turn. NodeIDs/EdgeIDs record the context the
// question was asked with, as JSON arrays.
type ChatMessage struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    string     `gorm:"not null;index" json:"user_id"`
	SessionID *int64     `gorm:"index" json:"session_id"`
	Role      string     `gorm:"not null" json:"role"`
	Content   string     `gorm:"type:text" json:"content"`
	NodeIDs   string     `gorm:"type:text" json:"node_ids"`
	EdgeIDs   string     `gorm:"type:text" json:"edge_ids"`
	CreatedAt *time.Time `json:"created_at"`
}
