package models

import "time"

// Analytics is a UI telemetry event.
type Analytics struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    string     `gorm:"not null;index" json:"user_id"`
	SessionID *int64     `gorm:"index" json:"session_id" form:"session_id"`
	EventType string     `gorm:"not null;index" json:"event_type" form:"event_type"`
	Target    string     `gorm:"default:''" json:"target" form:"target"`
	Payload   string     `gorm:"type:text" json:"payload" form:"payload"`
	CreatedAt *time.Time `gorm:"index" json:"created_at"`
}

func (Analytics) TableName() string { return "analytics" }
