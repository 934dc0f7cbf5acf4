package models

import "time"

// Article is an uploaded PDF. StoragePath is the object key inside the
// configured bucket; URL is what the viewer loads.
type Article struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID      string     `gorm:"not null;index" json:"user_id"`
	SessionID   *int64     `gorm:"index" json:"session_id" form:"session_id"`
	Title       string     `gorm:"not null" json:"title" form:"title"`
	FileName    string     `gorm:"default:''" json:"file_name"`
	StoragePath string     `gorm:"not null" json:"storage_path"`
	URL         string     `gorm:"type:text" json:"url"`
	SizeBytes   int64      `gorm:"not null;default:0" json:"size_bytes"`
	Checksum    string     `gorm:"default:'';index" json:"checksum"`
	Pages       int        `gorm:"not null;default:0" json:"pages"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}

func (a Article) MissingFields() string {
	if a.UserID == "" {
		return "user_id"
	} else if a.Title == "" {
		return "title"
	} else if a.StoragePath == "" {
		return "storage_path"
	}
	return ""
}
