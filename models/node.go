package models

import "time"

// Node is the derived summary of exactly one Article.
type Node struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	ArticleID  int64      `gorm:"not null;unique_index" json:"article_id"`
	UserID     string     `gorm:"not null;index" json:"user_id"`
	Title      string     `gorm:"not null;default:''" json:"title" form:"title"`
	Goal       string     `gorm:"type:text" json:"goal" form:"goal"`
	Method     string     `gorm:"type:text" json:"method" form:"method"`
	Background string     `gorm:"type:text" json:"background" form:"background"`
	Future     string     `gorm:"type:text" json:"future" form:"future"`
	Gaps       string     `gorm:"type:text" json:"gaps" form:"gaps"`
	Content    string     `gorm:"type:text" json:"content"`
	SourceURL  string     `gorm:"type:text" json:"source_url"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}
