package models

import "time"

const (
	ANNOTATION_KIND_HIGHLIGHT = "highlight"
	ANNOTATION_KIND_NOTE      = "note"
	ANNOTATION_KIND_UNDERLINE = "underline"
)

// Annotation is an append-only mark made in the PDF viewer. Position is the
// viewer's own JSON (rects, page scale) stored opaquely.
type Annotation struct {
	ID        int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID    string     `gorm:"not null;index" json:"user_id"`
	ArticleID int64      `gorm:"not null;index" json:"article_id" form:"article_id"`
	Page      int        `gorm:"not null;default:0" json:"page" form:"page"`
	Kind      string     `gorm:"not null;default:'highlight'" json:"kind" form:"kind"`
	Content   string     `gorm:"type:text" json:"content" form:"content"`
	Comment   string     `gorm:"type:text" json:"comment" form:"comment"`
	Color     string     `gorm:"default:''" json:"color" form:"color"`
	Position  string     `gorm:"type:text" json:"position" form:"position"`
	CreatedAt *time.Time `json:"created_at"`
}
