package models

import (
	"encoding/json"
	"time"
)

// BrainstormingSession is saved UI state: which articles and relations are
// visible and what the user last looked at. Filter holds a JSON-encoded
// SessionFilter.
type BrainstormingSession struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     string     `gorm:"not null;index" json:"user_id"`
	Name       string     `gorm:"not null" json:"name" form:"name"`
	Filter     string     `gorm:"type:text" json:"-"`
	LastNodeID *int64     `json:"last_node_id"`
	LastEdgeID *int64     `json:"last_edge_id"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type SessionFilter struct {
	ArticleIDs []int64  `json:"article_ids"`
	Relations  []string `json:"relations"`
}

// DecodeFilter returns the stored filter; empty or unreadable JSON yields an
// empty filter with non-nil slices.
func (s BrainstormingSession) DecodeFilter() SessionFilter {
	var f SessionFilter
	if s.Filter != "" {
		_ = json.Unmarshal([]byte(s.Filter), &f)
	}
	return f.normalized()
}

func (s *BrainstormingSession) SetFilter(f SessionFilter) error {
	b, err := json.Marshal(f.normalized())
	if err != nil {
		return err
	}
	s.Filter = string(b)
	return nil
}

func (f SessionFilter) normalized() SessionFilter {
	if f.ArticleIDs == nil {
		f.ArticleIDs = []int64{}
	}
	if f.Relations == nil {
		f.Relations = []string{}
	}
	return f
}
