package models

import "time"

/************************************************
/**** MARK: EDGE ORIGIN ****/
/************************************************/
const EDGE_ORIGIN_LLM = "llm"
const EDGE_ORIGIN_MANUAL = "manual"

// Edge is a directed, typed relation between two nodes of the same owner.
// (from_node_id, to_node_id, relation) is unique.
type Edge struct {
	ID         int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID     string     `gorm:"not null;index" json:"user_id"`
	FromNodeID int64      `gorm:"not null;index;unique_index:ux_edge" json:"from" form:"from"`
	ToNodeID   int64      `gorm:"not null;index;unique_index:ux_edge" json:"to" form:"to"`
	Relation   string     `gorm:"not null;unique_index:ux_edge" json:"relation" form:"relation"`
	Label      string     `gorm:"default:''" json:"label" form:"label"`
	Weight     float64    `gorm:"not null" json:"weight" form:"weight"`
	Origin     string     `gorm:"not null;default:'llm'" json:"origin"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

func (e Edge) MissingFields() string {
	if e.FromNodeID <= 0 {
		return "from"
	} else if e.ToNodeID <= 0 {
		return "to"
	} else if e.Relation == "" {
		return "relation"
	}
	return ""
}
