package models

import "time"

// User mirrors the authenticated subject locally so rows can reference an
// owner. ID is the auth provider's subject (a uuid for Supabase).
type User struct {
	ID        string     `gorm:"primary_key;type:varchar(64)" json:"id"`
	Email     string     `gorm:"default:'';index" json:"email"`
	Admin     bool       `gorm:"not null;default:false" json:"admin"`
	LastSeen  *time.Time `json:"last_seen"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}
