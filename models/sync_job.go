package models

import "time"

/************************************************
/**** MARK: SYNC JOB STATUS ****/
/************************************************/
const SYNC_STATUS_PENDING = "pending"
const SYNC_STATUS_PROCESSING = "processing"
const SYNC_STATUS_DONE = "done"
const SYNC_STATUS_FAILED = "failed"

const SYNC_KIND_FULL = "full"

// SyncJob is a queued mirror of one user's nodes and edges into the graph
// database. A pending job is pushed back (ScheduledAt) when more work for the
// same user arrives, so bursts of uploads collapse into one run.
type SyncJob struct {
	ID          int64      `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	UserID      string     `gorm:"not null;index" json:"user_id"`
	Kind        string     `gorm:"not null;default:'full'" json:"kind"`
	Status      string     `gorm:"not null;default:'pending';index" json:"status"`
	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at"`
	ProcessedAt *time.Time `json:"processed_at"`
	Merged      int64      `gorm:"not null;default:0" json:"merged"`
	Error       string     `gorm:"type:text" json:"error"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
}
