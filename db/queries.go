package db

import (
	"errors"
	"strings"
	"time"

	"papergraph/models"

	"github.com/jinzhu/gorm"
)

var ErrNotFound = errors.New("record not found")

// UserNodes returns every node owned by userID ordered by id.
func UserNodes(db *gorm.DB, userID string) ([]models.Node, error) {
	var nodes []models.Node
	if err := db.Where("user_id = ?", userID).Order("id asc").Find(&nodes).Error; err != nil {
		return nil, err
	}
	return nodes, nil
}

// UserEdges returns every edge owned by userID ordered by id.
func UserEdges(db *gorm.DB, userID string) ([]models.Edge, error) {
	var edges []models.Edge
	if err := db.Where("user_id = ?", userID).Order("id asc").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// CreateEdges inserts edges one by one and skips those whose
// (from, to, relation) tuple is already stored. It returns the inserted rows
// and how many were skipped.
func CreateEdges(db *gorm.DB, edges []models.Edge) ([]models.Edge, int, error) {
	created := make([]models.Edge, 0, len(edges))
	skipped := 0
	for _, e := range edges {
		var existing models.Edge
		err := db.
			Where("from_node_id = ? AND to_node_id = ? AND relation = ?", e.FromNodeID, e.ToNodeID, e.Relation).
			First(&existing).Error
		if err == nil {
			skipped++
			continue
		}
		if !gorm.IsRecordNotFoundError(err) {
			return created, skipped, err
		}

		e.ID = 0
		if err := db.Create(&e).Error; err != nil {
			if IsUniqueViolation(err) {
				skipped++
				continue
			}
			return created, skipped, err
		}
		created = append(created, e)
	}
	return created, skipped, nil
}

// IsUniqueViolation matches the sqlite and postgres unique-constraint errors.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

// DeleteArticle removes the article together with its node, every edge
// touching that node and its annotations. It returns the removed node id
// (0 when the article had none).
func DeleteArticle(db *gorm.DB, article models.Article) (int64, error) {
	var nodeID int64
	err := Transaction(db, func(tx *gorm.DB) error {
		var node models.Node
		err := tx.Where("article_id = ?", article.ID).First(&node).Error
		switch {
		case err == nil:
			nodeID = node.ID
			if err := tx.Delete(&models.Edge{}, "from_node_id = ? OR to_node_id = ?", node.ID, node.ID).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Node{}, "id = ?", node.ID).Error; err != nil {
				return err
			}
		case !gorm.IsRecordNotFoundError(err):
			return err
		}
		if err := tx.Delete(&models.Annotation{}, "article_id = ?", article.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Article{}, "id = ?", article.ID).Error
	})
	return nodeID, err
}

// EnqueueSync schedules a full graph sync for userID at the given time. An
// already pending job for the user is pushed back instead of duplicated.
func EnqueueSync(db *gorm.DB, userID string, at time.Time) (models.SyncJob, error) {
	at = at.UTC()
	var job models.SyncJob
	err := db.
		Where("user_id = ? AND kind = ? AND status = ?", userID, models.SYNC_KIND_FULL, models.SYNC_STATUS_PENDING).
		First(&job).Error
	if err == nil {
		if err := db.Model(&models.SyncJob{}).Where("id = ?", job.ID).Update("scheduled_at", at).Error; err != nil {
			return job, err
		}
		job.ScheduledAt = &at
		return job, nil
	}
	if !gorm.IsRecordNotFoundError(err) {
		return job, err
	}

	job = models.SyncJob{
		UserID:      userID,
		Kind:        models.SYNC_KIND_FULL,
		Status:      models.SYNC_STATUS_PENDING,
		ScheduledAt: &at,
	}
	if err := db.Create(&job).Error; err != nil {
		return job, err
	}
	return job, nil
}

// ClaimDueSyncJobs moves up to limit pending jobs scheduled at or before now
// to processing. A job is only returned when this call won the status update.
func ClaimDueSyncJobs(db *gorm.DB, now time.Time, limit int) ([]models.SyncJob, error) {
	now = now.UTC()
	var due []models.SyncJob
	if err := db.
		Where("status = ?", models.SYNC_STATUS_PENDING).
		Where("scheduled_at IS NOT NULL AND scheduled_at <= ?", now).
		Order("scheduled_at asc, id asc").
		Limit(limit).
		Find(&due).Error; err != nil {
		return nil, err
	}

	claimed := make([]models.SyncJob, 0, len(due))
	for _, job := range due {
		res := db.Model(&models.SyncJob{}).
			Where("id = ? AND status = ?", job.ID, models.SYNC_STATUS_PENDING).
			Updates(map[string]interface{}{
				"status":     models.SYNC_STATUS_PROCESSING,
				"started_at": now,
			})
		if res.Error != nil || res.RowsAffected == 0 {
			continue
		}
		job.Status = models.SYNC_STATUS_PROCESSING
		job.StartedAt = &now
		claimed = append(claimed, job)
	}
	return claimed, nil
}

// FinishSyncJob records the outcome of a processing job.
func FinishSyncJob(db *gorm.DB, id int64, merged int64, runErr error, at time.Time) error {
	fields := map[string]interface{}{
		"status":       models.SYNC_STATUS_DONE,
		"processed_at": at,
		"merged":       merged,
		"error":        "",
	}
	if runErr != nil {
		fields["status"] = models.SYNC_STATUS_FAILED
		fields["error"] = runErr.Error()
	}
	return db.Model(&models.SyncJob{}).Where("id = ?", id).Updates(fields).Error
}
