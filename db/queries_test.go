package db

import (
	"errors"
	"testing"
	"time"

	"papergraph/models"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func seedArticle(t *testing.T, d *gorm.DB, user, title string) (models.Article, models.Node) {
	t.Helper()
	a := models.Article{UserID: user, Title: title, StoragePath: user + "/" + title + ".pdf"}
	require.NoError(t, d.Create(&a).Error)
	n := models.Node{ArticleID: a.ID, UserID: user, Title: title, Goal: "goal of " + title}
	require.NoError(t, d.Create(&n).Error)
	return a, n
}

func TestCreateEdgesSkipsDuplicates(t *testing.T) {
	d := memDB(t)
	_, a := seedArticle(t, d, "u1", "a")
	_, b := seedArticle(t, d, "u1", "b")

	first, skipped, err := CreateEdges(d, []models.Edge{
		{UserID: "u1", FromNodeID: a.ID, ToNodeID: b.ID, Relation: "EXTENDS", Weight: 0.8, Origin: models.EDGE_ORIGIN_LLM},
		{UserID: "u1", FromNodeID: a.ID, ToNodeID: b.ID, Relation: "EXTENDS", Weight: 0.2, Origin: models.EDGE_ORIGIN_LLM},
	})
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Equal(t, 1, skipped)
	assert.InDelta(t, 0.8, first[0].Weight, 1e-9)

	again, skipped, err := CreateEdges(d, []models.Edge{
		{UserID: "u1", FromNodeID: a.ID, ToNodeID: b.ID, Relation: "EXTENDS", Weight: 1},
		{UserID: "u1", FromNodeID: b.ID, ToNodeID: a.ID, Relation: "EXTENDS", Weight: 1},
	})
	require.NoError(t, err)
	assert.Len(t, again, 1)
	assert.Equal(t, 1, skipped)

	edges, err := UserEdges(d, "u1")
	require.NoError(t, err)
	assert.Len(t, edges, 2)
}

func TestZeroWeightIsStored(t *testing.T) {
	d := memDB(t)
	_, a := seedArticle(t, d, "u1", "a")
	_, b := seedArticle(t, d, "u1", "b")

	created, _, err := CreateEdges(d, []models.Edge{{UserID: "u1", FromNodeID: a.ID, ToNodeID: b.ID, Relation: "CONTRASTS", Weight: 0}})
	require.NoError(t, err)
	require.Len(t, created, 1)

	var stored models.Edge
	require.NoError(t, d.First(&stored, created[0].ID).Error)
	assert.Equal(t, 0.0, stored.Weight)
}

func TestDeleteArticleCascades(t *testing.T) {
	d := memDB(t)
	art, a := seedArticle(t, d, "u1", "a")
	_, b := seedArticle(t, d, "u1", "b")
	_, c := seedArticle(t, d, "u1", "c")

	_, _, err := CreateEdges(d, []models.Edge{
		{UserID: "u1", FromNodeID: a.ID, ToNodeID: b.ID, Relation: "R", Weight: 1},
		{UserID: "u1", FromNodeID: c.ID, ToNodeID: a.ID, Relation: "R", Weight: 1},
		{UserID: "u1", FromNodeID: b.ID, ToNodeID: c.ID, Relation: "R", Weight: 1},
	})
	require.NoError(t, err)
	require.NoError(t, d.Create(&models.Annotation{UserID: "u1", ArticleID: art.ID, Kind: models.ANNOTATION_KIND_NOTE}).Error)

	nodeID, err := DeleteArticle(d, art)
	require.NoError(t, err)
	assert.Equal(t, a.ID, nodeID)

	var count int
	d.Model(&models.Article{}).Count(&count)
	assert.Equal(t, 2, count)
	d.Model(&models.Node{}).Count(&count)
	assert.Equal(t, 2, count)
	d.Model(&models.Annotation{}).Count(&count)
	assert.Equal(t, 0, count)

	edges, err := UserEdges(d, "u1")
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, b.ID, edges[0].FromNodeID)
}

func TestDeleteArticleWithoutNode(t *testing.T) {
	d := memDB(t)
	art := models.Article{UserID: "u1", Title: "orphan", StoragePath: "u1/orphan.pdf"}
	require.NoError(t, d.Create(&art).Error)
	_, other := seedArticle(t, d, "u1", "kept")

	nodeID, err := DeleteArticle(d, art)
	require.NoError(t, err)
	assert.Zero(t, nodeID)

	var n models.Node
	assert.NoError(t, d.First(&n, other.ID).Error)
}

func TestSyncJobLifecycle(t *testing.T) {
	d := memDB(t)
	now := time.Now().UTC().Truncate(time.Second)

	j1, err := EnqueueSync(d, "u1", now.Add(time.Minute))
	require.NoError(t, err)
	j2, err := EnqueueSync(d, "u1", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, j1.ID, j2.ID)

	claimed, err := ClaimDueSyncJobs(d, now, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	claimed, err = ClaimDueSyncJobs(d, now.Add(3*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, models.SYNC_STATUS_PROCESSING, claimed[0].Status)

	again, err := ClaimDueSyncJobs(d, now.Add(3*time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, FinishSyncJob(d, claimed[0].ID, 0, errors.New("neo4j down"), now))
	var stored models.SyncJob
	require.NoError(t, d.First(&stored, claimed[0].ID).Error)
	assert.Equal(t, models.SYNC_STATUS_FAILED, stored.Status)
	assert.Equal(t, "neo4j down", stored.Error)

	j3, err := EnqueueSync(d, "u1", now)
	require.NoError(t, err)
	assert.NotEqual(t, j1.ID, j3.ID)
}

func TestTransactionRollsBack(t *testing.T) {
	d := memDB(t)
	err := Transaction(d, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&models.User{ID: "u9"}).Error)
		return errors.New("abort")
	})
	assert.Error(t, err)

	var count int
	d.Model(&models.User{}).Count(&count)
	assert.Equal(t, 0, count)
}
