package workers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"papergraph/db"
	"papergraph/graphdb"
	"papergraph/models"

	"github.com/jinzhu/gorm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	mu     sync.Mutex
	users  map[string]int
	failed bool
}

func (r *countingRunner) Write(_ context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed {
		return nil, errors.New("neo4j unavailable")
	}
	if strings.Contains(cypher, "MERGE (n:Paper") {
		papers := params["papers"].([]map[string]any)
		r.users[papers[0]["user_id"].(string)]++
		return []map[string]any{{"merged": int64(len(papers))}}, nil
	}
	return nil, nil
}

func (r *countingRunner) Read(context.Context, string, map[string]any) ([]map[string]any, error) {
	return nil, nil
}

func setup(t *testing.T, runner graphdb.Runner) (*GraphSync, *gorm.DB) {
	t.Helper()
	conn, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	for i, user := range []string{"u1", "u1", "u2"} {
		a := models.Article{UserID: user, Title: "t", StoragePath: "k"}
		require.NoError(t, conn.Create(&a).Error)
		require.NoError(t, conn.Create(&models.Node{ArticleID: a.ID, UserID: user, Title: string(rune('A' + i))}).Error)
	}

	w := NewGraphSync(conn, graphdb.NewSyncer(runner, 0.4, nil), GraphSyncConfig{Parallelism: 2}, nil)
	return w, conn
}

func TestRunOnceProcessesDueJobs(t *testing.T) {
	runner := &countingRunner{users: map[string]int{}}
	w, conn := setup(t, runner)

	past := time.Now().Add(-time.Second)
	_, err := db.EnqueueSync(conn, "u1", past)
	require.NoError(t, err)
	_, err = db.EnqueueSync(conn, "u2", past)
	require.NoError(t, err)
	_, err = db.EnqueueSync(conn, "u3", time.Now().Add(time.Hour))
	require.NoError(t, err)

	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, runner.users["u1"])
	assert.Equal(t, 1, runner.users["u2"])

	var done []models.SyncJob
	require.NoError(t, conn.Where("status = ?", models.SYNC_STATUS_DONE).Order("user_id").Find(&done).Error)
	require.Len(t, done, 2)
	assert.Equal(t, int64(2), done[0].Merged)

	n, err = w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunOnceMarksFailures(t *testing.T) {
	runner := &countingRunner{users: map[string]int{}, failed: true}
	w, conn := setup(t, runner)

	job, err := db.EnqueueSync(conn, "u1", time.Now().Add(-time.Second))
	require.NoError(t, err)

	_, err = w.RunOnce(context.Background())
	require.NoError(t, err)

	var stored models.SyncJob
	require.NoError(t, conn.First(&stored, job.ID).Error)
	assert.Equal(t, models.SYNC_STATUS_FAILED, stored.Status)
	assert.Contains(t, stored.Error, "neo4j unavailable")
}
