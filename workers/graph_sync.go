package workers

import (
	"context"
	"time"

	"papergraph/db"
	"papergraph/graphdb"
	"papergraph/logger"
	"papergraph/metrics"
	"papergraph/models"

	"github.com/jinzhu/gorm"
	"golang.org/x/sync/errgroup"
)

type GraphSyncConfig struct {
	Interval    time.Duration
	BatchSize   int
	Parallelism int
	JobTimeout  time.Duration
}

// GraphSync drains due SyncJobs into the graph database.
type GraphSync struct {
	db     *gorm.DB
	syncer *graphdb.Syncer
	conf   GraphSyncConfig
	log    *logger.Logger
	now    func() time.Time
}

func NewGraphSync(conn *gorm.DB, syncer *graphdb.Syncer, conf GraphSyncConfig, log *logger.Logger) *GraphSync {
	if conf.Interval <= 0 {
		conf.Interval = 5 * time.Second
	}
	if conf.BatchSize <= 0 {
		conf.BatchSize = 20
	}
	if conf.Parallelism <= 0 {
		conf.Parallelism = 4
	}
	if conf.JobTimeout <= 0 {
		conf.JobTimeout = 2 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GraphSync{db: conn, syncer: syncer, conf: conf, log: log.With("worker", "graph-sync"), now: time.Now}
}

// Start runs the ticker loop until ctx is cancelled.
func (w *GraphSync) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.conf.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := w.RunOnce(ctx); err != nil {
					w.log.Error("graph sync pass failed", "error", err)
				}
			}
		}
	}()
}

// RunOnce claims the due jobs and processes them with bounded parallelism.
// It returns how many jobs were claimed.
func (w *GraphSync) RunOnce(ctx context.Context) (int, error) {
	jobs, err := db.ClaimDueSyncJobs(w.db, w.now(), w.conf.BatchSize)
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.conf.Parallelism)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			w.handle(gctx, job)
			return nil
		})
	}
	return len(jobs), g.Wait()
}

func (w *GraphSync) handle(ctx context.Context, job models.SyncJob) {
	ctx, cancel := context.WithTimeout(ctx, w.conf.JobTimeout)
	defer cancel()

	merged, err := w.SyncUser(ctx, job.UserID)
	metrics.SyncJobs.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		w.log.Error("graph sync job failed", "job_id", job.ID, "user_id", job.UserID, "error", err)
	} else {
		w.log.Info("graph sync job done", "job_id", job.ID, "user_id", job.UserID, "merged", merged)
	}
	if ferr := db.FinishSyncJob(w.db, job.ID, merged, err, w.now()); ferr != nil {
		w.log.Error("graph sync job status update failed", "job_id", job.ID, "error", ferr)
	}
}

// SyncUser loads the user's rows and mirrors them.
func (w *GraphSync) SyncUser(ctx context.Context, userID string) (int64, error) {
	nodes, err := db.UserNodes(w.db, userID)
	if err != nil {
		return 0, err
	}
	edges, err := db.UserEdges(w.db, userID)
	if err != nil {
		return 0, err
	}
	return w.syncer.SyncUser(ctx, userID, nodes, edges)
}
