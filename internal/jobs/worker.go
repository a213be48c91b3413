package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/jobs/runtime"
	"github.com/yungbote/lookbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/lookbook-backend/internal/platform/envutil"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

const (
	pollInterval      = 1 * time.Second
	heartbeatInterval = 15 * time.Second
	maxAttempts       = 5
	retryDelay        = 30 * time.Second
	staleRunning      = 2 * time.Minute
)

// Worker polls for runnable job runs and dispatches them to registered
// handlers. Concurrency is one claim loop per slot; SKIP LOCKED keeps
// slots from fighting over the same row.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	slots    int
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		slots:    envutil.Int("WORKER_CONCURRENCY", 2),
	}
}

func (w *Worker) Start(ctx context.Context) {
	if w.slots < 1 {
		w.slots = 1
	}
	w.log.Info("job worker starting", "slots", w.slots)
	for i := 0; i < w.slots; i++ {
		go w.loop(ctx, i)
	}
}

func (w *Worker) loop(ctx context.Context, slot int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, maxAttempts, retryDelay, staleRunning)
			if err != nil {
				w.log.Warn("claim failed", "slot", slot, "error", err.Error())
				continue
			}
			if job == nil {
				continue
			}
			w.run(ctx, job)
		}
	}
}

func (w *Worker) run(ctx context.Context, job *types.JobRun) {
	jc := runtime.NewContext(ctx, w.db, job, w.repo)

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("no handler for job type", "job_type", job.JobType, "job_id", job.ID.String())
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", job.JobType))
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeat(hbCtx, job)
	defer stopHeartbeat()

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("job handler panic", "job_id", job.ID.String(), "job_type", job.JobType, "panic", fmt.Sprint(r))
			jc.Fail("panic", fmt.Errorf("panic: %v", r))
		}
	}()

	w.log.Info("job started", "job_id", job.ID.String(), "job_type", job.JobType, "attempt", job.Attempts)
	if err := h.Run(jc); err != nil {
		jc.Fail("run", err)
	}
}

func (w *Worker) heartbeat(ctx context.Context, job *types.JobRun) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(dbctx.Context{Ctx: ctx}, job.ID); err != nil {
				w.log.Warn("heartbeat failed", "job_id", job.ID.String(), "error", err.Error())
			}
		}
	}
}
