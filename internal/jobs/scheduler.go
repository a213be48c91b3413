package jobs

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/pkg/dbctx"
	"github.com/yungbote/lookbook-backend/internal/platform/envutil"
	"github.com/yungbote/lookbook-backend/internal/platform/logger"
)

// nightlyJobTypes run once per night, in this order of enqueue. The
// analytics rebuild runs off the same log the profile rebuild reads, so
// ordering between them does not matter.
var nightlyJobTypes = []string{
	types.JobTypeProfileRebuild,
	types.JobTypeAnalyticsRebuild,
	types.JobTypeIndexRebuild,
}

// Scheduler enqueues the nightly rebuild jobs at a fixed UTC hour.
// Enqueues are deduplicated against queued or running jobs of the same
// type so restarts never double-book a night.
type Scheduler struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
	hour int
}

func NewScheduler(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) *Scheduler {
	return &Scheduler{
		db:   db,
		log:  baseLog.With("component", "JobScheduler"),
		repo: repo,
		hour: envutil.Int("NIGHTLY_REBUILD_HOUR_UTC", 3),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		var lastRun string
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				utc := now.UTC()
				day := utc.Format("2006-01-02")
				if utc.Hour() != s.hour || day == lastRun {
					continue
				}
				if s.enqueueNightly(ctx) {
					lastRun = day
				}
			}
		}
	}()
}

func (s *Scheduler) enqueueNightly(ctx context.Context) bool {
	ok := true
	for _, jobType := range nightlyJobTypes {
		if _, err := s.Enqueue(ctx, jobType, nil); err != nil {
			s.log.Warn("nightly enqueue failed", "job_type", jobType, "error", err.Error())
			ok = false
		}
	}
	return ok
}

// Enqueue creates one queued run of jobType unless an equivalent run is
// already queued or running. Returns the created run, or nil when
// deduplicated.
func (s *Scheduler) Enqueue(ctx context.Context, jobType string, payload []byte) (*types.JobRun, error) {
	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.repo.ExistsRunnable(dbc, jobType, "", "")
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.Debug("enqueue deduplicated", "job_type", jobType)
		return nil, nil
	}
	run := &types.JobRun{
		JobType: jobType,
		Status:  types.JobStatusQueued,
		Stage:   "queued",
		Payload: datatypes.JSON(payload),
	}
	created, err := s.repo.Create(dbc, []*types.JobRun{run})
	if err != nil {
		return nil, err
	}
	s.log.Info("job enqueued", "job_type", jobType, "job_id", created[0].ID.String())
	return created[0], nil
}
