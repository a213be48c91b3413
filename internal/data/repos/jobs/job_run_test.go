package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/lookbook-backend/internal/data/repos/testutil"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/pkg/dbctx"
)

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.JobRun{
		{
			ID:      uuid.New(),
			JobType: types.JobTypeProfileRebuild,
			Status:  "queued",
			Stage:   "queued",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Create: expected 1 job, got %d", len(created))
	}
	id := created[0].ID

	exists, err := repo.ExistsRunnable(dbc, types.JobTypeProfileRebuild, "", "")
	if err != nil {
		t.Fatalf("ExistsRunnable: %v", err)
	}
	if !exists {
		t.Fatalf("ExistsRunnable: expected queued job to count")
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("GetByIDs: unexpected result: %+v", got)
	}

	ok, err := repo.UpdateFieldsUnlessStatus(dbc, id, []string{"canceled"}, map[string]interface{}{
		"stage":    "running",
		"progress": 40,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if !ok {
		t.Fatalf("UpdateFieldsUnlessStatus: expected update to apply")
	}

	if err := repo.UpdateFields(dbc, id, map[string]interface{}{"status": "canceled"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, id, []string{"canceled"}, map[string]interface{}{
		"progress": 90,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus (canceled): %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsUnlessStatus (canceled): expected guard to block update")
	}
}

func TestJobRunRepo_ClaimNextRunnable(t *testing.T) {
	db := testutil.DB(t)

	repo := NewJobRunRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	jobType := "claim-test-" + uuid.NewString()
	created, err := repo.Create(dbc, []*types.JobRun{
		{
			ID:      uuid.New(),
			JobType: jobType,
			Status:  "queued",
			Stage:   "queued",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	t.Cleanup(func() {
		db.Where("job_type = ?", jobType).Delete(&types.JobRun{})
	})

	claimed, err := repo.ClaimNextRunnable(dbc, 3, time.Minute, 10*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if claimed == nil {
		t.Fatalf("ClaimNextRunnable: expected a job, none claimed")
	}
	if claimed.ID == created[0].ID && claimed.Status != "queued" {
		t.Fatalf("ClaimNextRunnable: claimed job had status %q before claim", claimed.Status)
	}

	if err := repo.Heartbeat(dbc, claimed.ID); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
}
