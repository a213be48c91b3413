package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lookbook-backend/internal/data/repos"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/jobs"
	"github.com/yungbote/lookbook-backend/internal/pkg/dbctx"
)

var enqueueableJobTypes = map[string]bool{
	types.JobTypeProfileRebuild:   true,
	types.JobTypeAnalyticsRebuild: true,
	types.JobTypeIndexRebuild:     true,
	types.JobTypeCatalogImport:    true,
}

type JobHandler struct {
	runs      repos.JobRunRepo
	scheduler *jobs.Scheduler
}

func NewJobHandler(runs repos.JobRunRepo, scheduler *jobs.Scheduler) *JobHandler {
	return &JobHandler{runs: runs, scheduler: scheduler}
}

// GET /api/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	runs, err := h.runs.GetByIDs(dbctx.Context{Ctx: c.Request.Context()}, []uuid.UUID{jobID})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if len(runs) == 0 {
		response.RespondError(c, http.StatusNotFound, "job_not_found", nil)
		return
	}
	response.RespondOK(c, gin.H{"job": runs[0]})
}

// POST /api/jobs
// body: { "job_type": "index_rebuild", "payload": { ... } }
func (h *JobHandler) Enqueue(c *gin.Context) {
	var req struct {
		JobType string          `json:"job_type"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if !enqueueableJobTypes[req.JobType] {
		response.RespondError(c, http.StatusBadRequest, "unknown_job_type", fmt.Errorf("job type %q", req.JobType))
		return
	}
	run, err := h.scheduler.Enqueue(c.Request.Context(), req.JobType, req.Payload)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if run == nil {
		response.RespondOK(c, gin.H{"queued": false, "reason": "already_running"})
		return
	}
	response.RespondCreated(c, gin.H{"queued": true, "job": run})
}
