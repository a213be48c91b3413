package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/platform/ctxutil"
	"github.com/yungbote/lookbook-backend/internal/services"
)

type ProfileHandler struct {
	profiles services.StyleProfileService
}

func NewProfileHandler(profiles services.StyleProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GET /api/profile
func (h *ProfileHandler) Get(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	profile, err := h.profiles.Get(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": profile})
}

// POST /api/profile/rebuild
//
// Synchronous: a single-user rebuild reads one user's window of the
// log, so there is no reason to round-trip through the job queue.
func (h *ProfileHandler) Rebuild(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	profile, err := h.profiles.Rebuild(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": profile})
}
