package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/platform/ctxutil"
	"github.com/yungbote/lookbook-backend/internal/services"
)

type InteractionHandler struct {
	interactions services.InteractionService
}

func NewInteractionHandler(interactions services.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactions: interactions}
}

// POST /api/interactions
// body: { "interactions": [ { "client_event_id": "...", "action_type": "...", ... } ] }
func (h *InteractionHandler) Record(c *gin.Context) {
	var req struct {
		Interactions []services.RecordInput `json:"interactions"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	recorded, err := h.interactions.Record(c.Request.Context(), nil, req.Interactions)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recorded": recorded})
}

// GET /api/interactions?since=RFC3339&actions=view_product,favorite&limit=100
func (h *InteractionHandler) List(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_since", err)
			return
		}
		since = parsed
	}
	var actions []string
	if raw := c.Query("actions"); raw != "" {
		for _, a := range strings.Split(raw, ",") {
			if a = strings.TrimSpace(a); a != "" {
				actions = append(actions, a)
			}
		}
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	rows, err := h.interactions.Query(c.Request.Context(), nil, rd.UserID, since, actions, limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"interactions": rows})
}
