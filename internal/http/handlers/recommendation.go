package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/platform/ctxutil"
	"github.com/yungbote/lookbook-backend/internal/services"
)

type RecommendationHandler struct {
	recs services.RecommendationService
}

func NewRecommendationHandler(recs services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{recs: recs}
}

// GET /api/recommendations?limit=20&strategy=hybrid
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	strategy := c.Query("strategy")

	recs, err := h.recs.Recommend(c.Request.Context(), nil, rd.UserID, limit, strategy)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"recommendations": recs})
}
