package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lookbook-backend/internal/clients/retailer"
	types "github.com/yungbote/lookbook-backend/internal/domain"
	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/jobs"
	"github.com/yungbote/lookbook-backend/internal/services"
)

type CatalogHandler struct {
	catalog   services.CatalogService
	scheduler *jobs.Scheduler
}

func NewCatalogHandler(catalog services.CatalogService, scheduler *jobs.Scheduler) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, scheduler: scheduler}
}

// POST /api/catalog/products
// body: a retailer product row, optionally with an inline image.
func (h *CatalogHandler) Upsert(c *gin.Context) {
	var req struct {
		retailer.ProductRow
		ImageBase64 string `json:"image_base64,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	input := services.UpsertProductInput{Row: req.ProductRow}
	if req.ImageBase64 != "" {
		raw, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_image_base64", err)
			return
		}
		input.ImageBytes = raw
	}
	product, err := h.catalog.UpsertProduct(c.Request.Context(), nil, input)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": product})
}

// GET /api/catalog/products/:id
func (h *CatalogHandler) Get(c *gin.Context) {
	product, err := h.catalog.Lookup(c.Request.Context(), nil, c.Param("id"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"product": product})
}

// DELETE /api/catalog/products/:id
func (h *CatalogHandler) Remove(c *gin.Context) {
	if err := h.catalog.RemoveProduct(c.Request.Context(), nil, c.Param("id")); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// GET /api/catalog/search?q=black+leather+jacket&category=jackets
func (h *CatalogHandler) Search(c *gin.Context) {
	query := c.Query("q")
	var filters *retailer.SearchFilters
	if c.Query("category") != "" || c.Query("brand") != "" {
		filters = &retailer.SearchFilters{
			Category: c.Query("category"),
			Brand:    c.Query("brand"),
		}
	}
	rows, err := h.catalog.SearchText(c.Request.Context(), query, filters)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"products": rows})
}

// GET /api/catalog/autocomplete?q=bla
func (h *CatalogHandler) Autocomplete(c *gin.Context) {
	suggestions, err := h.catalog.Autocomplete(c.Request.Context(), c.Query("q"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"suggestions": suggestions})
}

// POST /api/catalog/import
// Kicks off a feed import job; the walk can take minutes on a full
// catalog so it never runs on the request path.
func (h *CatalogHandler) Import(c *gin.Context) {
	run, err := h.scheduler.Enqueue(c.Request.Context(), types.JobTypeCatalogImport, nil)
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
