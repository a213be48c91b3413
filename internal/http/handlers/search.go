package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lookbook-backend/internal/http/response"
	"github.com/yungbote/lookbook-backend/internal/services"
)

// maxQueryImageBytes caps uploaded query images.
const maxQueryImageBytes = 20 << 20

type SearchHandler struct {
	search services.VisualSearchService
}

func NewSearchHandler(search services.VisualSearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

// POST /api/search/image
// multipart: image file plus optional k / filter form fields.
func (h *SearchHandler) SearchByImage(c *gin.Context) {
	image, err := readQueryImage(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_image", err)
		return
	}
	k, _ := strconv.Atoi(c.DefaultPostForm("k", c.Query("k")))

	hits, err := h.search.SearchByImage(c.Request.Context(), nil, image, k, parseSearchFilter(c))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"hits": hits})
}

// POST /api/search/hybrid
// Same shape as image search plus text, image_weight and text_weight
// form fields.
func (h *SearchHandler) SearchHybrid(c *gin.Context) {
	image, err := readQueryImage(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_image", err)
		return
	}
	k, _ := strconv.Atoi(c.DefaultPostForm("k", c.Query("k")))
	text := c.PostForm("text")

	var fusion *services.FusionWeights
	if iw, ok := formFloat(c, "image_weight"); ok {
		tw, _ := formFloat(c, "text_weight")
		fusion = &services.FusionWeights{Image: iw, Text: tw}
	}

	hits, err := h.search.SearchHybrid(c.Request.Context(), nil, image, text, k, parseSearchFilter(c), fusion)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"hits": hits})
}

// POST /api/search/look
func (h *SearchHandler) ShopTheLook(c *gin.Context) {
	image, err := readQueryImage(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_image", err)
		return
	}
	regions, err := h.search.ShopTheLook(c.Request.Context(), nil, image)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"regions": regions})
}

func readQueryImage(c *gin.Context) ([]byte, error) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		return nil, fmt.Errorf("missing image file: %w", err)
	}
	if fileHeader.Size > maxQueryImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxQueryImageBytes)
	}
	f, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, maxQueryImageBytes))
}

func parseSearchFilter(c *gin.Context) *services.SearchFilter {
	filter := &services.SearchFilter{
		Categories:        splitList(c.PostForm("categories")),
		Brands:            splitList(c.PostForm("brands")),
		IncludeOutOfStock: c.PostForm("include_out_of_stock") == "true",
	}
	if v, ok := formFloat(c, "price_min"); ok {
		filter.PriceMin = &v
	}
	if v, ok := formFloat(c, "price_max"); ok {
		filter.PriceMax = &v
	}
	if len(filter.Categories) == 0 && len(filter.Brands) == 0 &&
		filter.PriceMin == nil && filter.PriceMax == nil && !filter.IncludeOutOfStock {
		return nil
	}
	return filter
}

func formFloat(c *gin.Context, name string) (float64, bool) {
	raw := c.PostForm(name)
	if raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
