package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vidstore/stream-ingestion-go/internal/taxonomy"
)

// TaxonomyHandler serves the category vocabulary used by upload forms and
// listing filters.
type TaxonomyHandler struct {
	store *taxonomy.Store
}

func NewTaxonomyHandler(store *taxonomy.Store) *TaxonomyHandler {
	return &TaxonomyHandler{store: store}
}

// HandleListCategories returns the full category map.
func (h *TaxonomyHandler) HandleListCategories(c *gin.Context) {
	cats, err := h.store.All(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(cats), "categories": cats})
}

type createCategoryRequest struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

// HandleCreateCategory registers a new category. Existing ids are never
// overwritten.
func (h *TaxonomyHandler) HandleCreateCategory(c *gin.Context) {
	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Bad Request", "invalid request payload: "+err.Error())
		return
	}

	if err := h.store.Create(c.Request.Context(), req.ID, req.Name); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": req.ID, "name": req.Name})
}
