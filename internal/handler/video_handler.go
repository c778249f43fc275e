// Package handler exposes the storefront HTTP API over gin.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/db/repository"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/internal/upload"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// VideoAPI is the service surface the HTTP layer consumes.
// service.VideoService satisfies it.
type VideoAPI interface {
	ListPublicVideos(ctx context.Context) ([]*asset.VideoAsset, error)
	ListAllVideos(ctx context.Context) ([]*asset.VideoAsset, error)
	ListPendingVideos(ctx context.Context) ([]*asset.VideoAsset, error)
	GetVideo(ctx context.Context, assetID string) (*asset.VideoAsset, error)
	StartUpload(ctx context.Context, src upload.Source, meta map[string]string) (*upload.Session, error)
	Progress(sessionID uuid.UUID) (upload.Snapshot, bool)
	EditMetadata(ctx context.Context, assetID string, partial map[string]string) (*asset.VideoAsset, error)
	Approve(ctx context.Context, assetID string) error
	DeleteVideo(ctx context.Context, assetID string) error
	IncrementCounter(ctx context.Context, assetID, counter string) (string, error)
}

// VideoHandler serves listing, playback-detail, moderation and counter
// endpoints.
type VideoHandler struct {
	service VideoAPI
	events  repository.IngestEventRepository
}

// NewVideoHandler creates a video handler. events may be nil when the audit
// trail is disabled.
func NewVideoHandler(service VideoAPI, events repository.IngestEventRepository) *VideoHandler {
	return &VideoHandler{service: service, events: events}
}

type listResponse struct {
	Count  int                 `json:"count"`
	Videos []*asset.VideoAsset `json:"videos"`
}

// HandleListPublic returns the storefront listing: only assets that are
// both transcoded and approved appear, on every call, regardless of call
// order.
func (h *VideoHandler) HandleListPublic(c *gin.Context) {
	videos, err := h.service.ListPublicVideos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Count: len(videos), Videos: videos})
}

// HandleGetPublic returns one video for the watch page. Assets that are not
// publicly visible do not exist as far as this endpoint is concerned.
func (h *VideoHandler) HandleGetPublic(c *gin.Context) {
	v, err := h.service.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !v.Visible() {
		sendError(c, http.StatusNotFound, "Not Found", "video not available")
		return
	}
	c.JSON(http.StatusOK, v)
}

// HandleIncrementCounter bumps views/likes/dislikes by one.
func (h *VideoHandler) HandleIncrementCounter(c *gin.Context) {
	assetID := c.Param("id")
	counter := c.Param("name")

	value, err := h.service.IncrementCounter(c.Request.Context(), assetID, counter)
	if err != nil {
		var nf *streamclient.NotFoundError
		if errors.As(err, &nf) {
			respondError(c, err)
			return
		}
		sendError(c, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"assetId": assetID, "counter": counter, "value": value})
}

// Admin surface, behind the session gate.

// HandleListAll returns every asset with its full state.
func (h *VideoHandler) HandleListAll(c *gin.Context) {
	videos, err := h.service.ListAllVideos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Count: len(videos), Videos: videos})
}

// HandleListPending returns assets awaiting moderation.
func (h *VideoHandler) HandleListPending(c *gin.Context) {
	videos, err := h.service.ListPendingVideos(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, listResponse{Count: len(videos), Videos: videos})
}

// HandleGetAdmin returns one asset regardless of visibility.
func (h *VideoHandler) HandleGetAdmin(c *gin.Context) {
	v, err := h.service.GetVideo(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type editMetadataRequest struct {
	Metadata map[string]string `json:"metadata" binding:"required"`
}

// HandleEditMetadata merges a partial metadata update into the remote
// record. Errors are surfaced directly; the admin resubmits the same edit.
func (h *VideoHandler) HandleEditMetadata(c *gin.Context) {
	var req editMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Bad Request", "invalid request payload: "+err.Error())
		return
	}
	if len(req.Metadata) == 0 {
		sendError(c, http.StatusBadRequest, "Bad Request", "empty metadata update")
		return
	}

	updated, err := h.service.EditMetadata(c.Request.Context(), c.Param("id"), req.Metadata)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.Log.Info("Metadata edited",
		zap.String("assetId", updated.ID),
		zap.Int("fields", len(req.Metadata)),
	)
	c.JSON(http.StatusOK, updated)
}

// HandleApprove flips the moderation gate for one asset.
func (h *VideoHandler) HandleApprove(c *gin.Context) {
	assetID := c.Param("id")
	if err := h.service.Approve(c.Request.Context(), assetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assetId": assetID, "approved": true})
}

// HandleDelete removes the remote asset. Repeating the call for a gone id
// still succeeds.
func (h *VideoHandler) HandleDelete(c *gin.Context) {
	assetID := c.Param("id")
	if err := h.service.DeleteVideo(c.Request.Context(), assetID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assetId": assetID, "deleted": true})
}

// HandleListEvents returns the audit trail for one asset.
func (h *VideoHandler) HandleListEvents(c *gin.Context) {
	if h.events == nil {
		sendError(c, http.StatusNotFound, "Not Found", "audit trail is not enabled")
		return
	}

	events, err := h.events.ListByAsset(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

// HandleListRecentEvents returns the newest audit events across all assets,
// newest first. Default page size 50, capped at 500.
func (h *VideoHandler) HandleListRecentEvents(c *gin.Context) {
	if h.events == nil {
		sendError(c, http.StatusNotFound, "Not Found", "audit trail is not enabled")
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			sendError(c, http.StatusBadRequest, "Invalid Limit", "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	events, err := h.events.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}
