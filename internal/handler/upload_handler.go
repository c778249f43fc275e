package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/internal/upload"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// UploadHandler accepts browser uploads and reports session progress.
type UploadHandler struct {
	service      VideoAPI
	maxBodyBytes int64
}

// NewUploadHandler creates an upload handler. maxBodyBytes is this entry
// point's request-size ceiling, independent of the stream client's own
// transfer cap.
func NewUploadHandler(service VideoAPI, maxBodyBytes int64) *UploadHandler {
	return &UploadHandler{service: service, maxBodyBytes: maxBodyBytes}
}

type startUploadResponse struct {
	SessionID string `json:"sessionId"`
	AssetID   string `json:"assetId"`
	Phase     string `json:"phase"`
}

// HandleStartUpload receives a multipart upload, starts a session and
// responds once the byte transfer finished. Transcoding continues in the
// background; progress is available on the session endpoint.
func (h *UploadHandler) HandleStartUpload(c *gin.Context) {
	if h.maxBodyBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "File Rejected", "missing or unreadable file field")
		return
	}
	defer file.Close()

	meta := map[string]string{}
	if v := c.PostForm("title"); v != "" {
		meta[asset.KeyName] = v
	}
	if v := c.PostForm("description"); v != "" {
		meta[asset.KeyDescription] = v
	}
	if v := c.PostForm("categories"); v != "" {
		meta[asset.KeyCategories] = v
	}
	if v := c.PostForm("tags"); v != "" {
		meta[asset.KeyTags] = v
	}

	src := upload.Source{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      file,
	}

	session, err := h.service.StartUpload(c.Request.Context(), src, meta)
	if err != nil {
		respondError(c, err)
		return
	}

	// The multipart reader dies with this request, so hold it open until
	// the transfer (or the whole session, on early failure) is done.
	select {
	case <-session.TransferDone():
	case <-c.Request.Context().Done():
		logger.Log.Warn("Upload abandoned by client",
			zap.String("sessionId", session.ID.String()),
		)
		return
	}

	snap := session.Snapshot()
	if snap.Phase == upload.PhaseFailed && snap.Result != nil {
		respondError(c, snap.Result.Err)
		return
	}

	logger.Log.Info("Upload transferred",
		zap.String("sessionId", session.ID.String()),
		zap.String("assetId", snap.AssetID),
		zap.String("file", header.Filename),
	)

	c.JSON(http.StatusAccepted, startUploadResponse{
		SessionID: session.ID.String(),
		AssetID:   snap.AssetID,
		Phase:     string(snap.Phase),
	})
}

type progressResponse struct {
	upload.Snapshot
	Message string `json:"message,omitempty"`
}

// HandleProgress reports a point-in-time snapshot of one session. Progress
// only exists in memory: a server restart loses it even though the remote
// transfer may have completed.
func (h *UploadHandler) HandleProgress(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "Bad Request", "invalid session id")
		return
	}

	snap, ok := h.service.Progress(id)
	if !ok {
		sendError(c, http.StatusNotFound, "Not Found", "unknown upload session")
		return
	}

	resp := progressResponse{Snapshot: snap}
	if snap.Result != nil {
		switch snap.Result.PollOutcome {
		case poll.OutcomeTimedOut, poll.OutcomeStatusUnknown:
			resp.Message = "still processing, check back later"
		}
	}

	c.JSON(http.StatusOK, resp)
}
