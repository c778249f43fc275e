package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/internal/taxonomy"
	"github.com/vidstore/stream-ingestion-go/internal/upload"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// ErrorResponse is the JSON error body returned by every endpoint.
type ErrorResponse struct {
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Path      string    `json:"path"`
}

func sendError(c *gin.Context, status int, errText, message string) {
	c.JSON(status, ErrorResponse{
		Status:    status,
		Error:     errText,
		Message:   message,
		Timestamp: time.Now(),
		Path:      c.Request.URL.Path,
	})
}

// respondError maps the error taxonomy onto HTTP statuses. The three
// user-facing upload failures stay distinguishable: a rejected file and a
// network error are actionable by re-uploading, "still processing" is not.
func respondError(c *gin.Context, err error) {
	var (
		validationErr  *upload.ValidationError
		sizeErr        *streamclient.SizeExceededError
		notFoundErr    *streamclient.NotFoundError
		networkErr     *streamclient.NetworkError
		unavailableErr *streamclient.ServiceUnavailableError
		protocolErr    *streamclient.ProtocolError
	)

	switch {
	case errors.As(err, &validationErr):
		sendError(c, http.StatusBadRequest, "File Rejected", validationErr.Error())
	case errors.As(err, &sizeErr):
		sendError(c, http.StatusRequestEntityTooLarge, "File Rejected", sizeErr.Error())
	case errors.As(err, &notFoundErr):
		sendError(c, http.StatusNotFound, "Not Found", notFoundErr.Error())
	case errors.As(err, &networkErr):
		logger.Log.Error("Network error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		sendError(c, http.StatusBadGateway, "Network Error", "Network error during upload, please retry")
	case errors.As(err, &unavailableErr):
		logger.Log.Error("Stream service unavailable", zap.String("path", c.Request.URL.Path), zap.Error(err))
		sendError(c, http.StatusServiceUnavailable, "Service Unavailable", "The stream service is unavailable")
	case errors.As(err, &protocolErr):
		logger.Log.Error("Protocol error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		sendError(c, http.StatusBadGateway, "Bad Gateway", "Unexpected response from the stream service")
	case errors.Is(err, taxonomy.ErrCategoryExists):
		sendError(c, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, taxonomy.ErrCategoryNotFound):
		sendError(c, http.StatusNotFound, "Not Found", err.Error())
	default:
		logger.Log.Error("Unexpected error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred")
	}
}
