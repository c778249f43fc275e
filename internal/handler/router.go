package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vidstore/stream-ingestion-go/internal/middleware"
)

// RouterDeps collects everything the HTTP surface needs. Taxonomy and
// Events are optional.
type RouterDeps struct {
	Upload   *UploadHandler
	Video    *VideoHandler
	Taxonomy *TaxonomyHandler
	Sessions middleware.TokenChecker
	Health   *HealthHandler
}

// NewRouter builds the gin engine with the public storefront routes, the
// session-gated admin routes and the operational endpoints.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health/live", deps.Health.LivenessProbe)
	router.GET("/health/ready", deps.Health.ReadinessProbe)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/videos", deps.Video.HandleListPublic)
		api.GET("/videos/:id", deps.Video.HandleGetPublic)
		api.POST("/videos/:id/counters/:name", deps.Video.HandleIncrementCounter)

		if deps.Taxonomy != nil {
			api.GET("/categories", deps.Taxonomy.HandleListCategories)
		}
	}

	admin := router.Group("/api/v1/admin")
	admin.Use(middleware.SessionAuth(deps.Sessions))
	{
		admin.POST("/videos", deps.Upload.HandleStartUpload)
		admin.GET("/uploads/:id", deps.Upload.HandleProgress)

		admin.GET("/videos", deps.Video.HandleListAll)
		admin.GET("/videos/pending", deps.Video.HandleListPending)
		admin.GET("/videos/:id", deps.Video.HandleGetAdmin)
		admin.PATCH("/videos/:id/metadata", deps.Video.HandleEditMetadata)
		admin.POST("/videos/:id/approve", deps.Video.HandleApprove)
		admin.DELETE("/videos/:id", deps.Video.HandleDelete)
		admin.GET("/videos/:id/events", deps.Video.HandleListEvents)
		admin.GET("/events", deps.Video.HandleListRecentEvents)

		if deps.Taxonomy != nil {
			admin.POST("/categories", deps.Taxonomy.HandleCreateCategory)
		}
	}

	return router
}

// HealthChecker reports broker connectivity for readiness checks.
type HealthChecker interface {
	IsHealthy() bool
}

// HealthHandler handles liveness and readiness probes.
type HealthHandler struct {
	dbPing    func(ctx context.Context) error
	publisher HealthChecker
}

// NewHealthHandler creates a health handler. Either dependency may be nil
// when the corresponding backend is not configured.
func NewHealthHandler(dbPing func(ctx context.Context) error, publisher HealthChecker) *HealthHandler {
	return &HealthHandler{dbPing: dbPing, publisher: publisher}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	if h.dbPing != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.dbPing(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"database": "unhealthy",
				"error":    err.Error(),
				"time":     time.Now(),
			})
			return
		}
	}

	if h.publisher != nil && !h.publisher.IsHealthy() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"rabbitmq": "unhealthy",
			"time":     time.Now(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}
