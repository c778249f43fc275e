package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// StatusRefresher re-checks one asset's processing state.
// service.VideoService satisfies it.
type StatusRefresher interface {
	RefreshStatus(ctx context.Context, assetID string) (*streamclient.AssetStatus, error)
}

// StatusRefreshHandler processes deferred status-refresh tasks. An asset
// that is still not ready gets re-scheduled up to maxAttempts times with the
// given interval between attempts, then the chain gives up and leaves the
// asset for the admin panel.
type StatusRefreshHandler struct {
	refresher   StatusRefresher
	client      *Client
	interval    time.Duration
	maxAttempts int
}

// NewStatusRefreshHandler creates a status refresh task handler.
func NewStatusRefreshHandler(refresher StatusRefresher, client *Client, interval time.Duration, maxAttempts int) *StatusRefreshHandler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	return &StatusRefreshHandler{
		refresher:   refresher,
		client:      client,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// ProcessTask implements asynq.Handler.
func (h *StatusRefreshHandler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	payload, err := UnmarshalStatusRefreshPayload(task.Payload())
	if err != nil {
		return fmt.Errorf("invalid status refresh payload: %w", err)
	}

	status, err := h.refresher.RefreshStatus(ctx, payload.AssetID)
	if err != nil {
		// Returned so asynq applies its own retry policy to transport
		// failures.
		return fmt.Errorf("refresh status for %s: %w", payload.AssetID, err)
	}

	if status.Ready {
		logger.Log.Info("Deferred refresh found asset ready",
			zap.String("assetId", payload.AssetID),
			zap.Int("attempt", payload.Attempt),
		)
		return nil
	}

	if payload.Attempt >= h.maxAttempts {
		logger.Log.Warn("Giving up on deferred status refresh",
			zap.String("assetId", payload.AssetID),
			zap.String("reason", payload.Reason),
			zap.Int("attempts", payload.Attempt),
		)
		return nil
	}

	if err := h.client.EnqueueFollowUp(ctx, payload, h.interval); err != nil {
		return fmt.Errorf("re-enqueue status refresh for %s: %w", payload.AssetID, err)
	}
	return nil
}
