// Package queue schedules deferred status-refresh jobs over asynq. When a
// polling run ends without a verdict the asset may still become ready
// out-of-band; these jobs re-query it later instead of keeping the poller
// alive past its budget.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

const queueName = "ingest"

// Client wraps the asynq client for enqueueing tasks.
type Client struct {
	asynqClient *asynq.Client
}

// NewClient creates a queue client against the configured redis instance.
func NewClient(addr, password string, db int) *Client {
	return &Client{
		asynqClient: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueueStatusRefresh schedules a status re-check after delay.
func (c *Client) EnqueueStatusRefresh(ctx context.Context, assetID, reason string, delay time.Duration) error {
	return c.enqueue(ctx, assetID, reason, 1, delay)
}

// EnqueueFollowUp schedules the next attempt of an already-running refresh
// chain.
func (c *Client) EnqueueFollowUp(ctx context.Context, payload *StatusRefreshPayload, delay time.Duration) error {
	return c.enqueue(ctx, payload.AssetID, payload.Reason, payload.Attempt+1, delay)
}

func (c *Client) enqueue(ctx context.Context, assetID, reason string, attempt int, delay time.Duration) error {
	payload, err := NewStatusRefreshTask(assetID, reason, attempt)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	data, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	task := asynq.NewTask(TypeStatusRefresh, data)
	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(3),
		asynq.Queue(queueName),
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue status refresh: %w", err)
	}

	logger.Log.Debug("Status refresh enqueued",
		zap.String("assetId", assetID),
		zap.String("taskId", info.ID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
	)
	return nil
}
