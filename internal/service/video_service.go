// Package service exposes the public surface of the video storefront core:
// listings, uploads, metadata edits, moderation and counters.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/db/models"
	"github.com/vidstore/stream-ingestion-go/internal/db/repository"
	"github.com/vidstore/stream-ingestion-go/internal/moderation"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/internal/reconcile"
	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/internal/upload"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// Remote is the full stream service contract the video service consumes.
// *streamclient.Client satisfies it.
type Remote interface {
	upload.TransferClient
	poll.StatusFetcher
	GetAsset(ctx context.Context, assetID string) (*asset.VideoAsset, error)
	ListAssets(ctx context.Context) ([]*asset.VideoAsset, error)
	DeleteAsset(ctx context.Context, assetID string) error
}

// LifecyclePublisher pushes lifecycle events to the message broker. Nil
// disables publishing.
type LifecyclePublisher interface {
	PublishLifecycle(ctx context.Context, event *LifecycleEvent) error
}

// RefreshScheduler enqueues a deferred status re-check for assets whose
// polling run ended without a verdict. Nil disables scheduling.
type RefreshScheduler interface {
	EnqueueStatusRefresh(ctx context.Context, assetID, reason string, delay time.Duration) error
}

// LifecycleEvent is the broker message emitted on asset transitions.
type LifecycleEvent struct {
	AssetID    string            `json:"asset_id"`
	Event      string            `json:"event"`
	Detail     map[string]string `json:"detail,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// VideoService implements the public operations over the remote asset
// collection. Every read is a fresh remote fetch; no local cache or lock
// mediates concurrent access, so read-merge-write edits are last-write-wins
// at the field level.
type VideoService struct {
	remote    Remote
	uploads   *upload.Manager
	gate      *moderation.Gate
	events    repository.IngestEventRepository
	publisher LifecyclePublisher
	scheduler RefreshScheduler

	refreshDelay time.Duration
}

// Options carries the optional collaborators. Any of them may be nil.
type Options struct {
	Events    repository.IngestEventRepository
	Publisher LifecyclePublisher
	Scheduler RefreshScheduler
}

// New creates the video service and its upload session manager.
// maxFileBytes is the session manager's entry-point ceiling.
func New(remote Remote, poller *poll.Poller, maxFileBytes int64, opts Options) *VideoService {
	s := &VideoService{
		remote:       remote,
		gate:         moderation.NewGate(remote),
		events:       opts.Events,
		publisher:    opts.Publisher,
		scheduler:    opts.Scheduler,
		refreshDelay: 2 * time.Minute,
	}
	s.uploads = upload.NewManager(remote, poller, s, maxFileBytes)
	return s
}

// ListPublicVideos returns assets that are both transcoded and approved,
// the only condition under which a video is publicly visible.
func (s *VideoService) ListPublicVideos(ctx context.Context) ([]*asset.VideoAsset, error) {
	all, err := s.remote.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	visible := make([]*asset.VideoAsset, 0, len(all))
	for _, a := range all {
		if a.Visible() {
			visible = append(visible, a)
		}
	}
	return visible, nil
}

// ListAllVideos returns every asset regardless of state, for the admin
// surface.
func (s *VideoService) ListAllVideos(ctx context.Context) ([]*asset.VideoAsset, error) {
	return s.remote.ListAssets(ctx)
}

// ListPendingVideos returns assets awaiting moderation.
func (s *VideoService) ListPendingVideos(ctx context.Context) ([]*asset.VideoAsset, error) {
	return s.gate.ListPending(ctx)
}

// ListApprovedVideos returns assets that passed moderation, ready or not.
func (s *VideoService) ListApprovedVideos(ctx context.Context) ([]*asset.VideoAsset, error) {
	return s.gate.ListApproved(ctx)
}

// GetVideo fetches one asset by id.
func (s *VideoService) GetVideo(ctx context.Context, assetID string) (*asset.VideoAsset, error) {
	return s.remote.GetAsset(ctx, assetID)
}

// StartUpload begins an upload session and returns its handle.
func (s *VideoService) StartUpload(ctx context.Context, src upload.Source, meta map[string]string) (*upload.Session, error) {
	session, err := s.uploads.Start(ctx, src, meta)
	if err != nil {
		return nil, err
	}
	s.record(ctx, session.Snapshot().AssetID, "upload_started", map[string]string{"file": src.Name})
	return session, nil
}

// Progress returns the point-in-time snapshot of a session.
func (s *VideoService) Progress(sessionID uuid.UUID) (upload.Snapshot, bool) {
	session, ok := s.uploads.Get(sessionID)
	if !ok {
		return upload.Snapshot{}, false
	}
	return session.Snapshot(), true
}

// EditMetadata merges the partial update over the current remote metadata
// and writes the merged record back. Untouched fields survive; errors are
// surfaced directly so the caller can resubmit the same intent.
func (s *VideoService) EditMetadata(ctx context.Context, assetID string, partial map[string]string) (*asset.VideoAsset, error) {
	current, err := s.remote.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}

	merged := reconcile.Merge(current.Metadata, partial)
	if err := s.remote.AttachMetadata(ctx, assetID, merged); err != nil {
		return nil, err
	}

	current.Metadata = merged
	current.Approved = asset.ApprovedValue(merged)
	return current, nil
}

// Approve flips the moderation flag. Visibility still requires transcoding
// readiness.
func (s *VideoService) Approve(ctx context.Context, assetID string) error {
	if err := s.gate.Approve(ctx, assetID); err != nil {
		return err
	}
	s.record(ctx, assetID, "approved", nil)
	return nil
}

// DeleteVideo removes the remote asset entirely. Irreversible; no local
// tombstone. Deleting an already-deleted id succeeds.
func (s *VideoService) DeleteVideo(ctx context.Context, assetID string) error {
	if err := s.remote.DeleteAsset(ctx, assetID); err != nil {
		return err
	}
	s.record(ctx, assetID, "deleted", nil)
	return nil
}

// IncrementCounter bumps a views/likes/dislikes counter by one and returns
// the new value. Read-add-write, not atomic: concurrent increments from the
// same snapshot can lose updates.
func (s *VideoService) IncrementCounter(ctx context.Context, assetID, counter string) (string, error) {
	current, err := s.remote.GetAsset(ctx, assetID)
	if err != nil {
		return "", err
	}

	partial, err := reconcile.IncrementCounter(current.Metadata, counter)
	if err != nil {
		return "", err
	}

	merged := reconcile.Merge(current.Metadata, partial)
	if err := s.remote.AttachMetadata(ctx, assetID, merged); err != nil {
		return "", err
	}
	return partial[counter], nil
}

// RefreshStatus re-checks a previously unresolved asset once and records
// the verdict. Used by the deferred-refresh worker after a poll timed out.
func (s *VideoService) RefreshStatus(ctx context.Context, assetID string) (*streamclient.AssetStatus, error) {
	status, err := s.remote.FetchStatus(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if status.Ready {
		s.record(ctx, assetID, "ready", map[string]string{"source": "deferred_refresh"})
	}
	return status, nil
}

// SessionEvent implements upload.Notifier: audit, broker and deferred
// refresh fan-out for session lifecycle transitions.
func (s *VideoService) SessionEvent(ctx context.Context, assetID, event string, detail map[string]string) {
	s.record(ctx, assetID, event, detail)

	if s.scheduler != nil && (event == upload.EventTimedOut || event == upload.EventStatusUnknown) {
		if err := s.scheduler.EnqueueStatusRefresh(ctx, assetID, event, s.refreshDelay); err != nil {
			logger.Log.Error("Failed to schedule status refresh",
				zap.String("assetId", assetID),
				zap.Error(err),
			)
		}
	}
}

// record appends an audit event and publishes a broker message. Both sinks
// are best-effort: the pipeline never fails because observability did.
func (s *VideoService) record(ctx context.Context, assetID, event string, detail map[string]string) {
	if assetID == "" {
		return
	}

	if s.events != nil {
		if err := s.events.Append(ctx, models.NewIngestEvent(assetID, event, detail)); err != nil {
			logger.Log.Error("Failed to append ingest event",
				zap.String("assetId", assetID),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}

	if s.publisher != nil {
		msg := &LifecycleEvent{AssetID: assetID, Event: event, Detail: detail, OccurredAt: time.Now()}
		if err := s.publisher.PublishLifecycle(ctx, msg); err != nil {
			logger.Log.Error("Failed to publish lifecycle event",
				zap.String("assetId", assetID),
				zap.String("event", event),
				zap.Error(err),
			)
		}
	}
}
