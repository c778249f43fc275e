// Package upload owns the lifecycle of in-flight upload sessions: file
// validation, byte transfer with progress reporting, initial metadata
// attachment and the handoff into the processing poll.
package upload

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/metrics"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// Transfer progress is compressed into the 0-70 band of the overall
// percentage; the polling phase owns 70-100. The caller sees one continuous
// number across both phases instead of a reset.
const transferBandCeiling = 70

// Resolved sessions stay queryable for this long so a client still polling
// the progress endpoint sees the final state, then they leave the registry.
const sessionRetention = time.Hour

// TransferClient is the slice of the stream service the session manager
// needs.
type TransferClient interface {
	CreateUploadTarget(ctx context.Context) (endpoint, assetID string, err error)
	TransferBytes(ctx context.Context, endpoint string, src io.Reader, size int64, onProgress func(int)) error
	AttachMetadata(ctx context.Context, assetID string, meta map[string]string) error
}

// Notifier observes session lifecycle events. Implementations must not
// block; nil disables notifications.
type Notifier interface {
	SessionEvent(ctx context.Context, assetID, event string, detail map[string]string)
}

// Session lifecycle events passed to the Notifier.
const (
	EventTransferred   = "transferred"
	EventReady         = "ready"
	EventTimedOut      = "timed_out"
	EventStatusUnknown = "status_unknown"
	EventFailed        = "failed"
)

// ValidationError rejects a source before any network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "upload rejected: " + e.Reason
}

// Source describes the file a caller wants to upload.
type Source struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// Manager starts and tracks upload sessions.
type Manager struct {
	client       TransferClient
	poller       *poll.Poller
	notifier     Notifier
	maxFileBytes int64
	retention    time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates a session manager. maxFileBytes is this entry point's
// size ceiling; the stream client enforces its own independently.
func NewManager(client TransferClient, poller *poll.Poller, notifier Notifier, maxFileBytes int64) *Manager {
	return &Manager{
		client:       client,
		poller:       poller,
		notifier:     notifier,
		maxFileBytes: maxFileBytes,
		retention:    sessionRetention,
		sessions:     make(map[uuid.UUID]*Session),
	}
}

// Start validates the source, mints the remote asset id and launches the
// transfer. Validation failures are returned synchronously and no session
// exists afterwards. The returned session handle is owned by the caller;
// there is no ambient global upload state.
//
// The transfer and metadata attach run under ctx (abandoning the caller
// abandons them); the polling phase deliberately survives ctx so a finished
// transfer is not thrown away when the caller disconnects.
func (m *Manager) Start(ctx context.Context, src Source, meta map[string]string) (*Session, error) {
	if err := m.validate(src); err != nil {
		metrics.UploadsRejected.Inc()
		return nil, err
	}

	session := newSession()
	session.setPhase(PhaseValidating)

	endpoint, assetID, err := m.client.CreateUploadTarget(ctx)
	if err != nil {
		metrics.UploadsFailed.Inc()
		return nil, fmt.Errorf("create upload target: %w", err)
	}
	session.setAssetID(assetID)

	m.mu.Lock()
	m.sessions[session.ID] = session
	m.mu.Unlock()

	metrics.UploadsStarted.Inc()
	logger.Log.Info("Upload session started",
		zap.String("sessionId", session.ID.String()),
		zap.String("assetId", assetID),
		zap.String("file", src.Name),
		zap.Int64("size", src.Size),
	)

	go m.run(ctx, session, endpoint, src, meta)

	return session, nil
}

// Get returns a previously started session by handle.
func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) validate(src Source) error {
	if !strings.HasPrefix(src.ContentType, "video/") {
		return &ValidationError{Reason: fmt.Sprintf("unsupported content type %q, expected video/*", src.ContentType)}
	}
	if src.Size <= 0 {
		return &ValidationError{Reason: "empty file"}
	}
	if m.maxFileBytes > 0 && src.Size > m.maxFileBytes {
		return &ValidationError{Reason: fmt.Sprintf("file size %d exceeds the %d byte limit", src.Size, m.maxFileBytes)}
	}
	return nil
}

// run drives one session through transfer, metadata attach and polling.
// Transfer strictly precedes metadata attach, which strictly precedes
// polling; ordering comes from this sequential flow, not from locks.
func (m *Manager) run(ctx context.Context, session *Session, endpoint string, src Source, meta map[string]string) {
	assetID := session.Snapshot().AssetID

	session.setPhase(PhaseTransferring)
	err := m.client.TransferBytes(ctx, endpoint, src.Reader, src.Size, func(pct int) {
		session.setProgress(pct * transferBandCeiling / 100)
	})
	if err != nil {
		m.fail(session, assetID, fmt.Errorf("transfer: %w", err))
		return
	}
	metrics.TransferredBytes.Add(float64(src.Size))

	session.setPhase(PhaseMetadataAttach)
	if err := m.client.AttachMetadata(ctx, assetID, initialMetadata(src, meta)); err != nil {
		m.fail(session, assetID, fmt.Errorf("attach metadata: %w", err))
		return
	}
	session.markTransferred()
	m.notify(assetID, EventTransferred, map[string]string{"file": src.Name})

	session.setPhase(PhasePolling)
	session.setProgress(transferBandCeiling)

	// The caller may be gone by now; a completed transfer should still get
	// its readiness verdict.
	pollCtx := context.WithoutCancel(ctx)
	res, err := m.poller.Wait(pollCtx, assetID, session.setProgress)
	if err != nil {
		m.fail(session, assetID, fmt.Errorf("poll: %w", err))
		return
	}

	metrics.PollOutcomes.WithLabelValues(string(res.Outcome)).Inc()
	metrics.PollAttempts.Observe(float64(res.Attempts))

	result := &Result{AssetID: assetID, PollOutcome: res.Outcome}
	switch res.Outcome {
	case poll.OutcomeReady:
		result.State = asset.ProcessingReady
		result.ThumbnailRef = res.Status.Thumbnail
		result.PlaybackRefs = res.Status.PlaybackRefs
		m.notify(assetID, EventReady, nil)
	case poll.OutcomeTimedOut:
		result.State = asset.Processing
		m.notify(assetID, EventTimedOut, nil)
	case poll.OutcomeStatusUnknown:
		result.State = asset.Processing
		m.notify(assetID, EventStatusUnknown, nil)
	}

	metrics.UploadsCompleted.WithLabelValues(string(res.Outcome)).Inc()
	session.resolve(result)
	m.evictLater(session.ID)
}

func (m *Manager) fail(session *Session, assetID string, err error) {
	metrics.UploadsFailed.Inc()
	logger.Log.Error("Upload session failed",
		zap.String("sessionId", session.ID.String()),
		zap.String("assetId", assetID),
		zap.Error(err),
	)
	m.notify(assetID, EventFailed, map[string]string{"error": err.Error()})
	session.markTransferred()
	session.resolve(&Result{AssetID: assetID, State: asset.ProcessingFailed, Err: err})
	m.evictLater(session.ID)
}

// evictLater drops a resolved session from the registry after the retention
// window so the map does not grow for the life of the process.
func (m *Manager) evictLater(id uuid.UUID) {
	time.AfterFunc(m.retention, func() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
	})
}

func (m *Manager) notify(assetID, event string, detail map[string]string) {
	if m.notifier == nil {
		return
	}
	m.notifier.SessionEvent(context.Background(), assetID, event, detail)
}

// initialMetadata builds the first metadata attachment. New uploads are
// never publicly visible: isApproved is forced false regardless of what the
// caller supplied, and the upload timestamp is stamped here.
func initialMetadata(src Source, meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	if out[asset.KeyName] == "" {
		out[asset.KeyName] = src.Name
	}
	out[asset.KeyIsApproved] = "false"
	out[asset.KeyUploadDate] = time.Now().UTC().Format(time.RFC3339)
	return out
}
