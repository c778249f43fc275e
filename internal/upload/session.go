package upload

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/poll"
)

// Phase is the lifecycle position of one upload attempt.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseValidating     Phase = "validating"
	PhaseTransferring   Phase = "transferring"
	PhaseMetadataAttach Phase = "metadata_attach"
	PhasePolling        Phase = "polling"
	PhaseComplete       Phase = "complete"
	PhaseFailed         Phase = "failed"
)

// Result is what a finished session resolved to. Err is non-nil only for
// hard failures (validation, transfer, metadata attach); poll timeouts and
// status blindness resolve successfully with State still "processing".
type Result struct {
	AssetID      string                `json:"assetId"`
	State        asset.ProcessingState `json:"state"`
	PollOutcome  poll.Outcome          `json:"pollOutcome,omitempty"`
	ThumbnailRef string                `json:"thumbnailRef,omitempty"`
	PlaybackRefs []string              `json:"playbackRefs,omitempty"`
	Err          error                 `json:"-"`
}

// Snapshot is a point-in-time view of a session for progress reporting.
type Snapshot struct {
	SessionID uuid.UUID `json:"sessionId"`
	AssetID   string    `json:"assetId,omitempty"`
	Phase     Phase     `json:"phase"`
	Percent   int       `json:"percent"`
	Result    *Result   `json:"result,omitempty"`
}

// Session is one in-flight upload, owned exclusively by the caller that
// started it. All state is transient; a process restart loses progress
// tracking while the remote transfer may still have completed.
type Session struct {
	ID uuid.UUID

	mu      sync.Mutex
	phase   Phase
	percent int
	assetID string
	result  *Result

	transferred chan struct{}
	done        chan struct{}
}

func newSession() *Session {
	return &Session{
		ID:          uuid.New(),
		phase:       PhaseIdle,
		transferred: make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Snapshot returns the current phase, overall percentage and result if the
// session already resolved.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID: s.ID,
		AssetID:   s.assetID,
		Phase:     s.phase,
		Percent:   s.percent,
		Result:    s.result,
	}
}

// TransferDone is closed once the byte transfer and the initial metadata
// attach finished, i.e. the caller's reader is no longer needed.
func (s *Session) TransferDone() <-chan struct{} { return s.transferred }

// Done is closed when the session resolved either way.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session resolves or ctx is cancelled.
func (s *Session) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.result, nil
	}
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// setProgress enforces monotonicity: percentages never move backwards within
// one session.
func (s *Session) setProgress(pct int) {
	s.mu.Lock()
	if pct > s.percent {
		s.percent = pct
	}
	s.mu.Unlock()
}

func (s *Session) setAssetID(id string) {
	s.mu.Lock()
	s.assetID = id
	s.mu.Unlock()
}

func (s *Session) resolve(res *Result) {
	s.mu.Lock()
	s.result = res
	if res.Err != nil {
		s.phase = PhaseFailed
	} else {
		s.phase = PhaseComplete
		if res.State == asset.ProcessingReady {
			s.percent = 100
		}
	}
	s.mu.Unlock()
	close(s.done)
}

func (s *Session) markTransferred() {
	select {
	case <-s.transferred:
	default:
		close(s.transferred)
	}
}
