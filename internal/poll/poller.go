// Package poll drives the wait-for-processing phase: bounded, fixed-interval
// status checks against the remote service until the asset is playable or
// the attempt budget runs out.
package poll

import (
	"context"
	"time"

	"github.com/vidstore/stream-ingestion-go/internal/streamclient"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// StatusFetcher is the single remote read the poller depends on.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, assetID string) (*streamclient.AssetStatus, error)
}

// Outcome is the terminal result of one polling run.
type Outcome string

const (
	// OutcomeReady: the asset is playable; the only success exit.
	OutcomeReady Outcome = "ready"
	// OutcomeTimedOut: the budget ran out without readiness. Not a hard
	// failure; the asset may become ready out-of-band and must be re-queried
	// later.
	OutcomeTimedOut Outcome = "timed_out"
	// OutcomeStatusUnknown: a status call itself failed mid-polling. The
	// upload is not destroyed over a transient read failure; the caller is
	// told the asset is still processing, but the distinct outcome keeps
	// genuine status blindness observable.
	OutcomeStatusUnknown Outcome = "status_unknown"
)

// Result is what one polling run resolved to.
type Result struct {
	Outcome  Outcome
	Attempts int
	Status   *streamclient.AssetStatus
}

// Poller repeatedly fetches remote status on a fixed interval with a fixed
// attempt budget.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	budget   int
}

// New creates a poller. Non-positive budget falls back to 30 attempts; a
// negative interval falls back to 2 seconds (interval zero is allowed, for
// tests).
func New(fetcher StatusFetcher, interval time.Duration, budget int) *Poller {
	if budget <= 0 {
		budget = 30
	}
	if interval < 0 {
		interval = 2 * time.Second
	}
	return &Poller{fetcher: fetcher, interval: interval, budget: budget}
}

// Wait polls until the asset is ready, the budget is exhausted, or a status
// call fails. onProgress receives an artificial curve that approaches but
// never reaches 100 before readiness is confirmed, so callers cannot show a
// premature "done" while playback URLs do not exist yet. The only error
// return is context cancellation.
func (p *Poller) Wait(ctx context.Context, assetID string, onProgress func(int)) (*Result, error) {
	report := onProgress
	if report == nil {
		report = func(int) {}
	}

	for attempt := 1; attempt <= p.budget; attempt++ {
		status, err := p.fetcher.FetchStatus(ctx, assetID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Log.Warn("Status check failed mid-polling, resolving best-effort",
				zap.String("assetId", assetID),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return &Result{Outcome: OutcomeStatusUnknown, Attempts: attempt}, nil
		}

		if status.Ready {
			report(100)
			logger.Log.Info("Asset ready",
				zap.String("assetId", assetID),
				zap.Int("attempts", attempt),
			)
			return &Result{Outcome: OutcomeReady, Attempts: attempt, Status: status}, nil
		}

		report(progressAt(attempt, p.budget))

		if attempt == p.budget {
			break
		}

		timer := time.NewTimer(p.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	logger.Log.Info("Polling budget exhausted, asset still processing",
		zap.String("assetId", assetID),
		zap.Int("attempts", p.budget),
	)
	return &Result{Outcome: OutcomeTimedOut, Attempts: p.budget}, nil
}

// progressAt maps an attempt count onto the 70-95 band reserved for the
// processing phase.
func progressAt(attempt, budget int) int {
	pct := 70 + attempt*25/budget
	if pct > 95 {
		pct = 95
	}
	return pct
}
