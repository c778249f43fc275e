// Package moderation implements the approval gate controlling public
// visibility. Approval is a binary flag stored inside each asset's
// metadata; there is no separate moderation queue and no reject state short
// of deletion.
package moderation

import (
	"context"

	"github.com/vidstore/stream-ingestion-go/internal/asset"
	"github.com/vidstore/stream-ingestion-go/internal/reconcile"
	"github.com/vidstore/stream-ingestion-go/pkg/logger"
	"go.uber.org/zap"
)

// Remote is the slice of the stream service the gate needs.
type Remote interface {
	ListAssets(ctx context.Context) ([]*asset.VideoAsset, error)
	GetAsset(ctx context.Context, assetID string) (*asset.VideoAsset, error)
	AttachMetadata(ctx context.Context, assetID string, meta map[string]string) error
}

// Gate reads and flips the approval flag. Pending/approved status lives
// entirely in metadata.isApproved, re-interpreted on every listing call.
type Gate struct {
	remote Remote
}

// NewGate creates a moderation gate over the remote asset collection.
func NewGate(remote Remote) *Gate {
	return &Gate{remote: remote}
}

// ListApproved returns every asset whose moderation flag is set, regardless
// of transcoding readiness.
func (g *Gate) ListApproved(ctx context.Context) ([]*asset.VideoAsset, error) {
	return g.list(ctx, true)
}

// ListPending returns every asset still awaiting moderation.
func (g *Gate) ListPending(ctx context.Context) ([]*asset.VideoAsset, error) {
	return g.list(ctx, false)
}

func (g *Gate) list(ctx context.Context, approved bool) ([]*asset.VideoAsset, error) {
	all, err := g.remote.ListAssets(ctx)
	if err != nil {
		return nil, err
	}

	filtered := make([]*asset.VideoAsset, 0, len(all))
	for _, a := range all {
		if a.Approved == approved {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// Approve flips the moderation flag via a metadata merge. It never touches
// processing state; an asset can be approved before transcoding finishes,
// public visibility still requires both.
func (g *Gate) Approve(ctx context.Context, assetID string) error {
	current, err := g.remote.GetAsset(ctx, assetID)
	if err != nil {
		return err
	}

	merged := reconcile.Merge(current.Metadata, map[string]string{asset.KeyIsApproved: "true"})
	if err := g.remote.AttachMetadata(ctx, assetID, merged); err != nil {
		return err
	}

	logger.Log.Info("Asset approved", zap.String("assetId", assetID))
	return nil
}
