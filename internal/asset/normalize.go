package asset

// RawRemoteAsset is the wire shape returned by the remote stream service.
// It is only decoded at the client boundary and converted once via
// Normalize; nothing outside the ingestion edge handles this type.
type RawRemoteAsset struct {
	AssetID  string            `json:"assetId"`
	Status   string            `json:"status"`
	Ready    bool              `json:"readyToStream"`
	Duration float64           `json:"duration"`
	Thumb    string            `json:"thumbnail"`
	Playback RawPlayback       `json:"playback"`
	Meta     map[string]string `json:"meta"`
}

// RawPlayback carries the streaming-protocol URLs of a processed asset.
type RawPlayback struct {
	HLS  string `json:"hls,omitempty"`
	DASH string `json:"dash,omitempty"`
}

// Refs returns the non-empty playback URLs.
func (p RawPlayback) Refs() []string {
	var refs []string
	if p.HLS != "" {
		refs = append(refs, p.HLS)
	}
	if p.DASH != "" {
		refs = append(refs, p.DASH)
	}
	return refs
}

// Normalize converts the remote wire record into the local model. Duration,
// thumbnail and playback refs are carried over only when the remote side
// reports the asset ready, matching the guarantee that those fields are
// populated iff processing finished.
func (r *RawRemoteAsset) Normalize() *VideoAsset {
	meta := r.Meta
	if meta == nil {
		meta = map[string]string{}
	}

	a := &VideoAsset{
		ID:              r.AssetID,
		TransferState:   Transferred,
		ProcessingState: normalizeState(r.Status, r.Ready),
		Approved:        ApprovedValue(meta),
		Metadata:        meta,
	}

	if a.ProcessingState == ProcessingReady {
		a.DurationSeconds = r.Duration
		a.ThumbnailRef = r.Thumb
		a.PlaybackRefs = r.Playback.Refs()
	}

	return a
}

func normalizeState(status string, ready bool) ProcessingState {
	if ready {
		return ProcessingReady
	}
	switch status {
	case "queued", "pendingupload":
		return ProcessingQueued
	case "ready":
		return ProcessingReady
	case "error", "errored", "failed":
		return ProcessingFailed
	default:
		return Processing
	}
}
