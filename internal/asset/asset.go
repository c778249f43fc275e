// Package asset defines the video asset model shared by the upload,
// polling, moderation and listing paths.
package asset

import (
	"strings"
	"time"
)

// Well-known metadata keys stored on the remote asset record.
const (
	KeyName        = "name"
	KeyDescription = "description"
	KeyCategories  = "categories"
	KeyTags        = "tags"
	KeyViews       = "views"
	KeyLikes       = "likes"
	KeyDislikes    = "dislikes"
	KeyIsApproved  = "isApproved"
	KeyUploadDate  = "uploadDate"
)

// CategorySeparator delimits the serialized category list inside metadata.
const CategorySeparator = ";"

// TransferState tracks the byte-upload phase of a session.
type TransferState int

const (
	TransferNotStarted TransferState = iota
	Transferring
	Transferred
	TransferFailed
)

func (s TransferState) String() string {
	switch s {
	case TransferNotStarted:
		return "not_started"
	case Transferring:
		return "transferring"
	case Transferred:
		return "transferred"
	case TransferFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProcessingState tracks the remote transcoding phase. Ready, Failed and
// TimedOut are terminal; the others may still advance.
type ProcessingState string

const (
	ProcessingQueued   ProcessingState = "queued"
	Processing         ProcessingState = "processing"
	ProcessingReady    ProcessingState = "ready"
	ProcessingFailed   ProcessingState = "failed"
	ProcessingTimedOut ProcessingState = "timed_out"
)

// Terminal reports whether no further state transitions are possible.
func (s ProcessingState) Terminal() bool {
	return s == ProcessingReady || s == ProcessingFailed || s == ProcessingTimedOut
}

// VideoAsset is the normalized, authoritative record for one uploaded video.
// The remote service owns the record; every instance here is a point-in-time
// read, never a cached copy.
type VideoAsset struct {
	ID              string            `json:"id"`
	TransferState   TransferState     `json:"transferState"`
	ProcessingState ProcessingState   `json:"processingState"`
	Approved        bool              `json:"approved"`
	Metadata        map[string]string `json:"metadata"`
	DurationSeconds float64           `json:"durationSeconds"`
	ThumbnailRef    string            `json:"thumbnailRef,omitempty"`
	PlaybackRefs    []string          `json:"playbackRefs,omitempty"`
}

// Visible reports whether the asset may appear in public listings:
// transcoding finished and moderation passed, nothing else.
func (a *VideoAsset) Visible() bool {
	return a.ProcessingState == ProcessingReady && a.Approved
}

// Name returns the display title from metadata.
func (a *VideoAsset) Name() string {
	return a.Metadata[KeyName]
}

// Categories returns the deserialized category list.
func (a *VideoAsset) Categories() []string {
	raw := a.Metadata[KeyCategories]
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, CategorySeparator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// UploadedAt parses the upload timestamp from metadata, zero time if absent
// or malformed.
func (a *VideoAsset) UploadedAt() time.Time {
	t, err := time.Parse(time.RFC3339, a.Metadata[KeyUploadDate])
	if err != nil {
		return time.Time{}
	}
	return t
}

// JoinCategories serializes a category list for storage in metadata.
func JoinCategories(categories []string) string {
	return strings.Join(categories, CategorySeparator)
}

// ApprovedValue converts the metadata isApproved field to a bool. Anything
// other than the literal "true" counts as unapproved.
func ApprovedValue(meta map[string]string) bool {
	return meta[KeyIsApproved] == "true"
}
