package models

import "time"

// IngestEvent is one append-only audit record of the ingestion pipeline:
// session lifecycle transitions, moderation actions and deletions. The
// remote asset record stays authoritative; this trail only answers "what
// happened when" for the admin surface.
type IngestEvent struct {
	ID         int64             `db:"id" json:"id"`
	AssetID    string            `db:"asset_id" json:"asset_id"`
	EventType  string            `db:"event_type" json:"event_type"`
	Detail     map[string]string `db:"detail" json:"detail,omitempty"`
	OccurredAt time.Time         `db:"occurred_at" json:"occurred_at"`
}

// NewIngestEvent creates an event stamped now.
func NewIngestEvent(assetID, eventType string, detail map[string]string) *IngestEvent {
	return &IngestEvent{
		AssetID:    assetID,
		EventType:  eventType,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
}
