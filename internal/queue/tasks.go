package queue

import (
	"encoding/json"
	"fmt"
)

// Task types
const (
	TypeStatusRefresh = "ingest:status_refresh"
)

// StatusRefreshPayload is the payload for deferred status re-checks of
// assets whose polling run ended without a readiness verdict.
type StatusRefreshPayload struct {
	AssetID string `json:"asset_id"`
	Reason  string `json:"reason"`
	Attempt int    `json:"attempt"`
}

// NewStatusRefreshTask creates a new status refresh payload.
func NewStatusRefreshTask(assetID, reason string, attempt int) (*StatusRefreshPayload, error) {
	if assetID == "" {
		return nil, fmt.Errorf("asset ID is required")
	}
	if attempt < 1 {
		attempt = 1
	}

	return &StatusRefreshPayload{
		AssetID: assetID,
		Reason:  reason,
		Attempt: attempt,
	}, nil
}

// Marshal serializes the payload to JSON.
func (p *StatusRefreshPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalStatusRefreshPayload deserializes JSON to payload.
func UnmarshalStatusRefreshPayload(data []byte) (*StatusRefreshPayload, error) {
	var payload StatusRefreshPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
