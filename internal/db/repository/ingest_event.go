package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vidstore/stream-ingestion-go/internal/db"
	"github.com/vidstore/stream-ingestion-go/internal/db/models"
)

// IngestEventRepository defines operations for the append-only ingest event
// trail. Events are never updated or deleted.
type IngestEventRepository interface {
	// Append inserts a new ingest event.
	Append(ctx context.Context, event *models.IngestEvent) error

	// ListByAsset retrieves all events for one asset, oldest first.
	ListByAsset(ctx context.Context, assetID string) ([]*models.IngestEvent, error)

	// ListRecent retrieves the most recent events across all assets.
	ListRecent(ctx context.Context, limit int) ([]*models.IngestEvent, error)
}

type ingestEventRepository struct {
	pool *pgxpool.Pool
}

// NewIngestEventRepository creates a new IngestEventRepository.
func NewIngestEventRepository(pool *pgxpool.Pool) IngestEventRepository {
	return &ingestEventRepository{pool: pool}
}

func (r *ingestEventRepository) Append(ctx context.Context, event *models.IngestEvent) error {
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}

	query := `
		INSERT INTO ingest_events (asset_id, event_type, detail, occurred_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err = r.pool.QueryRow(ctx, query,
		event.AssetID,
		event.EventType,
		detail,
		event.OccurredAt,
	).Scan(&event.ID)

	if err != nil {
		return db.WrapError(err, "append ingest event")
	}
	return nil
}

func (r *ingestEventRepository) ListByAsset(ctx context.Context, assetID string) ([]*models.IngestEvent, error) {
	query := `
		SELECT id, asset_id, event_type, detail, occurred_at
		FROM ingest_events
		WHERE asset_id = $1
		ORDER BY occurred_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, query, assetID)
	if err != nil {
		return nil, db.WrapError(err, "list events by asset")
	}
	defer rows.Close()

	return scanIngestEvents(rows)
}

func (r *ingestEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.IngestEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, asset_id, event_type, detail, occurred_at
		FROM ingest_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, db.WrapError(err, "list recent events")
	}
	defer rows.Close()

	return scanIngestEvents(rows)
}

func scanIngestEvents(rows pgx.Rows) ([]*models.IngestEvent, error) {
	var events []*models.IngestEvent

	for rows.Next() {
		var (
			event  models.IngestEvent
			detail []byte
		)
		if err := rows.Scan(&event.ID, &event.AssetID, &event.EventType, &detail, &event.OccurredAt); err != nil {
			return nil, db.WrapError(err, "scan ingest event")
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal event detail: %w", err)
			}
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate ingest events")
	}
	return events, nil
}
