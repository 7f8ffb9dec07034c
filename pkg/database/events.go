package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// EventHandler stores parsed sensor events in PostgreSQL.
// Storing the same reading twice leaves a single row.
type EventHandler struct {
	dm *DatabaseManager
}

// NewEventHandler creates an event handler on top of the database manager
func NewEventHandler(dm *DatabaseManager) *EventHandler {
	return &EventHandler{dm: dm}
}

// HandleEvent upserts the gateway and node of the event and appends its reading
func (h *EventHandler) HandleEvent(ctx context.Context, event models.SparrowEvent) error {
	tx, err := h.dm.BeginTxWithHealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to start transaction: %w", models.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	if err := upsertGateway(ctx, tx, event); err != nil {
		return fmt.Errorf("%w: failed to upsert gateway %s: %w", models.ErrStorageFailure, event.GatewayID, err)
	}

	if event.NodeID != nil {
		if err := upsertNode(ctx, tx, event); err != nil {
			return fmt.Errorf("%w: failed to upsert node %s: %w", models.ErrStorageFailure, event.NodeID, err)
		}
	}

	if err := insertReading(ctx, tx, event); err != nil {
		return fmt.Errorf("%w: failed to store reading: %w", models.ErrStorageFailure, err)
	}

	if err := upsertLatestReading(ctx, tx, event); err != nil {
		return fmt.Errorf("%w: failed to update latest reading: %w", models.ErrStorageFailure, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %w", models.ErrStorageFailure, err)
	}

	return nil
}

func upsertGateway(ctx context.Context, tx *sql.Tx, event models.SparrowEvent) error {
	query := `
        INSERT INTO gateways (id, gateway_uid, project_uid, last_seen)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (gateway_uid) DO UPDATE
        SET project_uid = EXCLUDED.project_uid,
            last_seen = GREATEST(gateways.last_seen, EXCLUDED.last_seen),
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := tx.ExecContext(ctx, query,
		event.GatewayID.Key(),
		event.GatewayID.UID,
		event.ProjectID.UID,
		event.CapturedAt,
	)
	return err
}

func upsertNode(ctx context.Context, tx *sql.Tx, event models.SparrowEvent) error {
	query := `
        INSERT INTO nodes (id, gateway_uid, node_id, last_seen)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (gateway_uid, node_id) DO UPDATE
        SET last_seen = GREATEST(nodes.last_seen, EXCLUDED.last_seen),
            updated_at = CURRENT_TIMESTAMP
    `

	_, err := tx.ExecContext(ctx, query,
		event.NodeID.Key(),
		event.NodeID.GatewayUID,
		event.NodeID.NodeID,
		event.CapturedAt,
	)
	return err
}

func insertReading(ctx context.Context, tx *sql.Tx, event models.SparrowEvent) error {
	query := `
        INSERT INTO readings (id, gateway_uid, node_id, sensor_type, value, captured_at, raw)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (gateway_uid, node_id, sensor_type, captured_at) DO NOTHING
    `

	var raw interface{}
	if len(event.Raw) > 0 {
		raw = string(event.Raw)
	}

	_, err := tx.ExecContext(ctx, query,
		uuid.New(),
		event.GatewayID.UID,
		event.LocalNodeID(),
		event.SensorType,
		event.Value,
		event.CapturedAt,
		raw,
	)
	return err
}

func upsertLatestReading(ctx context.Context, tx *sql.Tx, event models.SparrowEvent) error {
	query := `
        INSERT INTO latest_readings (gateway_uid, node_id, sensor_type, value, captured_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (gateway_uid, node_id, sensor_type) DO UPDATE
        SET value = EXCLUDED.value, captured_at = EXCLUDED.captured_at
        WHERE latest_readings.captured_at < EXCLUDED.captured_at
    `

	_, err := tx.ExecContext(ctx, query,
		event.GatewayID.UID,
		event.LocalNodeID(),
		event.SensorType,
		event.Value,
		event.CapturedAt,
	)
	return err
}
