package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// latestByHost holds latest readings keyed by gateway UID, then node ID ("" for the gateway itself)
type latestByHost map[string]map[string]models.CurrentReadings

func (l latestByHost) get(gatewayUID, nodeID string) models.CurrentReadings {
	if readings, ok := l[gatewayUID][nodeID]; ok {
		return readings
	}
	return models.CurrentReadings{}
}

// loadLatestReadings loads the latest reading per host and sensor type
func (dm *DatabaseManager) loadLatestReadings(ctx context.Context, gatewayUIDs []string) (latestByHost, error) {
	query := `
        SELECT gateway_uid, node_id, sensor_type, value, captured_at
        FROM latest_readings
        WHERE ($1::text[] IS NULL OR gateway_uid = ANY($1))
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query, pq.Array(gatewayUIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query latest readings: %w", models.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	latest := latestByHost{}
	for rows.Next() {
		var (
			gatewayUID, nodeID string
			r                  models.Reading
		)
		if err := rows.Scan(&gatewayUID, &nodeID, &r.SensorType, &r.Value, &r.CapturedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan latest reading: %w", models.ErrUpstreamUnavailable, err)
		}
		r.CapturedAt = r.CapturedAt.UTC()

		if latest[gatewayUID] == nil {
			latest[gatewayUID] = map[string]models.CurrentReadings{}
		}
		if latest[gatewayUID][nodeID] == nil {
			latest[gatewayUID][nodeID] = models.CurrentReadings{}
		}
		latest[gatewayUID][nodeID][r.SensorType] = r
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read latest readings: %w", models.ErrUpstreamUnavailable, err)
	}
	return latest, nil
}

// GetNodeReadings retrieves the readings of a node captured since the given time, oldest first
func (dm *DatabaseManager) GetNodeReadings(ctx context.Context, id models.NodeID, since time.Time) ([]models.Reading, error) {
	query := `
        SELECT sensor_type, value, captured_at
        FROM readings
        WHERE gateway_uid = $1 AND node_id = $2 AND captured_at >= $3
        ORDER BY captured_at ASC, sensor_type ASC
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query, id.GatewayUID, id.NodeID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query readings: %w", models.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	readings := []models.Reading{}
	for rows.Next() {
		var r models.Reading
		if err := rows.Scan(&r.SensorType, &r.Value, &r.CapturedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan reading: %w", models.ErrUpstreamUnavailable, err)
		}
		r.CapturedAt = r.CapturedAt.UTC()
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read readings: %w", models.ErrUpstreamUnavailable, err)
	}
	return readings, nil
}

// CountReadings returns the number of stored readings of a sensor type.
// nodeID is "" for readings of the gateway itself.
func (dm *DatabaseManager) CountReadings(ctx context.Context, gatewayUID, nodeID, sensorType string) (int, error) {
	var count int
	err := dm.QueryRowWithHealthCheck(ctx,
		`SELECT COUNT(*) FROM readings WHERE gateway_uid = $1 AND node_id = $2 AND sensor_type = $3`,
		gatewayUID, nodeID, sensorType,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count readings: %w", models.ErrUpstreamUnavailable, err)
	}
	return count, nil
}
