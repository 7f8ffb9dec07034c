package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// loadGateways loads gateways, filtered by project and UIDs when given
func (dm *DatabaseManager) loadGateways(ctx context.Context, projectUID string, gatewayUIDs []string) ([]models.Gateway, error) {
	query := `
        SELECT gateway_uid, name, location, last_seen
        FROM gateways
        WHERE ($1 = '' OR project_uid = $1)
          AND ($2::text[] IS NULL OR gateway_uid = ANY($2))
        ORDER BY gateway_uid
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query, projectUID, pq.Array(gatewayUIDs))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query gateways: %w", models.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var gateways []models.Gateway
	for rows.Next() {
		var (
			g        models.Gateway
			name     *string
			lastSeen *time.Time
		)
		if err := rows.Scan(&g.ID.UID, &name, &g.Location, &lastSeen); err != nil {
			return nil, fmt.Errorf("%w: failed to scan gateway: %w", models.ErrUpstreamUnavailable, err)
		}

		g.Name = g.ID.UID
		if name != nil && *name != "" {
			g.Name = *name
		}
		if lastSeen != nil {
			t := lastSeen.UTC()
			g.LastSeen = &t
		}
		g.CurrentReadings = models.CurrentReadings{}
		gateways = append(gateways, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read gateways: %w", models.ErrUpstreamUnavailable, err)
	}
	return gateways, nil
}

// UpdateGatewayName mirrors a gateway name change into the local store
func (dm *DatabaseManager) UpdateGatewayName(ctx context.Context, gatewayUID, name string) error {
	query := `UPDATE gateways SET name = $1, updated_at = CURRENT_TIMESTAMP WHERE gateway_uid = $2`

	if _, err := dm.ExecWithHealthCheck(ctx, query, name, gatewayUID); err != nil {
		return fmt.Errorf("%w: failed to update gateway name: %w", models.ErrStorageFailure, err)
	}
	return nil
}
