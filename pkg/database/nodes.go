package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// loadNodes loads nodes of the given gateways (all when empty), optionally a single node
func (dm *DatabaseManager) loadNodes(ctx context.Context, gatewayUIDs []string, nodeID string) ([]models.Node, error) {
	query := `
        SELECT gateway_uid, node_id, name, location, last_seen
        FROM nodes
        WHERE ($1::text[] IS NULL OR gateway_uid = ANY($1))
          AND ($2 = '' OR node_id = $2)
        ORDER BY gateway_uid, node_id
    `

	rows, err := dm.QueryWithHealthCheck(ctx, query, pq.Array(gatewayUIDs), nodeID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query nodes: %w", models.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		var (
			n        models.Node
			lastSeen *time.Time
		)
		if err := rows.Scan(&n.ID.GatewayUID, &n.ID.NodeID, &n.Name, &n.Location, &lastSeen); err != nil {
			return nil, fmt.Errorf("%w: failed to scan node: %w", models.ErrUpstreamUnavailable, err)
		}

		if lastSeen != nil {
			t := lastSeen.UTC()
			n.LastSeen = &t
		}
		n.CurrentReadings = models.CurrentReadings{}
		nodes = append(nodes, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to read nodes: %w", models.ErrUpstreamUnavailable, err)
	}
	return nodes, nil
}

// UpdateNodeAttributes mirrors node name and location changes into the local store.
// nil values are left unchanged.
func (dm *DatabaseManager) UpdateNodeAttributes(ctx context.Context, id models.NodeID, name, location *string) error {
	query := `
        UPDATE nodes
        SET name = COALESCE($1, name), location = COALESCE($2, location), updated_at = CURRENT_TIMESTAMP
        WHERE gateway_uid = $3 AND node_id = $4
    `

	if _, err := dm.ExecWithHealthCheck(ctx, query, name, location, id.GatewayUID, id.NodeID); err != nil {
		return fmt.Errorf("%w: failed to update node %s: %w", models.ErrStorageFailure, id, err)
	}
	return nil
}
