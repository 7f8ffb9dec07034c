package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// Provider serves gateways, nodes and reading history from PostgreSQL
type Provider struct {
	dm             *DatabaseManager
	now            func() time.Time
	defaultMinutes int
}

// ProviderOption configures a Provider
type ProviderOption func(*Provider)

// WithDefaultWindow sets the history window used when a query gives none
func WithDefaultWindow(minutes int) ProviderOption {
	return func(p *Provider) {
		if minutes > 0 {
			p.defaultMinutes = minutes
		}
	}
}

// NewProvider creates a persisted data provider
func NewProvider(dm *DatabaseManager, opts ...ProviderOption) *Provider {
	p := &Provider{dm: dm, now: time.Now, defaultMinutes: models.DefaultMinutesBeforeNow}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// assemble attaches nodes and latest readings to gateways
func (p *Provider) assemble(ctx context.Context, gateways []models.Gateway) ([]models.Gateway, error) {
	if len(gateways) == 0 {
		return []models.Gateway{}, nil
	}

	uids := make([]string, 0, len(gateways))
	for _, g := range gateways {
		uids = append(uids, g.ID.UID)
	}

	nodes, err := p.dm.loadNodes(ctx, uids, "")
	if err != nil {
		return nil, err
	}

	latest, err := p.dm.loadLatestReadings(ctx, uids)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(gateways))
	for i := range gateways {
		index[gateways[i].ID.UID] = i
		gateways[i].CurrentReadings = latest.get(gateways[i].ID.UID, "")
	}

	for _, n := range nodes {
		n.CurrentReadings = latest.get(n.ID.GatewayUID, n.ID.NodeID)
		i := index[n.ID.GatewayUID]
		gateways[i].Nodes = append(gateways[i].Nodes, n)
	}

	return gateways, nil
}

// GetGateways returns every stored gateway
func (p *Provider) GetGateways(ctx context.Context) ([]models.Gateway, error) {
	gateways, err := p.dm.loadGateways(ctx, "", nil)
	if err != nil {
		return nil, err
	}
	return p.assemble(ctx, gateways)
}

// GetGateway returns one stored gateway
func (p *Provider) GetGateway(ctx context.Context, id models.GatewayID) (*models.Gateway, error) {
	gateways, err := p.dm.loadGateways(ctx, "", []string{id.UID})
	if err != nil {
		return nil, err
	}
	if len(gateways) == 0 {
		return nil, fmt.Errorf("%w: gateway %s", models.ErrNotFound, id)
	}

	gateways, err = p.assemble(ctx, gateways)
	if err != nil {
		return nil, err
	}
	return &gateways[0], nil
}

// GetNode returns one stored node with its latest readings
func (p *Provider) GetNode(ctx context.Context, id models.NodeID) (*models.Node, error) {
	nodes, err := p.dm.loadNodes(ctx, []string{id.GatewayUID}, id.NodeID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: node %s", models.ErrNotFound, id)
	}

	latest, err := p.dm.loadLatestReadings(ctx, []string{id.GatewayUID})
	if err != nil {
		return nil, err
	}

	node := nodes[0]
	node.CurrentReadings = latest.get(id.GatewayUID, id.NodeID)
	return &node, nil
}

// GetNodes returns the stored nodes of the given gateways, or of all gateways when none are given
func (p *Provider) GetNodes(ctx context.Context, gatewayIDs []models.GatewayID) ([]models.Node, error) {
	var uids []string
	for _, id := range gatewayIDs {
		uids = append(uids, id.UID)
	}

	nodes, err := p.dm.loadNodes(ctx, uids, "")
	if err != nil {
		return nil, err
	}

	latest, err := p.dm.loadLatestReadings(ctx, uids)
	if err != nil {
		return nil, err
	}

	for i := range nodes {
		nodes[i].CurrentReadings = latest.get(nodes[i].ID.GatewayUID, nodes[i].ID.NodeID)
	}
	return nodes, nil
}

// GetNodeData returns the stored readings of a node inside the window
func (p *Provider) GetNodeData(ctx context.Context, id models.NodeID, minutesBeforeNow int) ([]models.Reading, error) {
	query := models.NodeDataQuery{Node: id, MinutesBeforeNow: minutesBeforeNow, DefaultMinutes: p.defaultMinutes}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	readings, err := p.dm.GetNodeReadings(ctx, id, query.Since(p.now()))
	if err != nil {
		return nil, err
	}

	if len(readings) == 0 {
		if _, err := p.GetNode(ctx, id); err != nil {
			return nil, err
		}
	}
	return readings, nil
}

// QueryProjectLatestValues returns the latest stored readings of every gateway of the project
func (p *Provider) QueryProjectLatestValues(ctx context.Context, projectID models.ProjectID) (*models.ProjectReadings, error) {
	gateways, err := p.dm.loadGateways(ctx, projectID.UID, nil)
	if err != nil {
		return nil, err
	}

	gateways, err = p.assemble(ctx, gateways)
	if err != nil {
		return nil, err
	}

	return &models.ProjectReadings{
		When: p.now().UTC(),
		Project: models.Project{
			ID:       projectID,
			Name:     projectID.UID,
			Gateways: gateways,
		},
	}, nil
}
