package notehub

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sguter90/sparrowmaestro/pkg/models"
	"github.com/sguter90/sparrowmaestro/pkg/parser"
)

// Provider serves gateways, nodes and readings straight from Notehub.
// Readings come from the latest event of each notefile only.
type Provider struct {
	client   *Client
	registry *parser.Registry
	now      func() time.Time
}

// NewProvider creates a remote data provider
func NewProvider(client *Client, registry *parser.Registry) *Provider {
	return &Provider{
		client:   client,
		registry: registry,
		now:      time.Now,
	}
}

// GetGateways returns every gateway of the project with its nodes
func (p *Provider) GetGateways(ctx context.Context) ([]models.Gateway, error) {
	devices, err := p.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	gateways := make([]models.Gateway, len(devices))
	g, gctx := errgroup.WithContext(ctx)
	for i := range devices {
		i := i
		g.Go(func() error {
			gateway, err := p.gatewayFromDevice(gctx, &devices[i])
			if err != nil {
				return err
			}
			gateways[i] = *gateway
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(gateways, func(i, j int) bool {
		return gateways[i].ID.UID < gateways[j].ID.UID
	})
	return gateways, nil
}

// GetGateway returns one gateway with its nodes
func (p *Provider) GetGateway(ctx context.Context, id models.GatewayID) (*models.Gateway, error) {
	device, err := p.client.GetDevice(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	return p.gatewayFromDevice(ctx, device)
}

// GetNode returns one node as last reported by its gateway
func (p *Provider) GetNode(ctx context.Context, id models.NodeID) (*models.Node, error) {
	gateway, err := p.GetGateway(ctx, id.Gateway())
	if err != nil {
		return nil, err
	}

	for i := range gateway.Nodes {
		if gateway.Nodes[i].ID == id {
			return &gateway.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: node %s", models.ErrNotFound, id)
}

// GetNodes returns the nodes of the given gateways, or of all gateways when none are given
func (p *Provider) GetNodes(ctx context.Context, gatewayIDs []models.GatewayID) ([]models.Node, error) {
	var gateways []models.Gateway
	if len(gatewayIDs) == 0 {
		all, err := p.GetGateways(ctx)
		if err != nil {
			return nil, err
		}
		gateways = all
	} else {
		gateways = make([]models.Gateway, len(gatewayIDs))
		g, gctx := errgroup.WithContext(ctx)
		for i, id := range gatewayIDs {
			i, id := i, id
			g.Go(func() error {
				gateway, err := p.GetGateway(gctx, id)
				if err != nil {
					return err
				}
				gateways[i] = *gateway
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var nodes []models.Node
	seen := make(map[models.NodeID]bool)
	for _, gateway := range gateways {
		for _, node := range gateway.Nodes {
			if seen[node.ID] {
				continue
			}
			seen[node.ID] = true
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// GetNodeData returns the latest readings of a node captured inside the window
func (p *Provider) GetNodeData(ctx context.Context, id models.NodeID, minutesBeforeNow int) ([]models.Reading, error) {
	node, err := p.GetNode(ctx, id)
	if err != nil {
		return nil, err
	}

	query := models.NodeDataQuery{
		Node:             id,
		MinutesBeforeNow: minutesBeforeNow,
		DefaultMinutes:   p.client.HistoricalMinutes(),
	}
	since := query.Since(p.now())

	readings := make([]models.Reading, 0, len(node.CurrentReadings))
	for _, r := range node.CurrentReadings {
		if !r.CapturedAt.Before(since) {
			readings = append(readings, r)
		}
	}
	models.SortReadings(readings)
	return readings, nil
}

// QueryProjectLatestValues returns the latest readings of every gateway and node of the project
func (p *Provider) QueryProjectLatestValues(ctx context.Context, projectID models.ProjectID) (*models.ProjectReadings, error) {
	if projectID.UID != p.client.ProjectUID() {
		return nil, fmt.Errorf("%w: project %s", models.ErrNotFound, projectID)
	}

	gateways, err := p.GetGateways(ctx)
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

// gatewayFromDevice assembles a gateway from the device record, its latest events and node configs
func (p *Provider) gatewayFromDevice(ctx context.Context, device *Device) (*models.Gateway, error) {
	gatewayID, err := models.BuildGatewayID(device.UID)
	if err != nil {
		return nil, err
	}

	var (
		events  []models.RoutedEvent
		configs map[string]NodeConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = p.client.GetLatestEvents(gctx, device.UID)
		return err
	})
	g.Go(func() error {
		var err error
		configs, err = p.client.ListNodeConfigs(gctx, device.UID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	gateway := &models.Gateway{
		ID:              gatewayID,
		Name:            device.SerialNumber,
		LastSeen:        device.LastActivity,
		Location:        device.LocationName(),
		Voltage:         device.Voltage,
		CurrentReadings: models.CurrentReadings{},
	}
	if gateway.Name == "" {
		gateway.Name = device.UID
	}

	nodes := make(map[models.NodeID]*models.Node)
	for i := range events {
		ev := &events[i]
		if ev.File == SessionFile {
			if bars, ok := (parser.Extractor{Field: "bars"}).Extract(ev.Body); ok {
				b := int(bars)
				gateway.SignalBars = &b
			}
			continue
		}

		parsed, err := p.registry.Parse(ev)
		if err != nil {
			log.Printf("⚠ Skipping latest event %s of %s: %v", ev.File, device.UID, err)
			continue
		}

		for _, se := range parsed {
			if se.NodeID == nil {
				mergeLatest(gateway.CurrentReadings, se.Reading())
				continue
			}

			node, ok := nodes[*se.NodeID]
			if !ok {
				node = &models.Node{ID: *se.NodeID, CurrentReadings: models.CurrentReadings{}}
				nodes[*se.NodeID] = node
			}
			mergeLatest(node.CurrentReadings, se.Reading())
		}
	}

	gateway.Nodes = make([]models.Node, 0, len(nodes))
	for _, node := range nodes {
		if cfg, ok := configs[node.ID.NodeID]; ok {
			if cfg.Name != "" {
				name := cfg.Name
				node.Name = &name
			}
			if cfg.Location != "" {
				loc := cfg.Location
				node.Location = &loc
			}
		}
		node.LastSeen = node.CurrentReadings.LastCaptured()
		gateway.Nodes = append(gateway.Nodes, *node)
	}
	sort.Slice(gateway.Nodes, func(i, j int) bool {
		return gateway.Nodes[i].ID.NodeID < gateway.Nodes[j].ID.NodeID
	})

	return gateway, nil
}

func mergeLatest(readings models.CurrentReadings, r models.Reading) {
	if existing, ok := readings[r.SensorType]; ok && existing.CapturedAt.After(r.CapturedAt) {
		return
	}
	readings[r.SensorType] = r
}
