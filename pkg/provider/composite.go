package provider

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/sguter90/sparrowmaestro/pkg/metrics"
	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// CompositeDataProvider serves reads from the remote provider, enriched by the
// persisted provider when one is configured. The remote side decides which
// gateways exist; a failing persisted store degrades reads to remote only.
type CompositeDataProvider struct {
	handler   EventHandler
	source    EventSource
	parser    EventParser
	remote    DataProvider
	persisted DataProvider
}

// NewCompositeDataProvider wires the composite provider. persisted may be nil.
func NewCompositeDataProvider(handler EventHandler, source EventSource, parser EventParser, remote, persisted DataProvider) *CompositeDataProvider {
	if handler == nil {
		handler = NoopEventHandler{}
	}
	return &CompositeDataProvider{
		handler:   handler,
		source:    source,
		parser:    parser,
		remote:    remote,
		persisted: persisted,
	}
}

// HasPersisted reports whether a persisted store is configured
func (c *CompositeDataProvider) HasPersisted() bool {
	return c.persisted != nil
}

// HandleEvent hands a parsed event to the configured event handler
func (c *CompositeDataProvider) HandleEvent(ctx context.Context, event models.SparrowEvent) error {
	return c.handler.HandleEvent(ctx, event)
}

// degrade records a persisted failure that the read continues without
func degrade(operation string, err error) {
	metrics.PersistedDegradedCount.WithLabelValues(operation).Inc()
	log.Printf("⚠ Persisted store failed during %s, serving remote data only: %v", operation, err)
}

// both runs the remote and persisted queries concurrently. A persisted error is
// returned separately and never cancels the remote query.
func both(ctx context.Context, remote, persisted func(context.Context) error) (remoteErr, persistedErr error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return remote(gctx)
	})
	g.Go(func() error {
		persistedErr = persisted(ctx)
		return nil
	})
	remoteErr = g.Wait()
	return remoteErr, persistedErr
}

// GetGateways returns every gateway known remotely, merged with persisted summaries
func (c *CompositeDataProvider) GetGateways(ctx context.Context) ([]models.Gateway, error) {
	if c.persisted == nil {
		return c.remote.GetGateways(ctx)
	}

	var remote, persisted []models.Gateway
	remoteErr, persistedErr := both(ctx,
		func(ctx context.Context) (err error) {
			remote, err = c.remote.GetGateways(ctx)
			return err
		},
		func(ctx context.Context) (err error) {
			persisted, err = c.persisted.GetGateways(ctx)
			return err
		},
	)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if persistedErr != nil {
		degrade("GetGateways", persistedErr)
		persisted = nil
	}

	return mergeGateways(remote, persisted), nil
}

// GetGateway returns one gateway, merged with its persisted summary
func (c *CompositeDataProvider) GetGateway(ctx context.Context, id models.GatewayID) (*models.Gateway, error) {
	if c.persisted == nil {
		return c.remote.GetGateway(ctx, id)
	}

	var remote, persisted *models.Gateway
	remoteErr, persistedErr := both(ctx,
		func(ctx context.Context) (err error) {
			remote, err = c.remote.GetGateway(ctx, id)
			return err
		},
		func(ctx context.Context) (err error) {
			persisted, err = c.persisted.GetGateway(ctx, id)
			return err
		},
	)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if persistedErr != nil {
		if !errors.Is(persistedErr, models.ErrNotFound) {
			degrade("GetGateway", persistedErr)
		}
		merged := mergeGateways([]models.Gateway{*remote}, nil)[0]
		return &merged, nil
	}

	merged := mergeGateway(*remote, *persisted)
	return &merged, nil
}

// GetNode returns one node, merged with its persisted state. A node only the
// persisted store still knows is returned when its gateway exists remotely.
func (c *CompositeDataProvider) GetNode(ctx context.Context, id models.NodeID) (*models.Node, error) {
	if c.persisted == nil {
		return c.remote.GetNode(ctx, id)
	}

	var remote, persisted *models.Node
	remoteErr, persistedErr := both(ctx,
		func(ctx context.Context) (err error) {
			remote, err = c.remote.GetNode(ctx, id)
			if errors.Is(err, models.ErrNotFound) {
				if _, gwErr := c.remote.GetGateway(ctx, id.Gateway()); gwErr != nil {
					return gwErr
				}
				remote = nil
				return nil
			}
			return err
		},
		func(ctx context.Context) (err error) {
			persisted, err = c.persisted.GetNode(ctx, id)
			return err
		},
	)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if persistedErr != nil {
		if !errors.Is(persistedErr, models.ErrNotFound) {
			degrade("GetNode", persistedErr)
		}
		persisted = nil
	}

	switch {
	case remote != nil && persisted != nil:
		merged := mergeNode(*remote, *persisted)
		return &merged, nil
	case remote != nil:
		return remote, nil
	case persisted != nil:
		return persisted, nil
	}
	return nil, fmt.Errorf("%w: node %s", models.ErrNotFound, id)
}

// GetNodes returns the nodes of the given gateways, or of every remote gateway when none are given
func (c *CompositeDataProvider) GetNodes(ctx context.Context, gatewayIDs []models.GatewayID) ([]models.Node, error) {
	if c.persisted == nil {
		return c.remote.GetNodes(ctx, gatewayIDs)
	}

	var (
		remote, persisted []models.Node
		knownIDs          = gatewayIDs
	)
	remoteErr, persistedErr := both(ctx,
		func(ctx context.Context) error {
			if len(gatewayIDs) > 0 {
				nodes, err := c.remote.GetNodes(ctx, gatewayIDs)
				remote = nodes
				return err
			}
			gateways, err := c.remote.GetGateways(ctx)
			for _, g := range gateways {
				remote = append(remote, g.Nodes...)
			}
			knownIDs = gatewayIDsOf(gateways)
			return err
		},
		func(ctx context.Context) (err error) {
			persisted, err = c.persisted.GetNodes(ctx, gatewayIDs)
			return err
		},
	)
	if remoteErr != nil {
		return nil, remoteErr
	}
	if persistedErr != nil {
		degrade("GetNodes", persistedErr)
		persisted = nil
	}

	known := make(map[models.GatewayID]bool, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = true
	}
	filtered := persisted[:0:0]
	for _, n := range persisted {
		if known[n.GatewayID()] {
			filtered = append(filtered, n)
		}
	}

	return mergeNodes(remote, filtered), nil
}

func gatewayIDsOf(gateways []models.Gateway) []models.GatewayID {
	ids := make([]models.GatewayID, 0, len(gateways))
	for _, g := range gateways {
		ids = append(ids, g.ID)
	}
	return ids
}

// GetNodeData returns the persisted history of a node, or the remote latest
// snapshot when no persisted store is configured or it fails
func (c *CompositeDataProvider) GetNodeData(ctx context.Context, id models.NodeID, minutesBeforeNow int) ([]models.Reading, error) {
	query := models.NodeDataQuery{Node: id, MinutesBeforeNow: minutesBeforeNow}
	if err := query.Validate(); err != nil {
		return nil, err
	}

	if c.persisted != nil {
		readings, err := c.persisted.GetNodeData(ctx, id, minutesBeforeNow)
		if err == nil {
			return readings, nil
		}
		if !errors.Is(err, models.ErrNotFound) {
			degrade("GetNodeData", err)
		}
	}

	return c.remote.GetNodeData(ctx, id, minutesBeforeNow)
}

// QueryProjectLatestValues returns the latest readings across the project.
// Per entity and sensor type the later reading wins, the persisted one on a tie.
func (c *CompositeDataProvider) QueryProjectLatestValues(ctx context.Context, projectID models.ProjectID) (*models.ProjectReadings, error) {
	if c.persisted == nil {
		return c.remote.QueryProjectLatestValues(ctx, projectID)
	}

	var remote, persisted *models.ProjectReadings
	remoteErr, persistedErr := both(ctx,
		func(ctx context.Context) (err error) {
			remote, err = c.remote.QueryProjectLatestValues(ctx, projectID)
			return err
		},
		func(ctx context.Context) (err error) {
			persisted, err = c.persisted.QueryProjectLatestValues(ctx, projectID)
			return err
		},
	)
	if remoteErr != nil {
		return nil, remoteErr
	}

	out := *remote
	if persistedErr != nil {
		degrade("QueryProjectLatestValues", persistedErr)
		out.Project.Gateways = mergeGateways(remote.Project.Gateways, nil)
		return &out, nil
	}

	out.Project.Gateways = mergeGateways(remote.Project.Gateways, persisted.Project.Gateways)
	if out.Project.Description == nil {
		out.Project.Description = persisted.Project.Description
	}
	if persisted.When.After(out.When) {
		out.When = persisted.When
	}
	return &out, nil
}
