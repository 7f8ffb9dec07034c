// Package service is the application entry point shared by the HTTP handlers,
// the MQTT subscriber and the CLI.
package service

import (
	"context"
	"fmt"
	"log"

	"github.com/sguter90/sparrowmaestro/pkg/metrics"
	"github.com/sguter90/sparrowmaestro/pkg/models"
	"github.com/sguter90/sparrowmaestro/pkg/provider"
)

// AttributeMirror keeps locally stored attributes in step with remote mutations
type AttributeMirror interface {
	UpdateGatewayName(ctx context.Context, gatewayUID, name string) error
	UpdateNodeAttributes(ctx context.Context, id models.NodeID, name, location *string) error
}

// Publisher is notified of every stored sensor event
type Publisher interface {
	Publish(event models.SparrowEvent)
}

// AppService combines the data provider, attribute store and event pipeline
type AppService struct {
	projectID models.ProjectID
	data      provider.DataProvider
	store     provider.AttributeStore
	parser    provider.EventParser
	handler   provider.EventHandler
	mirror    AttributeMirror
	publisher Publisher
}

// Option configures an AppService
type Option func(*AppService)

// WithAttributeMirror mirrors successful attribute mutations into a local store
func WithAttributeMirror(mirror AttributeMirror) Option {
	return func(s *AppService) {
		s.mirror = mirror
	}
}

// WithPublisher publishes stored events to live subscribers
func WithPublisher(publisher Publisher) Option {
	return func(s *AppService) {
		s.publisher = publisher
	}
}

// NewAppService creates the application service for one project
func NewAppService(projectUID string, data provider.DataProvider, store provider.AttributeStore, parser provider.EventParser, handler provider.EventHandler, opts ...Option) (*AppService, error) {
	projectID, err := models.BuildProjectID(projectUID)
	if err != nil {
		return nil, fmt.Errorf("invalid project: %w", err)
	}

	if handler == nil {
		handler = provider.NoopEventHandler{}
	}

	s := &AppService{
		projectID: projectID,
		data:      data,
		store:     store,
		parser:    parser,
		handler:   handler,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ProjectID returns the project the service works on
func (s *AppService) ProjectID() models.ProjectID {
	return s.projectID
}

// GetGateways returns every gateway of the project
func (s *AppService) GetGateways(ctx context.Context) ([]models.Gateway, error) {
	return s.data.GetGateways(ctx)
}

// GetGateway returns one gateway
func (s *AppService) GetGateway(ctx context.Context, gatewayUID string) (*models.Gateway, error) {
	id, err := models.BuildGatewayID(gatewayUID)
	if err != nil {
		return nil, err
	}
	return s.data.GetGateway(ctx, id)
}

// GetNodes returns the nodes of the given gateways, or of every gateway when none are given
func (s *AppService) GetNodes(ctx context.Context, gatewayUIDs []string) ([]models.Node, error) {
	ids := make([]models.GatewayID, 0, len(gatewayUIDs))
	for _, uid := range gatewayUIDs {
		id, err := models.BuildGatewayID(uid)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return s.data.GetNodes(ctx, ids)
}

// GetNode returns one node
func (s *AppService) GetNode(ctx context.Context, gatewayUID, nodeID string) (*models.Node, error) {
	id, err := models.BuildNodeID(gatewayUID, nodeID)
	if err != nil {
		return nil, err
	}
	return s.data.GetNode(ctx, id)
}

// GetNodeData returns the readings of a node inside the window
func (s *AppService) GetNodeData(ctx context.Context, gatewayUID, nodeID string, minutesBeforeNow int) ([]models.Reading, error) {
	id, err := models.BuildNodeID(gatewayUID, nodeID)
	if err != nil {
		return nil, err
	}

	query := models.NodeDataQuery{Node: id, MinutesBeforeNow: minutesBeforeNow}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	return s.data.GetNodeData(ctx, id, minutesBeforeNow)
}

// GetLatestProjectReadings returns the latest readings across the project
func (s *AppService) GetLatestProjectReadings(ctx context.Context) (*models.ProjectReadings, error) {
	return s.data.QueryProjectLatestValues(ctx, s.projectID)
}

// SetGatewayName renames a gateway
func (s *AppService) SetGatewayName(ctx context.Context, gatewayUID, name string) error {
	if err := s.store.UpdateGatewayName(ctx, gatewayUID, name); err != nil {
		return fmt.Errorf("could not setGatewayName: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.UpdateGatewayName(ctx, gatewayUID, name); err != nil {
			log.Printf("⚠ Failed to mirror name of gateway %s: %v", gatewayUID, err)
		}
	}
	return nil
}

// SetNodeName renames a node
func (s *AppService) SetNodeName(ctx context.Context, gatewayUID, nodeID, name string) error {
	if err := s.store.UpdateNodeName(ctx, gatewayUID, nodeID, name); err != nil {
		return fmt.Errorf("could not setNodeName: %w", err)
	}

	s.mirrorNode(ctx, gatewayUID, nodeID, &name, nil)
	return nil
}

// SetNodeLocation relocates a node
func (s *AppService) SetNodeLocation(ctx context.Context, gatewayUID, nodeID, location string) error {
	if err := s.store.UpdateNodeLocation(ctx, gatewayUID, nodeID, location); err != nil {
		return fmt.Errorf("could not setNodeLocation: %w", err)
	}

	s.mirrorNode(ctx, gatewayUID, nodeID, nil, &location)
	return nil
}

func (s *AppService) mirrorNode(ctx context.Context, gatewayUID, nodeID string, name, location *string) {
	if s.mirror == nil {
		return
	}
	id, err := models.BuildNodeID(gatewayUID, nodeID)
	if err != nil {
		return
	}
	if err := s.mirror.UpdateNodeAttributes(ctx, id, name, location); err != nil {
		log.Printf("⚠ Failed to mirror attributes of node %s: %v", id, err)
	}
}

// ResolvePin finds the gateway or node a pin belongs to; nil when none matches
func (s *AppService) ResolvePin(ctx context.Context, gatewayUID, nodeID, pin string) (*models.DeviceRef, error) {
	ref, err := s.store.UpdateDevicePin(ctx, gatewayUID, nodeID, pin)
	if err != nil {
		return nil, fmt.Errorf("could not updateDevicePin: %w", err)
	}
	return ref, nil
}

// IngestEvent parses a routed event and stores every reading it carries.
// It returns the number of readings handed to the event handler.
func (s *AppService) IngestEvent(ctx context.Context, ev *models.RoutedEvent) (int, error) {
	events, err := s.parser.Parse(ev)
	if err != nil {
		return 0, err
	}

	for i, event := range events {
		if err := s.HandleEvent(ctx, event); err != nil {
			return i, err
		}
	}
	return len(events), nil
}

// HandleEvent stores one parsed event and publishes it
func (s *AppService) HandleEvent(ctx context.Context, event models.SparrowEvent) error {
	if err := s.handler.HandleEvent(ctx, event); err != nil {
		return err
	}

	metrics.StoredReadingCount.WithLabelValues(event.SensorType).Inc()
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	return nil
}
