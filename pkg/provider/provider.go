// Package provider holds the data access contracts and the composite provider that
// reconciles live Notehub state with the persisted history.
package provider

import (
	"context"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// DataProvider reads gateways, nodes and readings from one source
type DataProvider interface {
	GetGateway(ctx context.Context, id models.GatewayID) (*models.Gateway, error)
	GetGateways(ctx context.Context) ([]models.Gateway, error)
	GetNode(ctx context.Context, id models.NodeID) (*models.Node, error)
	GetNodes(ctx context.Context, gatewayIDs []models.GatewayID) ([]models.Node, error)
	GetNodeData(ctx context.Context, id models.NodeID, minutesBeforeNow int) ([]models.Reading, error)
	QueryProjectLatestValues(ctx context.Context, projectID models.ProjectID) (*models.ProjectReadings, error)
}

// EventHandler consumes parsed sensor events
type EventHandler interface {
	HandleEvent(ctx context.Context, event models.SparrowEvent) error
}

// EventSource lists the recent routed events of the project
type EventSource interface {
	GetRecentEvents(ctx context.Context) ([]models.RoutedEvent, error)
}

// EventParser turns a routed event into sensor events
type EventParser interface {
	Parse(ev *models.RoutedEvent) ([]models.SparrowEvent, error)
}

// AttributeStore changes the user-editable attributes of gateways and nodes
type AttributeStore interface {
	UpdateGatewayName(ctx context.Context, gatewayUID, name string) error
	UpdateNodeName(ctx context.Context, gatewayUID, nodeID, name string) error
	UpdateNodeLocation(ctx context.Context, gatewayUID, nodeID, location string) error
	UpdateDevicePin(ctx context.Context, gatewayUID, nodeID, pin string) (*models.DeviceRef, error)
}

// NoopEventHandler accepts and discards events when no store is configured
type NoopEventHandler struct{}

// HandleEvent discards the event
func (NoopEventHandler) HandleEvent(context.Context, models.SparrowEvent) error {
	return nil
}
