package notehub

import (
	"context"
	"fmt"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// AttributeStore changes gateway and node attributes held by Notehub.
// Every mutation is a single remote round-trip; nothing is retried.
type AttributeStore struct {
	client *Client
}

// NewAttributeStore creates an attribute store on top of a Notehub client
func NewAttributeStore(client *Client) *AttributeStore {
	return &AttributeStore{client: client}
}

// UpdateGatewayName renames a gateway through its serial number variable
func (s *AttributeStore) UpdateGatewayName(ctx context.Context, gatewayUID, name string) error {
	if _, err := models.BuildGatewayID(gatewayUID); err != nil {
		return err
	}
	return s.client.SetEnvironmentVariables(ctx, gatewayUID, EnvironmentVariables{EnvSerialName: name})
}

// UpdateNodeName renames a node, keeping its location
func (s *AttributeStore) UpdateNodeName(ctx context.Context, gatewayUID, nodeID, name string) error {
	return s.updateNodeConfig(ctx, gatewayUID, nodeID, func(cfg *NodeConfig) {
		cfg.Name = name
	})
}

// UpdateNodeLocation relocates a node, keeping its name
func (s *AttributeStore) UpdateNodeLocation(ctx context.Context, gatewayUID, nodeID, location string) error {
	return s.updateNodeConfig(ctx, gatewayUID, nodeID, func(cfg *NodeConfig) {
		cfg.Location = location
	})
}

func (s *AttributeStore) updateNodeConfig(ctx context.Context, gatewayUID, nodeID string, update func(*NodeConfig)) error {
	if _, err := models.BuildNodeID(gatewayUID, nodeID); err != nil {
		return err
	}

	cfg, err := s.client.GetNodeConfig(ctx, gatewayUID, nodeID)
	if err != nil {
		if !IsNotFound(err) {
			return err
		}
		cfg = &NodeConfig{}
	}

	update(cfg)
	return s.client.SetNodeConfig(ctx, gatewayUID, nodeID, *cfg)
}

// UpdateDevicePin resolves a device from its pin. Exactly one of gatewayUID or nodeID must be set.
// A gateway matches when its pin variable equals pin, a node when its config note carries the pin.
// It returns nil without error when no device matches.
func (s *AttributeStore) UpdateDevicePin(ctx context.Context, gatewayUID, nodeID, pin string) (*models.DeviceRef, error) {
	if (gatewayUID == "") == (nodeID == "") {
		return nil, fmt.Errorf("%w: exactly one of gateway or node is required", models.ErrInvalidIdentifier)
	}
	if pin == "" {
		return nil, fmt.Errorf("%w: pin is required", models.ErrInvalidIdentifier)
	}

	if gatewayUID != "" {
		return s.gatewayByPin(ctx, gatewayUID, pin)
	}
	return s.nodeByPin(ctx, nodeID, pin)
}

func (s *AttributeStore) gatewayByPin(ctx context.Context, gatewayUID, pin string) (*models.DeviceRef, error) {
	if _, err := models.BuildGatewayID(gatewayUID); err != nil {
		return nil, nil
	}

	vars, err := s.client.GetEnvironmentVariables(ctx, gatewayUID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	if vars[EnvPin] != pin {
		return nil, nil
	}
	return &models.DeviceRef{GatewayUID: gatewayUID}, nil
}

func (s *AttributeStore) nodeByPin(ctx context.Context, nodeID, pin string) (*models.DeviceRef, error) {
	devices, err := s.client.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	for _, device := range devices {
		configs, err := s.client.ListNodeConfigs(ctx, device.UID)
		if err != nil {
			return nil, err
		}
		if cfg, ok := configs[nodeID]; ok && cfg.Pin == pin {
			return &models.DeviceRef{GatewayUID: device.UID, NodeID: nodeID}, nil
		}
	}
	return nil, nil
}
