package models

import "time"

// Gateway represents a Notehub device relaying data for its nodes
type Gateway struct {
	ID              GatewayID       `json:"id"`
	Name            string          `json:"name"`
	LastSeen        *time.Time      `json:"lastSeen"`
	Location        *string         `json:"location,omitempty"`
	Voltage         *float64        `json:"voltage,omitempty"`
	SignalBars      *int            `json:"signalBars,omitempty"`
	CurrentReadings CurrentReadings `json:"currentReadings,omitempty"`
	Nodes           []Node          `json:"nodes,omitempty"`
}

// Node represents a sensor node reporting through a gateway.
// Nodes may be unnamed until first configured.
type Node struct {
	ID              NodeID          `json:"id"`
	Name            *string         `json:"name"`
	Location        *string         `json:"location"`
	LastSeen        *time.Time      `json:"lastSeen"`
	CurrentReadings CurrentReadings `json:"currentReadings"`
}

// GatewayID returns the ID of the hosting gateway
func (n Node) GatewayID() GatewayID {
	return n.ID.Gateway()
}

// Project is a project with its gateways and their nodes
type Project struct {
	ID          ProjectID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Gateways    []Gateway `json:"gateways"`
}

// ProjectReadings is a snapshot of the latest readings across a project
type ProjectReadings struct {
	When    time.Time `json:"when"`
	Project Project   `json:"project"`
}

// DeviceRef points at a gateway, or at a node when NodeID is set
type DeviceRef struct {
	GatewayUID string `json:"gatewayUID"`
	NodeID     string `json:"nodeID,omitempty"`
}
