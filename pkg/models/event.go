package models

import (
	"encoding/json"
	"time"
)

// RoutedProject is the project reference carried by a routed event
type RoutedProject struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// RoutedEvent is the envelope Notehub delivers to a route for one device data file
type RoutedEvent struct {
	EventUID     string                 `json:"event,omitempty"`
	Device       string                 `json:"device,omitempty"`
	SerialNumber string                 `json:"sn,omitempty"`
	File         string                 `json:"file"`
	Captured     string                 `json:"captured,omitempty"`
	When         int64                  `json:"when,omitempty"`
	Received     float64                `json:"received,omitempty"`
	Body         map[string]interface{} `json:"body"`
	Project      *RoutedProject         `json:"project,omitempty"`

	// Raw holds the payload as received, set by the ingestion boundary
	Raw json.RawMessage `json:"-"`
}

// ProjectUID returns the project identifier or "" when the envelope has none
func (e *RoutedEvent) ProjectUID() string {
	if e == nil || e.Project == nil {
		return ""
	}
	return e.Project.ID
}

// CapturedAt returns the capture time of the event.
// captured wins over when, which wins over received.
func (e *RoutedEvent) CapturedAt() (time.Time, bool) {
	if e.Captured != "" {
		if t, err := time.Parse(time.RFC3339Nano, e.Captured); err == nil {
			return t.UTC(), true
		}
	}
	if e.When > 0 {
		return time.Unix(e.When, 0).UTC(), true
	}
	if e.Received > 0 {
		sec := int64(e.Received)
		nsec := int64((e.Received - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), true
	}
	return time.Time{}, false
}

// SparrowEvent is one reading extracted from a routed event
type SparrowEvent struct {
	ProjectID  ProjectID       `json:"projectID"`
	GatewayID  GatewayID       `json:"gatewayID"`
	NodeID     *NodeID         `json:"nodeID,omitempty"`
	SensorType string          `json:"sensorType"`
	Value      float64         `json:"value"`
	CapturedAt time.Time       `json:"capturedAt"`
	Raw        json.RawMessage `json:"raw,omitempty"`
}

// LocalNodeID returns the node identifier within the gateway, "" for gateway-level readings
func (e SparrowEvent) LocalNodeID() string {
	if e.NodeID != nil {
		return e.NodeID.NodeID
	}
	return ""
}

// Reading returns the measurement carried by the event
func (e SparrowEvent) Reading() Reading {
	return Reading{
		SensorType: e.SensorType,
		Value:      e.Value,
		CapturedAt: e.CapturedAt,
	}
}
