package notehub

import (
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// Notefile and environment variable names used by Sparrow gateways
const (
	ConfigFile     = "config.db"
	SessionFile    = "_session.qo"
	EnvSerialName  = "_sn"
	EnvPin         = "pin"
	ConfigFieldPin = "pin"
)

// Location is a resolved device position reported by Notehub
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	When      string  `json:"when"`
}

// Device is a Notehub device, a gateway in Sparrow terms
type Device struct {
	UID                  string     `json:"uid"`
	SerialNumber         string     `json:"serial_number"`
	ProductUID           string     `json:"product_uid"`
	LastActivity         *time.Time `json:"last_activity"`
	Voltage              *float64   `json:"voltage"`
	Temperature          *float64   `json:"temperature"`
	GPSLocation          *Location  `json:"gps_location"`
	TriangulatedLocation *Location  `json:"triangulated_location"`
	TowerLocation        *Location  `json:"tower_location"`
}

// LocationName returns the most precise location name known for the device
func (d *Device) LocationName() *string {
	for _, loc := range []*Location{d.GPSLocation, d.TriangulatedLocation, d.TowerLocation} {
		if loc != nil && loc.Name != "" {
			name := loc.Name
			return &name
		}
	}
	return nil
}

// DevicesResponse is one page of the project device list
type DevicesResponse struct {
	Devices []Device `json:"devices"`
	HasMore bool     `json:"has_more"`
}

// LatestEventsResponse holds the latest event of each notefile of a device
type LatestEventsResponse struct {
	LatestEvents []models.RoutedEvent `json:"latest_events"`
}

// EventsResponse is one page of project events
type EventsResponse struct {
	Events  []models.RoutedEvent `json:"events"`
	HasMore bool                 `json:"has_more"`
}

// EnvironmentVariables maps variable names to values
type EnvironmentVariables map[string]string

type environmentVariablesBody struct {
	EnvironmentVariables EnvironmentVariables `json:"environment_variables"`
}

// NodeConfig is the per-node note kept in the gateway config.db notefile
type NodeConfig struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"loc,omitempty"`
	Pin      string `json:"pin,omitempty"`
}

// noteRequest is a device request relayed through the /req endpoint
type noteRequest struct {
	Req  string      `json:"req"`
	File string      `json:"file"`
	Note string      `json:"note,omitempty"`
	Body interface{} `json:"body,omitempty"`
}

type noteResponse struct {
	Err   string                  `json:"err,omitempty"`
	Body  *NodeConfig             `json:"body,omitempty"`
	Notes map[string]noteListItem `json:"notes,omitempty"`
}

type noteListItem struct {
	Body NodeConfig `json:"body"`
}
