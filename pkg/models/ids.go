package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// GatewayUIDPrefix is the prefix Notehub puts on every device UID
const GatewayUIDPrefix = "dev:"

// idNamespace seeds the deterministic keys derived from upstream identifiers
var idNamespace = uuid.MustParse("6f1c3a52-2d0e-4f5b-9a57-7b0f3c1e8d21")

// ProjectID identifies a Notehub project
type ProjectID struct {
	UID string `json:"projectUID"`
}

// GatewayID identifies a gateway (a Notehub device)
type GatewayID struct {
	UID string `json:"gatewayUID"`
}

// NodeID identifies a node hosted by a gateway
type NodeID struct {
	GatewayUID string `json:"gatewayUID"`
	NodeID     string `json:"nodeID"`
}

// SensorID identifies one sensor type on a node
type SensorID struct {
	Node       NodeID `json:"node"`
	SensorType string `json:"sensorType"`
}

// BuildProjectID builds a ProjectID from a project UID
func BuildProjectID(uid string) (ProjectID, error) {
	if err := validateUID("project", uid); err != nil {
		return ProjectID{}, err
	}
	return ProjectID{UID: uid}, nil
}

// BuildGatewayID builds a GatewayID from a Notehub device UID
func BuildGatewayID(uid string) (GatewayID, error) {
	if err := validateUID("gateway", uid); err != nil {
		return GatewayID{}, err
	}
	if !strings.HasPrefix(uid, GatewayUIDPrefix) || len(uid) == len(GatewayUIDPrefix) {
		return GatewayID{}, fmt.Errorf("%w: gateway %q must start with %q", ErrInvalidIdentifier, uid, GatewayUIDPrefix)
	}
	return GatewayID{UID: uid}, nil
}

// BuildNodeID builds a NodeID from the hosting gateway UID and the node identifier
func BuildNodeID(gatewayUID, nodeID string) (NodeID, error) {
	gatewayID, err := BuildGatewayID(gatewayUID)
	if err != nil {
		return NodeID{}, err
	}
	if err := validateUID("node", nodeID); err != nil {
		return NodeID{}, err
	}
	return NodeID{GatewayUID: gatewayID.UID, NodeID: nodeID}, nil
}

// BuildSensorID builds a SensorID for one sensor type of a node
func BuildSensorID(node NodeID, sensorType string) (SensorID, error) {
	if _, err := BuildNodeID(node.GatewayUID, node.NodeID); err != nil {
		return SensorID{}, err
	}
	if err := validateUID("sensor type", sensorType); err != nil {
		return SensorID{}, err
	}
	return SensorID{Node: node, SensorType: sensorType}, nil
}

// ParseNodeKey parses the "gatewayUID/nodeID" form produced by NodeID.String
func ParseNodeKey(key string) (NodeID, error) {
	gatewayUID, nodeID, ok := strings.Cut(key, "/")
	if !ok {
		return NodeID{}, fmt.Errorf("%w: node key %q has no gateway part", ErrInvalidIdentifier, key)
	}
	return BuildNodeID(gatewayUID, nodeID)
}

func validateUID(kind, uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: empty %s identifier", ErrInvalidIdentifier, kind)
	}
	if strings.ContainsAny(uid, " \t\r\n#/") {
		return fmt.Errorf("%w: %s identifier %q contains a reserved character", ErrInvalidIdentifier, kind, uid)
	}
	return nil
}

func (id ProjectID) String() string { return id.UID }

func (id GatewayID) String() string { return id.UID }

func (id NodeID) String() string { return id.GatewayUID + "/" + id.NodeID }

func (id SensorID) String() string { return id.Node.String() + "/" + id.SensorType }

// Gateway returns the ID of the gateway hosting the node
func (id NodeID) Gateway() GatewayID {
	return GatewayID{UID: id.GatewayUID}
}

// IsZero reports whether the ID was never built
func (id NodeID) IsZero() bool {
	return id.NodeID == ""
}

// Key returns a stable uuid derived from the project UID
func (id ProjectID) Key() uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte("project:"+id.UID))
}

// Key returns a stable uuid derived from the gateway UID
func (id GatewayID) Key() uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte("gateway:"+id.UID))
}

// Key returns a stable uuid derived from the gateway UID and node identifier
func (id NodeID) Key() uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte("node:"+id.String()))
}

// Key returns a stable uuid derived from the node and sensor type
func (id SensorID) Key() uuid.UUID {
	return uuid.NewSHA1(idNamespace, []byte("sensor:"+id.String()))
}
