package provider

import (
	"sort"
	"time"

	"github.com/sguter90/sparrowmaestro/pkg/models"
)

// mergeReadings combines two latest-reading sets. Per sensor type the later capture
// wins; on equal capture times the persisted reading wins.
func mergeReadings(remote, persisted models.CurrentReadings) models.CurrentReadings {
	out := make(models.CurrentReadings, len(remote)+len(persisted))
	for sensorType, r := range remote {
		out[sensorType] = r
	}
	for sensorType, p := range persisted {
		if r, ok := out[sensorType]; ok && r.CapturedAt.After(p.CapturedAt) {
			continue
		}
		out[sensorType] = p
	}
	return out
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}

// mergeNode overlays persisted node state on the remote node.
// Names and locations come from the remote side when it has them.
func mergeNode(remote, persisted models.Node) models.Node {
	out := remote
	if out.Name == nil {
		out.Name = persisted.Name
	}
	if out.Location == nil {
		out.Location = persisted.Location
	}
	out.CurrentReadings = mergeReadings(remote.CurrentReadings, persisted.CurrentReadings)
	out.LastSeen = laterOf(remote.LastSeen, persisted.LastSeen)
	if last := out.CurrentReadings.LastCaptured(); last != nil {
		out.LastSeen = laterOf(out.LastSeen, last)
	}
	return out
}

// mergeNodes unions two node lists keyed by NodeID, sorted by gateway then node
func mergeNodes(remote, persisted []models.Node) []models.Node {
	byID := make(map[models.NodeID]models.Node, len(remote)+len(persisted))
	for _, n := range remote {
		if existing, ok := byID[n.ID]; ok {
			n = mergeNode(existing, n)
		}
		byID[n.ID] = n
	}
	for _, p := range persisted {
		if r, ok := byID[p.ID]; ok {
			byID[p.ID] = mergeNode(r, p)
			continue
		}
		byID[p.ID] = p
	}

	nodes := make([]models.Node, 0, len(byID))
	for _, n := range byID {
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes
}

// mergeGateway overlays a persisted gateway summary on the remote gateway
func mergeGateway(remote, persisted models.Gateway) models.Gateway {
	out := remote
	if out.Name == "" {
		out.Name = persisted.Name
	}
	if out.Location == nil {
		out.Location = persisted.Location
	}
	out.LastSeen = laterOf(remote.LastSeen, persisted.LastSeen)
	out.CurrentReadings = mergeReadings(remote.CurrentReadings, persisted.CurrentReadings)
	out.Nodes = mergeNodes(remote.Nodes, persisted.Nodes)
	return out
}

// mergeGateways merges persisted gateways into the remote list.
// Only gateways the remote side knows are returned.
func mergeGateways(remote, persisted []models.Gateway) []models.Gateway {
	persistedByID := make(map[models.GatewayID]models.Gateway, len(persisted))
	for _, p := range persisted {
		persistedByID[p.ID] = p
	}

	seen := make(map[models.GatewayID]int, len(remote))
	out := make([]models.Gateway, 0, len(remote))
	for _, r := range remote {
		if i, ok := seen[r.ID]; ok {
			out[i] = mergeGateway(out[i], r)
			continue
		}
		if p, ok := persistedByID[r.ID]; ok {
			r = mergeGateway(r, p)
		} else {
			r.Nodes = mergeNodes(r.Nodes, nil)
		}
		seen[r.ID] = len(out)
		out = append(out, r)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.UID < out[j].ID.UID
	})
	return out
}

func sortNodes(nodes []models.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].ID.GatewayUID != nodes[j].ID.GatewayUID {
			return nodes[i].ID.GatewayUID < nodes[j].ID.GatewayUID
		}
		return nodes[i].ID.NodeID < nodes[j].ID.NodeID
	})
}
