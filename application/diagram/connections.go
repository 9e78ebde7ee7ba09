package diagram

import "pulse-backend/domain/org"

// Connection is one neighbor of the selected node as shown in the detail panel.
type Connection struct {
	EdgeID     string       `json:"edge_id"`
	NodeID     string       `json:"node_id"`
	Label      string       `json:"label"`
	Restricted bool         `json:"is_restricted"`
	EdgeLabel  string       `json:"edge_label,omitempty"`
	EdgeType   org.EdgeType `json:"edge_type,omitempty"`
}

// Connections splits a node's edges by direction.
type Connections struct {
	Outbound []Connection `json:"leads_to"`
	Inbound  []Connection `json:"receives_from"`
}

// ResolveConnections lists the edges where nodeID is the source (Outbound)
// and where it is the target (Inbound), in snapshot edge order.
//
// Existence is checked against the raw snapshot, but every neighbor label
// goes through org.Redact, so a restricted neighbor shows the sentinel.
// Edges whose neighbor is missing from the snapshot are omitted.
func ResolveConnections(nodeID string, snap *org.Snapshot, clearance org.PermissionLevel) Connections {
	conns := Connections{
		Outbound: []Connection{},
		Inbound:  []Connection{},
	}
	if snap == nil {
		return conns
	}
	index := snap.NodeIndex()
	if _, ok := index[nodeID]; !ok {
		return conns
	}

	neighbor := func(edge org.Edge, id string) (Connection, bool) {
		i, ok := index[id]
		if !ok {
			return Connection{}, false
		}
		display := org.Redact(snap.Nodes[i], clearance)
		return Connection{
			EdgeID:     edge.ID,
			NodeID:     display.ID,
			Label:      display.Label,
			Restricted: display.Restricted,
			EdgeLabel:  edge.Label,
			EdgeType:   edge.EdgeType,
		}, true
	}

	for _, edge := range snap.Edges {
		if edge.SourceID == nodeID {
			if c, ok := neighbor(edge, edge.TargetID); ok {
				conns.Outbound = append(conns.Outbound, c)
			}
		}
		if edge.TargetID == nodeID {
			if c, ok := neighbor(edge, edge.SourceID); ok {
				conns.Inbound = append(conns.Inbound, c)
			}
		}
	}
	return conns
}
