package diagram

import (
	"strconv"

	"pulse-backend/domain/org"
)

// RenderIDPrefix starts every synthetic render-id.
const RenderIDPrefix = "n"

// RenderIDFor returns the positional render-id of the node at index i.
func RenderIDFor(i int) string {
	return RenderIDPrefix + strconv.Itoa(i)
}

// RenderIDMap maps synthetic render-ids back to the display nodes they were
// compiled from. A map is valid for exactly one compile of one snapshot and
// must never be compared with a map from another compile.
type RenderIDMap struct {
	order    []string
	byRender map[string]org.DisplayNode
	byDomain map[string]string
}

func newRenderIDMap(size int) RenderIDMap {
	return RenderIDMap{
		order:    make([]string, 0, size),
		byRender: make(map[string]org.DisplayNode, size),
		byDomain: make(map[string]string, size),
	}
}

func (m *RenderIDMap) assign(node org.DisplayNode) string {
	id := RenderIDFor(len(m.order))
	m.order = append(m.order, id)
	m.byRender[id] = node
	m.byDomain[node.ID] = id
	return id
}

// Node resolves a render-id to its display node.
func (m RenderIDMap) Node(renderID string) (org.DisplayNode, bool) {
	n, ok := m.byRender[renderID]
	return n, ok
}

// RenderID resolves a domain id to the render-id it was assigned.
func (m RenderIDMap) RenderID(domainID string) (string, bool) {
	id, ok := m.byDomain[domainID]
	return id, ok
}

// RenderIDs lists render-ids in snapshot order.
func (m RenderIDMap) RenderIDs() []string {
	return append([]string(nil), m.order...)
}

// Len returns the number of mapped nodes.
func (m RenderIDMap) Len() int {
	return len(m.order)
}
