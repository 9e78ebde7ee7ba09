// Package diagram turns a redacted graph view into diagram source for the
// external layout engine and resolves node connections for the detail panel.
package diagram

import (
	"fmt"
	"strings"

	"pulse-backend/domain/org"
)

// Style applied to restricted nodes so the engine renders them desaturated.
const restrictedStyle = "fill:#f3f4f6,stroke:#d1d5db,color:#9ca3af"

// DefaultClickCallback is the callback bound when CompileOptions leaves it empty.
const DefaultClickCallback = "handleOrgClick"

// labelReplacer substitutes characters the engine grammar cannot carry.
// The engine has no escape syntax, so quotes are swapped, never escaped.
var labelReplacer = strings.NewReplacer(
	`"`, "'",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// CompileOptions tunes one compile call.
type CompileOptions struct {
	// Direction is the flowchart direction (TD, LR, ...). Defaults to TD.
	Direction string
	// ClickCallback is the global callback name bound to clickable nodes.
	ClickCallback string
}

// Compiled is the output of one compile: diagram source plus the render-id
// table needed to map clicks and markup back to domain nodes.
type Compiled struct {
	DiagramType  org.DiagramType
	Source       string
	RenderIDs    RenderIDMap
	DroppedEdges []string
}

// Compile serializes a redacted view into flowchart source.
//
// Statements are emitted in a fixed order: nodes, edges, restricted styles,
// click bindings. Render-ids are positional (n0, n1, ...), so compiling the
// same view twice yields byte-identical output. Edges with an endpoint
// missing from the view are dropped and reported in DroppedEdges. Restricted
// nodes never receive a click binding.
func Compile(view org.View, opts CompileOptions) *Compiled {
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}
	callback := opts.ClickCallback
	if callback == "" {
		callback = DefaultClickCallback
	}

	ids := newRenderIDMap(len(view.Nodes))
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s\n", direction)

	for _, node := range view.Nodes {
		rid := ids.assign(node)
		fmt.Fprintf(&b, "  %s[\"%s\"]\n", rid, SanitizeLabel(node.Label))
	}

	var dropped []string
	for _, edge := range view.Edges {
		src, srcOK := ids.RenderID(edge.SourceID)
		tgt, tgtOK := ids.RenderID(edge.TargetID)
		if !srcOK || !tgtOK {
			dropped = append(dropped, edge.ID)
			continue
		}
		if edge.Label != "" {
			fmt.Fprintf(&b, "  %s -->|\"%s\"| %s\n", src, SanitizeLabel(edge.Label), tgt)
		} else {
			fmt.Fprintf(&b, "  %s --> %s\n", src, tgt)
		}
	}

	for i, node := range view.Nodes {
		if node.Restricted {
			fmt.Fprintf(&b, "  style %s %s\n", RenderIDFor(i), restrictedStyle)
		}
	}

	for i, node := range view.Nodes {
		if !node.Restricted {
			fmt.Fprintf(&b, "  click %s %s\n", RenderIDFor(i), callback)
		}
	}

	return &Compiled{
		DiagramType:  view.DiagramType,
		Source:       b.String(),
		RenderIDs:    ids,
		DroppedEdges: dropped,
	}
}

// SanitizeLabel makes s safe to place between double quotes in diagram source.
func SanitizeLabel(s string) string {
	return labelReplacer.Replace(s)
}
