package render

import (
	"strings"

	"pulse-backend/application/ports"
)

// Probe is one element naming convention of the layout engine.
type Probe struct {
	Name  string
	Match func(doc ports.Markup, renderID string) (ports.Element, bool)
}

// CompoundIDProbe matches the flowchart-<id>-0 ids of current engine versions.
var CompoundIDProbe = Probe{
	Name: "compound",
	Match: func(doc ports.Markup, renderID string) (ports.Element, bool) {
		return doc.ElementByID("flowchart-" + renderID + "-0")
	},
}

// ExactIDProbe matches elements whose id is the render-id itself.
var ExactIDProbe = Probe{
	Name: "exact",
	Match: func(doc ports.Markup, renderID string) (ports.Element, bool) {
		return doc.ElementByID(renderID)
	},
}

// edgePathPrefix starts the ids of edge paths (L-<from>-<to>-0). They share
// the node suffix of their target and come first in document order.
const edgePathPrefix = "L-"

// SuffixIDProbe matches the first node id ending in -<id>-0, whatever the prefix.
var SuffixIDProbe = Probe{
	Name: "suffix",
	Match: func(doc ports.Markup, renderID string) (ports.Element, bool) {
		suffix := "-" + renderID + "-0"
		for _, id := range doc.IDs() {
			if strings.HasPrefix(id, edgePathPrefix) {
				continue
			}
			if strings.HasSuffix(id, suffix) {
				return doc.ElementByID(id)
			}
		}
		return nil, false
	},
}

// DefaultProbes returns the lookup order used by NewResolver.
func DefaultProbes() []Probe {
	return []Probe{CompoundIDProbe, ExactIDProbe, SuffixIDProbe}
}

// Resolver locates the markup element for a render-id by trying each probe
// in order; the first hit wins.
type Resolver struct {
	probes []Probe
}

var _ ports.ElementResolver = (*Resolver)(nil)

// NewResolver creates a resolver. Without probes it uses DefaultProbes.
func NewResolver(probes ...Probe) *Resolver {
	if len(probes) == 0 {
		probes = DefaultProbes()
	}
	return &Resolver{probes: probes}
}

// Resolve implements ports.ElementResolver.
func (r *Resolver) Resolve(doc ports.Markup, renderID string) (ports.Element, bool) {
	el, _, ok := r.Lookup(doc, renderID)
	return el, ok
}

// Lookup is Resolve that also reports which probe matched.
func (r *Resolver) Lookup(doc ports.Markup, renderID string) (ports.Element, string, bool) {
	if doc == nil || renderID == "" {
		return nil, "", false
	}
	for _, p := range r.probes {
		if el, ok := p.Match(doc, renderID); ok {
			return el, p.Name, true
		}
	}
	return nil, "", false
}
