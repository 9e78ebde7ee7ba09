package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const compoundSVG = `<svg id="graph-1" xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<g class="nodes">
<g class="node default clickable" id="flowchart-n0-0"><rect></rect><text>Ops</text></g>
<g class="node default" id="flowchart-n1-0"><rect></rect><text>restricted</text></g>
<g class="node default" id="flowchart-n10-0"><rect></rect></g>
</g>
</svg>`

const exactSVG = `<svg><g class="node" id="n0"></g><g class="node" id="n1"></g></svg>`

const suffixSVG = `<svg><g class="node" id="mermaid-17-n0-0"></g><g class="node" id="mermaid-17-n1-0"></g><g id="other-n1-0"></g></svg>`

const edgeFirstSVG = `<svg><g class="edgePaths"><path id="L-n0-n1-0"></path></g><g class="nodes"><g class="node" id="mermaid-3-n0-0"></g><g class="node" id="mermaid-3-n1-0"></g></g></svg>`

func TestResolver_ProbesEachNamingScheme(t *testing.T) {
	tests := []struct {
		name      string
		markup    string
		renderID  string
		wantID    string
		wantProbe string
	}{
		{"compound id", compoundSVG, "n1", "flowchart-n1-0", "compound"},
		{"compound id does not prefix-match", compoundSVG, "n10", "flowchart-n10-0", "compound"},
		{"verbatim id", exactSVG, "n1", "n1", "exact"},
		{"suffix match takes the first in document order", suffixSVG, "n1", "mermaid-17-n1-0", "suffix"},
		{"suffix match skips edge paths", edgeFirstSVG, "n1", "mermaid-3-n1-0", "suffix"},
	}

	resolver := NewResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseMarkup(tt.markup)
			require.NoError(t, err)

			el, probe, ok := resolver.Lookup(doc, tt.renderID)

			require.True(t, ok)
			assert.Equal(t, tt.wantID, el.ID())
			assert.Equal(t, tt.wantProbe, probe)
		})
	}
}

func TestResolver_CompoundWinsOverExact(t *testing.T) {
	doc, err := ParseMarkup(`<svg><g id="n0"></g><g id="flowchart-n0-0"></g></svg>`)
	require.NoError(t, err)

	el, ok := NewResolver().Resolve(doc, "n0")

	require.True(t, ok)
	assert.Equal(t, "flowchart-n0-0", el.ID())
}

func TestResolver_MissIsNotAnError(t *testing.T) {
	doc, err := ParseMarkup(compoundSVG)
	require.NoError(t, err)
	resolver := NewResolver()

	_, ok := resolver.Resolve(doc, "n7")
	assert.False(t, ok)

	_, ok = resolver.Resolve(doc, "")
	assert.False(t, ok)

	_, ok = resolver.Resolve(nil, "n0")
	assert.False(t, ok)
}

func TestResolver_CustomProbeOrder(t *testing.T) {
	doc, err := ParseMarkup(`<svg><g id="n0"></g><g id="flowchart-n0-0"></g></svg>`)
	require.NoError(t, err)

	el, ok := NewResolver(ExactIDProbe).Resolve(doc, "n0")

	require.True(t, ok)
	assert.Equal(t, "n0", el.ID())
}
