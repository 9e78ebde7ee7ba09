package handlers

import (
	"context"
	"testing"

	"pulse-backend/application/queries"
	"pulse-backend/application/queries/bus"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticLoader struct {
	snap *org.Snapshot
}

func (l staticLoader) Load(context.Context, org.DiagramType) (*org.Snapshot, error) {
	if l.snap == nil {
		return nil, errors.NewNotFoundError("diagram")
	}
	return l.snap, nil
}

func orgChart() *org.Snapshot {
	return org.NewSnapshot(org.DiagramOrgChart,
		[]org.Node{
			{ID: "a", Label: "CEO", NodeType: "person", PermissionLevel: org.PermissionPublic},
			{ID: "b", Label: "Board", Description: "minutes", NodeType: "team", PermissionLevel: org.PermissionAdmin},
			{ID: "c", Label: "Engineering", NodeType: "department", PermissionLevel: org.PermissionPublic},
		},
		[]org.Edge{
			{ID: "e1", SourceID: "a", TargetID: "b", Label: "escalates", EdgeType: org.EdgeHierarchy},
			{ID: "e2", SourceID: "a", TargetID: "ghost", EdgeType: org.EdgeHierarchy},
			{ID: "e3", SourceID: "a", TargetID: "c", Label: "manages", EdgeType: org.EdgeHierarchy},
		},
	)
}

func TestGetDiagramHandler_RedactsForViewer(t *testing.T) {
	// Arrange
	queryBus := bus.NewQueryBus()
	require.NoError(t, Register(queryBus, staticLoader{snap: orgChart()}, zap.NewNop()))

	// Act
	result, err := queryBus.Ask(context.Background(), queries.GetDiagramQuery{
		DiagramType: org.DiagramOrgChart,
		Role:        org.RoleViewer,
	})

	// Assert
	require.NoError(t, err)
	diagram := result.(*queries.GetDiagramResult)
	assert.Equal(t, 3, diagram.Stats.NodeCount)
	assert.Equal(t, 2, diagram.Stats.EdgeCount)
	assert.Equal(t, 1, diagram.Stats.RestrictedCount)
	assert.Equal(t, 1, diagram.Stats.DroppedEdges)
	assert.Equal(t, org.RestrictedLabel, diagram.Nodes[1].Label)
	assert.Empty(t, diagram.Nodes[1].Description)
	assert.NotContains(t, diagram.Source, "Board")
	assert.Contains(t, diagram.Source, `n0 -->|"escalates"| n1`)
}

func TestGetDiagramHandler_AdminSeesEverything(t *testing.T) {
	handler := NewGetDiagramHandler(staticLoader{snap: orgChart()}, zap.NewNop())

	result, err := handler.Handle(context.Background(), queries.GetDiagramQuery{
		DiagramType: org.DiagramOrgChart,
		Role:        org.RoleAdmin,
	})

	require.NoError(t, err)
	diagram := result.(*queries.GetDiagramResult)
	assert.Zero(t, diagram.Stats.RestrictedCount)
	assert.Contains(t, diagram.Source, `n1["Board"]`)
}

func TestGetNodeHandler_Connections(t *testing.T) {
	handler := NewGetNodeHandler(staticLoader{snap: orgChart()})

	result, err := handler.Handle(context.Background(), queries.GetNodeQuery{
		DiagramType: org.DiagramOrgChart,
		NodeID:      "a",
		Role:        org.RoleManager,
	})

	require.NoError(t, err)
	detail := result.(*queries.GetNodeResult)
	assert.Equal(t, "CEO", detail.Node.Label)
	if assert.Len(t, detail.Connections.Outbound, 2) {
		assert.True(t, detail.Connections.Outbound[0].Restricted)
		assert.Equal(t, "c", detail.Connections.Outbound[1].NodeID)
	}
	assert.Empty(t, detail.Connections.Inbound)
}

func TestGetNodeHandler_UnknownNode(t *testing.T) {
	handler := NewGetNodeHandler(staticLoader{snap: orgChart()})

	_, err := handler.Handle(context.Background(), queries.GetNodeQuery{
		DiagramType: org.DiagramOrgChart,
		NodeID:      "ghost",
		Role:        org.RoleAdmin,
	})

	assert.ErrorIs(t, err, errors.ErrNodeNotFound)
}

func TestGetRawDiagramHandler_ReturnsSnapshot(t *testing.T) {
	snap := orgChart()
	handler := NewGetRawDiagramHandler(staticLoader{snap: snap})

	result, err := handler.Handle(context.Background(), queries.GetRawDiagramQuery{DiagramType: org.DiagramOrgChart})

	require.NoError(t, err)
	assert.Same(t, snap, result)
}
