package handlers

import (
	"context"
	"fmt"

	"pulse-backend/application/diagram"
	"pulse-backend/application/queries"
	"pulse-backend/application/queries/bus"
	"pulse-backend/domain/org"
	"pulse-backend/pkg/errors"

	"go.uber.org/zap"
)

// SnapshotLoader returns the current snapshot of a diagram
type SnapshotLoader interface {
	Load(ctx context.Context, diagramType org.DiagramType) (*org.Snapshot, error)
}

// GetDiagramHandler handles redacted diagram queries
type GetDiagramHandler struct {
	loader SnapshotLoader
	logger *zap.Logger
}

// NewGetDiagramHandler creates a new get diagram handler
func NewGetDiagramHandler(loader SnapshotLoader, logger *zap.Logger) *GetDiagramHandler {
	return &GetDiagramHandler{
		loader: loader,
		logger: logger,
	}
}

// Handle executes the get diagram query
func (h *GetDiagramHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetDiagramQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	snap, err := h.loader.Load(ctx, q.DiagramType)
	if err != nil {
		return nil, err
	}

	view := org.RedactSnapshot(snap, org.ClearanceFor(q.Role))
	compiled := diagram.Compile(view, diagram.CompileOptions{})

	restricted := 0
	for _, n := range view.Nodes {
		if n.Restricted {
			restricted++
		}
	}
	edges := snap.ResolvedEdges()

	if len(compiled.DroppedEdges) > 0 {
		h.logger.Debug("Dropped dangling edges",
			zap.String("diagram_type", string(q.DiagramType)),
			zap.Strings("edge_ids", compiled.DroppedEdges),
		)
	}

	return &queries.GetDiagramResult{
		DiagramType: q.DiagramType,
		Nodes:       view.Nodes,
		Edges:       edges,
		Source:      compiled.Source,
		Stats: queries.DiagramStats{
			NodeCount:       len(view.Nodes),
			EdgeCount:       len(edges),
			RestrictedCount: restricted,
			DroppedEdges:    len(compiled.DroppedEdges),
		},
	}, nil
}

// GetRawDiagramHandler returns the unredacted snapshot
type GetRawDiagramHandler struct {
	loader SnapshotLoader
}

// NewGetRawDiagramHandler creates a new raw diagram handler
func NewGetRawDiagramHandler(loader SnapshotLoader) *GetRawDiagramHandler {
	return &GetRawDiagramHandler{loader: loader}
}

// Handle executes the raw diagram query
func (h *GetRawDiagramHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetRawDiagramQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}
	return h.loader.Load(ctx, q.DiagramType)
}

// GetNodeHandler returns one redacted node and its connections
type GetNodeHandler struct {
	loader SnapshotLoader
}

// NewGetNodeHandler creates a new get node handler
func NewGetNodeHandler(loader SnapshotLoader) *GetNodeHandler {
	return &GetNodeHandler{loader: loader}
}

// Handle executes the get node query
func (h *GetNodeHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.GetNodeQuery)
	if !ok {
		return nil, fmt.Errorf("unexpected query type %T", query)
	}

	snap, err := h.loader.Load(ctx, q.DiagramType)
	if err != nil {
		return nil, err
	}

	node, found := snap.Node(q.NodeID)
	if !found {
		return nil, fmt.Errorf("node %q: %w", q.NodeID, errors.ErrNodeNotFound)
	}

	clearance := org.ClearanceFor(q.Role)
	return &queries.GetNodeResult{
		Node:        org.Redact(node, clearance),
		Connections: diagram.ResolveConnections(q.NodeID, snap, clearance),
	}, nil
}

// Register wires every diagram query handler into the query bus.
func Register(queryBus *bus.QueryBus, loader SnapshotLoader, logger *zap.Logger) error {
	registrations := []struct {
		query   bus.Query
		handler bus.QueryHandler
	}{
		{queries.GetDiagramQuery{}, NewGetDiagramHandler(loader, logger)},
		{queries.GetRawDiagramQuery{}, NewGetRawDiagramHandler(loader)},
		{queries.GetNodeQuery{}, NewGetNodeHandler(loader)},
	}
	for _, r := range registrations {
		if err := queryBus.Register(r.query, r.handler); err != nil {
			return err
		}
	}
	return nil
}
