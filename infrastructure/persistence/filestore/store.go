// Package filestore keeps each diagram in a JSON file, one file per diagram
// type. It serves local development and the pulsectl tool.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
	appErrors "pulse-backend/pkg/errors"

	"go.uber.org/zap"
)

// document is the on-disk layout of one diagram
type document struct {
	Nodes []org.Node `json:"nodes"`
	Edges []org.Edge `json:"edges"`
}

// Store implements ports.DiagramRepository over a directory of JSON files.
// Writes replace the whole file through a rename, so readers never see a
// partial document.
type Store struct {
	dir    string
	logger *zap.Logger

	mu      sync.Mutex
	written map[org.DiagramType][sha256.Size]byte
}

var _ ports.DiagramRepository = (*Store)(nil)

// NewStore creates a store rooted at dir, creating the directory if needed
func NewStore(dir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &Store{
		dir:     dir,
		logger:  logger,
		written: make(map[org.DiagramType][sha256.Size]byte),
	}, nil
}

// Dir returns the directory holding the diagram files
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(diagramType org.DiagramType) string {
	return filepath.Join(s.dir, string(diagramType)+".json")
}

// read loads a document. A missing file is an empty diagram. Callers hold mu.
func (s *Store) read(diagramType org.DiagramType) (*document, error) {
	data, err := os.ReadFile(s.path(diagramType))
	if os.IsNotExist(err) {
		return &document{}, nil
	}
	if err != nil {
		return nil, appErrors.NewDatabaseError("read diagram", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, appErrors.NewDatabaseError("decode diagram", err)
	}
	return &doc, nil
}

// write replaces a document. Callers hold mu.
func (s *Store) write(diagramType org.DiagramType, doc *document) error {
	if doc.Nodes == nil {
		doc.Nodes = []org.Node{}
	}
	if doc.Edges == nil {
		doc.Edges = []org.Edge{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode diagram: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+string(diagramType)+"-*.tmp")
	if err != nil {
		return appErrors.NewDatabaseError("write diagram", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return appErrors.NewDatabaseError("write diagram", err)
	}
	if err := tmp.Close(); err != nil {
		return appErrors.NewDatabaseError("write diagram", err)
	}
	if err := os.Rename(tmp.Name(), s.path(diagramType)); err != nil {
		return appErrors.NewDatabaseError("write diagram", err)
	}

	s.written[diagramType] = sha256.Sum256(data)
	return nil
}

// ownContent reports whether data is what this store last wrote for the type
func (s *Store) ownContent(diagramType org.DiagramType, data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.written[diagramType]
	return ok && last == sha256.Sum256(data)
}

// GetDiagram loads every node and edge of a diagram in file order
func (s *Store) GetDiagram(_ context.Context, diagramType org.DiagramType) (*org.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return nil, err
	}
	return org.NewSnapshot(diagramType, doc.Nodes, doc.Edges), nil
}

// GetNode retrieves a single node
func (s *Store) GetNode(_ context.Context, diagramType org.DiagramType, nodeID string) (*org.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return nil, err
	}
	for _, n := range doc.Nodes {
		if n.ID == nodeID {
			node := n
			return &node, nil
		}
	}
	return nil, fmt.Errorf("node %q: %w", nodeID, appErrors.ErrNodeNotFound)
}

// SaveNode replaces the node in place or appends it
func (s *Store) SaveNode(_ context.Context, diagramType org.DiagramType, node org.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Nodes {
		if doc.Nodes[i].ID == node.ID {
			doc.Nodes[i] = node
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Nodes = append(doc.Nodes, node)
	}
	return s.write(diagramType, doc)
}

// DeleteNode removes a node and every edge touching it
func (s *Store) DeleteNode(_ context.Context, diagramType org.DiagramType, nodeID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return nil, err
	}

	nodes := doc.Nodes[:0]
	found := false
	for _, n := range doc.Nodes {
		if n.ID == nodeID {
			found = true
			continue
		}
		nodes = append(nodes, n)
	}
	if !found {
		return nil, fmt.Errorf("node %q: %w", nodeID, appErrors.ErrNodeNotFound)
	}

	var removed []string
	edges := doc.Edges[:0]
	for _, e := range doc.Edges {
		if e.Touches(nodeID) {
			removed = append(removed, e.ID)
			continue
		}
		edges = append(edges, e)
	}

	doc.Nodes, doc.Edges = nodes, edges
	if err := s.write(diagramType, doc); err != nil {
		return nil, err
	}
	return removed, nil
}

// GetEdge retrieves a single edge
func (s *Store) GetEdge(_ context.Context, diagramType org.DiagramType, edgeID string) (*org.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return nil, err
	}
	for _, e := range doc.Edges {
		if e.ID == edgeID {
			edge := e
			return &edge, nil
		}
	}
	return nil, fmt.Errorf("edge %q: %w", edgeID, appErrors.ErrEdgeNotFound)
}

// SaveEdge replaces the edge in place or appends it
func (s *Store) SaveEdge(_ context.Context, diagramType org.DiagramType, edge org.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return err
	}
	replaced := false
	for i := range doc.Edges {
		if doc.Edges[i].ID == edge.ID {
			doc.Edges[i] = edge
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Edges = append(doc.Edges, edge)
	}
	return s.write(diagramType, doc)
}

// DeleteEdge removes an edge
func (s *Store) DeleteEdge(_ context.Context, diagramType org.DiagramType, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(diagramType)
	if err != nil {
		return err
	}
	for i, e := range doc.Edges {
		if e.ID == edgeID {
			doc.Edges = append(doc.Edges[:i], doc.Edges[i+1:]...)
			return s.write(diagramType, doc)
		}
	}
	return fmt.Errorf("edge %q: %w", edgeID, appErrors.ErrEdgeNotFound)
}

// Replace overwrites a whole diagram. Used by seeding and the CLI import.
func (s *Store) Replace(_ context.Context, diagramType org.DiagramType, nodes []org.Node, edges []org.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(diagramType, &document{
		Nodes: append([]org.Node(nil), nodes...),
		Edges: append([]org.Edge(nil), edges...),
	})
}
