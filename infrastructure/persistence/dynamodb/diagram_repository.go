package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/org"
	appErrors "pulse-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	entityNode = "NODE"
	entityEdge = "EDGE"

	// batchWriteLimit is the DynamoDB BatchWriteItem request limit
	batchWriteLimit = 25
	// maxBatchRetries bounds the resubmission of unprocessed items
	maxBatchRetries = 3
	// batchRetryBase is the first backoff before resubmitting; it doubles per attempt
	batchRetryBase = 50 * time.Millisecond
)

// Client is the subset of the DynamoDB API the repositories use
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DiagramRepository implements ports.DiagramRepository using a single
// DynamoDB table. Each diagram type is one partition:
//
//	PK = DIAGRAM#<type>   SK = NODE#<id> | EDGE#<id>
//
// Seq records the first write time and restores insertion order on reads.
type DiagramRepository struct {
	client    Client
	tableName string
	logger    *zap.Logger
	now       func() time.Time
	backoff   time.Duration
}

var _ ports.DiagramRepository = (*DiagramRepository)(nil)

// NewDiagramRepository creates a new DiagramRepository
func NewDiagramRepository(client Client, tableName string, logger *zap.Logger) *DiagramRepository {
	return &DiagramRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
		backoff:   batchRetryBase,
	}
}

// nodeItem represents the DynamoDB item structure for a node
type nodeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Seq        int64  `dynamodbav:"Seq"`
	org.Node
}

// edgeItem represents the DynamoDB item structure for an edge
type edgeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	Seq        int64  `dynamodbav:"Seq"`
	org.Edge
}

func diagramPK(diagramType org.DiagramType) string {
	return fmt.Sprintf("DIAGRAM#%s", diagramType)
}

func nodeSK(nodeID string) string { return fmt.Sprintf("NODE#%s", nodeID) }
func edgeSK(edgeID string) string { return fmt.Sprintf("EDGE#%s", edgeID) }

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// GetDiagram loads every node and edge of a diagram in insertion order
func (r *DiagramRepository) GetDiagram(ctx context.Context, diagramType org.DiagramType) (*org.Snapshot, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(diagramPK(diagramType)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var nodes []nodeItem
	var edges []edgeItem
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("query diagram", err)
		}
		for _, raw := range page.Items {
			sk, _ := raw["SK"].(*types.AttributeValueMemberS)
			if sk == nil {
				continue
			}
			switch {
			case strings.HasPrefix(sk.Value, "NODE#"):
				var item nodeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, fmt.Errorf("failed to unmarshal node: %w", err)
				}
				nodes = append(nodes, item)
			case strings.HasPrefix(sk.Value, "EDGE#"):
				var item edgeItem
				if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
					return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
				}
				edges = append(edges, item)
			}
		}
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].Seq < nodes[j].Seq })
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Seq < edges[j].Seq })

	snapNodes := make([]org.Node, len(nodes))
	for i, item := range nodes {
		snapNodes[i] = item.Node
	}
	snapEdges := make([]org.Edge, len(edges))
	for i, item := range edges {
		snapEdges[i] = item.Edge
	}

	r.logger.Debug("Loaded diagram from DynamoDB",
		zap.String("diagram_type", string(diagramType)),
		zap.Int("nodes", len(snapNodes)),
		zap.Int("edges", len(snapEdges)),
	)
	return org.NewSnapshot(diagramType, snapNodes, snapEdges), nil
}

// GetNode retrieves a single node
func (r *DiagramRepository) GetNode(ctx context.Context, diagramType org.DiagramType, nodeID string) (*org.Node, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(diagramPK(diagramType), nodeSK(nodeID)),
	})
	if err != nil {
		return nil, classify("get node", err)
	}
	if len(result.Item) == 0 {
		return nil, fmt.Errorf("node %q: %w", nodeID, appErrors.ErrNodeNotFound)
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}
	return &item.Node, nil
}

// SaveNode creates or replaces a node. Seq is set on first write only.
func (r *DiagramRepository) SaveNode(ctx context.Context, diagramType org.DiagramType, node org.Node) error {
	update := expression.Set(expression.Name("EntityType"), expression.Value(entityNode)).
		Set(expression.Name("Seq"), expression.IfNotExists(expression.Name("Seq"), expression.Value(r.now().UnixNano()))).
		Set(expression.Name("NodeID"), expression.Value(node.ID)).
		Set(expression.Name("Label"), expression.Value(node.Label)).
		Set(expression.Name("Description"), expression.Value(node.Description)).
		Set(expression.Name("NodeType"), expression.Value(node.NodeType)).
		Set(expression.Name("ParentID"), expression.Value(node.ParentID)).
		Set(expression.Name("PermissionLevel"), expression.Value(string(node.PermissionLevel)))

	return r.update(ctx, diagramType, nodeSK(node.ID), update, "save node")
}

// DeleteNode removes a node and every edge touching it. When the node is
// gone but the cascade fails, the error matches ErrCascadeIncomplete.
func (r *DiagramRepository) DeleteNode(ctx context.Context, diagramType org.DiagramType, nodeID string) ([]string, error) {
	if err := r.deleteExisting(ctx, diagramType, nodeSK(nodeID)); err != nil {
		if isConditionFailed(err) {
			return nil, fmt.Errorf("node %q: %w", nodeID, appErrors.ErrNodeNotFound)
		}
		return nil, classify("delete node", err)
	}

	edgeIDs, err := r.edgesTouching(ctx, diagramType, nodeID)
	if err != nil {
		return nil, cascadeFailed(nodeID, err)
	}

	keys := make([]map[string]types.AttributeValue, len(edgeIDs))
	for i, id := range edgeIDs {
		keys[i] = itemKey(diagramPK(diagramType), edgeSK(id))
	}
	if err := r.batchDelete(ctx, keys); err != nil {
		return nil, cascadeFailed(nodeID, err)
	}

	r.logger.Info("Deleted node from DynamoDB",
		zap.String("diagram_type", string(diagramType)),
		zap.String("node_id", nodeID),
		zap.Strings("removed_edges", edgeIDs),
	)
	return edgeIDs, nil
}

// GetEdge retrieves a single edge
func (r *DiagramRepository) GetEdge(ctx context.Context, diagramType org.DiagramType, edgeID string) (*org.Edge, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(diagramPK(diagramType), edgeSK(edgeID)),
	})
	if err != nil {
		return nil, classify("get edge", err)
	}
	if len(result.Item) == 0 {
		return nil, fmt.Errorf("edge %q: %w", edgeID, appErrors.ErrEdgeNotFound)
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
	}
	return &item.Edge, nil
}

// SaveEdge creates or replaces an edge
func (r *DiagramRepository) SaveEdge(ctx context.Context, diagramType org.DiagramType, edge org.Edge) error {
	update := expression.Set(expression.Name("EntityType"), expression.Value(entityEdge)).
		Set(expression.Name("Seq"), expression.IfNotExists(expression.Name("Seq"), expression.Value(r.now().UnixNano()))).
		Set(expression.Name("EdgeID"), expression.Value(edge.ID)).
		Set(expression.Name("SourceID"), expression.Value(edge.SourceID)).
		Set(expression.Name("TargetID"), expression.Value(edge.TargetID)).
		Set(expression.Name("Label"), expression.Value(edge.Label)).
		Set(expression.Name("EdgeType"), expression.Value(string(edge.EdgeType)))

	return r.update(ctx, diagramType, edgeSK(edge.ID), update, "save edge")
}

// DeleteEdge removes an edge
func (r *DiagramRepository) DeleteEdge(ctx context.Context, diagramType org.DiagramType, edgeID string) error {
	if err := r.deleteExisting(ctx, diagramType, edgeSK(edgeID)); err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("edge %q: %w", edgeID, appErrors.ErrEdgeNotFound)
		}
		return classify("delete edge", err)
	}
	return nil
}

func (r *DiagramRepository) update(ctx context.Context, diagramType org.DiagramType, sk string, update expression.UpdateBuilder, operation string) error {
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(diagramPK(diagramType), sk),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		r.logger.Error("DynamoDB write failed",
			zap.String("operation", operation),
			zap.String("diagram_type", string(diagramType)),
			zap.String("SK", sk),
			zap.Error(err),
		)
		return classify(operation, err)
	}
	return nil
}

func (r *DiagramRepository) deleteExisting(ctx context.Context, diagramType org.DiagramType, sk string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      itemKey(diagramPK(diagramType), sk),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	return err
}

// edgesTouching lists the ids of edges with nodeID as either endpoint
func (r *DiagramRepository) edgesTouching(ctx context.Context, diagramType org.DiagramType, nodeID string) ([]string, error) {
	keyEx := expression.Key("PK").Equal(expression.Value(diagramPK(diagramType))).
		And(expression.Key("SK").BeginsWith("EDGE#"))
	filter := expression.Name("SourceID").Equal(expression.Value(nodeID)).
		Or(expression.Name("TargetID").Equal(expression.Value(nodeID)))

	expr, err := expression.NewBuilder().
		WithKeyCondition(keyEx).
		WithFilter(filter).
		WithProjection(expression.NamesList(expression.Name("EdgeID"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var ids []string
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("query edges", err)
		}
		for _, raw := range page.Items {
			var item struct {
				EdgeID string `dynamodbav:"EdgeID"`
			}
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
			}
			ids = append(ids, item.EdgeID)
		}
	}
	return ids, nil
}

func cascadeFailed(nodeID string, err error) error {
	return fmt.Errorf("node %q: %w", nodeID, errors.Join(appErrors.ErrCascadeIncomplete, err))
}

// batchDelete removes keys in chunks, resubmitting unprocessed items
func (r *DiagramRepository) batchDelete(ctx context.Context, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(keys) {
			end = len(keys)
		}

		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}

		pending := map[string][]types.WriteRequest{r.tableName: requests}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchRetries {
				return appErrors.NewDatabaseError("batch delete", fmt.Errorf("%d items left unprocessed", len(pending[r.tableName])))
			}
			out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return classify("batch delete", err)
			}
			pending = out.UnprocessedItems
			if len(pending) == 0 {
				break
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff << attempt):
			}
		}
	}
	return nil
}
