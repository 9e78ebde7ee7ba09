package dynamodb

import (
	"context"
	"fmt"
	"time"

	"pulse-backend/application/ports"
	"pulse-backend/domain/org"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ConnectionTTL is how long a websocket subscription survives without a reconnect
const ConnectionTTL = 24 * time.Hour

// ConnectionIndex is the GSI listing connections by diagram type
const ConnectionIndex = "GSI1"

// ConnectionStore implements ports.ConnectionStore. One item per
// connection and diagram type:
//
//	PK = CONNECTION#<id>   SK = DIAGRAM#<type>
//	GSI1PK = DIAGRAM#<type>   GSI1SK = CONNECTION#<id>
type ConnectionStore struct {
	client    Client
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

var _ ports.ConnectionStore = (*ConnectionStore)(nil)

// NewConnectionStore creates a new ConnectionStore
func NewConnectionStore(client Client, tableName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

// connectionItem represents the DynamoDB item structure for a subscription
type connectionItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	ConnectionID string `dynamodbav:"ConnectionID"`
	UserID       string `dynamodbav:"UserID"`
	ConnectedAt  string `dynamodbav:"ConnectedAt"`
	TTL          int64  `dynamodbav:"TTL"`
}

func connectionPK(connectionID string) string {
	return fmt.Sprintf("CONNECTION#%s", connectionID)
}

// Add registers a connection for a diagram type
func (s *ConnectionStore) Add(ctx context.Context, connectionID string, diagramType org.DiagramType, userID string) error {
	now := s.now()
	item, err := attributevalue.MarshalMap(connectionItem{
		PK:           connectionPK(connectionID),
		SK:           diagramPK(diagramType),
		GSI1PK:       diagramPK(diagramType),
		GSI1SK:       connectionPK(connectionID),
		ConnectionID: connectionID,
		UserID:       userID,
		ConnectedAt:  now.Format(time.RFC3339),
		TTL:          now.Add(ConnectionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return classify("store connection", err)
	}

	s.logger.Info("Stored connection",
		zap.String("connection_id", connectionID),
		zap.String("diagram_type", string(diagramType)),
		zap.String("user_id", userID),
	)
	return nil
}

// Remove drops a connection from every diagram type
func (s *ConnectionStore) Remove(ctx context.Context, connectionID string) error {
	keyEx := expression.Key("PK").Equal(expression.Value(connectionPK(connectionID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return classify("query connection", err)
	}

	for _, raw := range result.Items {
		key := map[string]types.AttributeValue{"PK": raw["PK"], "SK": raw["SK"]}
		if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key:       key,
		}); err != nil {
			return classify("delete connection", err)
		}
	}
	return nil
}

// ListByDiagram returns the connection ids subscribed to a diagram type
func (s *ConnectionStore) ListByDiagram(ctx context.Context, diagramType org.DiagramType) ([]string, error) {
	keyEx := expression.Key("GSI1PK").Equal(expression.Value(diagramPK(diagramType)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(ConnectionIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	nowUnix := s.now().Unix()
	var ids []string
	paginator := dynamodb.NewQueryPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("query connections", err)
		}
		for _, raw := range page.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal connection: %w", err)
			}
			// TTL deletion lags; skip expired items ourselves.
			if item.TTL > 0 && item.TTL < nowUnix {
				continue
			}
			ids = append(ids, item.ConnectionID)
		}
	}
	return ids, nil
}
