package eventbridge

import (
	"context"
	"fmt"
	"testing"

	"pulse-backend/domain/events"
	"pulse-backend/domain/org"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockClient struct {
	mock.Mock
}

func (m *MockClient) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func TestPublisher_SplitsIntoBatchesOfTen(t *testing.T) {
	// Arrange
	client := new(MockClient)
	publisher := NewPublisher(client, "pulse-bus", zap.NewNop())

	batch := make([]events.DomainEvent, 23)
	for i := range batch {
		batch[i] = events.NewEdgeDeleted(org.DiagramOrgChart, fmt.Sprintf("e%d", i), "admin")
	}
	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) <= 10 &&
			aws.ToString(in.Entries[0].Source) == events.SourceBackend &&
			aws.ToString(in.Entries[0].DetailType) == events.TypeEdgeDeleted
	})).Return(&eventbridge.PutEventsOutput{}, nil)

	// Act
	err := publisher.PublishBatch(context.Background(), batch)

	// Assert
	require.NoError(t, err)
	client.AssertNumberOfCalls(t, "PutEvents", 3)
}

func TestPublisher_ReportsFailedEntries(t *testing.T) {
	client := new(MockClient)
	publisher := NewPublisher(client, "pulse-bus", zap.NewNop())
	client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
		FailedEntryCount: 1,
		Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("ThrottlingException")}},
	}, nil)

	err := publisher.Publish(context.Background(), events.NewDiagramReplaced(org.DiagramWorkflow))

	assert.Error(t, err)
}

func TestPublisher_EmptyBatchIsNoop(t *testing.T) {
	client := new(MockClient)
	publisher := NewPublisher(client, "pulse-bus", zap.NewNop())

	require.NoError(t, publisher.PublishBatch(context.Background(), nil))
	client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
}
