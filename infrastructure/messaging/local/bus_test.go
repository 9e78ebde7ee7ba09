package local

import (
	"context"
	"errors"
	"testing"

	"pulse-backend/domain/events"
	"pulse-backend/domain/org"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingHandler struct {
	name  string
	types map[string]bool
	log   *[]string
	err   error
}

func (h *recordingHandler) Handle(_ context.Context, event events.DomainEvent) error {
	*h.log = append(*h.log, h.name+":"+event.GetEventType())
	return h.err
}

func (h *recordingHandler) CanHandle(eventType string) bool { return h.types == nil || h.types[eventType] }

type recordingPublisher struct {
	published []events.DomainEvent
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.DomainEvent) error {
	p.published = append(p.published, event)
	return p.err
}

func (p *recordingPublisher) PublishBatch(_ context.Context, evts []events.DomainEvent) error {
	p.published = append(p.published, evts...)
	return p.err
}

func TestBus_DispatchesInSubscriptionOrder(t *testing.T) {
	// Arrange
	var log []string
	forward := &recordingPublisher{}
	bus := NewBus(forward, zap.NewNop())
	require.NoError(t, bus.Subscribe(AllEvents, &recordingHandler{name: "cache", log: &log}))
	require.NoError(t, bus.Subscribe(AllEvents, &recordingHandler{name: "canvases", log: &log}))
	require.NoError(t, bus.Subscribe(events.TypeNodeDeleted, &recordingHandler{name: "audit", log: &log}))

	// Act
	err := bus.Publish(context.Background(), events.NewNodeDeleted(org.DiagramOrgChart, "a", nil, "admin"))

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:node.deleted", "canvases:node.deleted", "audit:node.deleted"}, log)
	assert.Len(t, forward.published, 1)
}

func TestBus_SkipsHandlersThatCannotHandle(t *testing.T) {
	var log []string
	bus := NewBus(nil, zap.NewNop())
	require.NoError(t, bus.Subscribe(AllEvents, &recordingHandler{
		name: "edges", log: &log, types: map[string]bool{events.TypeEdgeCreated: true},
	}))

	require.NoError(t, bus.Publish(context.Background(), events.NewDiagramReplaced(org.DiagramWorkflow)))

	assert.Empty(t, log)
}

func TestBus_HandlerErrorDoesNotStopDispatch(t *testing.T) {
	var log []string
	bus := NewBus(nil, zap.NewNop())
	require.NoError(t, bus.Subscribe(AllEvents, &recordingHandler{name: "broken", log: &log, err: errors.New("boom")}))
	require.NoError(t, bus.Subscribe(AllEvents, &recordingHandler{name: "next", log: &log}))

	err := bus.Publish(context.Background(), events.NewEdgeDeleted(org.DiagramWorkflow, "e1", "admin"))

	assert.NoError(t, err)
	assert.Len(t, log, 2)
}

func TestBus_ForwardErrorIsReturned(t *testing.T) {
	bus := NewBus(&recordingPublisher{err: errors.New("eventbridge down")}, zap.NewNop())

	err := bus.PublishBatch(context.Background(), []events.DomainEvent{events.NewDiagramReplaced(org.DiagramOrgChart)})

	assert.Error(t, err)
}

func TestBus_Unsubscribe(t *testing.T) {
	var log []string
	bus := NewBus(nil, zap.NewNop())
	handler := &recordingHandler{name: "gone", log: &log}
	require.NoError(t, bus.Subscribe(AllEvents, handler))
	require.NoError(t, bus.Unsubscribe(AllEvents, handler))

	require.NoError(t, bus.Publish(context.Background(), events.NewDiagramReplaced(org.DiagramOrgChart)))

	assert.Empty(t, log)
}
