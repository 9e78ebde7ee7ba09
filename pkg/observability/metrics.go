package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatch accepts up to 1000 datums per call; smaller batches keep
// Lambda invocations short.
const cloudWatchBatchSize = 20

// MetricsPublisher is the subset of the CloudWatch client used here.
type MetricsPublisher interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metrics buffers datums and ships them to CloudWatch in batches.
type Metrics struct {
	namespace string
	client    MetricsPublisher
	logger    *zap.Logger

	mu      sync.Mutex
	pending []types.MetricDatum
}

var _ Recorder = (*Metrics)(nil)

// NewMetrics creates a new metrics instance. A nil client disables shipping.
func NewMetrics(namespace string, client MetricsPublisher, logger *zap.Logger) *Metrics {
	return &Metrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.add("HTTPRequest", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		dim("Method", method), dim("Route", route), dim("Status", strconv.Itoa(status)))
}

func (m *Metrics) ObserveFetch(diagramType string, duration time.Duration, err error) {
	m.add("DiagramFetch", float64(duration.Milliseconds()), types.StandardUnitMilliseconds,
		dim("DiagramType", diagramType), dim("Status", statusLabel(err)))
}

func (m *Metrics) ObserveCompile(diagramType string, nodes, droppedEdges int, duration time.Duration) {
	m.add("CompiledNodes", float64(nodes), types.StandardUnitCount, dim("DiagramType", diagramType))
	if droppedEdges > 0 {
		m.add("DroppedEdges", float64(droppedEdges), types.StandardUnitCount, dim("DiagramType", diagramType))
	}
}

func (m *Metrics) ObserveRender(duration time.Duration, err error) {
	m.add("RenderLatency", float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dim("Status", statusLabel(err)))
}

func (m *Metrics) IncClick(outcome string) {
	m.add("CanvasClick", 1, types.StandardUnitCount, dim("Outcome", outcome))
}

func (m *Metrics) IncStaleCompletion(stage string) {
	m.add("StaleCompletion", 1, types.StandardUnitCount, dim("Stage", stage))
}

func (m *Metrics) IncMutation(kind string) {
	m.add("Mutation", 1, types.StandardUnitCount, dim("Kind", kind))
}

func (m *Metrics) SetActiveCanvases(n int) {
	m.add("ActiveCanvases", float64(n), types.StandardUnitCount)
}

func (m *Metrics) add(name string, value float64, unit types.StandardUnit, dims ...types.Dimension) {
	if m.client == nil {
		return
	}

	m.mu.Lock()
	m.pending = append(m.pending, types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
	})
	full := len(m.pending) >= cloudWatchBatchSize
	m.mu.Unlock()

	if full {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		m.Flush(ctx)
	}
}

// Flush sends every buffered datum. Failures are logged, never returned.
func (m *Metrics) Flush(ctx context.Context) {
	if m.client == nil {
		return
	}

	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for len(batch) > 0 {
		n := len(batch)
		if n > cloudWatchBatchSize {
			n = cloudWatchBatchSize
		}
		input := &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch[:n],
		}
		if _, err := m.client.PutMetricData(ctx, input); err != nil {
			m.logger.Warn("Failed to send metrics", zap.Error(err), zap.Int("datums", n))
		}
		batch = batch[n:]
	}
}

func dim(name, value string) types.Dimension {
	return types.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
