package observability

import (
	"context"

	"github.com/aws/aws-xray-sdk-go/xray"
)

// Tracer records X-Ray subsegments for diagram fetches and engine calls.
// A nil *Tracer is valid and traces nothing.
type Tracer struct {
	serviceName string
}

// NewTracer creates a tracer that tags subsegments with serviceName.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{serviceName: serviceName}
}

// Span runs fn inside a subsegment called name. Annotations are indexed
// key/value pairs, e.g. "diagram_type", "org_chart".
func (t *Tracer) Span(ctx context.Context, name string, fn func(context.Context) error, annotations ...string) error {
	if t == nil {
		return fn(ctx)
	}

	ctx, seg := xray.BeginSubsegment(ctx, name)
	if seg == nil {
		// No parent segment outside Lambda or the X-Ray handler.
		return fn(ctx)
	}

	_ = seg.AddAnnotation("service", t.serviceName)
	for i := 0; i+1 < len(annotations); i += 2 {
		_ = seg.AddAnnotation(annotations[i], annotations[i+1])
	}

	err := fn(ctx)
	if err != nil {
		_ = seg.AddError(err)
	}
	seg.Close(err)
	return err
}
