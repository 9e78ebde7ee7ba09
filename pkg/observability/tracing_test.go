package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracer_NilRunsFunction(t *testing.T) {
	var tracer *Tracer
	called := false

	err := tracer.Span(context.Background(), "fetch_diagram", func(context.Context) error {
		called = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, called)
}

func TestTracer_PassesErrorThrough(t *testing.T) {
	boom := errors.New("boom")

	err := (*Tracer)(nil).Span(context.Background(), "render.engine", func(context.Context) error { return boom }, "diagram_type")

	assert.ErrorIs(t, err, boom)
}
