package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	require.NoError(t, InitWithExporter("sagaflow", "0.0.1", exporter))

	ctx, parent := StartSpan(context.Background(), "execution", "INTERNAL")
	_, ok := SpanFromContext(ctx)
	assert.True(t, ok)

	_, child := StartSpan(ctx, "step:charge", "CLIENT")
	child.WithAttributes(map[string]string{"step": "charge"})
	EndSpan(child, errors.New("declined"))
	EndSpan(parent, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "step:charge", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
	assert.Equal(t, codes.Ok, spans[1].Status.Code)
}

func TestEndSpanNil(t *testing.T) {
	assert.NotPanics(t, func() { EndSpan(nil, nil) })
}

func TestShutdown(t *testing.T) {
	require.NoError(t, Shutdown(context.Background()))
	dir := t.TempDir()
	location := filepath.Join(dir, "trace.json")
	ignored := filepath.Join(dir, "ignored.json")
	require.NoError(t, Init("sagaflow", "0.0.1", location))
	require.NoError(t, Init("sagaflow", "0.0.1", ignored))

	_, span := StartSpan(context.Background(), "step:ship", "INTERNAL")
	EndSpan(span, nil)
	require.NoError(t, Shutdown(context.Background()))
	require.NoError(t, Shutdown(context.Background()))

	data, err := os.ReadFile(location)
	require.NoError(t, err)
	assert.Contains(t, string(data), "step:ship")
	assert.Nil(t, output)
	assert.Nil(t, provider)
	_, err = os.Stat(ignored)
	assert.True(t, os.IsNotExist(err))
}
