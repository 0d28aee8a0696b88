package tracer

import (
	"context"
	"testing"

	"ai-text-editor-be/internal/config"
	"ai-text-editor-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracerDisabled(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown := InitTracer(config.TracingConfig{Enabled: false, ServiceName: "editor", Endpoint: "localhost:4318"}, logger.NewNopLogger())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	before := otel.GetTracerProvider()

	shutdown := InitTracer(config.TracingConfig{Enabled: true, ServiceName: "editor"}, logger.NewNopLogger())
	assert.NoError(t, shutdown(context.Background()))
	assert.Same(t, before, otel.GetTracerProvider())
}

func TestInitTracerEnabled(t *testing.T) {
	before := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(before) })

	shutdown := InitTracer(config.TracingConfig{Enabled: true, ServiceName: "editor", Endpoint: "localhost:4318"}, logger.NewNopLogger())
	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok)
	assert.NoError(t, shutdown(context.Background()))
}
