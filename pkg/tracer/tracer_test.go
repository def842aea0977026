package tracer

import (
	"context"
	"testing"

	"github.com/dmehra2102/prod-golang-projects/apptsched/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_DisabledNeverSamples(t *testing.T) {
	tp, err := Init(config.TracingConfig{Enabled: false, ServiceName: "apptsched"}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "op")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
	assert.False(t, span.IsRecording())
}
