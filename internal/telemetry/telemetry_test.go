package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"github.com/irfndi/skupulse/internal/config"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	provider, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)

	assert.False(t, provider.Enabled())
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestInitTelemetry_StdoutExporter(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var out bytes.Buffer
	provider, err := initTelemetry(context.Background(), config.TelemetryConfig{
		Enabled:     true,
		Exporter:    "stdout",
		ServiceName: "skupulse-test",
		SampleRate:  1,
	}, &out)
	require.NoError(t, err)
	require.True(t, provider.Enabled())

	_, span := GetHTTPTracer().Start(context.Background(), "classify")
	span.End()

	require.NoError(t, provider.Shutdown(context.Background()))
	assert.Contains(t, out.String(), `"Name":"classify"`)
	assert.Contains(t, out.String(), "skupulse-test")
}

func TestInitTelemetry_UnknownExporter(t *testing.T) {
	_, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: true, Exporter: "zipkin"})
	assert.ErrorContains(t, err, "unknown trace exporter")
}

func TestProvider_NilSafe(t *testing.T) {
	var provider *Provider
	assert.False(t, provider.Enabled())
	assert.NoError(t, provider.Shutdown(context.Background()))
}
