package logging

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) Records() []sdklog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]sdklog.Record(nil), e.records...)
}

func newHookedLogger(t *testing.T) (*logrus.Logger, *memoryLogExporter) {
	t.Helper()
	exporter := &memoryLogExporter{}
	provider := newLogProvider(sdklog.NewSimpleProcessor(exporter), OTLPConfig{
		ServiceName:    "skupulse",
		ServiceVersion: "test",
	})
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.DebugLevel)
	logger.AddHook(NewOTelHook(provider))
	return logger, exporter
}

func recordAttributes(r sdklog.Record) map[string]otellog.Value {
	attrs := make(map[string]otellog.Value)
	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		attrs[kv.Key] = kv.Value
		return true
	})
	return attrs
}

func TestOTelHook_ExportsEntries(t *testing.T) {
	logger, exporter := newHookedLogger(t)

	logger.WithFields(logrus.Fields{
		"nm_id":     int64(12345),
		"component": "signal_classifier",
		"cached":    true,
	}).WithError(errors.New("fact store timeout")).Warn("Classification pass degraded")

	records := exporter.Records()
	require.Len(t, records, 1)
	rec := records[0]

	assert.Equal(t, "Classification pass degraded", rec.Body().AsString())
	assert.Equal(t, otellog.SeverityWarn, rec.Severity())
	assert.Equal(t, "WARNING", rec.SeverityText())
	assert.False(t, rec.Timestamp().IsZero())

	attrs := recordAttributes(rec)
	assert.Equal(t, int64(12345), attrs["nm_id"].AsInt64())
	assert.Equal(t, "signal_classifier", attrs["component"].AsString())
	assert.True(t, attrs["cached"].AsBool())
	assert.Equal(t, "fact store timeout", attrs[logrus.ErrorKey].AsString())
}

func TestOTelHook_RespectsLoggerLevel(t *testing.T) {
	logger, exporter := newHookedLogger(t)
	logger.SetLevel(logrus.InfoLevel)

	logger.Debug("hourly comparison details")
	logger.Info("Service starting")

	records := exporter.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Service starting", records[0].Body().AsString())
	assert.Equal(t, otellog.SeverityInfo, records[0].Severity())
}

func TestConvertLogrusLevelToSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityTrace, convertLogrusLevelToSeverity(logrus.TraceLevel))
	assert.Equal(t, otellog.SeverityDebug, convertLogrusLevelToSeverity(logrus.DebugLevel))
	assert.Equal(t, otellog.SeverityError, convertLogrusLevelToSeverity(logrus.ErrorLevel))
	assert.Equal(t, otellog.SeverityFatal, convertLogrusLevelToSeverity(logrus.FatalLevel))
	assert.Equal(t, otellog.SeverityFatal4, convertLogrusLevelToSeverity(logrus.PanicLevel))
}

func TestNewOTLPLogProvider(t *testing.T) {
	for _, endpoint := range []string{"", "localhost:4318", "http://collector:4318/v1/logs"} {
		provider, err := NewOTLPLogProvider(context.Background(), OTLPConfig{
			Endpoint:    endpoint,
			ServiceName: "skupulse",
		})
		require.NoError(t, err, endpoint)
		assert.NoError(t, provider.Shutdown(context.Background()))
	}
}
