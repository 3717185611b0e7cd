package telemetry_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/pdfkit/internal/infrastructure/telemetry"
)

type recordingExporter struct {
	mu     sync.Mutex
	bodies []string
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.bodies = append(e.bodies, r.Body().AsString())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

func (e *recordingExporter) messages() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.bodies...)
}

func TestLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()

	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.Config{Enabled: true}, nil)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))
}

func TestLoggerProvider_Bridge(t *testing.T) {
	original := global.GetLoggerProvider()
	t.Cleanup(func() { global.SetLoggerProvider(original) })

	ctx := context.Background()
	exporter := &recordingExporter{}
	lp, err := telemetry.NewLoggerProviderWithExporter(telemetry.Config{ServiceName: "pdf-test"}, exporter, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(ctx) })
	require.True(t, lp.IsEnabled())

	core, logs := observer.New(zapcore.DebugLevel)
	logger := lp.Bridge(zap.New(core), zapcore.InfoLevel)

	logger.Debug("layout pass")
	logger.Info("PDF saved", zap.String("kind", "invoice"))
	logger.With(zap.String("id", "1001")).Warn("Mirror upload failed")
	require.NoError(t, lp.ForceFlush(ctx))

	// The base core still sees everything
	assert.Equal(t, 3, logs.Len())
	// The OTEL pipeline only gets info and above
	assert.Equal(t, []string{"PDF saved", "Mirror upload failed"}, exporter.messages())
}
