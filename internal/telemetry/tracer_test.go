// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: false, ExporterType: "bogus"})
	require.NoError(t, err)
	assert.False(t, p.Enabled())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dispatch")
	assert.False(t, span.IsRecording())
	span.End()
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_UnsupportedExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: "zipkin"})
	require.ErrorIs(t, err, ErrUnsupportedExporter)
	assert.Contains(t, err.Error(), `"zipkin"`)
}

func TestNewProvider_RecordsWithResource(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	p, err := NewProvider(context.Background(), Config{
		Enabled:        true,
		ServiceName:    "botcore",
		ServiceVersion: "v1.2.3",
		Environment:    "test",
		ExporterType:   ExporterNoop,
		SamplingRate:   1.0,
	}, WithSpanProcessor(rec))
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()
	require.True(t, p.Enabled())

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dispatch")
	require.True(t, span.IsRecording())
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Resource().Attributes()
	assert.Contains(t, attrs, attribute.String("service.name", "botcore"))
	assert.Contains(t, attrs, attribute.String("service.version", "v1.2.3"))
}

func TestNewProvider_SamplingRates(t *testing.T) {
	tests := []struct {
		name      string
		rate      float64
		recording bool
	}{
		{"always", 1.0, true},
		{"above one", 2.5, true},
		{"never", 0.0, false},
		{"negative", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: ExporterNoop, SamplingRate: tt.rate})
			require.NoError(t, err)
			defer func() { _ = p.Shutdown(context.Background()) }()

			_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "dispatch")
			defer span.End()
			assert.Equal(t, tt.recording, span.IsRecording())
		})
	}
}

func TestNewProvider_ChildFollowsParentDecision(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: ExporterNoop, SamplingRate: 0})
	require.NoError(t, err)
	defer func() { _ = p.Shutdown(context.Background()) }()

	parent := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), parent)
	_, span := p.TracerProvider().Tracer("test").Start(ctx, "listener")
	defer span.End()
	assert.True(t, span.IsRecording())
}

func TestProvider_ConcurrentShutdown(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Enabled: true, ExporterType: ExporterNoop, SamplingRate: 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Shutdown(context.Background())
		}()
	}
	wg.Wait()
}
