// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestContextIDs(t *testing.T) {
	tests := []struct {
		name string
		set  func(context.Context, string) context.Context
		get  func(context.Context) string
		ctx  context.Context
		id   string
	}{
		{"correlation nil context", ContextWithCorrelationID, CorrelationIDFromContext, nil, "corr-1"},
		{"bot background", ContextWithBotID, BotIDFromContext, context.Background(), "bot-1"},
		{"event background", ContextWithEventID, EventIDFromContext, context.Background(), "ev-1"},
		{"empty id", ContextWithEventID, EventIDFromContext, context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := tt.set(tt.ctx, tt.id)
			if got := tt.get(ctx); got != tt.id {
				t.Errorf("got %q, want %q", got, tt.id)
			}
		})
	}
}

func TestIDFromContextEmpty(t *testing.T) {
	if got := BotIDFromContext(nil); got != "" { //nolint:staticcheck // nil context is supported
		t.Errorf("BotIDFromContext(nil) = %q", got)
	}
	wrongType := context.WithValue(context.Background(), eventIDKey, 123)
	if got := EventIDFromContext(wrongType); got != "" {
		t.Errorf("EventIDFromContext(wrong type) = %q", got)
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	baseLogger := zerolog.New(&buf)

	ctx := ContextWithBotID(context.Background(), "bot-7")
	ctx = ContextWithEventID(ctx, "ev-9")
	logger := WithContext(ctx, baseLogger)
	logger.Info().Msg("dispatch")

	entry := decode(t, &buf)
	if entry[FieldBotID] != "bot-7" {
		t.Errorf("bot_id = %v", entry[FieldBotID])
	}
	if entry[FieldEventID] != "ev-9" {
		t.Errorf("event_id = %v", entry[FieldEventID])
	}
	if _, ok := entry[FieldCorrelationID]; ok {
		t.Error("unexpected correlation_id")
	}

	// Empty context should return original logger
	plain := WithContext(context.Background(), baseLogger)
	if plain.GetLevel() != baseLogger.GetLevel() {
		t.Error("Logger level should be preserved")
	}
}

func TestWithComponentFromContext(t *testing.T) {
	logger := WithComponentFromContext(context.Background(), "test-component")
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from WithComponentFromContext")
	}
}

func TestDerive(t *testing.T) {
	logger1 := Derive(nil)
	if logger1.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from Derive with nil builder")
	}

	logger2 := Derive(func(ctx *zerolog.Context) {
		ctx.Str("custom_field", "test_value")
	})
	if logger2.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger from Derive with custom builder")
	}
}

func TestWithTraceContext(t *testing.T) {
	noopTracer := noop.NewTracerProvider().Tracer("test")
	ctx, span := noopTracer.Start(context.Background(), "test-span")
	defer span.End()

	logger := WithTraceContext(ctx)
	if logger.GetLevel() > zerolog.PanicLevel {
		t.Error("Expected valid logger with noop span")
	}

	t.Run("WithValidSpan", func(t *testing.T) {
		traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
		spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
		spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
			TraceID:    traceID,
			SpanID:     spanID,
			TraceFlags: trace.FlagsSampled,
		})
		ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

		var buf bytes.Buffer
		Reconfigure(Config{Output: &buf, Level: "info"})
		defer Reconfigure(Config{})

		logger := WithTraceContext(ctx)
		logger.Info().Msg("test with trace")

		entry := decode(t, &buf)
		if entry[FieldTraceID] != "4bf92f3577b34da6a3ce929d0e0e4736" {
			t.Errorf("trace_id = %v", entry[FieldTraceID])
		}
		if entry[FieldSpanID] != "00f067aa0ba902b7" {
			t.Errorf("span_id = %v", entry[FieldSpanID])
		}
	})
}
