// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Event attributes
	EventKeyKey = "event.key"
	EventIDKey  = "event.id"
	BotIDKey    = "bot.id"

	// Dispatch attributes
	DispatchListenersKey = "dispatch.listeners"
	DispatchResultsKey   = "dispatch.results"
	DispatchAsyncKey     = "dispatch.async"
	ManagerNameKey       = "manager.name"

	// Timer attributes
	TimerTaskKey = "timer.task"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// EventAttributes creates span attributes identifying an event.
func EventAttributes(key, eventID, botID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if key != "" {
		attrs = append(attrs, attribute.String(EventKeyKey, key))
	}
	if eventID != "" {
		attrs = append(attrs, attribute.String(EventIDKey, eventID))
	}
	if botID != "" {
		attrs = append(attrs, attribute.String(BotIDKey, botID))
	}
	return attrs
}

// DispatchAttributes creates span attributes for one dispatch.
func DispatchAttributes(manager string, listeners int, async bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(ManagerNameKey, manager),
		attribute.Int(DispatchListenersKey, listeners),
		attribute.Bool(DispatchAsyncKey, async),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
