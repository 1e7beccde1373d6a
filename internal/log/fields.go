// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldCorrelationID = "correlation_id"
	FieldBotID         = "bot_id"
	FieldEventID       = "event_id"
	FieldEventKey      = "event_key"
	FieldListenerID    = "listener_id"
	FieldTaskID        = "task_id"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"

	// Build fields
	FieldService = "service"
	FieldVersion = "version"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldManager   = "manager"
	FieldPoint     = "point"
	FieldOutcome   = "outcome"
	FieldDuration  = "duration"
	FieldListeners = "listeners"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path fields
	FieldPath = "path"
)
