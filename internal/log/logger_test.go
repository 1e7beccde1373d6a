// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestReconfigure_ServiceAndComponent(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf, Level: "debug", Service: "botcore-test"})
	defer Reconfigure(Config{})

	l := WithComponent("manager")
	l.Debug().Str(FieldEvent, "dispatch.start").Msg("dispatching")

	entry := decode(t, &buf)
	if entry["service"] != "botcore-test" {
		t.Errorf("service = %v", entry["service"])
	}
	if entry[FieldComponent] != "manager" {
		t.Errorf("component = %v", entry[FieldComponent])
	}
	if entry[FieldEvent] != "dispatch.start" {
		t.Errorf("event = %v", entry[FieldEvent])
	}
}

func TestReconfigure_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf, Level: "warn"})
	defer Reconfigure(Config{})

	l := Base()
	l.Info().Msg("dropped")
	l.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info line should be filtered at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("warn line missing")
	}
}

func TestReconfigure_VersionAndEnvFallbacks(t *testing.T) {
	t.Setenv("BOTCORE_LOG_SERVICE", "from-env")
	t.Setenv("BOTCORE_LOG_LEVEL", "error")
	var buf bytes.Buffer
	Reconfigure(Config{Output: &buf, Version: "v9.9.9"})
	defer Reconfigure(Config{})

	l := Base()
	l.Warn().Msg("dropped")
	l.Error().Msg("kept")

	entry := decode(t, &buf)
	if entry[FieldService] != "from-env" {
		t.Errorf("service = %v", entry[FieldService])
	}
	if entry[FieldVersion] != "v9.9.9" {
		t.Errorf("version = %v", entry[FieldVersion])
	}
	if entry["message"] != "kept" {
		t.Errorf("message = %v, want the error line only", entry["message"])
	}
}

func TestResolveLevel(t *testing.T) {
	t.Setenv("BOTCORE_LOG_LEVEL", "")
	tests := map[string]string{
		"debug":    "debug",
		"WARN":     "warn",
		"bogus":    "info",
		"":         "info",
		"trace":    "trace",
		"error":    "error",
		"disabled": "disabled",
	}
	for in, want := range tests {
		if got := resolveLevel(in).String(); got != want {
			t.Errorf("resolveLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
