// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
)

// ParseTimers parses BOTCORE_TIMERS.
// Form: "id=spec;id=spec", e.g. "heartbeat=@every 1m;daily=0 9 * * *".
// Entries are separated by ';' because cron specs contain spaces and commas.
func ParseTimers(raw string) ([]TimerConfig, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var out []TimerConfig
	seen := map[string]struct{}{}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, spec, ok := strings.Cut(part, "=")
		id, spec = strings.TrimSpace(id), strings.TrimSpace(spec)
		if !ok || id == "" || spec == "" {
			return nil, fmt.Errorf("invalid timer entry %q: want id=spec", part)
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate timer id %q", id)
		}
		seen[id] = struct{}{}
		out = append(out, TimerConfig{ID: id, Spec: spec})
	}
	return out, nil
}
