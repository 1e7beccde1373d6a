// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/botcore/internal/log"
)

const redacted = "***redacted***"

// Marshal renders cfg as YAML accepted by the loader.
func Marshal(cfg AppConfig) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return out, nil
}

// WriteFile atomically replaces path with cfg. Readers never observe a
// partially written file.
func WriteFile(path string, cfg AppConfig) error {
	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			logger := log.WithComponent("config")
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if _, err := pending.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}
	return nil
}

// InitFile writes an example configuration to path. It refuses to overwrite
// an existing file unless force is set.
func InitFile(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	return WriteFile(path, Example())
}

// Example is the default configuration plus a sample timer.
func Example() AppConfig {
	cfg := Default()
	cfg.Timers = []TimerConfig{{ID: "heartbeat", Spec: "@every 1m"}}
	return cfg
}

// Redacted returns a copy of cfg with secrets masked, for display.
func (c AppConfig) Redacted() AppConfig {
	if c.Dedupe.Redis.Password != "" {
		c.Dedupe.Redis.Password = redacted
	}
	c.Timers = append([]TimerConfig(nil), c.Timers...)
	return c
}
