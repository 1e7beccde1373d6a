// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/daemon"
	"github.com/ManuGH/botcore/internal/log"
	"github.com/ManuGH/botcore/internal/version"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "config":
			os.Exit(runConfigCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	console := flag.Bool("console", false, "read messages from stdin and print replies")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}
	os.Exit(run(strings.TrimSpace(*configPath), *console))
}

func run(configPath string, console bool) int {
	// safe defaults until the configuration is loaded
	log.Configure(log.Config{Level: "info", Service: "botcore", Version: version.Version})
	logger := log.WithComponent("main")

	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldEvent, "config.load_failed").
			Str(log.FieldPath, configPath).
			Msg("failed to load configuration")
		return 1
	}
	log.Reconfigure(cfg.Log.ToLog(os.Stdout, version.Version))
	logger = log.WithComponent("main")

	source := "env+defaults"
	if configPath != "" {
		source = "file"
	}
	logger.Info().
		Str(log.FieldEvent, "config.loaded").
		Str("source", source).
		Str("version", version.Version).
		Msg("loaded configuration")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := daemon.Build(ctx, cfg, daemon.Options{
		Version:   version.Version,
		Listeners: daemon.BuiltinListeners(log.WithComponent("listeners")),
	})
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "runtime.build_failed").Msg("failed to assemble runtime")
		return 1
	}

	opts := []daemon.AppOption{daemon.WithLogOutput(os.Stdout)}
	if configPath != "" {
		opts = append(opts, daemon.WithHolder(config.NewHolder(cfg, loader)))
	}
	if console {
		opts = append(opts, daemon.WithConsole(daemon.NewConsoleBot(os.Stdin, os.Stdout, log.WithComponent("console"))))
	}
	app, err := daemon.NewApp(logger, rt, cfg, opts...)
	if err != nil {
		_ = rt.Close(context.Background())
		logger.Error().Err(err).Msg("failed to create app")
		return 1
	}

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return 1
	}
	logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return 0
}
