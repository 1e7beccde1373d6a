// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/botcore/internal/config"
	"github.com/ManuGH/botcore/internal/log"
)

// App owns the long-lived runtime lifecycle: config reloads, timers, the
// admin server and the optional console bot.
type App struct {
	logger       zerolog.Logger
	runtime      *Runtime
	static       config.AppConfig
	holder       *config.Holder
	console      *ConsoleBot
	logOutput    io.Writer
	reloadSignal os.Signal

	ready chan struct{}
	addr  net.Addr
}

// AppOption configures an App.
type AppOption func(*App)

// WithHolder makes the app follow a reloadable configuration instead of the
// static one.
func WithHolder(h *config.Holder) AppOption {
	return func(a *App) { a.holder = h }
}

// WithConsole runs bot against the manager alongside the daemon.
func WithConsole(bot *ConsoleBot) AppOption {
	return func(a *App) { a.console = bot }
}

// WithLogOutput is the writer a reloaded log configuration writes to.
func WithLogOutput(w io.Writer) AppOption {
	return func(a *App) { a.logOutput = w }
}

// NewApp creates the daemon orchestrator for rt configured by cfg.
func NewApp(logger zerolog.Logger, rt *Runtime, cfg config.AppConfig, opts ...AppOption) (*App, error) {
	if rt == nil {
		return nil, ErrMissingRuntime
	}
	a := &App{
		logger:       logger,
		runtime:      rt,
		static:       cfg,
		logOutput:    os.Stdout,
		reloadSignal: syscall.SIGHUP,
		ready:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) config() config.AppConfig {
	if a.holder == nil {
		return a.static
	}
	return a.holder.Get()
}

// Run starts all owned subsystems and blocks until ctx is cancelled, one of
// them fails or the console input ends, then shuts the runtime down.
func (a *App) Run(ctx context.Context) error {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)
	cfg := a.config()

	if a.holder != nil {
		// best effort: a missing watcher leaves SIGHUP and restarts
		if err := a.holder.StartWatcher(gctx); err != nil {
			a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
		}
		defer a.holder.Stop()

		updates := make(chan config.AppConfig, 1)
		a.holder.RegisterListener(updates)
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case next := <-updates:
					a.apply(next)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hup := make(chan os.Signal, 1)
				signal.Notify(hup, a.reloadSignal)
				defer signal.Stop(hup)
				for {
					select {
					case <-gctx.Done():
						return nil
					case <-hup:
						a.logger.Info().Str(log.FieldEvent, "config.reload_signal").Msg("received reload signal")
						if err := a.holder.Reload(gctx); err != nil {
							a.logger.Warn().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	a.runtime.Timers.Start()

	if cfg.HTTP.Enabled {
		srv := &http.Server{
			Handler:           NewRouter(a.runtime, a.config),
			ReadHeaderTimeout: 5 * time.Second,
		}
		ln, err := net.Listen("tcp", cfg.HTTP.Addr)
		if err != nil {
			_ = a.shutdown(ctx, cfg)
			return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
		}
		a.addr = ln.Addr()
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("admin server listening")

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("admin server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Manager.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	close(a.ready)
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if a.console != nil {
		g.Go(func() error {
			defer stop()
			err := a.console.Run(gctx, a.runtime.Manager)
			a.logger.Info().Msg("console input closed")
			return err
		})
	}

	err := g.Wait()
	if shutdownErr := a.shutdown(ctx, cfg); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	return err
}

func (a *App) shutdown(ctx context.Context, cfg config.AppConfig) error {
	a.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Manager.ShutdownTimeout)
	defer cancel()
	return a.runtime.Close(shutdownCtx)
}

// Ready is closed once every subsystem started.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr is the bound admin address, nil when the admin server is disabled.
// It is valid after Ready is closed.
func (a *App) Addr() net.Addr { return a.addr }

// apply hot-applies a reloaded configuration. Settings baked into the
// interceptor chain need a restart.
func (a *App) apply(next config.AppConfig) {
	log.Reconfigure(next.Log.ToLog(a.logOutput, a.runtime.version))
	if err := a.runtime.ApplyTimers(next.Timers); err != nil {
		a.logger.Error().Err(err).Str(log.FieldEvent, "config.timers_apply_failed").Msg("failed to apply timers")
	}
	a.logger.Info().Str(log.FieldEvent, "config.applied").Msg("applied reloaded configuration")
}
