package main

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/fmachado/driveplane/internal/appconfig"
	"github.com/fmachado/driveplane/internal/controlplane"
	"github.com/fmachado/driveplane/internal/duration"
	"github.com/fmachado/driveplane/internal/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run control ticks on a schedule",
	Long: `Serve runs a control tick at the configured scheduler interval until
interrupted. Each tick gets a fresh DAG run ID unless one was given.
When scheduler.metrics_listen is set, Prometheus metrics are exposed
on /metrics. Edits to the config file are picked up between ticks.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		intervalSec, err := duration.Parse(appCfg.Scheduler.Interval)
		if err != nil {
			return fmt.Errorf("parse scheduler interval %q: %w", appCfg.Scheduler.Interval, err)
		}
		interval := time.Duration(intervalSec) * time.Second

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)

		if addr := appCfg.Scheduler.MetricsListen; addr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: addr, Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error().Err(err).Msg("metrics listener failed")
				}
			}()
			defer srv.Close()
			logger.Info().Str("addr", addr).Msg("metrics listener started")
		}

		reload := make(chan struct{}, 1)
		if cfgFile != "" {
			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			defer watcher.Close()
			// Watch the directory: editors replace the file on save.
			if err := watcher.Add(filepath.Dir(cfgFile)); err != nil {
				return fmt.Errorf("watch config: %w", err)
			}
			go func() {
				for {
					select {
					case ev, ok := <-watcher.Events:
						if !ok {
							return
						}
						if filepath.Base(ev.Name) == filepath.Base(cfgFile) &&
							ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
							select {
							case reload <- struct{}{}:
							default:
							}
						}
					case werr, ok := <-watcher.Errors:
						if !ok {
							return
						}
						logger.Warn().Err(werr).Msg("config watcher error")
					case <-ctx.Done():
						return
					}
				}
			}()
		}

		tick := func() {
			id := runID()
			cfg := appCfg.Core(id)
			runner := controlplane.New(cfg, buildProbes(cfg), buildMailer(), m, logger)
			if _, err := runner.RunTick(ctx); err != nil {
				logger.Error().Err(err).Str("dag_run_id", id).Msg("tick failed")
			}
		}

		logger.Info().Dur("interval", interval).Msg("scheduler started")
		tick()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info().Msg("shutting down")
				return nil
			case <-reload:
				fresh, err := appconfig.Load(cfgFile)
				if err != nil {
					logger.Error().Err(err).Msg("config reload failed, keeping previous config")
					continue
				}
				appCfg = fresh
				logger.Info().Msg("configuration reloaded")
			case <-ticker.C:
				tick()
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
