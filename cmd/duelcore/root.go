package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/nathoo/duelcore/engine"
	"github.com/nathoo/duelcore/internal/config"
	"github.com/nathoo/duelcore/internal/logging"
	"github.com/nathoo/duelcore/internal/metrics"
	"github.com/nathoo/duelcore/loader"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:           "duelcore",
	Short:         "duelcore is a deterministic rules engine for turn-based card duels",
	Long:          `duelcore loads a Lua scenario, plays it from the terminal or a script, and exports replays that reproduce the match exactly.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "YAML config file")
}

// app bundles what every subcommand needs once flags are parsed.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	recorder *metrics.Recorder
	server   *http.Server
}

func setup(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	rt := &app{
		cfg:      cfg,
		log:      logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.LogLevel), cfg.LogFormat),
		recorder: metrics.NewRecorder(),
	}
	if cfg.MetricsAddr != "" {
		rt.server = rt.recorder.Server(cfg.MetricsAddr)
		go func() {
			if err := rt.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				rt.log.Error("metrics server stopped", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		rt.log.Info("serving metrics", "addr", cfg.MetricsAddr)
	}
	return rt, nil
}

func (rt *app) close() {
	if rt.server != nil {
		_ = rt.server.Shutdown(context.Background())
	}
}

// engineFor loads a scenario and builds an engine for it, reporting warnings
// on the logger.
func (rt *app) engineFor(path string) (*loader.Scenario, *engine.Engine, error) {
	sc, err := loader.Load(path)
	if err != nil {
		return nil, nil, err
	}
	for _, w := range sc.Warnings {
		rt.log.Warn("scenario warning", "scenario", sc.Name, "warning", w)
	}
	if sc.MaxSteps == 0 {
		sc.MaxSteps = rt.cfg.MaxSteps
	}
	eng, err := sc.NewEngine(
		engine.WithLogger(rt.log),
		engine.WithCycleHistory(rt.cfg.CycleHistory),
	)
	if err != nil {
		return nil, nil, err
	}
	rt.recorder.Attach(eng.Notifier())
	return sc, eng, nil
}
