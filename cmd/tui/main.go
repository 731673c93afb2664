// Package main runs the terminal flight board
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/app"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/dashboard"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/internal/tui"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

const (
	// thisAppName is the name of this application as shown on notifications.
	thisAppName = "cdmx-flightboard"
)

func main() {
	var (
		argConfigPath string
		argNotify     bool
		argNoProxy    bool
		argSimulate   bool
	)
	setupCommandLineFlags(&argConfigPath, &argNotify, &argNoProxy, &argSimulate)
	pflag.Parse()

	cfg, err := config.LoadWithFallback(argConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if argNoProxy {
		cfg.OpenSky.ProxyPrefix = ""
	}
	if argSimulate {
		cfg.Simulation.Enabled = true
	}
	if pflag.Lookup("notify").Changed {
		cfg.TUI.NotifyLowAltitude = argNotify
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the dashboard, so logs only go to the configured file
	log, err := app.NewLogger(cfg.Logging, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	service, err := app.NewFlightService(cfg, log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The terminal surface stands in for the map; the controller owns all view state
	surface := tui.NewSurface()
	manager := layers.NewManager(surface, layers.ManagerConfig{
		SelectionZoom:   cfg.Map.SelectionZoom,
		HighlightRadius: cfg.Map.HighlightRadius,
		Colors:          cfg.Map.AltitudeColors,
	}, log)
	controller := dashboard.NewController(service, manager, surface, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return controller.Run(gctx)
	})

	var notifier tui.Notifier
	if cfg.TUI.NotifyLowAltitude {
		notifier = tui.NewDesktopNotifier(thisAppName)
	}
	model := tui.New(controller, surface, service, notifier, tui.Options{
		TableHeight:       cfg.TUI.TableHeight,
		NotifyLowAltitude: cfg.TUI.NotifyLowAltitude,
		Area: adsb.BoundingBox{
			Lamin: cfg.OpenSky.Lamin,
			Lomin: cfg.OpenSky.Lomin,
			Lamax: cfg.OpenSky.Lamax,
			Lomax: cfg.OpenSky.Lomax,
		},
	}, log)

	if err := service.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return fmt.Errorf("failed to start flight service: %w", err)
	}

	runErr := tui.Run(model)

	service.Stop()
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return runErr
}

func setupCommandLineFlags(argConfigPath *string, argNotify, argNoProxy, argSimulate *bool) {
	pflag.StringVarP(
		argConfigPath,
		"config",
		"c",
		"",
		"path to the configuration file")

	// Desktop notification when a new low-altitude flight appears
	pflag.BoolVarP(
		argNotify,
		"notify",
		"n",
		false,
		"notify when a new low-altitude flight appears")
	pflag.Lookup("notify").NoOptDefVal = "true"

	pflag.BoolVar(
		argNoProxy,
		"no-proxy",
		false,
		"query OpenSky directly instead of through the proxy prefix")

	pflag.BoolVarP(
		argSimulate,
		"simulate",
		"s",
		false,
		"generate traffic locally instead of polling OpenSky")
}
