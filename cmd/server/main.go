package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yegors/cdmx-flightboard/internal/api"
	"github.com/yegors/cdmx-flightboard/internal/app"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/dashboard"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/internal/physics"
	"github.com/yegors/cdmx-flightboard/internal/websocket"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
	"github.com/yegors/cdmx-flightboard/web"
)

var (
	// Version is injected at build time
	Version = "dev"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (optional - will search in configs/ and root directory)")
	simulate := flag.Bool("simulate", false, "Generate traffic locally instead of polling OpenSky")
	flag.Parse()

	// Load configuration with fallback logic
	cfg, err := config.LoadWithFallback(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	if *simulate {
		cfg.Simulation.Enabled = true
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := app.NewLogger(cfg.Logging, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting CDMX flight board",
		logger.String("version", Version),
		logger.String("config_path", *configPath),
	)

	if err := run(cfg, log); err != nil {
		log.Error("Server stopped with error", logger.Error(err))
		os.Exit(1)
	}
	log.Info("Server fully stopped")
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flightService, err := app.NewFlightService(cfg, log)
	if err != nil {
		return err
	}

	// Map surface: websocket hub plus the state mirrored to new clients
	wsServer := websocket.NewServer(log)
	surface := websocket.NewMapSurface(wsServer, websocket.MapInit{
		Center: physics.LatLon{Lat: cfg.Map.CenterLat, Lon: cfg.Map.CenterLon},
		Zoom:   cfg.Map.Zoom,
		Heat: websocket.HeatOptions{
			Radius:   cfg.Map.HeatRadius,
			Blur:     cfg.Map.HeatBlur,
			MaxZoom:  cfg.Map.HeatMaxZoom,
			Gradient: cfg.Map.HeatGradient,
		},
	}, log)
	wsServer.SetConnectHandler(surface.ReplayMessages)

	manager := layers.NewManager(surface, layers.ManagerConfig{
		SelectionZoom:   cfg.Map.SelectionZoom,
		HighlightRadius: cfg.Map.HighlightRadius,
		Colors:          cfg.Map.AltitudeColors,
	}, log)
	controller := dashboard.NewController(flightService, manager, surface, log)
	wsServer.SetMessageHandler(dashboard.NewWebSocketHandler(controller, wsServer, log))

	handler := api.NewHandler(flightService, controller, cfg, log)
	static := api.NewStaticFileHandler(cfg.Server.StaticFilesDir, web.Static(), log)
	router := api.NewRouter(handler, http.HandlerFunc(wsServer.HandleConnection), static, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeoutSecs) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// The hub must be running before anything broadcasts
	g.Go(func() error {
		wsServer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return controller.Run(gctx)
	})

	if err := flightService.Start(gctx); err != nil {
		stop()
		_ = g.Wait()
		return fmt.Errorf("failed to start flight service: %w", err)
	}

	g.Go(func() error {
		log.Info("Starting HTTP server", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		log.Info("Stopping flight service...")
		flightService.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", logger.Error(err))
		}
		log.Info("HTTP server shutdown complete")
		return nil
	})

	return g.Wait()
}
