// Package app wires the polling pipeline from configuration
package app

import (
	"fmt"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/physics"
	"github.com/yegors/cdmx-flightboard/internal/simulation"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// declinationCacheSize bounds the number of memoized grid cells
const declinationCacheSize = 4096

// NewFlightService builds the state-vector source, normalizer and scheduler. It does not start polling.
func NewFlightService(cfg *config.Config, log *logger.Logger) (*adsb.Service, error) {
	fetcher := NewFetcher(cfg, log)

	airlines := adsb.NewAirlineDirectory()
	if cfg.ADSB.AirlineDBPath != "" {
		n, err := airlines.LoadFile(cfg.ADSB.AirlineDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load airline database: %w", err)
		}
		log.Info("Loaded airline database",
			logger.String("path", cfg.ADSB.AirlineDBPath),
			logger.Int("entries", n))
	}

	var declinations *physics.DeclinationCache
	if cfg.ADSB.MagneticTrack {
		var err error
		declinations, err = physics.NewDeclinationCache(declinationCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create declination cache: %w", err)
		}
	}

	normalizer := adsb.NewNormalizer(adsb.NormalizerConfig{
		Reference:             physics.LatLon{Lat: cfg.ADSB.ReferenceLat, Lon: cfg.ADSB.ReferenceLon},
		LowAltitudeThresholdM: cfg.ADSB.LowAltitudeThresholdM,
	}, airlines, declinations)

	return adsb.NewService(fetcher, normalizer, adsb.ServiceConfig{
		FetchInterval:    time.Duration(cfg.ADSB.FetchIntervalSecs) * time.Second,
		InitialDelay:     time.Duration(cfg.ADSB.InitialDelayMs) * time.Millisecond,
		SubscriberBuffer: cfg.ADSB.SubscriberBuffer,
	}, log), nil
}

// NewFetcher returns the OpenSky client, or the simulated source when simulation is enabled
func NewFetcher(cfg *config.Config, log *logger.Logger) adsb.Fetcher {
	bbox := adsb.BoundingBox{
		Lamin: cfg.OpenSky.Lamin,
		Lomin: cfg.OpenSky.Lomin,
		Lamax: cfg.OpenSky.Lamax,
		Lomax: cfg.OpenSky.Lomax,
	}

	if cfg.Simulation.Enabled {
		log.Info("Using simulated traffic", logger.Int("aircraft", cfg.Simulation.Aircraft))
		return simulation.NewFetcher(simulation.Config{
			Aircraft: cfg.Simulation.Aircraft,
			BBox:     bbox,
			Seed:     cfg.Simulation.Seed,
		}, log)
	}

	return adsb.NewClient(adsb.ClientConfig{
		APIURL:      cfg.OpenSky.APIURL,
		ProxyPrefix: cfg.OpenSky.ProxyPrefix,
		UserAgent:   cfg.OpenSky.UserAgent,
		BBox:        bbox,
		Timeout:     time.Duration(cfg.OpenSky.RequestTimeoutSecs) * time.Second,
	}, log)
}

// NewLogger builds the logger described by the logging section
func NewLogger(cfg config.LoggingConfig, noConsole bool) (*logger.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		NoConsole:  noConsole,
	})
}
