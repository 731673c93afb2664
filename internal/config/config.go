package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server  ServerConfig  `toml:"server"`  // HTTP server settings
	OpenSky OpenSkyConfig `toml:"opensky"` // Remote flight-state endpoint settings
	ADSB    ADSBConfig    `toml:"adsb"`    // Polling and normalization settings
	Map     MapConfig     `toml:"map"`     // Map surface settings sent to browsers
	Logging LoggingConfig `toml:"logging"` // Application logging settings
	TUI     TUIConfig     `toml:"tui"`     // Terminal dashboard settings

	Simulation SimulationConfig `toml:"simulation"` // Offline generated traffic
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int    `toml:"port"`                  // HTTP port for the server
	Host             string `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int    `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	StaticFilesDir   string `toml:"static_files_dir"`      // Directory to serve the web client from (empty = embedded client)
}

// OpenSkyConfig describes where and how state vectors are fetched
type OpenSkyConfig struct {
	APIURL      string `toml:"api_url"`      // states/all endpoint
	ProxyPrefix string `toml:"proxy_prefix"` // Prepended to the full request URL (CORS relay). Empty = direct
	UserAgent   string `toml:"user_agent"`   // User-Agent header sent with each request

	// Bounding box (degrees)
	Lamin float64 `toml:"lamin"`
	Lomin float64 `toml:"lomin"`
	Lamax float64 `toml:"lamax"`
	Lomax float64 `toml:"lomax"`

	RequestTimeoutSecs int `toml:"request_timeout_seconds"` // Per-request timeout; elapsed requests are reported as timeouts
}

// ADSBConfig contains polling and normalization settings
type ADSBConfig struct {
	FetchIntervalSecs     int     `toml:"fetch_interval_seconds"`   // Fixed polling interval
	InitialDelayMs        int     `toml:"initial_delay_ms"`         // Delay before the first fetch after startup
	LowAltitudeThresholdM float64 `toml:"low_altitude_threshold_m"` // Below this (meters) a flight is flagged low altitude
	ReferenceLat          float64 `toml:"reference_lat"`            // Distance reference point
	ReferenceLon          float64 `toml:"reference_lon"`
	AirlineDBPath         string  `toml:"airline_db_path"` // Optional JSON file extending the built-in airline table
	MagneticTrack         bool    `toml:"magnetic_track"`  // Derive magnetic track from the WMM declination
	SubscriberBuffer      int     `toml:"subscriber_buffer"`
}

// MapConfig carries the visual defaults for browser clients
type MapConfig struct {
	CenterLat       float64            `toml:"center_lat"`
	CenterLon       float64            `toml:"center_lon"`
	Zoom            int                `toml:"zoom"`             // Initial zoom
	SelectionZoom   int                `toml:"selection_zoom"`   // Zoom applied when a flight gets selected
	HighlightRadius int                `toml:"highlight_radius"` // Highlight circle radius in pixels
	HeatRadius      int                `toml:"heat_radius"`
	HeatBlur        int                `toml:"heat_blur"`
	HeatMaxZoom     int                `toml:"heat_max_zoom"`
	HeatGradient    map[string]string  `toml:"heat_gradient"` // stop ("0.4") -> colour
	AltitudeColors  AltitudeColorTable `toml:"altitude_colors"`
}

// AltitudeColorTable maps the altitude bands to marker colours
type AltitudeColorTable struct {
	Level1     string `toml:"level_1"` // <= 2000 ft
	Level2     string `toml:"level_2"` // <= 6000 ft
	Level3     string `toml:"level_3"` // <= 12000 ft
	Level4     string `toml:"level_4"` // <= 20000 ft
	Level5     string `toml:"level_5"` // above
	Level      string `toml:"level"`   // altitude unknown / level flight
	Climbing   string `toml:"climbing"`
	Descending string `toml:"descending"`
}

// LoggingConfig contains application logging settings
type LoggingConfig struct {
	Level      string `toml:"level"`  // debug, info, warn, error
	Format     string `toml:"format"` // console or json
	File       string `toml:"file"`   // Optional rotating log file
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// TUIConfig contains terminal dashboard settings
type TUIConfig struct {
	NotifyLowAltitude bool `toml:"notify_low_altitude"` // Desktop notification when a new low-altitude flight appears
	TableHeight       int  `toml:"table_height"`
}

// SimulationConfig replaces the OpenSky client with generated traffic
type SimulationConfig struct {
	Enabled  bool  `toml:"enabled"`
	Aircraft int   `toml:"aircraft"` // Number of concurrent simulated flights
	Seed     int64 `toml:"seed"`     // 0 = seed from the clock
}

// Default returns the built-in configuration. Every value matches the
// behaviour of the dashboard when no config file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "0.0.0.0",
			ReadTimeoutSecs:  15,
			WriteTimeoutSecs: 15,
			IdleTimeoutSecs:  60,
		},
		OpenSky: OpenSkyConfig{
			APIURL:             "https://opensky-network.org/api/states/all",
			ProxyPrefix:        "https://cors.eu.org/",
			UserAgent:          "cdmx-flightboard/1.0",
			Lamin:              19.0,
			Lomin:              -99.9,
			Lamax:              19.8,
			Lomax:              -98.5,
			RequestTimeoutSecs: 30,
		},
		ADSB: ADSBConfig{
			FetchIntervalSecs:     120,
			InitialDelayMs:        1000,
			LowAltitudeThresholdM: 3048, // 10,000 ft
			ReferenceLat:          19.4326,
			ReferenceLon:          -99.1332,
			MagneticTrack:         true,
			SubscriberBuffer:      1,
		},
		Map: MapConfig{
			CenterLat:       19.4326,
			CenterLon:       -99.1332,
			Zoom:            9,
			SelectionZoom:   11,
			HighlightRadius: 20,
			HeatRadius:      30,
			HeatBlur:        20,
			HeatMaxZoom:     12,
			HeatGradient: map[string]string{
				"0.4":  "blue",
				"0.65": "#38b2ac",
				"1":    "red",
			},
			AltitudeColors: AltitudeColorTable{
				Level1:     "#f6e05e",
				Level2:     "#f6ad55",
				Level3:     "#68d391",
				Level4:     "#63b3ed",
				Level5:     "#b794f4",
				Level:      "#a0aec0",
				Climbing:   "#48bb78",
				Descending: "#f56565",
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  32,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
		TUI: TUIConfig{
			TableHeight: 20,
		},
		Simulation: SimulationConfig{
			Aircraft: 12,
		},
	}
}

// Load loads the configuration from a TOML file on top of the defaults
func Load(path string) (*Config, error) {
	config := Default()

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference.
// When none of them exists the built-in defaults are returned. An explicitly requested path
// that is missing is still an error.
func LoadWithFallback(preferredPath string) (*Config, error) {
	if preferredPath != "" {
		if _, err := os.Stat(preferredPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", preferredPath)
		}
		return Load(preferredPath)
	}

	searchPaths := []string{
		"configs/config.toml",
		"config.toml",
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			return config, nil
		}
	}

	return Default(), nil
}

// Validate fills unset values with defaults and rejects invalid ones
func (c *Config) Validate() error {
	def := Default()

	// Server
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.Host == "" {
		c.Server.Host = def.Server.Host
	}

	// OpenSky
	if c.OpenSky.APIURL == "" {
		return fmt.Errorf("opensky.api_url is required")
	}
	if err := c.ValidateBoundingBox(); err != nil {
		return err
	}
	if c.OpenSky.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("invalid request_timeout_seconds: %d (must be > 0)", c.OpenSky.RequestTimeoutSecs)
	}

	// Polling
	if c.ADSB.FetchIntervalSecs <= 0 {
		return fmt.Errorf("invalid fetch_interval_seconds: %d (must be > 0)", c.ADSB.FetchIntervalSecs)
	}
	if c.ADSB.FetchIntervalSecs <= c.OpenSky.RequestTimeoutSecs {
		return fmt.Errorf("fetch_interval_seconds (%d) must exceed request_timeout_seconds (%d)",
			c.ADSB.FetchIntervalSecs, c.OpenSky.RequestTimeoutSecs)
	}
	if c.ADSB.InitialDelayMs < 0 {
		return fmt.Errorf("invalid initial_delay_ms: %d", c.ADSB.InitialDelayMs)
	}
	if c.ADSB.LowAltitudeThresholdM <= 0 {
		return fmt.Errorf("invalid low_altitude_threshold_m: %f (must be > 0)", c.ADSB.LowAltitudeThresholdM)
	}
	if !validLatLon(c.ADSB.ReferenceLat, c.ADSB.ReferenceLon) {
		return fmt.Errorf("invalid reference point: %f,%f", c.ADSB.ReferenceLat, c.ADSB.ReferenceLon)
	}
	if c.ADSB.SubscriberBuffer <= 0 {
		c.ADSB.SubscriberBuffer = def.ADSB.SubscriberBuffer
	}

	// Map
	if !validLatLon(c.Map.CenterLat, c.Map.CenterLon) {
		return fmt.Errorf("invalid map center: %f,%f", c.Map.CenterLat, c.Map.CenterLon)
	}
	if c.Map.Zoom <= 0 {
		c.Map.Zoom = def.Map.Zoom
	}
	if c.Map.SelectionZoom <= 0 {
		c.Map.SelectionZoom = def.Map.SelectionZoom
	}
	if c.Map.HighlightRadius <= 0 {
		c.Map.HighlightRadius = def.Map.HighlightRadius
	}
	if len(c.Map.HeatGradient) == 0 {
		c.Map.HeatGradient = def.Map.HeatGradient
	}

	// Logging
	switch c.Logging.Level {
	case "":
		c.Logging.Level = def.Logging.Level
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}

	if c.TUI.TableHeight <= 0 {
		c.TUI.TableHeight = def.TUI.TableHeight
	}

	if c.Simulation.Aircraft <= 0 {
		c.Simulation.Aircraft = def.Simulation.Aircraft
	}

	return nil
}

// ValidateBoundingBox checks the OpenSky bounding box is ordered and within range
func (c *Config) ValidateBoundingBox() error {
	o := c.OpenSky
	if !validLatLon(o.Lamin, o.Lomin) || !validLatLon(o.Lamax, o.Lomax) {
		return fmt.Errorf("bounding box out of range: lamin=%f lomin=%f lamax=%f lomax=%f", o.Lamin, o.Lomin, o.Lamax, o.Lomax)
	}
	if o.Lamin >= o.Lamax {
		return fmt.Errorf("bounding box latitude not ordered: lamin=%f lamax=%f", o.Lamin, o.Lamax)
	}
	if o.Lomin >= o.Lomax {
		return fmt.Errorf("bounding box longitude not ordered: lomin=%f lomax=%f", o.Lomin, o.Lomax)
	}
	return nil
}

func validLatLon(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
