package adsb

import (
	"time"

	"github.com/yegors/cdmx-flightboard/internal/physics"
)

// FlightStatus is the derived flight phase shown in tooltips and the table
type FlightStatus string

const (
	StatusGrounded   FlightStatus = "Grounded"
	StatusClimbing   FlightStatus = "Climbing"
	StatusDescending FlightStatus = "Descending"
	StatusCruising   FlightStatus = "Cruising"
)

// FlightRecord is one normalized aircraft for the current cycle
type FlightRecord struct {
	ICAO24        string       `json:"icao24"`
	Callsign      string       `json:"callsign"`
	Airline       string       `json:"airline"`
	OriginCountry string       `json:"origin_country"`
	Longitude     float64      `json:"longitude"`
	Latitude      float64      `json:"latitude"`
	Altitude      *float64     `json:"altitude"` // barometric, meters
	GeoAltitude   *float64     `json:"geo_altitude"`
	Velocity      *float64     `json:"velocity"`   // m/s
	TrueTrack     *float64     `json:"true_track"` // degrees
	MagneticTrack *float64     `json:"magnetic_track"`
	VerticalRate  float64      `json:"vertical_rate"` // m/s, 0 when not reported
	OnGround      bool         `json:"on_ground"`
	Squawk        *string      `json:"squawk"`
	LastContact   int64        `json:"last_contact"` // unix seconds
	DistanceNmi   float64      `json:"distance_nmi"`
	Status        FlightStatus `json:"status"`
	IsLowAltitude bool         `json:"is_low_altitude"`
}

// Position returns the record's coordinates
func (f FlightRecord) Position() physics.LatLon {
	return physics.LatLon{Lat: f.Latitude, Lon: f.Longitude}
}

// Track returns the true track, or 0 when not reported
func (f FlightRecord) Track() float64 {
	if f.TrueTrack == nil {
		return 0
	}
	return *f.TrueTrack
}

// FetchStatus is the state of the polling pipeline
type FetchStatus string

const (
	FetchIdle      FetchStatus = "idle"
	FetchLoading   FetchStatus = "loading"
	FetchSucceeded FetchStatus = "success"
	FetchFailed    FetchStatus = "error"
)

// Snapshot is an immutable view of the pipeline published after every change.
// Flights is shared between all subscribers and must not be modified.
type Snapshot struct {
	Flights     []FlightRecord `json:"flights"`
	Status      FetchStatus    `json:"status"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Error       *FetchError    `json:"error,omitempty"`
	NextFetchAt time.Time      `json:"next_fetch_at"`
	Countdown   int            `json:"countdown"` // seconds, display only
	Sequence    uint64         `json:"sequence"`
	Cycle       uint64         `json:"cycle"` // bumps only when a new record set is installed
}

// Find returns the flight with the given key
func (s Snapshot) Find(icao24 string) (FlightRecord, bool) {
	for _, f := range s.Flights {
		if f.ICAO24 == icao24 {
			return f, true
		}
	}
	return FlightRecord{}, false
}

// ErrorMessage returns the human readable error, or "" when there is none
func (s Snapshot) ErrorMessage() string {
	if s.Error == nil {
		return ""
	}
	return s.Error.Message()
}
