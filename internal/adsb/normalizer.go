package adsb

import (
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/physics"
)

const (
	// DefaultLowAltitudeThresholdM is 10,000 ft
	DefaultLowAltitudeThresholdM = 3048.0

	// verticalRateDeadBand separates climbing/descending from cruising (m/s, exclusive)
	verticalRateDeadBand = 0.5

	missingCallsign = "N/A"
)

// ReferencePoint is the Mexico City centre used for distances
var ReferencePoint = physics.LatLon{Lat: 19.4326, Lon: -99.1332}

// NormalizerConfig configures the derived fields
type NormalizerConfig struct {
	Reference             physics.LatLon
	LowAltitudeThresholdM float64
}

// Normalizer turns raw state vectors into flight records
type Normalizer struct {
	reference    physics.LatLon
	lowAltitude  float64
	airlines     *AirlineDirectory
	declinations *physics.DeclinationCache // nil disables magnetic track
	now          func() time.Time
}

// NewNormalizer creates a normalizer. declinations may be nil.
func NewNormalizer(cfg NormalizerConfig, airlines *AirlineDirectory, declinations *physics.DeclinationCache) *Normalizer {
	if cfg.LowAltitudeThresholdM <= 0 {
		cfg.LowAltitudeThresholdM = DefaultLowAltitudeThresholdM
	}
	if airlines == nil {
		airlines = NewAirlineDirectory()
	}
	return &Normalizer{
		reference:    cfg.Reference,
		lowAltitude:  cfg.LowAltitudeThresholdM,
		airlines:     airlines,
		declinations: declinations,
		now:          time.Now,
	}
}

// Normalize lazily maps a sequence of raw vectors to flight records, dropping vectors
// without a position or callsign and any repeated icao24 after its first occurrence.
func (n *Normalizer) Normalize(states iter.Seq[RawStateVector]) iter.Seq[FlightRecord] {
	return func(yield func(FlightRecord) bool) {
		seen := make(map[string]struct{})
		for v := range states {
			rec, ok := n.Record(v)
			if !ok {
				continue
			}
			if _, dup := seen[rec.ICAO24]; dup {
				continue
			}
			seen[rec.ICAO24] = struct{}{}
			if !yield(rec) {
				return
			}
		}
	}
}

// NormalizeAll collects Normalize over a slice
func (n *Normalizer) NormalizeAll(states []RawStateVector) []FlightRecord {
	flights := slices.Collect(n.Normalize(slices.Values(states)))
	if flights == nil {
		flights = []FlightRecord{}
	}
	return flights
}

// Record normalizes a single vector. It reports false when the vector cannot be shown.
func (n *Normalizer) Record(v RawStateVector) (FlightRecord, bool) {
	if v.ICAO24 == "" || v.Latitude == nil || v.Longitude == nil || v.Callsign == nil {
		return FlightRecord{}, false
	}

	callsign := strings.TrimSpace(*v.Callsign)
	if callsign == "" {
		callsign = missingCallsign
	}

	verticalRate := 0.0
	if v.VerticalRate != nil {
		verticalRate = *v.VerticalRate
	}

	rec := FlightRecord{
		ICAO24:        v.ICAO24,
		Callsign:      callsign,
		Airline:       n.airlines.Resolve(callsign),
		OriginCountry: v.OriginCountry,
		Longitude:     *v.Longitude,
		Latitude:      *v.Latitude,
		Altitude:      v.BaroAltitude,
		GeoAltitude:   v.GeoAltitude,
		Velocity:      v.Velocity,
		TrueTrack:     v.TrueTrack,
		VerticalRate:  verticalRate,
		OnGround:      v.OnGround,
		Squawk:        v.Squawk,
		LastContact:   v.LastContact,
		Status:        ClassifyStatus(v.OnGround, verticalRate),
		IsLowAltitude: IsLowAltitude(v.BaroAltitude, n.lowAltitude),
	}
	rec.DistanceNmi = physics.HaversineNM(rec.Position(), n.reference)

	if n.declinations != nil && v.TrueTrack != nil {
		decl := n.declinations.Declination(rec.Latitude, rec.Longitude, n.now())
		mt := physics.TrueToMagnetic(*v.TrueTrack, decl)
		rec.MagneticTrack = &mt
	}

	return rec, true
}

// ClassifyStatus derives the flight status from the on-ground flag and vertical rate (m/s)
func ClassifyStatus(onGround bool, verticalRate float64) FlightStatus {
	switch {
	case onGround:
		return StatusGrounded
	case verticalRate > verticalRateDeadBand:
		return StatusClimbing
	case verticalRate < -verticalRateDeadBand:
		return StatusDescending
	default:
		return StatusCruising
	}
}

// IsLowAltitude reports whether a known altitude is strictly below the threshold
func IsLowAltitude(altitude *float64, thresholdM float64) bool {
	return altitude != nil && *altitude < thresholdM
}
