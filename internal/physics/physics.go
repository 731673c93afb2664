package physics

import (
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	EarthRadiusNM = 3440.065 // Mean Earth radius in nautical miles
	MetersToFeet  = 3.28084  // Conversion factor from meters to feet
	FeetToMeters  = 0.3048   // Conversion factor from feet to meters
	MsToKnots     = 1.94384  // Conversion factor from m/s to Knots
	MsToKmh       = 3.6      // Conversion factor from m/s to km/h
	MsToFpm       = 196.85   // Conversion factor from m/s to ft/min
)

// LatLon is a geodetic coordinate in degrees
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// HaversineNM returns the great-circle distance between two points in nautical miles
func HaversineNM(a, b LatLon) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusNM * c
}

// MetersToFt converts meters to feet
func MetersToFt(m float64) float64 {
	return m * MetersToFeet
}

// MsToKt converts m/s to knots
func MsToKt(ms float64) float64 {
	return ms * MsToKnots
}

// MsToKmH converts m/s to km/h
func MsToKmH(ms float64) float64 {
	return ms * MsToKmh
}

// MsToFtPerMin converts m/s to ft/min
func MsToFtPerMin(ms float64) float64 {
	return ms * MsToFpm
}

// Round rounds to the nearest integer with halves going toward +Inf, so -2.5 becomes -2
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// NormalizeHeading wraps a heading into [0, 360)
func NormalizeHeading(deg float64) float64 {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * FeetToMeters

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Outside the model's validity window; treat as no variation
		return 0.0
	}

	return mag.D()
}

// TrueToMagnetic converts a true track to a magnetic track given a declination (+East)
func TrueToMagnetic(trueDeg, declination float64) float64 {
	return NormalizeHeading(trueDeg - declination)
}

// declinationKey identifies a grid cell (0.1 degree) on a given day
type declinationKey struct {
	latCell int
	lonCell int
	day     int64
}

// DeclinationCache memoizes magnetic declination per 0.1 degree grid cell and day.
// Declination changes by well under a tenth of a degree across a cell, and the WMM
// evaluation is far more expensive than a lookup.
type DeclinationCache struct {
	cache *lru.Cache[declinationKey, float64]
	calc  func(lat, lon, altFt float64, date time.Time) float64
}

// NewDeclinationCache creates a cache holding up to size grid cells
func NewDeclinationCache(size int) (*DeclinationCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[declinationKey, float64](size)
	if err != nil {
		return nil, err
	}
	return &DeclinationCache{cache: c, calc: CalculateMagneticVariation}, nil
}

// Declination returns the (cached) declination at the given position and date
func (d *DeclinationCache) Declination(lat, lon float64, date time.Time) float64 {
	key := declinationKey{
		latCell: int(math.Floor(lat * 10)),
		lonCell: int(math.Floor(lon * 10)),
		day:     date.UTC().Truncate(24*time.Hour).Unix() / 86400,
	}
	if v, ok := d.cache.Get(key); ok {
		return v
	}
	// Evaluate at the cell centre so every member of the cell gets the same value
	cellLat := (float64(key.latCell) + 0.5) / 10
	cellLon := (float64(key.lonCell) + 0.5) / 10
	v := d.calc(cellLat, cellLon, 0, date)
	d.cache.Add(key, v)
	return v
}

// Len returns the number of cached cells
func (d *DeclinationCache) Len() int {
	return d.cache.Len()
}
