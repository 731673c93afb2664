// Package simulation provides an offline state-vector source. Aircraft are
// seeded inside the bounding box and moved by dead reckoning on every fetch,
// so the board can run without network access.
package simulation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

const (
	// DefaultAircraft is used when Config.Aircraft is not positive
	DefaultAircraft = 12

	metersPerNM  = 1852.0
	fetchTimeout = time.Second
)

// operators are callsign prefixes given to generated flights
var operators = []string{"AMX", "VOI", "VIV", "AAL", "UAL", "AVA", "CMP", "FDX", "N"}

var countries = []string{"Mexico", "Mexico", "Mexico", "United States", "Colombia", "Panama"}

// Config controls the simulated traffic
type Config struct {
	Aircraft int
	BBox     adsb.BoundingBox
	Seed     int64 // 0 seeds from the clock
}

// Aircraft is one simulated flight. Units match the OpenSky state vector.
type Aircraft struct {
	ICAO24       string
	Callsign     string
	Country      string
	Squawk       string
	Lat          float64
	Lon          float64
	AltitudeM    float64
	VelocityMS   float64
	TrackDeg     float64
	VerticalRate float64 // m/s
	OnGround     bool
	LastUpdate   time.Time
}

// Fetcher implements adsb.Fetcher with generated traffic
type Fetcher struct {
	mu       sync.Mutex
	cfg      Config
	rng      *rand.Rand
	aircraft []*Aircraft
	used     map[string]struct{}
	clock    func() time.Time
	logger   *logger.Logger
}

// NewFetcher seeds cfg.Aircraft flights inside cfg.BBox
func NewFetcher(cfg Config, log *logger.Logger) *Fetcher {
	if cfg.Aircraft <= 0 {
		cfg.Aircraft = DefaultAircraft
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := &Fetcher{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		used:   make(map[string]struct{}),
		clock:  time.Now,
		logger: log.Named("simulation"),
	}
	now := f.clock()
	for range cfg.Aircraft {
		f.aircraft = append(f.aircraft, f.spawn(now))
	}
	f.logger.Info("Seeded simulated traffic", logger.Int("aircraft", len(f.aircraft)))
	return f
}

// Timeout reports the per-fetch timeout. Generation never blocks.
func (f *Fetcher) Timeout() time.Duration {
	return fetchTimeout
}

// FetchStates advances every aircraft to now and returns their state vectors.
// Aircraft that leave the box or touch the ground are replaced by new ones.
func (f *Fetcher) FetchStates(ctx context.Context) (*adsb.StatesResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock()
	for i, a := range f.aircraft {
		if dt := now.Sub(a.LastUpdate).Seconds(); dt > 0 {
			advance(a, dt)
			a.LastUpdate = now
		}
		if !f.inside(a.Lat, a.Lon) || a.AltitudeM <= 0 {
			f.logger.Debug("Simulated flight left the area",
				logger.String("icao24", a.ICAO24),
				logger.String("callsign", a.Callsign))
			delete(f.used, a.ICAO24)
			f.aircraft[i] = f.spawn(now)
		}
	}

	resp := &adsb.StatesResponse{
		Time:   now.Unix(),
		States: make([]adsb.RawStateVector, 0, len(f.aircraft)),
	}
	for _, a := range f.aircraft {
		resp.States = append(resp.States, a.stateVector(now))
	}
	return resp, nil
}

// Aircraft returns a copy of the current traffic
func (f *Fetcher) Aircraft() []Aircraft {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]Aircraft, len(f.aircraft))
	for i, a := range f.aircraft {
		out[i] = *a
	}
	return out
}

func (f *Fetcher) inside(lat, lon float64) bool {
	b := f.cfg.BBox
	return lat >= b.Lamin && lat <= b.Lamax && lon >= b.Lomin && lon <= b.Lomax
}

func (f *Fetcher) spawn(now time.Time) *Aircraft {
	b := f.cfg.BBox
	a := &Aircraft{
		ICAO24:     f.uniqueHex(),
		Country:    countries[f.rng.Intn(len(countries))],
		Lat:        b.Lamin + f.rng.Float64()*(b.Lamax-b.Lamin),
		Lon:        b.Lomin + f.rng.Float64()*(b.Lomax-b.Lomin),
		AltitudeM:  600 + f.rng.Float64()*10000,
		VelocityMS: 70 + f.rng.Float64()*180,
		TrackDeg:   f.rng.Float64() * 360,
		LastUpdate: now,
	}

	op := operators[f.rng.Intn(len(operators))]
	if op == "N" {
		a.Callsign = fmt.Sprintf("N%d%s", 100+f.rng.Intn(900), string(rune('A'+f.rng.Intn(26))))
	} else {
		a.Callsign = fmt.Sprintf("%s%d", op, 100+f.rng.Intn(900))
	}
	if f.rng.Intn(4) > 0 {
		a.Squawk = fmt.Sprintf("%04o", f.rng.Intn(0o10000))
	}

	switch f.rng.Intn(3) {
	case 0:
		a.VerticalRate = 3 + f.rng.Float64()*10
	case 1:
		a.VerticalRate = -(3 + f.rng.Float64()*10)
	}
	return a
}

// uniqueHex generates a 6-character lowercase transponder address
func (f *Fetcher) uniqueHex() string {
	for {
		hex := fmt.Sprintf("%06x", f.rng.Intn(0xFFFFFF))
		if _, exists := f.used[hex]; !exists {
			f.used[hex] = struct{}{}
			return hex
		}
	}
}

// advance moves a by dt seconds along its track (0 = north, clockwise)
func advance(a *Aircraft, dt float64) {
	headingRad := (90 - a.TrackDeg) * math.Pi / 180
	distanceNM := a.VelocityMS * dt / metersPerNM

	// 1 degree latitude is 60 nm; longitude shrinks with cos(lat)
	a.Lat += distanceNM * math.Sin(headingRad) / 60
	a.Lon += distanceNM * math.Cos(headingRad) / (60 * math.Cos(a.Lat*math.Pi/180))

	a.AltitudeM += a.VerticalRate * dt
	if a.AltitudeM < 0 {
		a.AltitudeM = 0
		a.VerticalRate = 0
	}
}

func (a *Aircraft) stateVector(now time.Time) adsb.RawStateVector {
	callsign := fmt.Sprintf("%-8s", a.Callsign)
	lat, lon := a.Lat, a.Lon
	alt, vel, track, vr := a.AltitudeM, a.VelocityMS, a.TrackDeg, a.VerticalRate
	ts := now.Unix()

	v := adsb.RawStateVector{
		ICAO24:        a.ICAO24,
		Callsign:      &callsign,
		OriginCountry: a.Country,
		TimePosition:  &ts,
		LastContact:   ts,
		Longitude:     &lon,
		Latitude:      &lat,
		BaroAltitude:  &alt,
		OnGround:      a.OnGround,
		Velocity:      &vel,
		TrueTrack:     &track,
		VerticalRate:  &vr,
		GeoAltitude:   &alt,
	}
	if a.Squawk != "" {
		sq := a.Squawk
		v.Squawk = &sq
	}
	return v
}
