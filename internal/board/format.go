package board

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/physics"
)

const placeholder = "---"

// SecondsAgo renders the time since the record's last contact
func SecondsAgo(f adsb.FlightRecord, now time.Time) string {
	return fmt.Sprintf("%ds ago", SecondsSince(f, now))
}

// SecondsSince returns the whole seconds elapsed since the record's last contact
func SecondsSince(f adsb.FlightRecord, now time.Time) int64 {
	elapsed := now.Sub(time.Unix(f.LastContact, 0)).Seconds()
	return int64(physics.Round(elapsed))
}

// StatusText is the status bar label for a snapshot
func StatusText(s adsb.Snapshot) string {
	switch s.Status {
	case adsb.FetchIdle:
		return "Idle"
	case adsb.FetchLoading:
		return "Loading..."
	case adsb.FetchSucceeded:
		return "Live"
	case adsb.FetchFailed:
		if msg := s.ErrorMessage(); msg != "" {
			return msg
		}
		return "Error"
	}
	return "Unknown"
}

// LastUpdatedText renders the last successful fetch time, in the time's own location
func LastUpdatedText(s adsb.Snapshot) string {
	if s.LastUpdated == nil {
		return "Fetching data..."
	}
	return "Last updated: " + s.LastUpdated.Format("15:04:05")
}

// CountdownText renders the seconds left before the next fetch
func CountdownText(s adsb.Snapshot) string {
	return fmt.Sprintf("Next refresh: %ds", s.Countdown)
}

// AltitudeText renders altitude in feet and meters
func AltitudeText(alt *float64) string {
	if alt == nil || *alt == 0 {
		return placeholder + " ft"
	}
	return fmt.Sprintf("%.0f ft / %.0f m", physics.Round(physics.MetersToFt(*alt)), physics.Round(*alt))
}

// VelocityText renders ground speed in knots and km/h
func VelocityText(v *float64) string {
	if v == nil || *v == 0 {
		return placeholder + " kt"
	}
	return fmt.Sprintf("%.0f kt / %.0f km/h", physics.Round(physics.MsToKt(*v)), physics.Round(physics.MsToKmH(*v)))
}

// VerticalRateArrow is ▲ climbing, ▼ descending, ▬ otherwise
func VerticalRateArrow(vr float64) string {
	switch {
	case vr > 0.5:
		return "▲"
	case vr < -0.5:
		return "▼"
	}
	return "▬"
}

// VerticalRateText renders the arrow and the rate magnitude in ft/min
func VerticalRateText(vr float64) string {
	fpm := math.Abs(physics.Round(physics.MsToFtPerMin(vr)))
	return fmt.Sprintf("%s %.0f", VerticalRateArrow(vr), fpm)
}

// TrackText renders the true track in whole degrees
func TrackText(track *float64) string {
	if track == nil || *track == 0 {
		return placeholder + "°"
	}
	return fmt.Sprintf("%.0f°", physics.Round(*track))
}

// SquawkText renders the transponder code, "----" when absent
func SquawkText(sq *string) string {
	if sq == nil || *sq == "" {
		return "----"
	}
	return *sq
}

// DistanceText renders distance with one decimal
func DistanceText(nmi float64) string {
	return strconv.FormatFloat(nmi, 'f', 1, 64)
}

// Row is one formatted table line
type Row struct {
	ICAO24        string `json:"icao24"`
	Callsign      string `json:"callsign"`
	Airline       string `json:"airline"`
	OriginCountry string `json:"origin_country"`
	Squawk        string `json:"squawk"`
	Status        string `json:"status"`
	Altitude      string `json:"altitude"`
	Velocity      string `json:"velocity"`
	VerticalRate  string `json:"vertical_rate"`
	Distance      string `json:"distance"`
	Track         string `json:"track"`
	SecondsAgo    string `json:"seconds_ago"`
	LowAltitude   bool   `json:"low_altitude"`
	Selected      bool   `json:"selected"`

	Record adsb.FlightRecord `json:"record"`
}

// NewRow formats one flight for display
func NewRow(f adsb.FlightRecord, selected string, now time.Time) Row {
	return Row{
		ICAO24:        f.ICAO24,
		Callsign:      f.Callsign,
		Airline:       f.Airline,
		OriginCountry: f.OriginCountry,
		Squawk:        SquawkText(f.Squawk),
		Status:        string(f.Status),
		Altitude:      AltitudeText(f.Altitude),
		Velocity:      VelocityText(f.Velocity),
		VerticalRate:  VerticalRateText(f.VerticalRate),
		Distance:      DistanceText(f.DistanceNmi),
		Track:         TrackText(f.TrueTrack),
		SecondsAgo:    SecondsAgo(f, now),
		LowAltitude:   f.IsLowAltitude,
		Selected:      selected != "" && f.ICAO24 == selected,
		Record:        f,
	}
}

// Rows sorts and formats flights
func Rows(flights []adsb.FlightRecord, sortState SortState, selected string, now time.Time) []Row {
	sorted := sortState.Apply(flights)
	rows := make([]Row, len(sorted))
	for i, f := range sorted {
		rows[i] = NewRow(f, selected, now)
	}
	return rows
}
