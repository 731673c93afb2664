package board

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/physics"
)

// SortKey names a flight table column
type SortKey string

const (
	SortCallsign      SortKey = "callsign"
	SortAirline       SortKey = "airline"
	SortICAO24        SortKey = "icao24"
	SortOriginCountry SortKey = "origin_country"
	SortSquawk        SortKey = "squawk"
	SortStatus        SortKey = "status"
	SortAltitude      SortKey = "altitude_ft"
	SortVelocity      SortKey = "velocity_kt"
	SortVerticalRate  SortKey = "vertical_rate_fpm"
	SortDistance      SortKey = "distance_nmi"
	SortTrack         SortKey = "true_track"
	SortLastContact   SortKey = "last_contact"
)

// Direction is the sort order of the active column
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ErrUnknownSortKey is returned for a column name that is not sortable
var ErrUnknownSortKey = errors.New("unknown sort key")

// ErrUnknownDirection is returned for a direction other than asc or desc
var ErrUnknownDirection = errors.New("unknown sort direction")

// Columns lists the table columns in display order
var Columns = []Column{
	{Key: SortCallsign, Label: "Callsign"},
	{Key: SortAirline, Label: "Airline"},
	{Key: SortICAO24, Label: "Hex ID"},
	{Key: SortOriginCountry, Label: "Origin Country"},
	{Key: SortSquawk, Label: "Squawk"},
	{Key: SortStatus, Label: "Status"},
	{Key: SortAltitude, Label: "Altitude"},
	{Key: SortVelocity, Label: "Speed"},
	{Key: SortVerticalRate, Label: "V. Rate (ft/min)"},
	{Key: SortDistance, Label: "Dist (nmi)"},
	{Key: SortTrack, Label: "Track"},
	{Key: SortLastContact, Label: "Seen"},
}

// Column is one table header
type Column struct {
	Key   SortKey `json:"key"`
	Label string  `json:"label"`
}

// ParseSortKey validates a column name
func ParseSortKey(s string) (SortKey, error) {
	for _, c := range Columns {
		if string(c.Key) == s {
			return c.Key, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSortKey, s)
}

// ParseDirection validates a direction, treating "" as ascending
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(s)) {
	case "", Ascending:
		return Ascending, nil
	case Descending:
		return Descending, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

// SortState is the active table ordering
type SortState struct {
	Key SortKey   `json:"key"`
	Dir Direction `json:"direction"`
}

// DefaultSort orders by callsign ascending
func DefaultSort() SortState {
	return SortState{Key: SortCallsign, Dir: Ascending}
}

// Toggle returns the state after a header click on key: the active ascending column
// flips to descending, anything else becomes ascending on key.
func (s SortState) Toggle(key SortKey) SortState {
	if s.Key == key && s.Dir == Ascending {
		return SortState{Key: key, Dir: Descending}
	}
	return SortState{Key: key, Dir: Ascending}
}

// Indicator returns the header suffix for key
func (s SortState) Indicator(key SortKey) string {
	if s.Key != key {
		return ""
	}
	if s.Dir == Descending {
		return " ▼"
	}
	return " ▲"
}

// Apply returns a sorted copy of flights. Equal values keep their input order.
func (s SortState) Apply(flights []adsb.FlightRecord) []adsb.FlightRecord {
	out := make([]adsb.FlightRecord, len(flights))
	copy(out, flights)

	desc := s.Dir == Descending
	if isTextKey(s.Key) {
		keys := make([]string, len(out))
		for i := range out {
			keys[i] = textValue(out[i], s.Key)
		}
		sort.Stable(byValue[string]{flights: out, keys: keys, desc: desc})
		return out
	}

	keys := make([]float64, len(out))
	for i := range out {
		keys[i] = numericValue(out[i], s.Key)
	}
	sort.Stable(byValue[float64]{flights: out, keys: keys, desc: desc})
	return out
}

// byValue sorts flights by precomputed keys, swapping both slices together
type byValue[T string | float64] struct {
	flights []adsb.FlightRecord
	keys    []T
	desc    bool
}

func (a byValue[T]) Len() int { return len(a.flights) }
func (a byValue[T]) Less(i, j int) bool {
	if a.desc {
		return a.keys[i] > a.keys[j]
	}
	return a.keys[i] < a.keys[j]
}
func (a byValue[T]) Swap(i, j int) {
	a.flights[i], a.flights[j] = a.flights[j], a.flights[i]
	a.keys[i], a.keys[j] = a.keys[j], a.keys[i]
}

func isTextKey(key SortKey) bool {
	switch key {
	case SortCallsign, SortAirline, SortICAO24, SortOriginCountry, SortSquawk, SortStatus:
		return true
	}
	return false
}

func textValue(f adsb.FlightRecord, key SortKey) string {
	var v string
	switch key {
	case SortCallsign:
		v = f.Callsign
	case SortAirline:
		v = f.Airline
	case SortICAO24:
		v = f.ICAO24
	case SortOriginCountry:
		v = f.OriginCountry
	case SortSquawk:
		if f.Squawk != nil {
			v = *f.Squawk
		}
	case SortStatus:
		v = string(f.Status)
	}
	return strings.ToLower(v)
}

// numericValue returns the derived column value; absent or zero readings sort as -1
func numericValue(f adsb.FlightRecord, key SortKey) float64 {
	switch key {
	case SortAltitude:
		if f.Altitude == nil || *f.Altitude == 0 {
			return -1
		}
		return physics.Round(physics.MetersToFt(*f.Altitude))
	case SortVelocity:
		if f.Velocity == nil || *f.Velocity == 0 {
			return -1
		}
		return physics.Round(physics.MsToKt(*f.Velocity))
	case SortVerticalRate:
		if f.VerticalRate == 0 {
			return -1
		}
		return math.Abs(physics.Round(physics.MsToFtPerMin(f.VerticalRate)))
	case SortDistance:
		return f.DistanceNmi
	case SortTrack:
		if f.TrueTrack == nil || *f.TrueTrack == 0 {
			return -1
		}
		return *f.TrueTrack
	case SortLastContact:
		return float64(f.LastContact)
	}
	return -1
}
