package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
)

func ptr[T any](v T) *T { return &v }

func keys(flights []adsb.FlightRecord) []string {
	out := make([]string, len(flights))
	for i, f := range flights {
		out[i] = f.ICAO24
	}
	return out
}

var sample = []adsb.FlightRecord{
	{ICAO24: "a1", Callsign: "bbb", Airline: "Volaris", Altitude: ptr(1000.0), VerticalRate: 2, DistanceNmi: 5, LastContact: 30},
	{ICAO24: "a2", Callsign: "AAA", Airline: "Aeroméxico", Altitude: nil, VerticalRate: -3, DistanceNmi: 1, LastContact: 10, Squawk: ptr("7500")},
	{ICAO24: "a3", Callsign: "ccc", Airline: "Volaris", Altitude: ptr(1000.0), VerticalRate: 0, DistanceNmi: 3, LastContact: 20},
}

func TestSortToggle(t *testing.T) {
	s := DefaultSort()
	assert.Equal(t, SortState{Key: SortCallsign, Dir: Ascending}, s)

	s = s.Toggle(SortCallsign)
	assert.Equal(t, Descending, s.Dir)

	s = s.Toggle(SortCallsign)
	assert.Equal(t, Ascending, s.Dir)

	s = s.Toggle(SortCallsign).Toggle(SortAltitude)
	assert.Equal(t, SortState{Key: SortAltitude, Dir: Ascending}, s)
}

func TestSortIndicator(t *testing.T) {
	s := DefaultSort()
	assert.Equal(t, " ▲", s.Indicator(SortCallsign))
	assert.Equal(t, "", s.Indicator(SortAirline))
	assert.Equal(t, " ▼", s.Toggle(SortCallsign).Indicator(SortCallsign))
}

func TestSortApply(t *testing.T) {
	tests := []struct {
		name  string
		state SortState
		want  []string
	}{
		{"callsign ignores case", SortState{SortCallsign, Ascending}, []string{"a2", "a1", "a3"}},
		{"callsign desc", SortState{SortCallsign, Descending}, []string{"a3", "a1", "a2"}},
		{"missing altitude first, ties stable", SortState{SortAltitude, Ascending}, []string{"a2", "a1", "a3"}},
		{"altitude desc keeps ties stable", SortState{SortAltitude, Descending}, []string{"a1", "a3", "a2"}},
		{"vertical rate magnitude, zero as -1", SortState{SortVerticalRate, Ascending}, []string{"a3", "a1", "a2"}},
		{"distance", SortState{SortDistance, Ascending}, []string{"a2", "a3", "a1"}},
		{"last contact desc", SortState{SortLastContact, Descending}, []string{"a1", "a3", "a2"}},
		{"absent squawk sorts as empty", SortState{SortSquawk, Ascending}, []string{"a1", "a3", "a2"}},
		{"airline", SortState{SortAirline, Ascending}, []string{"a2", "a1", "a3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(tt.state.Apply(sample)))
		})
	}
}

func TestSortApplyDoesNotMutateInput(t *testing.T) {
	before := keys(sample)
	SortState{SortDistance, Descending}.Apply(sample)
	assert.Equal(t, before, keys(sample))
	assert.Empty(t, DefaultSort().Apply(nil))
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("vertical_rate_fpm")
	require.NoError(t, err)
	assert.Equal(t, SortVerticalRate, k)

	_, err = ParseSortKey("speed")
	assert.ErrorIs(t, err, ErrUnknownSortKey)

	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Ascending, d)

	d, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("up")
	assert.ErrorIs(t, err, ErrUnknownDirection)
}
