package board

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
)

func TestAirlineStats(t *testing.T) {
	flights := []adsb.FlightRecord{
		{Airline: "Volaris"},
		{Airline: "Aeroméxico"},
		{Airline: "Volaris"},
		{Airline: "Viva Aerobus"},
		{Airline: "Aeroméxico"},
		{Airline: "Private/Unknown"},
	}

	assert.Equal(t, []AirlineCount{
		{Airline: "Aeroméxico", Count: 2},
		{Airline: "Volaris", Count: 2},
		{Airline: "Private/Unknown", Count: 1},
		{Airline: "Viva Aerobus", Count: 1},
	}, AirlineStats(flights))

	assert.Empty(t, AirlineStats(nil))
}
