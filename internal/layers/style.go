package layers

import (
	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/physics"
)

// Altitude band upper bounds in feet, inclusive
const (
	band1MaxFt = 2000
	band2MaxFt = 6000
	band3MaxFt = 12000
	band4MaxFt = 20000
)

// Vertical rate beyond which a flight is drawn as climbing or descending (m/s)
const verticalRateColorThreshold = 1.5

// AltitudeBand returns 1..5 for a known altitude in meters, or 0 when unknown
func AltitudeBand(altitudeM *float64) int {
	if altitudeM == nil {
		return 0
	}
	ft := physics.MetersToFt(*altitudeM)
	switch {
	case ft <= band1MaxFt:
		return 1
	case ft <= band2MaxFt:
		return 2
	case ft <= band3MaxFt:
		return 3
	case ft <= band4MaxFt:
		return 4
	default:
		return 5
	}
}

// AltitudeColor returns the marker colour for an altitude in meters
func AltitudeColor(altitudeM *float64, colors config.AltitudeColorTable) string {
	switch AltitudeBand(altitudeM) {
	case 1:
		return colors.Level1
	case 2:
		return colors.Level2
	case 3:
		return colors.Level3
	case 4:
		return colors.Level4
	case 5:
		return colors.Level5
	default:
		return colors.Level
	}
}

// VerticalRateColor returns the colour used for a vertical rate in m/s
func VerticalRateColor(verticalRate float64, colors config.AltitudeColorTable) string {
	switch {
	case verticalRate > verticalRateColorThreshold:
		return colors.Climbing
	case verticalRate < -verticalRateColorThreshold:
		return colors.Descending
	default:
		return colors.Level
	}
}

// IconFor builds the marker icon: altitude colour, rotated by true track (0 when absent)
func IconFor(f adsb.FlightRecord, colors config.AltitudeColorTable) Icon {
	return Icon{
		Color:    AltitudeColor(f.Altitude, colors),
		Rotation: f.Track(),
	}
}

// TooltipRows builds the marker tooltip
func TooltipRows(f adsb.FlightRecord) []TooltipRow {
	return []TooltipRow{
		{Label: "Callsign", Value: f.Callsign},
		{Label: "Airline", Value: f.Airline},
		{Label: "Status", Value: string(f.Status)},
		{Label: "Origin", Value: f.OriginCountry},
	}
}
