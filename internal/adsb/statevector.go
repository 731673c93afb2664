package adsb

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Positions of the fields in an OpenSky state vector
const (
	idxICAO24 = iota
	idxCallsign
	idxOriginCountry
	idxTimePosition
	idxLastContact
	idxLongitude
	idxLatitude
	idxBaroAltitude
	idxOnGround
	idxVelocity
	idxTrueTrack
	idxVerticalRate
	idxSensors
	idxGeoAltitude
	idxSquawk
	idxSPI
	idxPositionSource

	stateVectorLen
)

// RawStateVector is one aircraft as delivered by OpenSky: a fixed-order JSON array.
// Nullable positions decode to nil pointers. A position holding the wrong JSON type
// is treated as absent rather than failing the whole response.
type RawStateVector struct {
	ICAO24         string
	Callsign       *string
	OriginCountry  string
	TimePosition   *int64
	LastContact    int64
	Longitude      *float64
	Latitude       *float64
	BaroAltitude   *float64
	OnGround       bool
	Velocity       *float64
	TrueTrack      *float64
	VerticalRate   *float64
	Sensors        []int
	GeoAltitude    *float64
	Squawk         *string
	SPI            bool
	PositionSource int
}

// StatesResponse is the body of GET /states/all
type StatesResponse struct {
	Time   int64            `json:"time"`
	States []RawStateVector `json:"states"`
}

// UnmarshalJSON decodes the positional array form
func (v *RawStateVector) UnmarshalJSON(data []byte) error {
	*v = RawStateVector{}

	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		// Not an array; leave the vector empty so the normalizer drops it
		return nil
	}

	v.ICAO24 = stringOr(field(fields, idxICAO24))
	v.Callsign = optString(field(fields, idxCallsign))
	v.OriginCountry = stringOr(field(fields, idxOriginCountry))
	v.TimePosition = optInt(field(fields, idxTimePosition))
	if lc := optInt(field(fields, idxLastContact)); lc != nil {
		v.LastContact = *lc
	}
	v.Longitude = optFloat(field(fields, idxLongitude))
	v.Latitude = optFloat(field(fields, idxLatitude))
	v.BaroAltitude = optFloat(field(fields, idxBaroAltitude))
	v.OnGround = boolOr(field(fields, idxOnGround))
	v.Velocity = optFloat(field(fields, idxVelocity))
	v.TrueTrack = optFloat(field(fields, idxTrueTrack))
	v.VerticalRate = optFloat(field(fields, idxVerticalRate))
	if raw := field(fields, idxSensors); raw != nil {
		var sensors []int
		if err := json.Unmarshal(raw, &sensors); err == nil {
			v.Sensors = sensors
		}
	}
	v.GeoAltitude = optFloat(field(fields, idxGeoAltitude))
	v.Squawk = optString(field(fields, idxSquawk))
	v.SPI = boolOr(field(fields, idxSPI))
	if ps := optInt(field(fields, idxPositionSource)); ps != nil {
		v.PositionSource = int(*ps)
	}

	return nil
}

// MarshalJSON encodes the vector back into its positional form
func (v RawStateVector) MarshalJSON() ([]byte, error) {
	out := make([]any, stateVectorLen)
	out[idxICAO24] = v.ICAO24
	out[idxCallsign] = v.Callsign
	out[idxOriginCountry] = v.OriginCountry
	out[idxTimePosition] = v.TimePosition
	out[idxLastContact] = v.LastContact
	out[idxLongitude] = v.Longitude
	out[idxLatitude] = v.Latitude
	out[idxBaroAltitude] = v.BaroAltitude
	out[idxOnGround] = v.OnGround
	out[idxVelocity] = v.Velocity
	out[idxTrueTrack] = v.TrueTrack
	out[idxVerticalRate] = v.VerticalRate
	out[idxSensors] = v.Sensors
	out[idxGeoAltitude] = v.GeoAltitude
	out[idxSquawk] = v.Squawk
	out[idxSPI] = v.SPI
	out[idxPositionSource] = v.PositionSource

	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode state vector %s: %w", v.ICAO24, err)
	}
	return b, nil
}

var jsonNull = []byte("null")

// field returns the raw value at position i, or nil when absent or null
func field(fields []json.RawMessage, i int) json.RawMessage {
	if i >= len(fields) {
		return nil
	}
	raw := bytes.TrimSpace(fields[i])
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil
	}
	return raw
}

func optFloat(raw json.RawMessage) *float64 {
	if raw == nil {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func optInt(raw json.RawMessage) *int64 {
	f := optFloat(raw)
	if f == nil {
		return nil
	}
	i := int64(*f)
	return &i
}

func optString(raw json.RawMessage) *string {
	if raw == nil {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}

func stringOr(raw json.RawMessage) string {
	if s := optString(raw); s != nil {
		return *s
	}
	return ""
}

func boolOr(raw json.RawMessage) bool {
	if raw == nil {
		return false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false
	}
	return b
}
