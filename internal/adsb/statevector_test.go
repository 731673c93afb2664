package adsb

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawStateVectorUnmarshal(t *testing.T) {
	raw := `["e8044e","VOI1234 ","Mexico",1700000000,1700000003,-99.07,19.43,2500.5,false,75.2,310.4,-3.1,[1,2],2600,"7500",true,2]`

	var v RawStateVector
	require.NoError(t, json.Unmarshal([]byte(raw), &v))

	assert.Equal(t, "e8044e", v.ICAO24)
	require.NotNil(t, v.Callsign)
	assert.Equal(t, "VOI1234 ", *v.Callsign)
	assert.Equal(t, "Mexico", v.OriginCountry)
	require.NotNil(t, v.TimePosition)
	assert.Equal(t, int64(1700000000), *v.TimePosition)
	assert.Equal(t, int64(1700000003), v.LastContact)
	assert.InDelta(t, -99.07, *v.Longitude, 1e-9)
	assert.InDelta(t, 19.43, *v.Latitude, 1e-9)
	assert.InDelta(t, 2500.5, *v.BaroAltitude, 1e-9)
	assert.False(t, v.OnGround)
	assert.InDelta(t, 75.2, *v.Velocity, 1e-9)
	assert.InDelta(t, 310.4, *v.TrueTrack, 1e-9)
	assert.InDelta(t, -3.1, *v.VerticalRate, 1e-9)
	assert.Equal(t, []int{1, 2}, v.Sensors)
	assert.InDelta(t, 2600.0, *v.GeoAltitude, 1e-9)
	assert.Equal(t, "7500", *v.Squawk)
	assert.True(t, v.SPI)
	assert.Equal(t, 2, v.PositionSource)
}

func TestRawStateVectorNullsAndWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, v RawStateVector)
	}{
		{
			name: "nulls become absent",
			raw:  `["a",null,"X",null,0,null,null,null,false,null,null,null,null,null,null,null,0]`,
			check: func(t *testing.T, v RawStateVector) {
				assert.Nil(t, v.Callsign)
				assert.Nil(t, v.TimePosition)
				assert.Nil(t, v.Latitude)
				assert.Nil(t, v.Longitude)
				assert.Nil(t, v.BaroAltitude)
				assert.Nil(t, v.Velocity)
				assert.Nil(t, v.TrueTrack)
				assert.Nil(t, v.VerticalRate)
				assert.Nil(t, v.Squawk)
			},
		},
		{
			name: "string where a number belongs",
			raw:  `["a","AMX1","X",0,0,"-99.1",19.4,"high",false,100,90,0,null,null,null,false,0]`,
			check: func(t *testing.T, v RawStateVector) {
				assert.Nil(t, v.Longitude)
				require.NotNil(t, v.Latitude)
				assert.Nil(t, v.BaroAltitude)
			},
		},
		{
			name: "short tuple",
			raw:  `["a","AMX1"]`,
			check: func(t *testing.T, v RawStateVector) {
				assert.Equal(t, "a", v.ICAO24)
				require.NotNil(t, v.Callsign)
				assert.Nil(t, v.Latitude)
				assert.Equal(t, int64(0), v.LastContact)
			},
		},
		{
			name: "not an array",
			raw:  `{"icao24":"a"}`,
			check: func(t *testing.T, v RawStateVector) {
				assert.Empty(t, v.ICAO24)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v RawStateVector
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &v))
			tt.check(t, v)
		})
	}
}

func TestStatesResponseTolerantOfBadEntries(t *testing.T) {
	body := `{"time":1,"states":[["a","AMX1","X",0,0,-99.1,19.4,1000,false,1,1,0,null,null,null,false,0],"garbage",null]}`

	var resp StatesResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	require.Len(t, resp.States, 3)

	flights := newTestNormalizer().NormalizeAll(resp.States)
	require.Len(t, flights, 1)
	assert.Equal(t, "a", flights[0].ICAO24)
}

func TestRawStateVectorMarshalPositional(t *testing.T) {
	v := RawStateVector{ICAO24: "a", Callsign: ptr("AMX1"), Latitude: ptr(19.4), Longitude: ptr(-99.1)}

	b, err := json.Marshal(v)
	require.NoError(t, err)

	var fields []any
	require.NoError(t, json.Unmarshal(b, &fields))
	require.Len(t, fields, 17)
	assert.Equal(t, "a", fields[0])
	assert.Equal(t, "AMX1", fields[1])
	assert.Equal(t, -99.1, fields[5])
	assert.Equal(t, 19.4, fields[6])
	assert.Nil(t, fields[7])
}
