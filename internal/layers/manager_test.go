package layers

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/physics"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

type fakeMarker struct {
	surface   *fakeSurface
	id        int
	key       string
	pos       physics.LatLon
	icon      Icon
	tooltip   []TooltipRow
	destroyed bool
	calls     []string
}

func (m *fakeMarker) SetPosition(pos physics.LatLon) {
	m.pos = pos
	m.calls = append(m.calls, "position")
}

func (m *fakeMarker) SetIconAndRotation(icon Icon) {
	m.icon = icon
	m.calls = append(m.calls, "icon")
}

func (m *fakeMarker) SetTooltip(rows []TooltipRow) {
	m.tooltip = rows
	m.calls = append(m.calls, "tooltip")
}

func (m *fakeMarker) Destroy() {
	m.destroyed = true
	m.surface.destroyed = append(m.surface.destroyed, m.key)
}

// fakeSurface records every call made by the manager
type fakeSurface struct {
	nextID       int
	markers      map[string]*fakeMarker
	created      []string
	destroyed    []string
	heat         []HeatPoint
	heatReplaces int
	heatVisible  bool
	highlight    *physics.LatLon
	radius       int
	views        []physics.LatLon
	zoom         int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{markers: make(map[string]*fakeMarker)}
}

func (s *fakeSurface) CreateMarker(key string, pos physics.LatLon, icon Icon, tooltip []TooltipRow) MarkerHandle {
	s.nextID++
	m := &fakeMarker{surface: s, id: s.nextID, key: key, pos: pos, icon: icon, tooltip: tooltip}
	s.markers[key] = m
	s.created = append(s.created, key)
	return m
}

func (s *fakeSurface) ReplaceHeat(points []HeatPoint) {
	s.heat = points
	s.heatReplaces++
}

func (s *fakeSurface) SetHeatVisible(visible bool) { s.heatVisible = visible }

func (s *fakeSurface) SetHighlight(pos physics.LatLon, radius int) {
	s.highlight = &pos
	s.radius = radius
}

func (s *fakeSurface) ClearHighlight() { s.highlight = nil }

func (s *fakeSurface) SetView(pos physics.LatLon, zoom int) {
	s.views = append(s.views, pos)
	s.zoom = zoom
}

func flight(key string, lat, lon float64) adsb.FlightRecord {
	return adsb.FlightRecord{
		ICAO24:        key,
		Callsign:      "AMX" + key,
		Airline:       "Aeroméxico",
		OriginCountry: "Mexico",
		Latitude:      lat,
		Longitude:     lon,
		Status:        adsb.StatusCruising,
	}
}

func flights(keys ...string) []adsb.FlightRecord {
	out := make([]adsb.FlightRecord, 0, len(keys))
	for i, k := range keys {
		out = append(out, flight(k, 19.0+float64(i)*0.1, -99.0))
	}
	return out
}

func newTestManager() (*Manager, *fakeSurface) {
	s := newFakeSurface()
	m := NewManager(s, ManagerConfig{
		SelectionZoom:   11,
		HighlightRadius: 20,
		Colors:          config.Default().Map.AltitudeColors,
	}, logger.NewNop())
	return m, s
}

func TestReconcileCreatesThenUpdates(t *testing.T) {
	m, s := newTestManager()

	first := m.Reconcile(flights("A", "B"))
	assert.Equal(t, []string{"A", "B"}, first.Created)
	assert.Empty(t, first.Updated)
	assert.Empty(t, first.Removed)

	second := m.Reconcile(flights("A", "B"))
	assert.Empty(t, second.Created)
	assert.Equal(t, []string{"A", "B"}, second.Updated)
	assert.Empty(t, second.Removed)

	// Identity preserved, updates applied in order
	assert.Equal(t, 1, s.markers["A"].id)
	assert.Equal(t, []string{"position", "icon", "tooltip"}, s.markers["A"].calls)
	assert.Len(t, s.created, 2)
}

func TestReconcileReplacesSet(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A", "B", "C"))
	markerB := s.markers["B"]

	res := m.Reconcile(flights("B", "C", "D"))
	assert.Equal(t, []string{"D"}, res.Created)
	assert.ElementsMatch(t, []string{"B", "C"}, res.Updated)
	assert.Equal(t, []string{"A"}, res.Removed)

	assert.True(t, s.markers["A"].destroyed)
	assert.Equal(t, []string{"A"}, s.destroyed)
	assert.Same(t, markerB, s.markers["B"])
	assert.Equal(t, []string{"B", "C", "D"}, m.Keys())
}

func TestReconcileReappearanceCreatesNewMarker(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A"))
	m.Reconcile(flights())
	assert.Equal(t, 0, m.MarkerCount())

	res := m.Reconcile(flights("A"))
	assert.Equal(t, []string{"A"}, res.Created)
	assert.Equal(t, 2, s.markers["A"].id)
}

func TestReconcileUpdatesMarkerAttributes(t *testing.T) {
	m, s := newTestManager()
	f := flight("A", 19.4, -99.1)
	m.Reconcile([]adsb.FlightRecord{f})

	alt := 1000.0
	track := 270.0
	f.Latitude = 19.5
	f.Altitude = &alt
	f.TrueTrack = &track
	f.Status = adsb.StatusDescending
	m.Reconcile([]adsb.FlightRecord{f})

	mk := s.markers["A"]
	assert.Equal(t, physics.LatLon{Lat: 19.5, Lon: -99.1}, mk.pos)
	assert.Equal(t, Icon{Color: "#f6ad55", Rotation: 270}, mk.icon)
	assert.Equal(t, TooltipRow{Label: "Status", Value: "Descending"}, mk.tooltip[2])
}

func TestReconcileRebuildsHeat(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A", "B", "C"))
	require.Len(t, s.heat, 3)

	m.Reconcile(flights("D"))
	require.Len(t, s.heat, 1)
	assert.Equal(t, HeatPoint{Lat: 19.0, Lon: -99.0, Weight: 1}, s.heat[0])
	assert.Equal(t, 2, s.heatReplaces)

	m.Reconcile(nil)
	assert.Empty(t, s.heat)
}

func TestReconcileDuplicateKeysKeepFirst(t *testing.T) {
	m, s := newTestManager()
	res := m.Reconcile([]adsb.FlightRecord{flight("A", 19.1, -99), flight("A", 19.7, -99)})

	assert.Equal(t, []string{"A"}, res.Created)
	assert.Equal(t, 19.1, s.markers["A"].pos.Lat)
	assert.Len(t, s.heat, 1)
}

func TestSelectionStateMachine(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A", "B"))

	assert.ErrorIs(t, m.Select("Z"), ErrUnknownFlight)
	assert.Empty(t, m.Selected())

	require.NoError(t, m.Select("B"))
	assert.Equal(t, "B", m.Selected())
	require.NotNil(t, s.highlight)
	assert.Equal(t, 19.1, s.highlight.Lat)
	assert.Equal(t, 20, s.radius)
	assert.Equal(t, 11, s.zoom)
	assert.Len(t, s.views, 1)

	// Row re-click deselects
	require.NoError(t, m.ToggleRow("B"))
	assert.Empty(t, m.Selected())
	assert.Nil(t, s.highlight)

	// Toggle on a different row selects it
	require.NoError(t, m.ToggleRow("A"))
	assert.Equal(t, "A", m.Selected())

	m.ClickBackground()
	assert.Empty(t, m.Selected())
	assert.Nil(t, s.highlight)
}

func TestSelectionFollowsWithoutRecentering(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A"))
	require.NoError(t, m.Select("A"))
	require.Len(t, s.views, 1)

	moved := flight("A", 19.6, -98.9)
	res := m.Reconcile([]adsb.FlightRecord{moved})
	assert.False(t, res.SelectionCleared)
	assert.Len(t, s.views, 1)
	require.NotNil(t, s.highlight)
	assert.Equal(t, moved.Position(), *s.highlight)
}

func TestSelectionClearedWhenFlightDisappears(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A", "B"))
	require.NoError(t, m.Select("A"))

	res := m.Reconcile(flights("B"))
	assert.True(t, res.SelectionCleared)
	assert.Empty(t, m.Selected())
	assert.Nil(t, s.highlight)
}

func TestSetHighlightAndHeatmap(t *testing.T) {
	m, s := newTestManager()
	m.Reconcile(flights("A"))

	require.NoError(t, m.SetHighlight("A"))
	assert.NotNil(t, s.highlight)
	assert.Empty(t, s.views)

	require.NoError(t, m.SetHighlight(""))
	assert.Nil(t, s.highlight)
	assert.ErrorIs(t, m.SetHighlight("nope"), ErrUnknownFlight)

	m.SetHeatmapVisible(true)
	assert.True(t, m.HeatmapVisible())
	assert.True(t, s.heatVisible)
	m.SetHeatmapVisible(false)
	assert.False(t, s.heatVisible)
}

func TestReconcileManyFlights(t *testing.T) {
	m, s := newTestManager()
	var set []adsb.FlightRecord
	for i := 0; i < 200; i++ {
		set = append(set, flight(fmt.Sprintf("k%03d", i), 19.4, -99.1))
	}
	m.Reconcile(set)
	res := m.Reconcile(set[100:])
	assert.Len(t, res.Removed, 100)
	assert.Len(t, res.Updated, 100)
	assert.Equal(t, 100, m.MarkerCount())
	assert.Len(t, s.destroyed, 100)
}
