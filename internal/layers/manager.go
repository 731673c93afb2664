package layers

import (
	"errors"
	"sort"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// ErrUnknownFlight is returned when selecting a key that is not in the current set
var ErrUnknownFlight = errors.New("unknown flight")

// ManagerConfig holds the visual settings used by the manager
type ManagerConfig struct {
	SelectionZoom   int
	HighlightRadius int
	Colors          config.AltitudeColorTable
}

// ReconcileResult lists the keys touched by one Reconcile call
type ReconcileResult struct {
	Created          []string `json:"created"`
	Updated          []string `json:"updated"`
	Removed          []string `json:"removed"`
	SelectionCleared bool     `json:"selection_cleared"`
}

// Manager owns the markers, heat layer and selection highlight of one surface.
// It is not safe for concurrent use; a single goroutine must own it.
type Manager struct {
	surface     Surface
	cfg         ManagerConfig
	markers     map[string]MarkerHandle
	flights     map[string]adsb.FlightRecord
	selected    string
	heatVisible bool
	logger      *logger.Logger
}

// NewManager creates a manager drawing on surface
func NewManager(surface Surface, cfg ManagerConfig, log *logger.Logger) *Manager {
	return &Manager{
		surface: surface,
		cfg:     cfg,
		markers: make(map[string]MarkerHandle),
		flights: make(map[string]adsb.FlightRecord),
		logger:  log.Named("layers"),
	}
}

// Reconcile applies a new record set with minimal marker churn. Markers whose key is
// gone are destroyed before it returns, surviving markers are updated in place, and
// new keys get new markers. The heat layer is replaced wholesale.
func (m *Manager) Reconcile(flights []adsb.FlightRecord) ReconcileResult {
	var result ReconcileResult

	next := make(map[string]adsb.FlightRecord, len(flights))
	for _, f := range flights {
		if _, dup := next[f.ICAO24]; !dup {
			next[f.ICAO24] = f
		}
	}

	for key, h := range m.markers {
		if _, ok := next[key]; !ok {
			h.Destroy()
			delete(m.markers, key)
			result.Removed = append(result.Removed, key)
		}
	}
	sort.Strings(result.Removed)

	points := make([]HeatPoint, 0, len(next))
	seen := make(map[string]struct{}, len(next))
	for _, f := range flights {
		if _, dup := seen[f.ICAO24]; dup {
			continue
		}
		seen[f.ICAO24] = struct{}{}

		pos := f.Position()
		icon := IconFor(f, m.cfg.Colors)
		tooltip := TooltipRows(f)

		if h, ok := m.markers[f.ICAO24]; ok {
			h.SetPosition(pos)
			h.SetIconAndRotation(icon)
			h.SetTooltip(tooltip)
			result.Updated = append(result.Updated, f.ICAO24)
		} else {
			m.markers[f.ICAO24] = m.surface.CreateMarker(f.ICAO24, pos, icon, tooltip)
			result.Created = append(result.Created, f.ICAO24)
		}

		points = append(points, HeatPoint{Lat: pos.Lat, Lon: pos.Lon, Weight: 1})
	}
	m.surface.ReplaceHeat(points)
	m.flights = next

	if m.selected != "" {
		if f, ok := next[m.selected]; ok {
			// Follow the flight without moving the view
			m.surface.SetHighlight(f.Position(), m.cfg.HighlightRadius)
		} else {
			m.logger.Debug("Selected flight left the area", logger.String("icao24", m.selected))
			m.selected = ""
			m.surface.ClearHighlight()
			result.SelectionCleared = true
		}
	}

	m.logger.Debug("Reconciled markers",
		logger.Int("created", len(result.Created)),
		logger.Int("updated", len(result.Updated)),
		logger.Int("removed", len(result.Removed)),
		logger.Int("markers", len(m.markers)),
	)

	return result
}

// Select selects a flight, centers the view on it and draws the highlight
func (m *Manager) Select(key string) error {
	f, ok := m.flights[key]
	if !ok {
		return ErrUnknownFlight
	}
	m.selected = key
	m.surface.SetView(f.Position(), m.cfg.SelectionZoom)
	m.surface.SetHighlight(f.Position(), m.cfg.HighlightRadius)
	return nil
}

// ToggleRow deselects the key when it is already selected, otherwise selects it
func (m *Manager) ToggleRow(key string) error {
	if key != "" && key == m.selected {
		m.ClickBackground()
		return nil
	}
	return m.Select(key)
}

// ClickBackground clears any selection
func (m *Manager) ClickBackground() {
	if m.selected == "" {
		return
	}
	m.selected = ""
	m.surface.ClearHighlight()
}

// SetHighlight moves the highlight to key without touching the view. An empty key clears it.
func (m *Manager) SetHighlight(key string) error {
	if key == "" {
		m.ClickBackground()
		return nil
	}
	f, ok := m.flights[key]
	if !ok {
		return ErrUnknownFlight
	}
	m.selected = key
	m.surface.SetHighlight(f.Position(), m.cfg.HighlightRadius)
	return nil
}

// SetHeatmapVisible shows or hides the heat layer
func (m *Manager) SetHeatmapVisible(visible bool) {
	m.heatVisible = visible
	m.surface.SetHeatVisible(visible)
}

// HeatmapVisible reports whether the heat layer is shown
func (m *Manager) HeatmapVisible() bool {
	return m.heatVisible
}

// Selected returns the selected key, or "" when nothing is selected
func (m *Manager) Selected() string {
	return m.selected
}

// MarkerCount returns the number of live markers
func (m *Manager) MarkerCount() int {
	return len(m.markers)
}

// Keys returns the sorted keys of the live markers
func (m *Manager) Keys() []string {
	keys := make([]string, 0, len(m.markers))
	for k := range m.markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
