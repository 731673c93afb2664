package websocket

import (
	"slices"
	"sort"
	"sync"

	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/internal/physics"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// Broadcaster delivers a message to every connected client
type Broadcaster interface {
	Broadcast(message *Message)
}

// HeatOptions configures the browser heat layer
type HeatOptions struct {
	Radius   int               `json:"radius"`
	Blur     int               `json:"blur"`
	MaxZoom  int               `json:"max_zoom"`
	Gradient map[string]string `json:"gradient"`
}

// MapInit is the first message every client receives
type MapInit struct {
	Center physics.LatLon `json:"center"`
	Zoom   int            `json:"zoom"`
	Heat   HeatOptions    `json:"heat"`
}

// MarkerPayload is the full state of one marker
type MarkerPayload struct {
	Key     string              `json:"key"`
	Lat     float64             `json:"lat"`
	Lon     float64             `json:"lon"`
	Icon    layers.Icon         `json:"icon"`
	Tooltip []layers.TooltipRow `json:"tooltip"`
}

// HighlightPayload positions the selection circle
type HighlightPayload struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius int     `json:"radius"`
}

// ViewPayload pans and zooms the map
type ViewPayload struct {
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
	Zoom int     `json:"zoom"`
}

// MapSurface is a layers.Surface that mirrors its state to browsers. It keeps the
// current markers, heat layer, highlight and last snapshot so new clients can be
// brought up to date. Messages are broadcast in mutation order.
type MapSurface struct {
	out    Broadcaster
	init   MapInit
	logger *logger.Logger

	mu          sync.Mutex
	markers     map[string]*MarkerPayload
	heat        []layers.HeatPoint
	heatVisible bool
	highlight   *HighlightPayload
	snapshot    any
}

// NewMapSurface creates a surface broadcasting through out
func NewMapSurface(out Broadcaster, init MapInit, log *logger.Logger) *MapSurface {
	return &MapSurface{
		out:     out,
		init:    init,
		logger:  log.Named("map-surface"),
		markers: make(map[string]*MarkerPayload),
		heat:    []layers.HeatPoint{},
	}
}

func (s *MapSurface) send(msgType string, data any) {
	s.out.Broadcast(&Message{Type: msgType, Data: data})
}

// CreateMarker implements layers.Surface
func (s *MapSurface) CreateMarker(key string, pos physics.LatLon, icon layers.Icon, tooltip []layers.TooltipRow) layers.MarkerHandle {
	m := &MarkerPayload{
		Key:     key,
		Lat:     pos.Lat,
		Lon:     pos.Lon,
		Icon:    icon,
		Tooltip: slices.Clone(tooltip),
	}

	s.mu.Lock()
	s.markers[key] = m
	payload := *m
	s.mu.Unlock()

	s.send(MessageTypeMarkerAdd, payload)
	return &mapMarker{surface: s, key: key}
}

// ReplaceHeat implements layers.Surface
func (s *MapSurface) ReplaceHeat(points []layers.HeatPoint) {
	cp := slices.Clone(points)
	if cp == nil {
		cp = []layers.HeatPoint{}
	}

	s.mu.Lock()
	s.heat = cp
	s.mu.Unlock()

	s.send(MessageTypeHeatReplace, map[string]any{"points": cp})
}

// SetHeatVisible implements layers.Surface
func (s *MapSurface) SetHeatVisible(visible bool) {
	s.mu.Lock()
	s.heatVisible = visible
	s.mu.Unlock()

	s.send(MessageTypeHeatVisibility, map[string]any{"visible": visible})
}

// SetHighlight implements layers.Surface
func (s *MapSurface) SetHighlight(pos physics.LatLon, radius int) {
	h := HighlightPayload{Lat: pos.Lat, Lon: pos.Lon, Radius: radius}

	s.mu.Lock()
	if s.highlight != nil && *s.highlight == h {
		s.mu.Unlock()
		return
	}
	s.highlight = &h
	s.mu.Unlock()

	s.send(MessageTypeHighlightSet, h)
}

// ClearHighlight implements layers.Surface
func (s *MapSurface) ClearHighlight() {
	s.mu.Lock()
	if s.highlight == nil {
		s.mu.Unlock()
		return
	}
	s.highlight = nil
	s.mu.Unlock()

	s.send(MessageTypeHighlightClear, nil)
}

// SetView implements layers.Surface
func (s *MapSurface) SetView(pos physics.LatLon, zoom int) {
	s.send(MessageTypeViewSet, ViewPayload{Lat: pos.Lat, Lon: pos.Lon, Zoom: zoom})
}

// PublishSnapshot stores and broadcasts the status bar and table data
func (s *MapSurface) PublishSnapshot(data any) {
	s.mu.Lock()
	s.snapshot = data
	s.mu.Unlock()

	s.send(MessageTypeSnapshot, data)
}

// ReplayMessages returns the messages that rebuild the current state on a fresh client
func (s *MapSurface) ReplayMessages() []*Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]*Message, 0, len(s.markers)+5)
	msgs = append(msgs, &Message{Type: MessageTypeMapInit, Data: s.init})

	keys := make([]string, 0, len(s.markers))
	for k := range s.markers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msgs = append(msgs, &Message{Type: MessageTypeMarkerAdd, Data: *s.markers[k]})
	}

	msgs = append(msgs,
		&Message{Type: MessageTypeHeatReplace, Data: map[string]any{"points": s.heat}},
		&Message{Type: MessageTypeHeatVisibility, Data: map[string]any{"visible": s.heatVisible}},
	)
	if s.highlight != nil {
		msgs = append(msgs, &Message{Type: MessageTypeHighlightSet, Data: *s.highlight})
	}
	if s.snapshot != nil {
		msgs = append(msgs, &Message{Type: MessageTypeSnapshot, Data: s.snapshot})
	}

	s.logger.Debug("Built replay", Int("messages", len(msgs)), Int("markers", len(keys)))
	return msgs
}

// MarkerCount returns the number of markers currently on the surface
func (s *MapSurface) MarkerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers)
}

// mapMarker is the handle for one marker on a MapSurface
type mapMarker struct {
	surface *MapSurface
	key     string
}

// mutate applies fn to the marker and broadcasts the new state when fn reports a change
func (m *mapMarker) mutate(fn func(p *MarkerPayload) bool) {
	s := m.surface

	s.mu.Lock()
	p, ok := s.markers[m.key]
	if !ok || !fn(p) {
		s.mu.Unlock()
		return
	}
	payload := *p
	s.mu.Unlock()

	s.send(MessageTypeMarkerUpdate, payload)
}

func (m *mapMarker) SetPosition(pos physics.LatLon) {
	m.mutate(func(p *MarkerPayload) bool {
		if p.Lat == pos.Lat && p.Lon == pos.Lon {
			return false
		}
		p.Lat, p.Lon = pos.Lat, pos.Lon
		return true
	})
}

func (m *mapMarker) SetIconAndRotation(icon layers.Icon) {
	m.mutate(func(p *MarkerPayload) bool {
		if p.Icon == icon {
			return false
		}
		p.Icon = icon
		return true
	})
}

func (m *mapMarker) SetTooltip(rows []layers.TooltipRow) {
	m.mutate(func(p *MarkerPayload) bool {
		if slices.Equal(p.Tooltip, rows) {
			return false
		}
		p.Tooltip = slices.Clone(rows)
		return true
	})
}

func (m *mapMarker) Destroy() {
	s := m.surface

	s.mu.Lock()
	if _, ok := s.markers[m.key]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.markers, m.key)
	s.mu.Unlock()

	s.send(MessageTypeMarkerRemove, map[string]any{"key": m.key})
}
