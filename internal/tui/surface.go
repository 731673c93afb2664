package tui

import (
	"slices"
	"sync"

	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/internal/physics"
)

// Surface is the terminal's layers.Surface. The flight table stands in for the
// markers, so only the heat points are kept. It is also the dashboard's snapshot
// publisher and wakes the model after every change.
type Surface struct {
	mu      sync.Mutex
	heat    []layers.HeatPoint
	changes chan struct{}
}

// NewSurface creates an empty terminal surface
func NewSurface() *Surface {
	return &Surface{changes: make(chan struct{}, 1)}
}

func (s *Surface) CreateMarker(string, physics.LatLon, layers.Icon, []layers.TooltipRow) layers.MarkerHandle {
	return tableMarker{}
}

func (s *Surface) ReplaceHeat(points []layers.HeatPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heat = slices.Clone(points)
}

// Visibility, highlight and view are read from the dashboard view instead
func (s *Surface) SetHeatVisible(bool)              {}
func (s *Surface) SetHighlight(physics.LatLon, int) {}
func (s *Surface) ClearHighlight()                  {}
func (s *Surface) SetView(physics.LatLon, int)      {}

// PublishSnapshot signals a dashboard change. Pending signals coalesce.
func (s *Surface) PublishSnapshot(any) {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Changes delivers one signal per batch of dashboard changes
func (s *Surface) Changes() <-chan struct{} {
	return s.changes
}

// Heat returns a copy of the current heat points
func (s *Surface) Heat() []layers.HeatPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.heat)
}

type tableMarker struct{}

func (tableMarker) SetPosition(physics.LatLon)     {}
func (tableMarker) SetIconAndRotation(layers.Icon) {}
func (tableMarker) SetTooltip([]layers.TooltipRow) {}
func (tableMarker) Destroy()                       {}
