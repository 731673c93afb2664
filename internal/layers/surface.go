package layers

import "github.com/yegors/cdmx-flightboard/internal/physics"

// Icon is the marker glyph colour and its rotation in degrees
type Icon struct {
	Color    string  `json:"color"`
	Rotation float64 `json:"rotation"`
}

// TooltipRow is one label/value line of a marker tooltip
type TooltipRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// HeatPoint is one weighted point of the heat layer
type HeatPoint struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// MarkerHandle is a live marker on a surface. Its identity is fixed for its lifetime;
// after Destroy no other method may be called.
type MarkerHandle interface {
	SetPosition(pos physics.LatLon)
	SetIconAndRotation(icon Icon)
	SetTooltip(rows []TooltipRow)
	Destroy()
}

// Surface is the visual layer markers, the heat layer and the highlight are drawn on
type Surface interface {
	CreateMarker(key string, pos physics.LatLon, icon Icon, tooltip []TooltipRow) MarkerHandle
	ReplaceHeat(points []HeatPoint)
	SetHeatVisible(visible bool)
	SetHighlight(pos physics.LatLon, radius int)
	ClearHighlight()
	SetView(pos physics.LatLon, zoom int)
}
