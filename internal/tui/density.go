package tui

import (
	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/layers"
)

const (
	densityCols = 28
	densityRows = 8
)

// densityShades go from empty to the busiest cell
var densityShades = []rune(" ░▒▓█")

// densityGrid bins heat points into a cols x rows character grid over area, north up.
// Points outside the area are ignored. A degenerate area yields nil.
func densityGrid(points []layers.HeatPoint, area adsb.BoundingBox, cols, rows int) []string {
	latSpan := area.Lamax - area.Lamin
	lonSpan := area.Lomax - area.Lomin
	if latSpan <= 0 || lonSpan <= 0 || cols <= 0 || rows <= 0 {
		return nil
	}

	counts := make([][]float64, rows)
	for i := range counts {
		counts[i] = make([]float64, cols)
	}

	var peak float64
	for _, p := range points {
		if p.Lat < area.Lamin || p.Lat > area.Lamax || p.Lon < area.Lomin || p.Lon > area.Lomax {
			continue
		}
		x := min(int((p.Lon-area.Lomin)/lonSpan*float64(cols)), cols-1)
		y := min(int((area.Lamax-p.Lat)/latSpan*float64(rows)), rows-1)
		counts[y][x] += p.Weight
		peak = max(peak, counts[y][x])
	}

	grid := make([]string, rows)
	top := len(densityShades) - 1
	for y, row := range counts {
		line := make([]rune, cols)
		for x, c := range row {
			level := 0
			if c > 0 {
				level = max(1, int(c/peak*float64(top)))
			}
			line[x] = densityShades[level]
		}
		grid[y] = string(line)
	}
	return grid
}
