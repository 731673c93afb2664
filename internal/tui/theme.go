package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
)

// Theme holds the dashboard colours
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Green     lipgloss.AdaptiveColor
	Yellow    lipgloss.AdaptiveColor
	Red       lipgloss.AdaptiveColor
}

// DefaultTheme works on light and dark terminals
var DefaultTheme = Theme{
	Primary:   lipgloss.AdaptiveColor{Light: "#000000", Dark: "#FFFFFF"},
	Secondary: lipgloss.AdaptiveColor{Light: "#969B86", Dark: "#696969"},
	Highlight: lipgloss.AdaptiveColor{Light: "#2b6cb0", Dark: "#2b6cb0"},
	Border:    lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"},
	Green:     lipgloss.AdaptiveColor{Light: "#2f855a", Dark: "#48bb78"},
	Yellow:    lipgloss.AdaptiveColor{Light: "#b7791f", Dark: "#ecc94b"},
	Red:       lipgloss.AdaptiveColor{Light: "#c53030", Dark: "#f56565"},
}

// statusColor picks the indicator colour for a fetch status
func (t Theme) statusColor(status adsb.FetchStatus) lipgloss.AdaptiveColor {
	switch status {
	case adsb.FetchSucceeded:
		return t.Green
	case adsb.FetchLoading:
		return t.Yellow
	case adsb.FetchFailed:
		return t.Red
	}
	return t.Secondary
}
