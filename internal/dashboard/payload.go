package dashboard

import (
	"time"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/board"
)

// Header is a table column with its current sort indicator
type Header struct {
	Key       board.SortKey `json:"key"`
	Label     string        `json:"label"`
	Indicator string        `json:"indicator"`
}

// Payload is the status bar, stats panel and table data sent to browsers
type Payload struct {
	Status          adsb.FetchStatus     `json:"status"`
	StatusText      string               `json:"status_text"`
	Countdown       int                  `json:"countdown"`
	CountdownText   string               `json:"countdown_text"`
	LastUpdated     *time.Time           `json:"last_updated,omitempty"`
	LastUpdatedText string               `json:"last_updated_text"`
	Error           *adsb.FetchError     `json:"error,omitempty"`
	FlightCount     int                  `json:"flight_count"`
	Headers         []Header             `json:"headers"`
	Rows            []board.Row          `json:"rows"`
	Stats           []board.AirlineCount `json:"stats"`
	Sort            board.SortState      `json:"sort"`
	Selected        string               `json:"selected"`
	HeatmapVisible  bool                 `json:"heatmap_visible"`
	Sequence        uint64               `json:"sequence"`
}

// Headers returns the table columns decorated for sortState
func Headers(sortState board.SortState) []Header {
	headers := make([]Header, len(board.Columns))
	for i, col := range board.Columns {
		headers[i] = Header{Key: col.Key, Label: col.Label, Indicator: sortState.Indicator(col.Key)}
	}
	return headers
}

// NewPayload renders a view at now
func NewPayload(v View, now time.Time) Payload {
	snap := v.Snapshot
	return Payload{
		Status:          snap.Status,
		StatusText:      board.StatusText(snap),
		Countdown:       snap.Countdown,
		CountdownText:   board.CountdownText(snap),
		LastUpdated:     snap.LastUpdated,
		LastUpdatedText: board.LastUpdatedText(snap),
		Error:           snap.Error,
		FlightCount:     len(snap.Flights),
		Headers:         Headers(v.Sort),
		Rows:            board.Rows(snap.Flights, v.Sort, v.Selected, now),
		Stats:           board.AirlineStats(snap.Flights),
		Sort:            v.Sort,
		Selected:        v.Selected,
		HeatmapVisible:  v.HeatmapVisible,
		Sequence:        snap.Sequence,
	}
}
