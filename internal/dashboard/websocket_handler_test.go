package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/internal/websocket"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

type countingResyncer struct {
	calls int
}

func (r *countingResyncer) Resync(*websocket.Client) { r.calls++ }

func TestWebSocketHandler(t *testing.T) {
	h := newHarness(t)
	h.publish(t, adsb.Snapshot{Sequence: 1, Cycle: 1, Flights: []adsb.FlightRecord{flight("a", 19.1)}})

	resync := &countingResyncer{}
	handler := NewWebSocketHandler(h.controller, resync, logger.NewNop())

	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeSelectFlight, map[string]any{"icao24": "a"}))
	assert.Equal(t, "a", h.controller.View().Selected)

	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeToggleRow, map[string]any{"icao24": "a"}))
	assert.Empty(t, h.controller.View().Selected)

	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeToggleRow, map[string]any{"icao24": "a"}))
	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeMapClick, nil))
	assert.Empty(t, h.controller.View().Selected)

	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeSetHeatmap, map[string]any{"visible": true}))
	assert.True(t, h.controller.View().HeatmapVisible)

	require.NoError(t, handler.HandleMessage(nil, websocket.MessageTypeSyncRequest, nil))
	assert.Equal(t, 1, resync.calls)

	require.NoError(t, handler.HandleMessage(nil, "unknown", nil))
}

func TestWebSocketHandlerRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	handler := NewWebSocketHandler(h.controller, nil, logger.NewNop())

	tests := []struct {
		name    string
		msgType string
		data    map[string]any
	}{
		{"select without key", websocket.MessageTypeSelectFlight, map[string]any{}},
		{"toggle with number", websocket.MessageTypeToggleRow, map[string]any{"icao24": 12}},
		{"heatmap without flag", websocket.MessageTypeSetHeatmap, map[string]any{"visible": "yes"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, handler.HandleMessage(nil, tt.msgType, tt.data))
		})
	}

	err := handler.HandleMessage(nil, websocket.MessageTypeSelectFlight, map[string]any{"icao24": "nope"})
	assert.ErrorIs(t, err, layers.ErrUnknownFlight)
}
