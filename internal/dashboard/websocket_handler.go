package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/cdmx-flightboard/internal/websocket"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

const commandTimeout = 5 * time.Second

// Resyncer replays the full map state to one client
type Resyncer interface {
	Resync(client *websocket.Client)
}

// WebSocketHandler handles incoming WebSocket messages from map clients
type WebSocketHandler struct {
	controller *Controller
	resyncer   Resyncer
	logger     *logger.Logger
}

// NewWebSocketHandler creates a new WebSocket message handler
func NewWebSocketHandler(controller *Controller, resyncer Resyncer, log *logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		controller: controller,
		resyncer:   resyncer,
		logger:     log.Named("dashboard-ws-handler"),
	}
}

// HandleMessage handles incoming WebSocket messages
func (h *WebSocketHandler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch messageType {
	case websocket.MessageTypeSelectFlight:
		key, err := stringField(data, "icao24")
		if err != nil {
			return err
		}
		return h.controller.Select(ctx, key)

	case websocket.MessageTypeToggleRow:
		key, err := stringField(data, "icao24")
		if err != nil {
			return err
		}
		return h.controller.ToggleRow(ctx, key)

	case websocket.MessageTypeMapClick:
		return h.controller.ClearSelection(ctx)

	case websocket.MessageTypeSetHeatmap:
		visible, ok := data["visible"].(bool)
		if !ok {
			return fmt.Errorf("missing boolean field %q", "visible")
		}
		return h.controller.SetHeatmapVisible(ctx, visible)

	case websocket.MessageTypeSyncRequest:
		if h.resyncer != nil {
			h.resyncer.Resync(client)
		}
		return nil

	default:
		h.logger.Debug("Unhandled message type", logger.String("type", messageType))
		return nil
	}
}

func stringField(data map[string]any, name string) (string, error) {
	v, ok := data[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing string field %q", name)
	}
	return v, nil
}
