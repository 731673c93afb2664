package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yegors/cdmx-flightboard/internal/adsb"
	"github.com/yegors/cdmx-flightboard/internal/board"
	"github.com/yegors/cdmx-flightboard/internal/config"
	"github.com/yegors/cdmx-flightboard/internal/dashboard"
	"github.com/yegors/cdmx-flightboard/internal/layers"
	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// FlightService is the polling pipeline as seen by the API
type FlightService interface {
	Snapshot() adsb.Snapshot
	Metrics() adsb.MetricsSnapshot
	Refresh() error
}

// Dashboard is the single owner of selection, heatmap and sort state
type Dashboard interface {
	View() dashboard.View
	Select(ctx context.Context, icao24 string) error
	ToggleRow(ctx context.Context, icao24 string) error
	ClearSelection(ctx context.Context) error
	SetHeatmapVisible(ctx context.Context, visible bool) error
	ToggleSort(ctx context.Context, key board.SortKey) (board.SortState, error)
}

// Handler contains the API handlers
type Handler struct {
	service   FlightService
	dashboard Dashboard
	config    *config.Config
	logger    *logger.Logger
	clock     func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(service FlightService, dash Dashboard, cfg *config.Config, log *logger.Logger) *Handler {
	return &Handler{
		service:   service,
		dashboard: dash,
		config:    cfg,
		logger:    log.Named("api-handler"),
		clock:     time.Now,
	}
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	response := map[string]any{
		"status":       "ok",
		"fetch_status": snap.Status,
		"last_updated": snap.LastUpdated,
		"flight_count": len(snap.Flights),
		"metrics":      h.service.Metrics(),
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetConfig returns the public configuration
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	publicConfig := map[string]any{
		"bbox": adsb.BoundingBox{
			Lamin: h.config.OpenSky.Lamin,
			Lomin: h.config.OpenSky.Lomin,
			Lamax: h.config.OpenSky.Lamax,
			Lomax: h.config.OpenSky.Lomax,
		},
		"map": map[string]any{
			"center_lat":       h.config.Map.CenterLat,
			"center_lon":       h.config.Map.CenterLon,
			"zoom":             h.config.Map.Zoom,
			"selection_zoom":   h.config.Map.SelectionZoom,
			"highlight_radius": h.config.Map.HighlightRadius,
		},
		"adsb": map[string]any{
			"fetch_interval_seconds":   h.config.ADSB.FetchIntervalSecs,
			"request_timeout_seconds":  h.config.OpenSky.RequestTimeoutSecs,
			"low_altitude_threshold_m": h.config.ADSB.LowAltitudeThresholdM,
		},
	}

	WriteJSON(w, http.StatusOK, publicConfig)
}

// GetStatus returns the status bar data
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := h.service.Snapshot()

	response := map[string]any{
		"status":            snap.Status,
		"status_text":       board.StatusText(snap),
		"countdown":         snap.Countdown,
		"countdown_text":    board.CountdownText(snap),
		"next_fetch_at":     snap.NextFetchAt,
		"last_updated":      snap.LastUpdated,
		"last_updated_text": board.LastUpdatedText(snap),
		"flight_count":      len(snap.Flights),
		"metrics":           h.service.Metrics(),
	}
	if snap.Error != nil {
		response["error"] = snap.Error
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetFlights returns the table rows. ?sort= and ?dir= give a one-off ordering
// that leaves the shared sort state alone.
func (h *Handler) GetFlights(w http.ResponseWriter, r *http.Request) {
	view := h.dashboard.View()
	sortState := view.Sort

	if key := r.URL.Query().Get("sort"); key != "" {
		sortKey, err := board.ParseSortKey(key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		dir, err := board.ParseDirection(r.URL.Query().Get("dir"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sortState = board.SortState{Key: sortKey, Dir: dir}
	}

	rows := board.Rows(view.Snapshot.Flights, sortState, view.Selected, h.clock())

	WriteJSON(w, http.StatusOK, map[string]any{
		"sort":     sortState,
		"headers":  dashboard.Headers(sortState),
		"rows":     rows,
		"count":    len(rows),
		"selected": view.Selected,
	})
}

// GetFlight returns one flight record by its icao24 key
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "icao24")

	flight, found := h.dashboard.View().Snapshot.Find(key)
	if !found {
		writeError(w, http.StatusNotFound, layers.ErrUnknownFlight)
		return
	}

	WriteJSON(w, http.StatusOK, flight)
}

// ToggleSort applies a header click to the shared sort state
func (h *Handler) ToggleSort(w http.ResponseWriter, r *http.Request) {
	key, err := board.ParseSortKey(chi.URLParam(r, "key"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := h.dashboard.ToggleSort(r.Context(), key)
	if err != nil {
		h.writeCommandError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, state)
}

// GetAirlineStats returns flight counts per airline
func (h *Handler) GetAirlineStats(w http.ResponseWriter, r *http.Request) {
	stats := board.AirlineStats(h.dashboard.View().Snapshot.Flights)
	WriteJSON(w, http.StatusOK, map[string]any{
		"airlines": stats,
		"count":    len(stats),
	})
}

// SelectFlight selects a flight and centers the map on it
func (h *Handler) SelectFlight(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.Select(r.Context(), chi.URLParam(r, "icao24")); err != nil {
		h.writeCommandError(w, err)
		return
	}
	h.writeSelection(w)
}

// ToggleFlight applies a table row click
func (h *Handler) ToggleFlight(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.ToggleRow(r.Context(), chi.URLParam(r, "icao24")); err != nil {
		h.writeCommandError(w, err)
		return
	}
	h.writeSelection(w)
}

// ClearSelection applies a map background click
func (h *Handler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := h.dashboard.ClearSelection(r.Context()); err != nil {
		h.writeCommandError(w, err)
		return
	}
	h.writeSelection(w)
}

func (h *Handler) writeSelection(w http.ResponseWriter) {
	WriteJSON(w, http.StatusOK, map[string]any{"selected": h.dashboard.View().Selected})
}

// SetHeatmap shows or hides the heat layer
func (h *Handler) SetHeatmap(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visible *bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Visible == nil {
		writeError(w, http.StatusBadRequest, errors.New("visible is required"))
		return
	}

	if err := h.dashboard.SetHeatmapVisible(r.Context(), *req.Visible); err != nil {
		h.writeCommandError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"visible": *req.Visible})
}

// Refresh starts a fetch outside the regular schedule
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Refresh(); err != nil {
		h.writeCommandError(w, err)
		return
	}

	h.logger.Info("Manual refresh requested")
	WriteJSON(w, http.StatusAccepted, map[string]any{"status": "refresh started"})
}

// writeCommandError maps domain errors to HTTP status codes
func (h *Handler) writeCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, layers.ErrUnknownFlight):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, board.ErrUnknownSortKey):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, adsb.ErrFetchInFlight):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, adsb.ErrNotRunning), errors.Is(err, dashboard.ErrStopped),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("Command failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, err)
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
