package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yegors/cdmx-flightboard/pkg/logger"
)

// Router wires the API handlers, the websocket endpoint and the web client
type Router struct {
	handler   *Handler
	websocket http.Handler
	static    http.Handler
	logger    *logger.Logger
}

// NewRouter creates a new router. websocket and static may be nil.
func NewRouter(handler *Handler, websocket http.Handler, static http.Handler, log *logger.Logger) *Router {
	return &Router{
		handler:   handler,
		websocket: websocket,
		static:    static,
		logger:    log.Named("router"),
	}
}

// Routes returns the HTTP handler for the whole service
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NoCache)

		r.Get("/health", rt.handler.GetHealth)
		r.Get("/config", rt.handler.GetConfig)
		r.Get("/status", rt.handler.GetStatus)

		r.Get("/flights", rt.handler.GetFlights)
		r.Get("/flights/{icao24}", rt.handler.GetFlight)
		r.Post("/sort/{key}", rt.handler.ToggleSort)
		r.Get("/stats/airlines", rt.handler.GetAirlineStats)

		r.Post("/selection/{icao24}", rt.handler.SelectFlight)
		r.Post("/selection/{icao24}/toggle", rt.handler.ToggleFlight)
		r.Delete("/selection", rt.handler.ClearSelection)

		r.Put("/heatmap", rt.handler.SetHeatmap)
		r.Post("/refresh", rt.handler.Refresh)
	})

	if rt.websocket != nil {
		r.Get("/ws", rt.websocket.ServeHTTP)
	}
	if rt.static != nil {
		r.Handle("/*", rt.static)
	}

	return r
}

// requestLogger logs every request through the service logger
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		rt.logger.Debug("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())))
	})
}
