package services

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rideline/navigator/internal/httputil"
	"github.com/rideline/navigator/internal/lib/geo"
	"github.com/rideline/navigator/internal/lib/suggest"
)

var validate = validator.New()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handlers exposes the navigation service over HTTP and WebSocket
type Handlers struct {
	service *NavigationService
	hub     *ProgressHub
	logger  *zap.Logger
}

// NewHandlers creates the handler set
func NewHandlers(service *NavigationService, hub *ProgressHub, logger *zap.Logger) *Handlers {
	return &Handlers{service: service, hub: hub, logger: logger}
}

// Register installs all routes on mux, wrapping each through wrap (used
// for tracing middleware; pass an identity func to skip).
func (h *Handlers) Register(mux *http.ServeMux, wrap func(http.HandlerFunc, string) http.Handler) {
	mux.Handle("POST /api/v1/routes/preview", wrap(h.HandlePreviewRoute, "/api/v1/routes/preview"))
	mux.Handle("GET /api/v1/routes/{id}", wrap(h.HandleGetRoute, "/api/v1/routes/{id}"))
	mux.Handle("GET /api/v1/routes/{id}/kml", wrap(h.HandleRouteKML, "/api/v1/routes/{id}/kml"))
	mux.Handle("POST /api/v1/navigation", wrap(h.HandleStartNavigation, "/api/v1/navigation"))
	mux.Handle("POST /api/v1/navigation/{id}/position", wrap(h.HandlePositionUpdate, "/api/v1/navigation/{id}/position"))
	mux.Handle("GET /api/v1/navigation/{id}", wrap(h.HandleSessionProgress, "/api/v1/navigation/{id}"))
	mux.Handle("DELETE /api/v1/navigation/{id}", wrap(h.HandleStopNavigation, "/api/v1/navigation/{id}"))
	mux.Handle("POST /api/v1/suggestions/rank", wrap(h.HandleRankSuggestions, "/api/v1/suggestions/rank"))
	mux.HandleFunc("GET /ws/navigation/{id}", h.HandleNavigationSocket)
}

// coordinatePayload is the wire form of a coordinate with validation
type coordinatePayload struct {
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

func (c coordinatePayload) toGeo() geo.Coordinate {
	return geo.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

// Required coordinates are pointers so presence is nil-checked: a
// value field tagged required would reject the legitimate (0, 0).
type previewRouteRequest struct {
	Origin      *coordinatePayload  `json:"origin" validate:"required"`
	Destination *coordinatePayload  `json:"destination" validate:"required"`
	Waypoints   []coordinatePayload `json:"waypoints" validate:"omitempty,dive"`
}

// HandlePreviewRoute assembles (and caches) a route for a trip
func (h *Handlers) HandlePreviewRoute(w http.ResponseWriter, r *http.Request) {
	var req previewRouteRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	waypoints := make([]geo.Coordinate, len(req.Waypoints))
	for i, wp := range req.Waypoints {
		waypoints[i] = wp.toGeo()
	}

	rt, err := h.service.PreviewRoute(r.Context(), req.Origin.toGeo(), req.Destination.toGeo(), waypoints)
	if err != nil {
		h.logger.Error("route preview failed", zap.Error(err))
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to preview route", nil)
		return
	}

	httputil.RespondWithSuccess(w, http.StatusOK, "Route preview", rt)
}

// HandleGetRoute returns a previously assembled route
func (h *Handlers) HandleGetRoute(w http.ResponseWriter, r *http.Request) {
	rt, err := h.service.GetRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Route not found", nil)
			return
		}
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to load route", nil)
		return
	}

	httputil.RespondWithSuccess(w, http.StatusOK, "Route", rt)
}

// HandleRouteKML streams the route path as a KML document
func (h *Handlers) HandleRouteKML(w http.ResponseWriter, r *http.Request) {
	rt, err := h.service.GetRoute(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Route not found", nil)
			return
		}
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to load route", nil)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	if err := rt.WriteKML(w); err != nil {
		h.logger.Error("failed to write KML", zap.Error(err))
	}
}

type startNavigationRequest struct {
	RouteID string `json:"route_id" validate:"required"`
}

type startNavigationResponse struct {
	SessionID string `json:"session_id"`
}

// HandleStartNavigation opens a navigation session on a previewed route
func (h *Handlers) HandleStartNavigation(w http.ResponseWriter, r *http.Request) {
	var req startNavigationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	sessionID, err := h.service.StartNavigation(req.RouteID)
	if err != nil {
		if errors.Is(err, ErrRouteNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Route not found", nil)
			return
		}
		h.logger.Error("failed to start navigation", zap.Error(err))
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to start navigation", nil)
		return
	}

	httputil.RespondWithSuccess(w, http.StatusCreated, "Navigation started", startNavigationResponse{SessionID: sessionID})
}

// HandlePositionUpdate applies one position update to a session
func (h *Handlers) HandlePositionUpdate(w http.ResponseWriter, r *http.Request) {
	var req coordinatePayload
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	progress, err := h.service.UpdatePosition(r.PathValue("id"), req.toGeo())
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Session not found", nil)
			return
		}
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to apply position update", nil)
		return
	}

	httputil.RespondWithSuccess(w, http.StatusOK, "Progress", progress)
}

// HandleSessionProgress returns the current snapshot without an update
func (h *Handlers) HandleSessionProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.service.SessionProgress(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			httputil.RespondWithError(w, http.StatusNotFound, "Session not found", nil)
			return
		}
		httputil.RespondWithError(w, http.StatusInternalServerError, "Failed to read session", nil)
		return
	}

	httputil.RespondWithSuccess(w, http.StatusOK, "Progress", progress)
}

// HandleStopNavigation cancels a session; unknown sessions are fine
func (h *Handlers) HandleStopNavigation(w http.ResponseWriter, r *http.Request) {
	h.service.StopNavigation(r.PathValue("id"))
	httputil.RespondWithSuccess(w, http.StatusOK, "Navigation stopped", nil)
}

type rankSuggestionsRequest struct {
	Origin     *coordinatePayload   `json:"origin" validate:"required"`
	Candidates []suggest.Suggestion `json:"candidates" validate:"required,min=1"`
}

// HandleRankSuggestions sorts address candidates by proximity
func (h *Handlers) HandleRankSuggestions(w http.ResponseWriter, r *http.Request) {
	var req rankSuggestionsRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ranked := h.service.RankSuggestions(req.Origin.toGeo(), req.Candidates)
	httputil.RespondWithSuccess(w, http.StatusOK, "Suggestions", ranked)
}

// HandleNavigationSocket streams progress snapshots for a session over
// a websocket until the client disconnects or the session ends.
func (h *Handlers) HandleNavigationSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	if _, err := h.service.SessionProgress(sessionID); err != nil {
		httputil.RespondWithError(w, http.StatusNotFound, "Session not found", nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	watcher := h.hub.Register(sessionID)
	defer h.hub.Unregister(watcher)

	// Reader goroutine: surfaces client disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case progress, ok := <-watcher.Ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(progress)
			if err != nil {
				h.logger.Error("failed to marshal progress", zap.Error(err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			if progress.IsCompleted || progress.State == "cancelled" {
				return
			}
		}
	}
}

// decodeAndValidate reads a JSON body into dst and enforces its
// validation tags, replying 400 on failure.
func (h *Handlers) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Invalid request body", nil)
		return false
	}
	defer r.Body.Close()

	if err := validate.Struct(dst); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "Validation failed", httputil.FormatValidationErrors(err))
		return false
	}
	return true
}
