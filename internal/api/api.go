// Package api exposes the route catalogue and on-demand vehicle snapshots
// over HTTP. The vehicles endpoint accepts an explicit reference time so a
// caller can reproduce any snapshot exactly.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"transit-simulator/internal/marker"
	"transit-simulator/internal/sim"
	"transit-simulator/internal/transit"
)

// RouteLookup resolves a route ID to its managed route (route metadata plus
// precomputed geometry and schedule).
type RouteLookup func(routeID string) (sim.ManagedRoute, bool)

type Server struct {
	routes  []transit.Route
	lookup  RouteLookup
	active  func() int
	source  string // directory backend name, for /v1/health
	tz      *time.Location
	markers *marker.Registry // may be nil
}

func NewServer(routes []transit.Route, lookup RouteLookup, active func() int, source string, tz *time.Location, markers *marker.Registry) *Server {
	return &Server{routes: routes, lookup: lookup, active: active, source: source, tz: tz, markers: markers}
}

func (s *Server) Router() http.Handler {
	router := httprouter.New()
	router.GET("/v1/health", s.health)
	router.GET("/v1/routes", s.listRoutes)
	router.GET("/v1/routes/:id/vehicles", s.vehiclesForRoute)
	router.GET("/v1/markers", s.markerPositions)
	return router
}

// Serve starts the API server on addr.
func (s *Server) Serve(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
	log.Printf("api listening on %s", addr)
	return srv
}

type healthResponse struct {
	Status       string `json:"status"`
	Directory    string `json:"directory"`
	ActiveRoutes int    `json:"activeRoutes"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Directory:    s.source,
		ActiveRoutes: s.active(),
	})
}

type routeItem struct {
	ID         string    `json:"id"`
	ShortName  string    `json:"shortName"`
	LongName   string    `json:"longName"`
	Color      string    `json:"color"`
	Directions [2]string `json:"directions"`
}

func (s *Server) listRoutes(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	items := make([]routeItem, 0, len(s.routes))
	for _, r := range s.routes {
		items = append(items, routeItem{
			ID:         r.ID,
			ShortName:  r.ShortName,
			LongName:   r.LongName,
			Color:      r.Color,
			Directions: r.DirectionLabels,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": items})
}

func (s *Server) vehiclesForRoute(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	mr, ok := s.lookup(ps.ByName("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown route")
		return
	}

	at := time.Now().In(s.tz)
	if v := req.URL.Query().Get("time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "time must be RFC3339")
			return
		}
		at = t.In(s.tz)
	}

	snap := transit.Snapshot{
		RouteID:     mr.Route.ID,
		GeneratedAt: at,
		Source:      "simulated",
		Vehicles:    sim.Generate(mr.Route, mr.Shapes, mr.Params, at),
	}
	writeJSON(w, http.StatusOK, snap)
}

type markerItem struct {
	VehicleID string  `json:"vehicleId"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
}

// markerPositions reports the current smoothed position of every displayed
// marker, i.e. what a map consumer would be drawing right now.
func (s *Server) markerPositions(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if s.markers == nil {
		writeJSON(w, http.StatusOK, map[string]any{"markers": []markerItem{}})
		return
	}
	positions := s.markers.Positions()
	items := make([]markerItem, 0, len(positions))
	for id, pos := range positions {
		items = append(items, markerItem{VehicleID: id, Lat: pos.Lat, Lon: pos.Lon})
	}
	writeJSON(w, http.StatusOK, map[string]any{"markers": items})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
