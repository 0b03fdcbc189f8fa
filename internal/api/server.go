// Package api exposes the daemon's status and the monitor-video mapping
// over HTTP. The server is optional and only started when a status port
// is configured.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/logger"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/runtime"
	"github.com/KitotsuMolina/Kitsune-RenderCore/internal/videomap"
)

// eventInterval paces the websocket status stream.
const eventInterval = time.Second

// Server serves the status API for one render runtime.
type Server struct {
	router   *mux.Router
	rt       *runtime.RenderRuntime
	store    *videomap.Store
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewServer(rt *runtime.RenderRuntime, store *videomap.Store) *Server {
	s := &Server{
		router: mux.NewRouter(),
		rt:     rt,
		store:  store,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.WithComponent("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/monitors", s.handleMonitors).Methods("GET")

	api.HandleFunc("/map", s.handleGetMap).Methods("GET")
	api.HandleFunc("/map/{monitor}", s.handleSetMap).Methods("PUT")

	api.HandleFunc("/events", s.handleEvents)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Router returns the configured handler, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start blocks serving the API on the given port.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info().Str("addr", addr).Msg("status API listening")
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rt.Snapshot())
}

func (s *Server) handleMonitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.rt.Snapshot().Monitors)
}

func (s *Server) handleGetMap(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"map_file": s.store.MapFile(),
		"mappings": s.store.Snapshot(),
	})
}

func (s *Server) handleSetMap(w http.ResponseWriter, r *http.Request) {
	monitor := mux.Vars(r)["monitor"]

	var req struct {
		Video string `json:"video"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := videomap.SetMonitorVideo(s.store.MapFile(), monitor, req.Video); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info().Str("monitor", monitor).Str("video", req.Video).Msg("mapping updated via API")
	writeJSON(w, map[string]string{"status": "success"})
}

// handleEvents streams status snapshots over a websocket until the
// client goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(s.rt.Snapshot()); err != nil {
		return
	}
	ticker := time.NewTicker(eventInterval)
	defer ticker.Stop()
	for range ticker.C {
		if err := conn.WriteJSON(s.rt.Snapshot()); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
