package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"mazecoord/internal/broadcast"
	"mazecoord/internal/config"
	"mazecoord/internal/coordinator"
	"mazecoord/internal/db"
	"mazecoord/internal/events"
	"mazecoord/internal/gamedata"
	"mazecoord/internal/metrics"
	"mazecoord/internal/rooms"
	"mazecoord/internal/wshub"
)

type Server struct {
	Rooms       rooms.Registry
	Coordinator *coordinator.Coordinator
	Broadcaster *broadcast.Broadcaster
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	DB          *db.DB // nil if no database configured
	Config      config.Config
	Log         *slog.Logger

	bus *events.Bus
}

type roomSummary struct {
	Code     string         `json:"code"`
	Phase    gamedata.Phase `json:"phase"`
	Players  int            `json:"players"`
	Required int            `json:"required"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

// handleWS upgrades the request and feeds every inbound frame to the
// coordinator until the connection goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.Config.AllowedOrigins,
	})
	if err != nil {
		s.Log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	if s.Config.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.Config.MaxMessageBytes)
	}

	ctx := r.Context()
	c := wshub.NewClient(uuid.NewString(), conn, s.Config.SendBuffer)
	s.Metrics.Connections.Inc()
	defer s.Metrics.Connections.Dec()
	s.Coordinator.Register(c)
	s.Log.Debug("connection opened", "conn", c.ID, "remote", r.RemoteAddr)

	go c.WritePump(ctx, s.Log)

	reason := s.readLoop(ctx, c, conn)
	s.Coordinator.Disconnect(c, reason)
	s.Coordinator.Unregister(c)
	c.Close(websocket.StatusNormalClosure, "")
	s.Log.Debug("connection closed", "conn", c.ID, "reason", reason)
}

func (s *Server) readLoop(ctx context.Context, c *wshub.Client, conn *websocket.Conn) string {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			switch status := websocket.CloseStatus(err); {
			case status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway:
				return "closed"
			case errors.Is(err, context.Canceled):
				return "shutdown"
			default:
				return "error"
			}
		}
		if typ != websocket.MessageText {
			continue
		}
		s.Coordinator.Handle(ctx, c, data)
	}
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	list := s.Rooms.List()
	out := make([]roomSummary, 0, len(list))
	for _, room := range list {
		room.Mu.Lock()
		if !room.Closed() {
			out = append(out, roomSummary{
				Code:     room.Code,
				Phase:    room.Phase(),
				Players:  room.Players.Count(),
				Required: room.Required(),
			})
		}
		room.Mu.Unlock()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	msgChan := s.Broadcaster.Subscribe()
	defer s.Broadcaster.Unsubscribe(msgChan)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			for _, line := range strings.Split(msg.Data, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
