package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ZehenForever/dpsboard/internal/feed"
)

type Server struct {
	hub      *Hub
	replay   *Replay
	interval time.Duration
	upgrader websocket.Upgrader
	now      func() time.Time
}

func NewServer(replay *Replay, interval time.Duration) *Server {
	if interval <= 0 {
		interval = time.Second
	}
	return &Server{
		hub:      NewHub(),
		replay:   replay,
		interval: interval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		now: time.Now,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.health)
	mux.HandleFunc("/", s.getWS)
	return mux
}

// BroadcastLoop sends the current frame to every subscriber each interval.
func (s *Server) BroadcastLoop(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if s.hub.Count() == 0 {
				continue
			}
			s.hub.broadcast(s.replay.Frame())
		}
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	frames, cleared := s.replay.Stats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]int64{
		"subscribers": int64(s.hub.Count()),
		"frames":      frames,
		"cleared":     cleared,
	})
}

func (s *Server) getWS(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	c, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: err=%v", err)
		return
	}

	remote := r.RemoteAddr
	log.Printf("ws connect: remote=%s", remote)

	client := newWSClient(c)
	s.hub.add(client)

	// Keepalive + close detection: read loop.
	_ = c.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.SetPongHandler(func(string) error {
		_ = c.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go s.writePump(client)

	// Send the current state immediately rather than waiting a full interval.
	_ = client.enqueue(s.replay.Frame())

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			log.Printf("ws read closed: remote=%s err=%v", remote, err)
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch string(data) {
		case feed.ClearCommand:
			s.replay.Clear()
			log.Printf("replay: cleared by remote=%s", remote)
			if b, err := feed.EncodeClearConfirmed(s.now()); err == nil {
				_ = client.enqueue(b)
			}
		case feed.PingCommand:
			_ = client.enqueue([]byte(feed.PongReply))
		}
	}

	s.hub.remove(client)
	client.close()
	log.Printf("ws disconnect: remote=%s", remote)
}

func (s *Server) writePump(c *wsClient) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()
	defer func() {
		s.hub.remove(c)
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("ws write failed: err=%v", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("ws ping failed: err=%v", err)
				return
			}
		}
	}
}
