// Package hostws exposes the engine to a browser or remote host over a
// websocket at /ws. Snapshots are pushed as JSON; pointer gestures and
// commands come back the same way.
package hostws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"film-frame-tracker/internal/detect"
	"film-frame-tracker/internal/engine"
	"film-frame-tracker/internal/geom"

	"github.com/gorilla/websocket"
)

// Inputs receives host input. *engine.Engine satisfies it.
type Inputs interface {
	Enqueue(ev engine.Event)
	SetAggressiveness(v float64) detect.Params
}

// Message is an inbound host message.
type Message struct {
	Type    string  `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Value   float64 `json:"value"`
	Enabled bool    `json:"enabled"`
}

// Envelope is an outbound message.
type Envelope struct {
	Type     string           `json:"type"`
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
	Params   *detect.Params   `json:"params,omitempty"`
	Error    string           `json:"error,omitempty"`
}

const sendBuffer = 4

var errUnknownMessage = errors.New("unknown message type")

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans snapshots out to every connected client.
type Server struct {
	inputs   Inputs
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
}

func New(inputs Inputs, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		inputs: inputs,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Handler routes /ws to the websocket endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

// ListenAndServe serves until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("host listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.closeAll()
		return srv.Shutdown(shutdownCtx)
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Publish sends snap to every client without blocking. A client whose
// buffer is full misses this snapshot.
func (s *Server) Publish(snap engine.Snapshot) {
	msg, err := json.Marshal(Envelope{Type: "snapshot", Snapshot: &snap})
	if err != nil {
		s.logger.Warn("hostws: encode snapshot", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("hostws: upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("hostws: client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(c, done)
	s.readLoop(c)
	close(done)
	s.remove(c)
	s.logger.Debug("hostws: client disconnected", "remote", r.RemoteAddr)
}

func (s *Server) writeLoop(c *client, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			s.reply(c, Envelope{Type: "error", Error: fmt.Sprintf("decode: %v", err)})
			continue
		}
		if err := s.dispatch(c, m); err != nil {
			s.reply(c, Envelope{Type: "error", Error: err.Error()})
		}
	}
}

// dispatch maps one inbound message onto the engine inputs.
func (s *Server) dispatch(c *client, m Message) error {
	p := geom.Point{X: m.X, Y: m.Y}
	switch m.Type {
	case "pointerdown":
		s.inputs.Enqueue(engine.Event{Kind: engine.PointerDown, Point: p})
	case "pointermove":
		s.inputs.Enqueue(engine.Event{Kind: engine.PointerMove, Point: p})
	case "pointerup":
		s.inputs.Enqueue(engine.Event{Kind: engine.PointerUp, Point: p})
	case "pointercancel":
		s.inputs.Enqueue(engine.Event{Kind: engine.PointerCancel})
	case "unlock":
		s.inputs.Enqueue(engine.Event{Kind: engine.Unlock})
	case "autoframe":
		s.inputs.Enqueue(engine.Event{Kind: engine.AutoFrame, Enabled: m.Enabled})
	case "aggressiveness":
		params := s.inputs.SetAggressiveness(m.Value)
		s.reply(c, Envelope{Type: "params", Params: &params})
	default:
		return fmt.Errorf("%w: %q", errUnknownMessage, m.Type)
	}
	return nil
}

func (s *Server) reply(c *client, env Envelope) {
	msg, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.conn.Close()
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
	}
}
