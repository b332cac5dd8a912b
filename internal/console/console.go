// Package console exposes a small diagnostics HTTP surface next to the
// assistant: health, a JSON snapshot of the conversation, and a live
// websocket feed of turn events.
package console

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Aakashjammula/audio-agent/internal/llm"
)

// Snapshot is what GET /state returns.
type Snapshot struct {
	BotSpeaking bool       `json:"bot_speaking"`
	Turns       int64      `json:"turns"`
	History     []llm.Turn `json:"history"`
}

// StateFunc supplies the current snapshot; called per request.
type StateFunc func() Snapshot

// Event is one entry on the live feed.
type Event struct {
	Kind string    `json:"kind"` // "transcript" or "turn"
	User string    `json:"user,omitempty"`
	Bot  string    `json:"bot,omitempty"`
	At   time.Time `json:"at"`
}

const feedBuffer = 16

type feedClient struct {
	conn *websocket.Conn
	ch   chan Event
}

// Server is the diagnostics console. It never touches the audio path;
// a slow or dead client only ever loses its own events.
type Server struct {
	e        *echo.Echo
	state    StateFunc
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*feedClient]struct{}
}

func New(state StateFunc) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	s := &Server{
		e:     e,
		state: state,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
	}

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/state", s.handleState)
	e.GET("/live", s.handleLive)
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.e }

// Start blocks serving on address until Shutdown.
func (s *Server) Start(address string) error {
	err := s.e.Start(address)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	for cl := range s.clients {
		close(cl.ch)
		delete(s.clients, cl)
	}
	s.mu.Unlock()
	return s.e.Shutdown(ctx)
}

func (s *Server) handleState(c echo.Context) error {
	snap := s.state()
	if snap.History == nil {
		snap.History = []llm.Turn{}
	}
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handleLive(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	cl := &feedClient{conn: conn, ch: make(chan Event, feedBuffer)}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()

	go s.writeFeed(cl)

	// the read loop exists only to notice the client going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(cl)
	return nil
}

func (s *Server) writeFeed(cl *feedClient) {
	for ev := range cl.ch {
		if err := cl.conn.WriteJSON(ev); err != nil {
			s.drop(cl)
			return
		}
	}
	_ = cl.conn.Close()
}

func (s *Server) drop(cl *feedClient) {
	s.mu.Lock()
	if _, ok := s.clients[cl]; ok {
		delete(s.clients, cl)
		close(cl.ch)
	}
	s.mu.Unlock()
}

// Broadcast fans an event out to every live client. Full client buffers
// drop the event rather than block the caller.
func (s *Server) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		select {
		case cl.ch <- ev:
		default:
			log.Printf("console: live feed client lagging, dropping event")
		}
	}
}
