// Package watch serves a read-only live view of a game over HTTP: a JSON
// snapshot endpoint and a websocket that pushes a new snapshot on every
// game event.
package watch

import (
	"net"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/game"
)

// MessageTypeGameState tags websocket messages carrying a snapshot.
const MessageTypeGameState = "gameState"

// Message is what the websocket sends.
type Message struct {
	Type string        `json:"type"`
	Game game.Snapshot `json:"game"`
}

// Server publishes one game.
type Server struct {
	game     *game.Game
	app      *fiber.App
	log      logr.Logger
	listener game.ListenerID

	mu          sync.Mutex
	subscribers map[uuid.UUID]chan game.Snapshot
	done        chan struct{}
	closed      bool
}

// New creates a server for g and starts following its events.
func New(g *game.Game, log logr.Logger) *Server {
	s := &Server{
		game:        g,
		log:         log.WithName("watch"),
		subscribers: make(map[uuid.UUID]chan game.Snapshot),
		done:        make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "chesscore watch",
		DisableStartupMessage: true,
	})
	app.Use(func(c *fiber.Ctx) error {
		s.log.V(2).Info("request", "method", c.Method(), "path", c.Path())
		return c.Next()
	})

	api := app.Group("/api")
	api.Get("/game", s.getGame)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	app.Get("/ws/game", websocket.New(s.handleSocket, websocket.Config{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}))

	s.app = app
	s.listener = g.AddListener(s)
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.log.Info("watch server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.log.Info("watch server listening", "addr", ln.Addr().String())
	return s.app.Listener(ln)
}

// Shutdown stops following the game, closes open websockets and stops the
// HTTP server.
func (s *Server) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	var result *multierror.Error
	if !s.game.RemoveListener(s.listener) {
		result = multierror.Append(result, errors.New("watch: game listener already removed"))
	}
	if err := s.app.Shutdown(); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "shutting down http server"))
	}
	return result.ErrorOrNil()
}

// OnGameEvent implements game.Listener. Each subscriber holds at most one
// pending snapshot; a slow reader only ever misses intermediate states.
func (s *Server) OnGameEvent(g *game.Game) {
	snap := g.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (s *Server) subscribe() (uuid.UUID, <-chan game.Snapshot) {
	id := uuid.New()
	ch := make(chan game.Snapshot, 1)
	s.mu.Lock()
	s.subscribers[id] = ch
	s.mu.Unlock()
	return id, ch
}

func (s *Server) unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	delete(s.subscribers, id)
	s.mu.Unlock()
}

// Subscribers returns the number of open websockets.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Server) getGame(c *fiber.Ctx) error {
	return c.JSON(s.game.Snapshot())
}

func (s *Server) handleSocket(c *websocket.Conn) {
	id, updates := s.subscribe()
	defer s.unsubscribe(id)

	log := s.log.WithValues("subscriber", id.String())
	log.V(1).Info("websocket connected")

	// Spectators never send anything; reading only detects the close
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := c.WriteJSON(Message{Type: MessageTypeGameState, Game: s.game.Snapshot()}); err != nil {
		log.Error(err, "write failed")
		return
	}

	for {
		select {
		case snap := <-updates:
			if err := c.WriteJSON(Message{Type: MessageTypeGameState, Game: snap}); err != nil {
				log.Error(err, "write failed")
				return
			}
		case <-gone:
			log.V(1).Info("websocket disconnected")
			return
		case <-s.done:
			c.Close()
			return
		}
	}
}
