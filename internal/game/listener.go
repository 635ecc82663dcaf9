package game

import (
	"github.com/google/uuid"
)

// Listener observes a game. OnGameEvent fires after every status, progress
// or completion change, on the goroutine that made the change and never
// while the game is locked, so it may call any read accessor of g.
// Several events fire per turn; listeners should be fast and idempotent.
type Listener interface {
	OnGameEvent(g *Game)
}

// ListenerFunc adapts a plain function to the Listener interface.
type ListenerFunc func(g *Game)

// OnGameEvent calls f(g).
func (f ListenerFunc) OnGameEvent(g *Game) {
	f(g)
}

// ListenerID is the handle returned by AddListener.
type ListenerID uuid.UUID

// String returns the handle in its canonical uuid form.
func (id ListenerID) String() string {
	return uuid.UUID(id).String()
}

type listenerEntry struct {
	id       ListenerID
	listener Listener
}

// AddListener registers l. Listeners are called in registration order.
func (g *Game) AddListener(l Listener) ListenerID {
	id := ListenerID(uuid.New())
	g.mu.Lock()
	g.listeners = append(g.listeners, listenerEntry{id: id, listener: l})
	g.mu.Unlock()
	return id
}

// RemoveListener unregisters a listener. It returns false if the handle is
// unknown. A notification already in progress may still reach it.
func (g *Game) RemoveListener(id ListenerID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.listeners {
		if e.id == id {
			g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// notify calls every listener with the game. Must be called without g.mu held.
func (g *Game) notify() {
	g.mu.Lock()
	listeners := make([]Listener, len(g.listeners))
	for i, e := range g.listeners {
		listeners[i] = e.listener
	}
	g.mu.Unlock()

	for _, l := range listeners {
		l.OnGameEvent(g)
	}
}
