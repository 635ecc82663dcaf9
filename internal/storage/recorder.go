package storage

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/chesscore/internal/game"
)

// Recorder is a game listener that adds each finished game to the
// statistics. A game is recorded once, even if it is reopened by an undo
// and finished again.
type Recorder struct {
	store    *Storage
	template GameResult
	now      func() time.Time

	mu       sync.Mutex
	started  map[uuid.UUID]time.Time
	recorded map[uuid.UUID]bool
}

// NewRecorder returns a recorder filling in the mode, difficulty and human
// color of every result from template.
func NewRecorder(s *Storage, template GameResult) *Recorder {
	return &Recorder{
		store:    s,
		template: template,
		now:      time.Now,
		started:  make(map[uuid.UUID]time.Time),
		recorded: make(map[uuid.UUID]bool),
	}
}

// OnGameEvent implements game.Listener.
func (r *Recorder) OnGameEvent(g *game.Game) {
	id := g.ID()

	r.mu.Lock()
	if _, ok := r.started[id]; !ok {
		r.started[id] = r.now()
	}
	if r.recorded[id] || !g.Done() {
		r.mu.Unlock()
		return
	}
	r.recorded[id] = true
	started := r.started[id]
	r.mu.Unlock()

	result := r.template
	result.Winner, _ = g.Winner()
	result.Reason = g.Result()
	result.Duration = r.now().Sub(started)

	if err := r.store.RecordGame(result); err != nil {
		r.store.log.Error(err, "failed to record game", "game", id.String())
	}
}
