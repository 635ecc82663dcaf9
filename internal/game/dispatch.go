package game

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
)

// turnTask asks a player for one move. gen ties the answer to the position
// it was asked about: once the game moves on, the answer is dropped.
type turnTask struct {
	gen    uint64
	player Player
	side   board.Color
	board  *board.Board
	ctx    context.Context
}

// dispatchLocked queues a turn for the side to move, replacing any turn
// still waiting in the queue.
func (g *Game) dispatchLocked() {
	g.generation++
	ctx, cancel := context.WithCancel(g.ctx)
	g.turnCancel = cancel

	side := g.board.SideToMove()
	task := turnTask{
		gen:    g.generation,
		player: g.players[side],
		side:   side,
		board:  g.board.Copy(),
		ctx:    ctx,
	}

	// The queue holds one task; an unclaimed one is stale by now
	select {
	case stale := <-g.tasks:
		g.log.V(2).Info("dropping queued turn", "generation", stale.gen)
	default:
	}
	g.tasks <- task
}

// stopTurnLocked invalidates the turn in flight, if any.
func (g *Game) stopTurnLocked() {
	g.generation++
	if g.turnCancel != nil {
		g.turnCancel()
		g.turnCancel = nil
	}
}

// worker runs turns one at a time until the game is ended.
func (g *Game) worker() {
	defer close(g.workerDone)
	for {
		select {
		case <-g.ctx.Done():
			return
		case task := <-g.tasks:
			g.runTurn(task)
		}
	}
}

func (g *Game) runTurn(task turnTask) {
	if task.ctx.Err() != nil {
		return
	}
	log := g.log.WithValues("side", task.side.String(), "generation", task.gen)
	log.V(2).Info("asking player for a move")

	m, err := task.player.SelectMove(task.ctx, task.board, task.side)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.V(2).Info("turn cancelled")
			return
		}
		log.Error(err, "player failed to move")
		g.SetStatus(task.side.String() + " could not move: " + err.Error())
		return
	}

	if err := g.play(m, task.gen, true); err != nil {
		log.Error(err, "player returned an illegal move", "move", m.String())
		g.SetStatus(task.side.String() + " played an illegal move.")
	}
}
