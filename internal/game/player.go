package game

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/hailam/chesscore/internal/board"
	"github.com/hailam/chesscore/internal/engine"
)

var (
	// ErrNotYourTurn is returned by HumanPlayer.Submit when the player has
	// not been asked for a move.
	ErrNotYourTurn = errors.New("game: not your turn")

	// ErrGameOver is returned by HumanPlayer.Submit once the game is over.
	ErrGameOver = errors.New("game: game is over")
)

// Player is one side of a game.
//
// SetGame is called once by Begin, with the game locked, so it must only
// store the reference. SetBoard is handed a private copy of the position
// after every change. SelectMove is called on the game's worker goroutine
// when it is side's turn; b is a private copy. It must return promptly
// with ctx.Err() once ctx is done: the game cancels the turn when the
// position changes under it.
type Player interface {
	SetGame(g *Game)
	SetBoard(b *board.Board)
	SelectMove(ctx context.Context, b *board.Board, side board.Color) (board.Move, error)
}

// ComputerPlayer moves with the search engine.
type ComputerPlayer struct {
	engine *engine.Engine
	depth  int
	game   *Game
}

// NewComputerPlayer returns a player searching depth plies with eng. A
// depth of 0 uses the engine's difficulty.
func NewComputerPlayer(eng *engine.Engine, depth int) *ComputerPlayer {
	if depth < 0 {
		panic("game: negative search depth")
	}
	return &ComputerPlayer{engine: eng, depth: depth}
}

// SetGame implements Player.
func (p *ComputerPlayer) SetGame(g *Game) {
	p.game = g
}

// SetBoard implements Player. The engine searches the board handed to
// SelectMove, so nothing is kept.
func (p *ComputerPlayer) SetBoard(*board.Board) {}

// SelectMove implements Player.
func (p *ComputerPlayer) SelectMove(ctx context.Context, b *board.Board, side board.Color) (board.Move, error) {
	depth := p.depth
	if depth == 0 {
		depth = engine.DifficultySettings[p.engine.Difficulty()].Depth
	}

	if g := p.game; g != nil {
		p.engine.OnProgress = func(v float32) {
			g.turnProgress(ctx, v)
		}
		defer func() { p.engine.OnProgress = nil }()
	}

	m, err := p.engine.SelectMove(ctx, b, side, depth)
	if err != nil {
		return board.NoMove, err
	}
	return m, nil
}

// HumanPlayer waits for moves typed or clicked by a person and delivered
// through Submit.
type HumanPlayer struct {
	mu      sync.Mutex
	game    *Game
	board   *board.Board
	pending *humanTurn
}

type humanTurn struct {
	board *board.Board
	side  board.Color
	moves chan board.Move
}

// NewHumanPlayer returns a human player.
func NewHumanPlayer() *HumanPlayer {
	return &HumanPlayer{}
}

// SetGame implements Player.
func (p *HumanPlayer) SetGame(g *Game) {
	p.mu.Lock()
	p.game = g
	p.mu.Unlock()
}

// SetBoard implements Player.
func (p *HumanPlayer) SetBoard(b *board.Board) {
	p.mu.Lock()
	p.board = b
	p.mu.Unlock()
}

// Board returns the last position the game showed this player, or nil.
func (p *HumanPlayer) Board() *board.Board {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.board == nil {
		return nil
	}
	return p.board.Copy()
}

// SelectMove implements Player. It blocks until Submit delivers a move or
// ctx is done.
func (p *HumanPlayer) SelectMove(ctx context.Context, b *board.Board, side board.Color) (board.Move, error) {
	turn := &humanTurn{board: b, side: side, moves: make(chan board.Move, 1)}

	p.mu.Lock()
	p.pending = turn
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		if p.pending == turn {
			p.pending = nil
		}
		p.mu.Unlock()
	}()

	select {
	case m := <-turn.moves:
		return m, nil
	case <-ctx.Done():
		return board.NoMove, ctx.Err()
	}
}

// Waiting returns true while the player is being asked for a move.
func (p *HumanPlayer) Waiting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Submit parses a coordinate move ("e2e4", "e7e8q") against the position
// the player was asked about and hands it to the game. It returns the move
// or, for an illegal or malformed one, an error, in which case the player
// is still waiting.
func (p *HumanPlayer) Submit(s string) (board.Move, error) {
	p.mu.Lock()
	turn, g := p.pending, p.game
	if turn == nil {
		p.mu.Unlock()
		if g != nil && g.Done() {
			return board.NoMove, ErrGameOver
		}
		return board.NoMove, ErrNotYourTurn
	}
	defer p.mu.Unlock()

	m, err := turn.board.ParseMove(s)
	if err != nil {
		return board.NoMove, errors.Wrapf(err, "%s to move", turn.side)
	}
	turn.moves <- m
	p.pending = nil
	return m, nil
}
